package local

import (
	"context"
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/gammadia/awsrun/fleet"
)

type Instance struct {
	id          string
	name        string
	provisioner *Provisioner
}

// Instance implements fleet.Instance
var _ fleet.Instance = (*Instance)(nil)

func (i *Instance) ID() string {
	return i.id
}

func (i *Instance) Name() string {
	return i.name
}

// Terminate removes the container. Containers that already exited were
// removed by the daemon and count as terminated.
func (i *Instance) Terminate(ctx context.Context) error {
	err := i.provisioner.docker.ContainerRemove(ctx, i.id, container.RemoveOptions{Force: true})
	if err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("failed to remove container '%s': %w", i.name, err)
	}
	return nil
}

func (i *Instance) Status(ctx context.Context) (fleet.Status, error) {
	resp, err := i.provisioner.docker.ContainerInspect(ctx, i.id)
	if cerrdefs.IsNotFound(err) {
		return fleet.Status{State: "removed"}, nil
	}
	if err != nil {
		return fleet.Status{}, fmt.Errorf("failed to inspect container '%s': %w", i.name, err)
	}
	if resp.ContainerJSONBase == nil || resp.State == nil {
		return fleet.Status{}, fmt.Errorf("container '%s' has no state", i.name)
	}

	return fleet.Status{
		State:   string(resp.State.Status),
		Running: resp.State.Running,
	}, nil
}
