package openstack

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gammadia/awsrun/fleet"
	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
)

type Instance struct {
	name        string
	server      *servers.Server
	provisioner *Provisioner

	terminated atomic.Bool
}

// Instance implements fleet.Instance
var _ fleet.Instance = (*Instance)(nil)

func (i *Instance) ID() string {
	return i.server.ID
}

func (i *Instance) Name() string {
	return i.name
}

// Terminate deletes the server. A failed delete can be retried by calling
// Terminate again.
func (i *Instance) Terminate(context.Context) error {
	if i.terminated.Load() {
		return nil
	}

	err := servers.Delete(i.provisioner.client, i.server.ID).ExtractErr()
	var notFound gophercloud.ErrDefault404
	if errors.As(err, &notFound) {
		i.provisioner.log.Debug("Server already deleted", "server", i.name)
	} else if err != nil {
		return fmt.Errorf("failed to delete server '%s': %w", i.name, err)
	}

	i.terminated.Store(true)
	return nil
}

func (i *Instance) Status(context.Context) (fleet.Status, error) {
	server, err := servers.Get(i.provisioner.client, i.server.ID).Extract()
	if err != nil {
		return fleet.Status{}, fmt.Errorf("failed to get server '%s': %w", i.name, err)
	}
	return fleet.Status{
		State:   server.Status,
		Running: server.Status == "ACTIVE",
	}, nil
}
