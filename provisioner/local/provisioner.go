package local

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/gammadia/awsrun/fleet"
)

// Provisioner runs every instance as a container on the local Docker daemon.
// The boot script is the container command.
type Provisioner struct {
	config Config
	log    *slog.Logger
	docker DockerClient
}

// Provisioner implements fleet.Provider
var _ fleet.Provider = (*Provisioner)(nil)

func New(config Config) (*Provisioner, error) {
	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to init docker client: %w", err)
	}

	return NewWithClient(docker, config), nil
}

func NewWithClient(docker DockerClient, config Config) *Provisioner {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Provisioner{
		config: config,
		log:    logger,
		docker: docker,
	}
}

func (p *Provisioner) Name() string {
	return "local"
}

func (p *Provisioner) Launch(ctx context.Context, spec fleet.Spec) (*fleet.Batch, error) {
	if err := p.ensureImage(ctx, spec.DryRun); err != nil {
		return nil, err
	}
	if spec.DryRun {
		return nil, fmt.Errorf("docker: %w", fleet.ErrDryRun)
	}

	batch := &fleet.Batch{ID: spec.Name}
	for i := 0; i < spec.Count; i++ {
		name := fmt.Sprintf("%s-%d", spec.Name, i+1)

		instance, err := p.run(ctx, name, spec)
		if err != nil {
			p.rollback(ctx, batch)
			return nil, fmt.Errorf("failed to run container '%s' (%d/%d): %w", name, i+1, spec.Count, err)
		}

		p.log.Debug("Started container", "container", name, "id", instance.id)
		batch.Instances = append(batch.Instances, instance)
	}

	return batch, nil
}

func (p *Provisioner) run(ctx context.Context, name string, spec fleet.Spec) (*Instance, error) {
	resp, err := p.docker.ContainerCreate(
		ctx,
		&container.Config{
			Image:  p.config.Image,
			Cmd:    []string{"bash", "-c", spec.UserData},
			Labels: spec.Tags,
		},
		&container.HostConfig{
			AutoRemove: spec.ShutdownTerminate,
			Resources: container.Resources{
				NanoCPUs: int64(min(spec.Cores, runtime.NumCPU())) * 1e9,
			},
		},
		nil,
		nil,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	instance := &Instance{id: resp.ID, name: name, provisioner: p}
	if err := p.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		if err := instance.Terminate(context.WithoutCancel(ctx)); err != nil {
			p.log.Error("Failed to remove container after failed start", "container", name, "error", err)
		}
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	return instance, nil
}

func (p *Provisioner) ensureImage(ctx context.Context, dryRun bool) error {
	images, err := p.docker.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", p.config.Image)),
	})
	if err != nil {
		return fmt.Errorf("failed to list docker images: %w", err)
	}
	if len(images) > 0 {
		return nil
	}
	if dryRun {
		return fmt.Errorf("docker image '%s' is not available locally", p.config.Image)
	}

	p.log.Info("Pulling image", "image", p.config.Image)
	reader, err := p.docker.ImagePull(ctx, p.config.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull docker image '%s': %w", p.config.Image, err)
	}
	defer reader.Close()

	// The pull is only complete once its progress stream has been consumed
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull docker image '%s': %w", p.config.Image, err)
	}
	return nil
}

func (p *Provisioner) rollback(ctx context.Context, batch *fleet.Batch) {
	for _, instance := range batch.Instances {
		if err := instance.Terminate(context.WithoutCancel(ctx)); err != nil {
			p.log.Error("Failed to remove container after failed launch", "container", instance.ID(), "error", err)
		}
	}
}
