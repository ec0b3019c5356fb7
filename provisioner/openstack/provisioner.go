package openstack

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gammadia/awsrun/fleet"
	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/flavors"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/samber/lo"
)

type Provisioner struct {
	config Config
	client *gophercloud.ServiceClient
	log    *slog.Logger
}

// Provisioner implements fleet.Provider
var _ fleet.Provider = (*Provisioner)(nil)

// New authenticates with the OS_* environment variables.
func New(config Config) (*Provisioner, error) {
	opts, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth options from env: %w", err)
	}

	provider, err := openstack.AuthenticatedClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client: %w", err)
	}

	region := config.Region
	if region == "" {
		region = os.Getenv("OS_REGION_NAME")
	}

	client, err := openstack.NewComputeV2(provider, gophercloud.EndpointOpts{
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get compute client: %w", err)
	}

	return NewWithClient(client, config), nil
}

func NewWithClient(client *gophercloud.ServiceClient, config Config) *Provisioner {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Provisioner{
		config: config,
		client: client,
		log:    logger,
	}
}

func (p *Provisioner) Name() string {
	return "openstack"
}

func (p *Provisioner) flavor(spec fleet.Spec) string {
	return lo.Ternary(p.config.Flavor != "", p.config.Flavor, spec.InstanceType)
}

// Launch creates the servers one by one. If any of them fails, those already
// created are deleted so that the batch is all or nothing.
func (p *Provisioner) Launch(ctx context.Context, spec fleet.Spec) (*fleet.Batch, error) {
	client := p.client
	flavor := p.flavor(spec)

	if spec.DryRun {
		if _, err := flavors.Get(client, flavor).Extract(); err != nil {
			return nil, fmt.Errorf("failed to get flavor '%s': %w", flavor, err)
		}
		return nil, fmt.Errorf("openstack: %w", fleet.ErrDryRun)
	}
	if spec.ShutdownTerminate {
		p.log.Debug("Servers are deleted by awsrun, not on shutdown", "fleet", spec.Name)
	}

	batch := &fleet.Batch{ID: spec.Name}
	for i := 0; i < spec.Count; i++ {
		name := fmt.Sprintf("%s-%d", spec.Name, i+1)

		opts := servers.CreateOpts{
			Name:           name,
			ImageRef:       p.config.Image,
			FlavorRef:      flavor,
			SecurityGroups: p.config.SecurityGroups,
			UserData:       []byte(spec.UserData),
			Metadata:       spec.Tags,
		}
		if len(p.config.Networks) > 0 {
			opts.Networks = p.config.Networks
		}

		var createOpts servers.CreateOptsBuilder = opts
		if p.config.KeyName != "" {
			createOpts = keypairs.CreateOptsExt{
				CreateOptsBuilder: createOpts,
				KeyName:           p.config.KeyName,
			}
		}

		server, err := servers.Create(client, createOpts).Extract()
		if err != nil {
			p.rollback(ctx, batch)
			return nil, fmt.Errorf("failed to create server '%s' (%d/%d): %w", name, i+1, spec.Count, err)
		}

		p.log.Debug("Created server", "server", name, "id", server.ID)
		batch.Instances = append(batch.Instances, &Instance{
			name:        name,
			server:      server,
			provisioner: p,
		})
	}

	return batch, nil
}

func (p *Provisioner) rollback(ctx context.Context, batch *fleet.Batch) {
	for _, instance := range batch.Instances {
		if err := instance.Terminate(context.WithoutCancel(ctx)); err != nil {
			p.log.Error("Failed to delete server after failed launch", "server", instance.ID(), "error", err)
		}
	}
}
