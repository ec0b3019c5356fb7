package fleet

import (
	"context"
	"errors"
)

// ErrDryRun is wrapped by providers when a dry-run request would have succeeded.
var ErrDryRun = errors.New("request would have succeeded, but the dry run flag is set")

// Spec describes one batch launch request.
type Spec struct {
	// Name of the fleet, attached to every instance
	Name string `json:"name"`
	// Provider-specific instance type (or flavor) identifier
	InstanceType string `json:"instance-type"`
	// Cores of the instance type
	Cores int `json:"cores"`
	// Exact number of instances: the provider fulfills all of them or fails
	Count int `json:"count"`
	// Rendered boot script
	UserData string `json:"-"`
	// Instances terminate themselves when shut down from inside
	ShutdownTerminate bool              `json:"shutdown-terminate"`
	DryRun            bool              `json:"dry-run"`
	Tags              map[string]string `json:"tags"`
}

type Provider interface {
	Name() string
	// Launch issues a single all-or-nothing request for spec.Count instances.
	Launch(ctx context.Context, spec Spec) (*Batch, error)
}

type Instance interface {
	ID() string
	Terminate(ctx context.Context) error
	Status(ctx context.Context) (Status, error)
}

type Status struct {
	// Provider-specific state name
	State   string
	Running bool
}

// Batch is the handle returned by a launch. It is the only record of which
// instances belong to the fleet.
type Batch struct {
	ID        string
	Instances []Instance
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Instances)
}
