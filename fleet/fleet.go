// Package fleet drives the lifetime of a single batch of worker instances:
// launch, optional wait, countdown, termination.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gammadia/awsrun/bootscript"
	"github.com/gammadia/awsrun/catalog"
	"github.com/gammadia/awsrun/namegen"
)

// MaxCount is the largest batch a provider can be asked for.
const MaxCount = math.MaxInt32

// Request holds the launch parameters given by the operator.
type Request struct {
	Count    int
	Type     catalog.Type
	User     string
	Password string
	DryRun   bool
}

func (r Request) Validate() error {
	if r.Count <= 0 {
		return fmt.Errorf("number of instances must be greater than 0, got %d", r.Count)
	}
	if r.Count > MaxCount {
		return fmt.Errorf("number of instances must not exceed %d, got %d", MaxCount, r.Count)
	}
	if _, err := catalog.Lookup(r.Type.Name); err != nil {
		return err
	}
	return nil
}

// Fleet is scoped to a single run. It owns the batch handle returned by the
// provider and is the only path through which instances are terminated.
type Fleet struct {
	name     namegen.ID
	provider Provider
	config   Config
	log      *slog.Logger

	mutex sync.Mutex
	state State
	batch *Batch

	terminateOnce sync.Once
	terminateErr  error
}

func New(provider Provider, config Config) *Fleet {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.BootScript == nil {
		config.BootScript = bootscript.Default()
	}

	name := namegen.Fleet()
	return &Fleet{
		name:     name,
		provider: provider,
		config:   config,
		log:      config.Logger.With("fleet", name),
		state:    StateInit,
	}
}

func (f *Fleet) Name() namegen.ID {
	return f.name
}

func (f *Fleet) State() State {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.state
}

// Batch returns the launched batch, or nil before a successful launch.
func (f *Fleet) Batch() *Batch {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.batch
}

func (f *Fleet) setState(state State) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.log.Debug("Fleet state changed", "from", f.state, "to", state)
	f.state = state
}

// Launch renders the boot script and issues exactly one provider launch.
// Provider errors are returned as is: nothing is tracked for cleanup.
func (f *Fleet) Launch(ctx context.Context, request Request) (*Batch, error) {
	if state := f.State(); state != StateInit {
		return nil, fmt.Errorf("fleet '%s' cannot be launched in state '%s'", f.name, state)
	}
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("invalid launch request: %w", err)
	}

	userData, err := f.config.BootScript.Render(bootscript.Params{
		Concurrency: request.Type.Concurrency(),
		User:        request.User,
		Password:    request.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render boot script: %w", err)
	}

	spec := Spec{
		Name:              f.name.String(),
		InstanceType:      request.Type.Name,
		Cores:             request.Type.Cores,
		Count:             request.Count,
		UserData:          userData,
		ShutdownTerminate: true,
		DryRun:            request.DryRun,
		Tags: map[string]string{
			"Name":               f.name.String(),
			"awsrun-fleet":       f.name.String(),
			"awsrun-launched-at": time.Now().Format(time.RFC3339),
		},
	}

	f.log.Info("Launching instances", "provider", f.provider.Name(), "type", spec.InstanceType, "count", spec.Count, "dry-run", spec.DryRun)
	batch, err := f.provider.Launch(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %d '%s' instances: %w", spec.Count, spec.InstanceType, err)
	}
	if batch == nil {
		batch = &Batch{}
	}

	f.mutex.Lock()
	f.batch = batch
	f.mutex.Unlock()
	f.setState(StateProvisioned)

	f.log.Info("Instances launched", "batch", batch.ID, "count", batch.Len())
	return batch, nil
}

// WaitRunning polls the instances every PollInterval until all are running.
// report is called for every instance on every round.
func (f *Fleet) WaitRunning(ctx context.Context, report func(Instance, Status)) error {
	batch := f.Batch()
	if batch == nil {
		return fmt.Errorf("fleet '%s' has not been launched", f.name)
	}
	f.setState(StateWaiting)

	for {
		select {
		case <-ctx.Done():
			f.setState(StateInterrupted)
			return ctx.Err()
		case <-time.After(f.config.PollInterval):
		}

		allRunning := true
		for _, instance := range batch.Instances {
			status, err := instance.Status(ctx)
			if err != nil {
				if ctx.Err() != nil {
					f.setState(StateInterrupted)
					return ctx.Err()
				}
				return fmt.Errorf("failed to get status of instance '%s': %w", instance.ID(), err)
			}
			if report != nil {
				report(instance, status)
			}
			allRunning = allRunning && status.Running
		}

		if allRunning {
			f.setState(StateProvisioned)
			return nil
		}
	}
}

// Countdown blocks for the configured lifetime, writing the remaining time to out.
// It returns ctx.Err() when interrupted.
func (f *Fleet) Countdown(ctx context.Context, out io.Writer) error {
	f.setState(StateCounting)
	if err := countdown(ctx, out, f.config.Lifetime, f.config.Tick, f.config.Interactive); err != nil {
		f.setState(StateInterrupted)
		f.log.Info("Countdown interrupted", "error", err)
		return err
	}
	f.log.Info("Countdown elapsed", "lifetime", f.config.Lifetime)
	return nil
}

// Terminate issues one terminate call per instance of the batch. Every instance
// is attempted even if some fail. Only the first call does anything; later
// calls return the same result.
func (f *Fleet) Terminate(ctx context.Context) error {
	f.terminateOnce.Do(func() {
		defer f.setState(StateTerminated)

		batch := f.Batch()
		if batch == nil {
			f.log.Debug("Nothing to terminate")
			return
		}

		var errs []error
		for _, instance := range batch.Instances {
			f.log.Debug("Terminating instance", "instance", instance.ID())
			if err := instance.Terminate(ctx); err != nil {
				f.log.Warn("Failed to terminate instance", "instance", instance.ID(), "error", err)
				errs = append(errs, fmt.Errorf("failed to terminate instance '%s': %w", instance.ID(), err))
			}
		}
		f.terminateErr = errors.Join(errs...)
	})
	return f.terminateErr
}
