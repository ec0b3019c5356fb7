package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/gammadia/awsrun/bootscript"
	"github.com/gammadia/awsrun/fleet"
	"github.com/gammadia/awsrun/flags"
	"github.com/gammadia/awsrun/log"
	"github.com/gammadia/awsrun/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func runFleet(cmd *cobra.Command, request fleet.Request) error {
	request.DryRun = viper.GetBool(flags.DryRun)

	cmd.Println("Number of instances to launch:", request.Count)
	cmd.Println("Instance Type:", request.Type.Name)
	cmd.Println("Number of cores per instance:", request.Type.Concurrency())
	cmd.Println()

	config, err := fleetConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	spinner := ui.NewSpinner(cmd.OutOrStdout(), fmt.Sprintf("Connecting to %s...", providerLabels[viper.GetString(flags.Provider)]))
	provider, err := newProvider(ctx)
	if err != nil {
		spinner.Fail()
		return fmt.Errorf("unable to create provider '%s': %w", viper.GetString(flags.Provider), err)
	}

	f := fleet.New(provider, config)
	log.Debug("Fleet created", "fleet", f.Name(), "provider", provider.Name(), "dry-run", request.DryRun)

	// An interrupt must not abandon a launch halfway: the batch handle is
	// needed to terminate the instances.
	spinner.UpdateMessage(fmt.Sprintf("Launching %d '%s' instances...", request.Count, request.Type.Name))
	batch, err := f.Launch(context.WithoutCancel(ctx), request)
	if errors.Is(err, fleet.ErrDryRun) {
		spinner.Warn(fmt.Sprintf("Dry run: %s", fleet.ErrDryRun))
		return nil
	} else if err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success(fmt.Sprintf("Success. Number of instances launched: %d", batch.Len()))

	waitErr := holdFleet(ctx, cmd, f)

	spinner = ui.NewSpinner(cmd.OutOrStdout(), "Terminating instances...")
	if err := f.Terminate(context.WithoutCancel(ctx)); err != nil {
		spinner.Fail()
		return errors.Join(waitErr, err)
	}
	spinner.Success("All instances terminated...")

	return waitErr
}

// holdFleet blocks until the fleet should be terminated. Interrupts are not errors.
func holdFleet(ctx context.Context, cmd *cobra.Command, f *fleet.Fleet) error {
	if viper.GetBool(flags.Wait) {
		cmd.Println("Waiting for instances to run...")
		err := f.WaitRunning(ctx, func(instance fleet.Instance, status fleet.Status) {
			cmd.Printf("...instance %s is in %s state\n", instance.ID(), status.State)
		})
		if ctx.Err() != nil {
			return nil
		} else if err != nil {
			return err
		}
		cmd.Println(color.HiGreenString("All instances running..."))
	}

	if err := f.Countdown(ctx, cmd.OutOrStdout()); err != nil {
		log.Info("Countdown interrupted", "fleet", f.Name())
	}
	return nil
}

func fleetConfig(cmd *cobra.Command) (fleet.Config, error) {
	config := fleet.Config{
		BootScript:   bootscript.Default(),
		Interactive:  cmd.OutOrStdout() == os.Stdout && ui.Interactive(os.Stdout),
		Lifetime:     viper.GetInt(flags.Lifetime),
		Logger:       log.Base.With("component", "fleet"),
		PollInterval: viper.GetDuration(flags.PollInterval),
		Tick:         viper.GetDuration(flags.Tick),
	}
	if file := viper.GetString(flags.BootScript); file != "" {
		tmpl, err := bootscript.Load(file)
		if err != nil {
			return fleet.Config{}, fmt.Errorf("failed to load boot script: %w", err)
		}
		config.BootScript = tmpl
	}
	if err := fleet.Validate(config); err != nil {
		return fleet.Config{}, fmt.Errorf("invalid fleet config: %w", err)
	}
	return config, nil
}
