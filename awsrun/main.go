package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/gammadia/awsrun/catalog"
	"github.com/gammadia/awsrun/flags"
	"github.com/gammadia/awsrun/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// Versioning information set at build time
var version, commit = "dev", "n/a"

var awsrunCmd = &cobra.Command{
	Use:   "awsrun num_instances instance_type user password",
	Short: "Launches a fleet of fishtest workers for about an hour, then terminates it.",
	Long: "Launches num_instances instances of instance_type, each booting into a fishtest worker\n" +
		"that authenticates with user and password. The instances are terminated when the\n" +
		"countdown elapses or when awsrun is interrupted (Ctrl+C).\n\n" +
		"With --dry, the provider only validates the request. A dry run the provider\n" +
		"accepts exits with status 0, a rejected one with status 1.",

	SilenceErrors: true,

	Args: func(cmd *cobra.Command, args []string) error {
		_, err := parseArgs(args)
		return err
	},

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := flags.Init(cmd.Flags()); err != nil {
			return err
		}
		return log.Init()
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		// Arguments are valid, further errors are not usage errors
		cmd.SilenceUsage = true

		request, err := parseArgs(args)
		if err != nil {
			return err
		}
		return runFleet(cmd, request)
	},
}

func init() {
	awsrunCmd.AddCommand(completionCmd)
	awsrunCmd.AddCommand(typesCmd)
	awsrunCmd.AddCommand(versionCmd)

	flags.Register(awsrunCmd.PersistentFlags())
	flags.RegisterLaunch(awsrunCmd.Flags())

	awsrunCmd.SetUsageTemplate(awsrunCmd.UsageTemplate() +
		"\nThe possible values for the instance_type are:\n  " + strings.Join(catalog.Names(), ", ") + "\n")
}

// legacyArgs accepts the historical single-dash spelling of long flags.
func legacyArgs(args []string) []string {
	return lo.Map(args, func(arg string, _ int) string {
		return lo.Ternary(arg == "-"+flags.DryRun, "--"+flags.DryRun, arg)
	})
}

// setupInterrupts handles SIGINT and SIGTERM with a double-tap pattern:
// - First signal: cancels the returned context, the fleet is terminated by the main path
// - Second signal: forces immediate exit (in case termination hangs)
func setupInterrupts() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		log.Info("Shutdown signal received, terminating instances")
		cancel()
		<-sig
		log.Warn("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return ctx
}

func main() {
	ctx := setupInterrupts()

	awsrunCmd.SetOut(os.Stdout)
	awsrunCmd.SetArgs(legacyArgs(os.Args[1:]))
	if err := awsrunCmd.ExecuteContext(ctx); err != nil {
		lo.Must(fmt.Fprintln(os.Stderr, color.HiRedString(fmt.Sprint(err))))
		os.Exit(1)
	}
}
