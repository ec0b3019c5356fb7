package flags

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	Config       = "config"
	DryRun       = "dry"
	LogFormat    = "log-format"
	LogLevel     = "log-level"
	LogSource    = "log-source"
	Verbose      = "verbose"
	Provider     = "provider"
	Lifetime     = "lifetime"
	Tick         = "tick"
	Wait         = "wait"
	PollInterval = "poll-interval"
	BootScript   = "boot-script"

	AwsRegion          = "aws-region"
	AwsImage           = "aws-image"
	AwsProfile         = "aws-profile"
	AwsAccessKeyID     = "aws-access-key-id"
	AwsSecretAccessKey = "aws-secret-access-key"

	OpenstackRegion         = "openstack-region"
	OpenstackImage          = "openstack-image"
	OpenstackFlavor         = "openstack-flavor"
	OpenstackNetworks       = "openstack-networks"
	OpenstackSecurityGroups = "openstack-security-groups"
	OpenstackKeyName        = "openstack-key-name"

	LocalImage = "local-image"
)

// DefaultLifetime is how many seconds the fleet lives before being terminated.
const DefaultLifetime = 3500

// Register adds the persistent flags shared by every command.
func Register(flags *flag.FlagSet) {
	flags.String(Config, "", "config file (default ./awsrun.yaml or $HOME/.config/awsrun/awsrun.yaml)")
	flags.String(LogFormat, "text", "log format (json, text)")
	flags.String(LogLevel, "WARN", "minimum log level")
	flags.Bool(LogSource, false, "add source code location to logs")
	flags.BoolP(Verbose, "v", false, "verbose output (debug logs)")
}

// RegisterLaunch adds the flags of the launch command.
func RegisterLaunch(flags *flag.FlagSet) {
	// awsrun
	flags.BoolP(DryRun, "n", false, "dry run, the provider validates the request without creating anything (exit status 0 if it would succeed)")
	flags.String(Provider, "ec2", "instance provider to use (ec2, openstack, local)")
	flags.Int(Lifetime, DefaultLifetime, "seconds to wait before terminating the instances")
	flags.Duration(Tick, time.Second, "duration of one countdown step")
	flags.Bool(Wait, false, "wait for all instances to be running before starting the countdown")
	flags.Duration(PollInterval, 10*time.Second, "how often to poll instance states while waiting")
	flags.String(BootScript, "", "custom boot script template")

	// AWS
	flags.String(AwsRegion, "us-east-1", "EC2 region")
	flags.String(AwsImage, "ami-9eaa1cf6", "EC2 image (Ubuntu 14.04)")
	flags.String(AwsProfile, "", "AWS shared configuration profile")

	// Openstack
	flags.String(OpenstackRegion, "", "region (defaults to OS_REGION_NAME)")
	flags.String(OpenstackImage, "", "image to use for provisioning")
	flags.String(OpenstackFlavor, "", "flavor to use instead of the instance type")
	flags.StringSlice(OpenstackNetworks, nil, "networks attached to the servers")
	flags.StringSlice(OpenstackSecurityGroups, nil, "security groups defined for the servers")
	flags.String(OpenstackKeyName, "", "keypair injected in the servers")

	// Local
	flags.String(LocalImage, "ubuntu:14.04", "docker image used for local instances")
}

// Init binds the flags to viper, reading AWSRUN_* environment variables and
// the optional config file.
func Init(flags *flag.FlagSet) error {
	viper.SetEnvPrefix("awsrun")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	lo.Must0(viper.BindPFlags(flags))

	if file := viper.GetString(Config); file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("awsrun")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/awsrun")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
