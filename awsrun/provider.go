package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gammadia/awsrun/fleet"
	"github.com/gammadia/awsrun/flags"
	"github.com/gammadia/awsrun/log"
	"github.com/gammadia/awsrun/provisioner/ec2"
	"github.com/gammadia/awsrun/provisioner/local"
	"github.com/gammadia/awsrun/provisioner/openstack"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

var providerLabels = map[string]string{
	"ec2":       "AWS EC2",
	"openstack": "OpenStack",
	"local":     "the local Docker daemon",
}

// newProvider builds the provider selected by the --provider flag.
var newProvider = createProvider

func createProvider(ctx context.Context) (fleet.Provider, error) {
	logger := log.Base.With("component", "provider")
	switch p := viper.GetString(flags.Provider); p {
	case "ec2":
		config := ec2.Config{
			Logger:          logger,
			Region:          viper.GetString(flags.AwsRegion),
			Image:           viper.GetString(flags.AwsImage),
			Profile:         viper.GetString(flags.AwsProfile),
			AccessKeyID:     viper.GetString(flags.AwsAccessKeyID),
			SecretAccessKey: viper.GetString(flags.AwsSecretAccessKey),
		}
		logger.Debug("Provider config", "provider", p, "config", string(lo.Must(json.Marshal(config))))
		return ec2.New(ctx, config)

	case "openstack":
		config := openstack.Config{
			Logger: logger,
			Region: viper.GetString(flags.OpenstackRegion),
			Image:  viper.GetString(flags.OpenstackImage),
			Flavor: viper.GetString(flags.OpenstackFlavor),
			Networks: lo.Map(
				viper.GetStringSlice(flags.OpenstackNetworks),
				func(s string, _ int) servers.Network {
					return servers.Network{UUID: s}
				},
			),
			SecurityGroups: viper.GetStringSlice(flags.OpenstackSecurityGroups),
			KeyName:        viper.GetString(flags.OpenstackKeyName),
		}
		logger.Debug("Provider config", "provider", p, "config", string(lo.Must(json.Marshal(config))))
		return openstack.New(config)

	case "local":
		config := local.Config{
			Logger: logger,
			Image:  viper.GetString(flags.LocalImage),
		}
		logger.Debug("Provider config", "provider", p, "config", string(lo.Must(json.Marshal(config))))
		return local.New(config)

	default:
		return nil, fmt.Errorf("unknown provider '%s' (choose from ec2, openstack, local)", p)
	}
}
