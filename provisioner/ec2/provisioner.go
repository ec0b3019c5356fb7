package ec2

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/gammadia/awsrun/fleet"
	"github.com/samber/lo"
)

// API is the subset of the EC2 client used by the provisioner.
type API interface {
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

type Provisioner struct {
	config Config
	client API
	log    *slog.Logger
}

// Provisioner implements fleet.Provider
var _ fleet.Provider = (*Provisioner)(nil)

func New(ctx context.Context, cfg Config) (*Provisioner, error) {
	options := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	} else if cfg.Profile != "" {
		options = append(options, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(ec2.NewFromConfig(awsConfig), cfg), nil
}

func NewWithClient(client API, config Config) *Provisioner {
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
	return "ec2"
}

func (p *Provisioner) Launch(ctx context.Context, spec fleet.Spec) (*fleet.Batch, error) {
	if spec.Count <= 0 || spec.Count > math.MaxInt32 {
		return nil, fmt.Errorf("ec2 run instances: count %d is out of range (1-%d)", spec.Count, math.MaxInt32)
	}

	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(p.config.Image),
		InstanceType: types.InstanceType(spec.InstanceType),
		MinCount:     aws.Int32(int32(spec.Count)),
		MaxCount:     aws.Int32(int32(spec.Count)),
		UserData:     aws.String(base64.StdEncoding.EncodeToString([]byte(spec.UserData))),
		DryRun:       aws.Bool(spec.DryRun),
	}
	if spec.ShutdownTerminate {
		input.InstanceInitiatedShutdownBehavior = types.ShutdownBehaviorTerminate
	}
	if len(spec.Tags) > 0 {
		input.TagSpecifications = []types.TagSpecification{{
			ResourceType: types.ResourceTypeInstance,
			Tags: lo.MapToSlice(spec.Tags, func(key string, value string) types.Tag {
				return types.Tag{Key: aws.String(key), Value: aws.String(value)}
			}),
		}}
	}

	p.log.Debug("Running instances", "region", p.config.Region, "image", p.config.Image, "type", spec.InstanceType, "count", spec.Count)
	output, err := p.client.RunInstances(ctx, input)
	if err != nil {
		if isDryRun(err) {
			return nil, fmt.Errorf("ec2 run instances: %w", fleet.ErrDryRun)
		}
		return nil, fmt.Errorf("ec2 run instances: %w", err)
	}

	return &fleet.Batch{
		ID: aws.ToString(output.ReservationId),
		Instances: lo.Map(output.Instances, func(instance types.Instance, _ int) fleet.Instance {
			return &Instance{
				id:          aws.ToString(instance.InstanceId),
				provisioner: p,
			}
		}),
	}, nil
}

func isDryRun(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "DryRunOperation"
}
