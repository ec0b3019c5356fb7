package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/gammadia/awsrun/fleet"
)

type Instance struct {
	id          string
	provisioner *Provisioner
}

// Instance implements fleet.Instance
var _ fleet.Instance = (*Instance)(nil)

func (i *Instance) ID() string {
	return i.id
}

func (i *Instance) Terminate(ctx context.Context) error {
	if _, err := i.provisioner.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{i.id},
	}); err != nil {
		return fmt.Errorf("ec2 terminate instances: %w", err)
	}
	return nil
}

func (i *Instance) Status(ctx context.Context) (fleet.Status, error) {
	output, err := i.provisioner.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{i.id},
	})
	if err != nil {
		return fleet.Status{}, fmt.Errorf("ec2 describe instances: %w", err)
	}

	for _, reservation := range output.Reservations {
		for _, instance := range reservation.Instances {
			if instance.State != nil {
				return fleet.Status{
					State:   string(instance.State.Name),
					Running: instance.State.Name == types.InstanceStateNameRunning,
				}, nil
			}
		}
	}
	return fleet.Status{}, fmt.Errorf("instance '%s' not found", i.id)
}
