package ec2

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/gammadia/awsrun/catalog"
	"github.com/gammadia/awsrun/fleet"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock EC2 API ---

type mockAPI struct {
	mu sync.Mutex

	runInputs       []*ec2.RunInstancesInput
	terminateInputs []*ec2.TerminateInstancesInput

	runErr       error
	terminateErr error
	states       map[string]types.InstanceStateName
}

func (m *mockAPI) RunInstances(_ context.Context, params *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runInputs = append(m.runInputs, params)
	if m.runErr != nil {
		return nil, m.runErr
	}

	output := &ec2.RunInstancesOutput{ReservationId: aws.String("r-0123")}
	for i := int32(0); i < aws.ToInt32(params.MaxCount); i++ {
		output.Instances = append(output.Instances, types.Instance{InstanceId: aws.String(fmt.Sprintf("i-%d", i))})
	}
	return output, nil
}

func (m *mockAPI) TerminateInstances(_ context.Context, params *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminateInputs = append(m.terminateInputs, params)
	if m.terminateErr != nil {
		return nil, m.terminateErr
	}
	return &ec2.TerminateInstancesOutput{}, nil
}

func (m *mockAPI) DescribeInstances(_ context.Context, params *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	output := &ec2.DescribeInstancesOutput{}
	for _, id := range params.InstanceIds {
		if state, ok := m.states[id]; ok {
			output.Reservations = append(output.Reservations, types.Reservation{
				Instances: []types.Instance{{InstanceId: aws.String(id), State: &types.InstanceState{Name: state}}},
			})
		}
	}
	return output, nil
}

func newTestProvisioner(api *mockAPI) *Provisioner {
	return NewWithClient(api, Config{Region: "us-east-1", Image: "ami-9eaa1cf6"})
}

func newSpec() fleet.Spec {
	return fleet.Spec{
		Name:              "awsrun-test",
		InstanceType:      "c3.xlarge",
		Cores:             4,
		Count:             2,
		UserData:          "#!/bin/bash\npython worker.py --concurrency 3 alice secret\n",
		ShutdownTerminate: true,
		Tags:              map[string]string{"awsrun-fleet": "awsrun-test"},
	}
}

func TestLaunch(t *testing.T) {
	api := &mockAPI{}
	batch, err := newTestProvisioner(api).Launch(context.Background(), newSpec())
	require.NoError(t, err)

	assert.Equal(t, "r-0123", batch.ID)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, "i-0", batch.Instances[0].ID())
	assert.Equal(t, "i-1", batch.Instances[1].ID())

	require.Len(t, api.runInputs, 1)
	input := api.runInputs[0]
	assert.Equal(t, "ami-9eaa1cf6", aws.ToString(input.ImageId))
	assert.Equal(t, types.InstanceType("c3.xlarge"), input.InstanceType)
	assert.Equal(t, int32(2), aws.ToInt32(input.MinCount))
	assert.Equal(t, int32(2), aws.ToInt32(input.MaxCount))
	assert.Equal(t, types.ShutdownBehaviorTerminate, input.InstanceInitiatedShutdownBehavior)
	assert.False(t, aws.ToBool(input.DryRun))

	userData, err := base64.StdEncoding.DecodeString(aws.ToString(input.UserData))
	require.NoError(t, err)
	assert.Contains(t, string(userData), "--concurrency 3 alice secret")

	require.Len(t, input.TagSpecifications, 1)
	assert.Equal(t, types.ResourceTypeInstance, input.TagSpecifications[0].ResourceType)
	assert.Contains(t, input.TagSpecifications[0].Tags, types.Tag{Key: aws.String("awsrun-fleet"), Value: aws.String("awsrun-test")})
}

func TestLaunchDryRun(t *testing.T) {
	api := &mockAPI{runErr: &smithy.GenericAPIError{Code: "DryRunOperation", Message: "Request would have succeeded, but DryRun flag is set."}}
	spec := newSpec()
	spec.DryRun = true

	_, err := newTestProvisioner(api).Launch(context.Background(), spec)
	assert.ErrorIs(t, err, fleet.ErrDryRun)
	assert.True(t, aws.ToBool(api.runInputs[0].DryRun))
}

func TestLaunchDryRunUnauthorized(t *testing.T) {
	api := &mockAPI{runErr: &smithy.GenericAPIError{Code: "UnauthorizedOperation", Message: "You are not authorized"}}
	spec := newSpec()
	spec.DryRun = true

	_, err := newTestProvisioner(api).Launch(context.Background(), spec)
	assert.NotErrorIs(t, err, fleet.ErrDryRun)
	assert.ErrorContains(t, err, "UnauthorizedOperation")
}

func TestLaunchFailure(t *testing.T) {
	api := &mockAPI{runErr: errors.New("InstanceLimitExceeded")}
	_, err := newTestProvisioner(api).Launch(context.Background(), newSpec())
	assert.ErrorContains(t, err, "ec2 run instances: InstanceLimitExceeded")
}

func TestLaunchCountOutOfRange(t *testing.T) {
	for _, count := range []int{0, math.MaxInt32 + 1, 1<<32 + 2} {
		api := &mockAPI{}
		spec := newSpec()
		spec.Count = count

		_, err := newTestProvisioner(api).Launch(context.Background(), spec)
		assert.ErrorContains(t, err, fmt.Sprintf("count %d is out of range", count))
		assert.Empty(t, api.runInputs, "no request expected for count %d", count)
	}
}

func TestLaunchLargestCount(t *testing.T) {
	api := &mockAPI{runErr: errors.New("InstanceLimitExceeded")}
	spec := newSpec()
	spec.Count = math.MaxInt32

	_, err := newTestProvisioner(api).Launch(context.Background(), spec)
	assert.ErrorContains(t, err, "InstanceLimitExceeded")
	require.Len(t, api.runInputs, 1)
	assert.Equal(t, int32(math.MaxInt32), aws.ToInt32(api.runInputs[0].MinCount))
	assert.Equal(t, int32(math.MaxInt32), aws.ToInt32(api.runInputs[0].MaxCount))
}

func TestTerminateIssuesOneCallPerInstance(t *testing.T) {
	api := &mockAPI{}
	spec := newSpec()
	spec.Count = 3
	batch, err := newTestProvisioner(api).Launch(context.Background(), spec)
	require.NoError(t, err)

	for _, instance := range batch.Instances {
		require.NoError(t, instance.Terminate(context.Background()))
	}

	require.Len(t, api.terminateInputs, 3)
	for i, input := range api.terminateInputs {
		assert.Equal(t, []string{fmt.Sprintf("i-%d", i)}, input.InstanceIds)
	}
}

func TestTerminateFailure(t *testing.T) {
	api := &mockAPI{terminateErr: errors.New("InvalidInstanceID.NotFound")}
	batch, err := newTestProvisioner(api).Launch(context.Background(), newSpec())
	require.NoError(t, err)

	assert.ErrorContains(t, batch.Instances[0].Terminate(context.Background()), "InvalidInstanceID.NotFound")
}

func TestStatus(t *testing.T) {
	api := &mockAPI{states: map[string]types.InstanceStateName{
		"i-0": types.InstanceStateNamePending,
		"i-1": types.InstanceStateNameRunning,
	}}
	batch, err := newTestProvisioner(api).Launch(context.Background(), newSpec())
	require.NoError(t, err)

	status, err := batch.Instances[0].Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fleet.Status{State: "pending", Running: false}, status)

	status, err = batch.Instances[1].Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fleet.Status{State: "running", Running: true}, status)
}

func TestStatusNotFound(t *testing.T) {
	api := &mockAPI{}
	batch, err := newTestProvisioner(api).Launch(context.Background(), newSpec())
	require.NoError(t, err)

	_, err = batch.Instances[0].Status(context.Background())
	assert.ErrorContains(t, err, "instance 'i-0' not found")
}

func TestFleetEndToEnd(t *testing.T) {
	api := &mockAPI{}
	f := fleet.New(newTestProvisioner(api), fleet.Config{Lifetime: 0, Tick: 1, PollInterval: 1})

	_, err := f.Launch(context.Background(), fleet.Request{
		Count:    2,
		Type:     lo.Must(catalog.Lookup("c3.xlarge")),
		User:     "alice",
		Password: "secret",
	})
	require.NoError(t, err)
	require.NoError(t, f.Countdown(context.Background(), io.Discard))
	require.NoError(t, f.Terminate(context.Background()))

	userData, err := base64.StdEncoding.DecodeString(aws.ToString(api.runInputs[0].UserData))
	require.NoError(t, err)
	assert.Contains(t, string(userData), "--concurrency 3 alice secret")
	assert.Len(t, api.terminateInputs, 2)
}
