package cluster

import (
	"context"
	"fmt"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/utils"
)

// InstancesInput contains the filters used when listing cluster nodes
type InstancesInput struct {
	Name      string
	NodeType  string
	QueueName string
	NextToken string
}

// Instances returns one page of the nodes of the cluster that have not
// been terminated together with the token for the next page
func (m *Manager) Instances(ctx context.Context, in InstancesInput) ([]Instance, string, error) {
	filters := []aws.Filter{
		{Name: "tag:" + utils.ClusterNameTag, Values: []string{in.Name}},
		{Name: "instance-state-name", Values: []string{"pending", "running", "shutting-down", "stopping", "stopped"}},
	}

	if in.NodeType != "" {
		filters = append(filters, aws.Filter{
			Name:   "tag:" + utils.NodeTypeTag,
			Values: []string{in.NodeType},
		})
	}

	if in.QueueName != "" {
		filters = append(filters, aws.Filter{
			Name:   "tag:" + utils.QueueNameTag,
			Values: []string{in.QueueName},
		})
	}

	instances, token, err := m.c.EC2.DescribeInstances(ctx, filters, in.NextToken)
	if err != nil {
		return nil, "", err
	}

	out := []Instance{}
	for _, i := range instances {
		out = append(out, toClusterInstance(i))
	}

	return out, token, nil
}

// DeleteInstances terminates all compute nodes of the cluster, the
// scheduler replaces them with fresh instances, force skips the check
// that the cluster still exists
func (m *Manager) DeleteInstances(ctx context.Context, name string, force bool) error {
	stack, err := m.c.CFN.DescribeStack(ctx, utils.ClusterStackName(name))
	if err != nil {
		if !aws.IsStackNotFound(err) {
			return err
		}

		if !force {
			return fmt.Errorf("cluster %s does not exist, pass --force to terminate its instances anyway", name)
		}
	}

	if stack != nil && stack.Tags[utils.SchedulerTag] == config.SchedulerAwsBatch {
		return fmt.Errorf("cluster %s uses the awsbatch scheduler, its instances are managed by AWS Batch", name)
	}

	filters := []aws.Filter{
		{Name: "tag:" + utils.ClusterNameTag, Values: []string{name}},
		{Name: "tag:" + utils.NodeTypeTag, Values: []string{utils.NodeTypeCompute}},
		{Name: "instance-state-name", Values: []string{"pending", "running"}},
	}

	ids := []string{}
	token := ""

	for {
		instances, next, err := m.c.EC2.DescribeInstances(ctx, filters, token)
		if err != nil {
			return err
		}

		for _, i := range instances {
			ids = append(ids, i.ID)
		}

		if next == "" {
			break
		}

		token = next
	}

	m.log.Info("Terminating compute nodes", "cluster", name, "count", len(ids))

	return m.c.EC2.TerminateInstances(ctx, ids)
}

// headNode returns the instance managing the cluster, nil when no head
// node is running
func (m *Manager) headNode(ctx context.Context, name string) (*HeadNode, error) {
	filters := []aws.Filter{
		{Name: "tag:" + utils.ClusterNameTag, Values: []string{name}},
		{Name: "tag:" + utils.NodeTypeTag, Values: []string{utils.NodeTypeHeadNode}},
		{Name: "instance-state-name", Values: []string{"pending", "running"}},
	}

	instances, _, err := m.c.EC2.DescribeInstances(ctx, filters, "")
	if err != nil {
		return nil, err
	}

	if len(instances) == 0 {
		return nil, nil
	}

	i := instances[0]

	return &HeadNode{
		InstanceID:       i.ID,
		InstanceType:     i.Type,
		State:            i.State,
		LaunchTime:       i.LaunchTime,
		PrivateIPAddress: i.PrivateIP,
		PublicIPAddress:  i.PublicIP,
	}, nil
}

func toClusterInstance(i aws.Instance) Instance {
	return Instance{
		InstanceID:       i.ID,
		InstanceType:     i.Type,
		State:            i.State,
		LaunchTime:       i.LaunchTime,
		PrivateIPAddress: i.PrivateIP,
		PublicIPAddress:  i.PublicIP,
		NodeType:         i.Tags[utils.NodeTypeTag],
		QueueName:        i.Tags[utils.QueueNameTag],
	}
}
