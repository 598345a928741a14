package aws

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/google/uuid"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
	"github.com/gantry-labs/gantry/pkg/utils"
)

// CreateStackInput contains the details needed to create a new
// CloudFormation stack
type CreateStackInput struct {
	Name            string
	TemplateURL     string
	Parameters      map[string]string
	Tags            map[string]string
	DisableRollback bool
}

// UpdateStackInput contains the details needed to update an existing
// CloudFormation stack
type UpdateStackInput struct {
	Name        string
	TemplateURL string
	Parameters  map[string]string
	Tags        map[string]string
}

// CFN defines the interactions with the CloudFormation API
type CFN interface {
	// CreateStack creates a new stack and returns its id, it does not wait
	// for the stack to reach a final state
	CreateStack(ctx context.Context, in CreateStackInput) (string, error)
	// UpdateStack updates an existing stack and returns its id, returns
	// ErrNoUpdates when the update contains no changes
	UpdateStack(ctx context.Context, in UpdateStackInput) (string, error)
	// DeleteStack starts the deletion of the stack, it does not wait for the
	// deletion to complete
	DeleteStack(ctx context.Context, name string) error
	// DescribeStack returns the current state of the named stack, returns
	// StackNotFoundError when the stack does not exist
	DescribeStack(ctx context.Context, name string) (*Stack, error)
	// StackExists returns true when the named stack exists
	StackExists(ctx context.Context, name string) (bool, error)
	// GetStackTemplate returns the current template body for the named stack
	GetStackTemplate(ctx context.Context, name string) (string, error)
	// ListClusterStacks returns the stacks managing clusters, one page at a
	// time together with the token for the next page
	ListClusterStacks(ctx context.Context, nextToken string) ([]Stack, string, error)
	// ListImageStacks returns the stacks managing image builds, one page at
	// a time together with the token for the next page
	ListImageStacks(ctx context.Context, nextToken string) ([]Stack, string, error)
	// StackEvents returns one page of events for the named stack, newest
	// first, together with the token for the next page
	StackEvents(ctx context.Context, name string, nextToken string) ([]StackEvent, string, error)
	// DescribeStackResource returns a single resource of the named stack
	// identified by its logical id
	DescribeStackResource(ctx context.Context, name, logicalID string) (*StackResource, error)
}

// CFNImpl is a concrete implementation of the CFN interface
type CFNImpl struct {
	client *cloudformation.Client
	log    logger.Logger
}

// NewCFN creates a new CloudFormation client
func NewCFN(cfg aws.Config, l logger.Logger) CFN {
	return &CFNImpl{cloudformation.NewFromConfig(cfg), l}
}

func (c *CFNImpl) CreateStack(ctx context.Context, in CreateStackInput) (string, error) {
	c.log.Debug("Creating stack", "name", in.Name, "template", in.TemplateURL)

	out, err := c.client.CreateStack(ctx, &cloudformation.CreateStackInput{
		StackName:          aws.String(in.Name),
		TemplateURL:        aws.String(in.TemplateURL),
		Parameters:         toParameters(in.Parameters),
		Tags:               toTags(in.Tags),
		Capabilities:       []types.Capability{types.CapabilityCapabilityIam},
		DisableRollback:    aws.Bool(in.DisableRollback),
		ClientRequestToken: aws.String(uuid.New().String()),
	})
	if err != nil {
		return "", fmt.Errorf("unable to create stack %s: %w", in.Name, err)
	}

	return aws.ToString(out.StackId), nil
}

func (c *CFNImpl) UpdateStack(ctx context.Context, in UpdateStackInput) (string, error) {
	c.log.Debug("Updating stack", "name", in.Name, "template", in.TemplateURL)

	out, err := c.client.UpdateStack(ctx, &cloudformation.UpdateStackInput{
		StackName:          aws.String(in.Name),
		TemplateURL:        aws.String(in.TemplateURL),
		Parameters:         toParameters(in.Parameters),
		Tags:               toTags(in.Tags),
		Capabilities:       []types.Capability{types.CapabilityCapabilityIam},
		ClientRequestToken: aws.String(uuid.New().String()),
	})
	if err != nil {
		if apiErrorContains(err, "ValidationError", "No updates are to be performed") {
			return "", ErrNoUpdates
		}

		return "", fmt.Errorf("unable to update stack %s: %w", in.Name, err)
	}

	return aws.ToString(out.StackId), nil
}

func (c *CFNImpl) DeleteStack(ctx context.Context, name string) error {
	c.log.Debug("Deleting stack", "name", name)

	_, err := c.client.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName:          aws.String(name),
		ClientRequestToken: aws.String(uuid.New().String()),
	})
	if err != nil {
		return fmt.Errorf("unable to delete stack %s: %w", name, err)
	}

	return nil
}

func (c *CFNImpl) DescribeStack(ctx context.Context, name string) (*Stack, error) {
	out, err := c.client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		if apiErrorContains(err, "ValidationError", "does not exist") {
			return nil, StackNotFoundError{StackName: name}
		}

		return nil, fmt.Errorf("unable to describe stack %s: %w", name, err)
	}

	if len(out.Stacks) == 0 {
		return nil, StackNotFoundError{StackName: name}
	}

	s := toStack(out.Stacks[0])

	return &s, nil
}

func (c *CFNImpl) StackExists(ctx context.Context, name string) (bool, error) {
	_, err := c.DescribeStack(ctx, name)
	if err != nil {
		if IsStackNotFound(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (c *CFNImpl) GetStackTemplate(ctx context.Context, name string) (string, error) {
	out, err := c.client.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName: aws.String(name),
	})
	if err != nil {
		if apiErrorContains(err, "ValidationError", "does not exist") {
			return "", StackNotFoundError{StackName: name}
		}

		return "", fmt.Errorf("unable to get template for stack %s: %w", name, err)
	}

	return aws.ToString(out.TemplateBody), nil
}

func (c *CFNImpl) ListClusterStacks(ctx context.Context, nextToken string) ([]Stack, string, error) {
	in := &cloudformation.DescribeStacksInput{}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := c.client.DescribeStacks(ctx, in)
	if err != nil {
		return nil, "", fmt.Errorf("unable to list stacks: %w", err)
	}

	stacks := []Stack{}
	for _, s := range out.Stacks {
		// nested stacks belong to their parent cluster
		if s.ParentId != nil {
			continue
		}

		if !strings.HasPrefix(aws.ToString(s.StackName), utils.StackPrefix) {
			continue
		}

		// image build stacks are not cluster stacks
		if _, ok := toStackTags(s.Tags)[utils.ImageIDTag]; ok {
			continue
		}

		stacks = append(stacks, toStack(s))
	}

	sort.Slice(stacks, func(i, j int) bool { return stacks[i].Name < stacks[j].Name })

	return stacks, aws.ToString(out.NextToken), nil
}

func (c *CFNImpl) ListImageStacks(ctx context.Context, nextToken string) ([]Stack, string, error) {
	in := &cloudformation.DescribeStacksInput{}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := c.client.DescribeStacks(ctx, in)
	if err != nil {
		return nil, "", fmt.Errorf("unable to list stacks: %w", err)
	}

	stacks := []Stack{}
	for _, s := range out.Stacks {
		if s.ParentId != nil {
			continue
		}

		// image build stacks are identified by the image id tag
		if _, ok := toStackTags(s.Tags)[utils.ImageIDTag]; !ok {
			continue
		}

		stacks = append(stacks, toStack(s))
	}

	sort.Slice(stacks, func(i, j int) bool { return stacks[i].Name < stacks[j].Name })

	return stacks, aws.ToString(out.NextToken), nil
}

func (c *CFNImpl) StackEvents(ctx context.Context, name string, nextToken string) ([]StackEvent, string, error) {
	in := &cloudformation.DescribeStackEventsInput{
		StackName: aws.String(name),
	}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := c.client.DescribeStackEvents(ctx, in)
	if err != nil {
		if apiErrorContains(err, "ValidationError", "does not exist") {
			return nil, "", StackNotFoundError{StackName: name}
		}

		return nil, "", fmt.Errorf("unable to get events for stack %s: %w", name, err)
	}

	events := []StackEvent{}
	for _, e := range out.StackEvents {
		events = append(events, StackEvent{
			EventID:              aws.ToString(e.EventId),
			StackName:            aws.ToString(e.StackName),
			LogicalResourceID:    aws.ToString(e.LogicalResourceId),
			PhysicalResourceID:   aws.ToString(e.PhysicalResourceId),
			ResourceType:         aws.ToString(e.ResourceType),
			ResourceStatus:       string(e.ResourceStatus),
			ResourceStatusReason: aws.ToString(e.ResourceStatusReason),
			Timestamp:            aws.ToTime(e.Timestamp),
		})
	}

	return events, aws.ToString(out.NextToken), nil
}

func (c *CFNImpl) DescribeStackResource(ctx context.Context, name, logicalID string) (*StackResource, error) {
	out, err := c.client.DescribeStackResource(ctx, &cloudformation.DescribeStackResourceInput{
		StackName:         aws.String(name),
		LogicalResourceId: aws.String(logicalID),
	})
	if err != nil {
		if apiErrorContains(err, "ValidationError", "does not exist") {
			return nil, StackNotFoundError{StackName: name}
		}

		return nil, fmt.Errorf("unable to describe resource %s of stack %s: %w", logicalID, name, err)
	}

	d := out.StackResourceDetail

	return &StackResource{
		LogicalID:  aws.ToString(d.LogicalResourceId),
		PhysicalID: aws.ToString(d.PhysicalResourceId),
		Type:       aws.ToString(d.ResourceType),
		Status:     string(d.ResourceStatus),
	}, nil
}

func toStack(s types.Stack) Stack {
	return Stack{
		Name:            aws.ToString(s.StackName),
		ID:              aws.ToString(s.StackId),
		Status:          string(s.StackStatus),
		StatusReason:    aws.ToString(s.StackStatusReason),
		CreationTime:    aws.ToTime(s.CreationTime),
		LastUpdatedTime: aws.ToTime(s.LastUpdatedTime),
		ParentID:        aws.ToString(s.ParentId),
		Parameters:      toStackParameters(s.Parameters),
		Outputs:         toStackOutputs(s.Outputs),
		Tags:            toStackTags(s.Tags),
	}
}

func toParameters(params map[string]string) []types.Parameter {
	out := []types.Parameter{}
	for k, v := range params {
		out = append(out, types.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(v),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return aws.ToString(out[i].ParameterKey) < aws.ToString(out[j].ParameterKey)
	})

	return out
}

func toTags(tags map[string]string) []types.Tag {
	out := []types.Tag{}
	for k, v := range tags {
		out = append(out, types.Tag{
			Key:   aws.String(k),
			Value: aws.String(v),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return aws.ToString(out[i].Key) < aws.ToString(out[j].Key)
	})

	return out
}

func toStackParameters(params []types.Parameter) map[string]string {
	out := map[string]string{}
	for _, p := range params {
		out[aws.ToString(p.ParameterKey)] = aws.ToString(p.ParameterValue)
	}

	return out
}

func toStackOutputs(outputs []types.Output) map[string]string {
	out := map[string]string{}
	for _, o := range outputs {
		out[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}

	return out
}

func toStackTags(tags []types.Tag) map[string]string {
	out := map[string]string{}
	for _, t := range tags {
		out[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}

	return out
}
