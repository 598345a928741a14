package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/logger"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/utils"
	"github.com/gantry-labs/gantry/pkg/validators"
)

// ErrConfigurationInvalid is returned when blocking validation failures
// prevent an operation, the failures are returned alongside the error
var ErrConfigurationInvalid = errors.New("the cluster configuration is not valid")

// ErrNoChanges is returned when an update contains no configuration
// changes
var ErrNoChanges = errors.New("no changes found in the cluster configuration")

// Manager drives the lifecycle of clusters
type Manager struct {
	c       *clients.Clients
	log     logger.Logger
	version string
}

// NewManager creates a new cluster manager using the given clients
func NewManager(c *clients.Clients, version string) *Manager {
	return &Manager{c, c.Logger, version}
}

// CreateInput contains the details needed to create a cluster
type CreateInput struct {
	Name                   string
	Config                 []byte
	SuppressValidators     []string
	ValidationFailureLevel validators.FailureLevel
	Dryrun                 bool
	RollbackOnFailure      bool
}

// UpdateInput contains the details needed to update a cluster
type UpdateInput struct {
	Name                   string
	Config                 []byte
	SuppressValidators     []string
	ValidationFailureLevel validators.FailureLevel
	Dryrun                 bool
	ForceUpdate            bool
}

// Create provisions a new cluster from the given configuration, it
// returns as soon as the stack creation has been started
func (m *Manager) Create(ctx context.Context, in CreateInput) (*CreateOutput, error) {
	cfg, err := config.ParseCluster(in.Config)
	if err != nil {
		return nil, err
	}

	stackName := utils.ClusterStackName(in.Name)

	exists, err := m.c.CFN.StackExists(ctx, stackName)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, fmt.Errorf("cluster %s already exists", in.Name)
	}

	failures := m.validate(ctx, in.Name, cfg, in.SuppressValidators)
	if validators.HasBlocking(failures, blockingLevel(in.ValidationFailureLevel)) {
		return &CreateOutput{ValidationMessages: failures}, ErrConfigurationInvalid
	}

	if in.Dryrun {
		return &CreateOutput{Message: DryrunMessage, ValidationMessages: failures}, nil
	}

	m.log.Info("Creating cluster", "name", in.Name, "scheduler", cfg.Scheduler())

	templateURL, err := m.uploadArtifacts(ctx, in.Name, in.Config, cfg)
	if err != nil {
		return nil, err
	}

	tags, err := m.stackTags(in.Name, in.Config, cfg)
	if err != nil {
		return nil, err
	}

	stackID, err := m.c.CFN.CreateStack(ctx, aws.CreateStackInput{
		Name:            stackName,
		TemplateURL:     templateURL,
		Tags:            tags,
		DisableRollback: !in.RollbackOnFailure,
	})
	if err != nil {
		return nil, err
	}

	return &CreateOutput{
		Cluster: &Info{
			ClusterName:               in.Name,
			Region:                    m.c.Region,
			Version:                   m.version,
			CloudformationStackArn:    stackID,
			CloudformationStackStatus: "CREATE_IN_PROGRESS",
			ClusterStatus:             StatusCreateInProgress,
			Scheduler:                 cfg.Scheduler(),
		},
		ValidationMessages: failures,
	}, nil
}

// Update applies a changed configuration to an existing cluster, the
// compute fleet must be stopped unless the update is forced
func (m *Manager) Update(ctx context.Context, in UpdateInput) (*UpdateOutput, error) {
	cfg, err := config.ParseCluster(in.Config)
	if err != nil {
		return nil, err
	}

	stack, err := m.describeClusterStack(ctx, in.Name)
	if err != nil {
		return nil, err
	}

	if !in.ForceUpdate {
		err := versionCompatible(m.version, stack.Tags[utils.VersionTag])
		if err != nil {
			return nil, err
		}

		fs, err := m.fleetStatus(ctx, in.Name, stack)
		if err != nil {
			return nil, err
		}

		if fs.Status != FleetStatusStopped && fs.Status != FleetStatusDisabled {
			return nil, fmt.Errorf("the compute fleet must be stopped before the cluster can be updated, the current status is %s, pass --force-update to update anyway", fs.Status)
		}
	}

	bucket, err := m.artifactBucket(ctx)
	if err != nil {
		return nil, err
	}

	current, err := m.c.S3.GetObject(ctx, bucket, configKey(in.Name))
	if err != nil {
		return nil, err
	}

	changes, err := config.Diff(current, in.Config)
	if err != nil {
		return nil, err
	}

	if len(changes) == 0 {
		return nil, ErrNoChanges
	}

	failures := m.validate(ctx, in.Name, cfg, in.SuppressValidators)
	if validators.HasBlocking(failures, blockingLevel(in.ValidationFailureLevel)) {
		return &UpdateOutput{ChangeSet: changes, ValidationMessages: failures}, ErrConfigurationInvalid
	}

	if in.Dryrun {
		return &UpdateOutput{
			Message:            DryrunMessage,
			ChangeSet:          changes,
			ValidationMessages: failures,
		}, nil
	}

	m.log.Info("Updating cluster", "name", in.Name, "changes", len(changes))

	templateURL, err := m.uploadArtifacts(ctx, in.Name, in.Config, cfg)
	if err != nil {
		return nil, err
	}

	tags, err := m.stackTags(in.Name, in.Config, cfg)
	if err != nil {
		return nil, err
	}

	// keep the version the cluster was created with, updates do not
	// migrate a cluster between versions
	tags[utils.VersionTag] = stack.Tags[utils.VersionTag]

	stackID, err := m.c.CFN.UpdateStack(ctx, aws.UpdateStackInput{
		Name:        stack.Name,
		TemplateURL: templateURL,
		Tags:        tags,
	})
	if err != nil {
		if errors.Is(err, aws.ErrNoUpdates) {
			return nil, ErrNoChanges
		}

		return nil, err
	}

	return &UpdateOutput{
		Cluster: &Info{
			ClusterName:               in.Name,
			Region:                    m.c.Region,
			Version:                   stack.Tags[utils.VersionTag],
			CloudformationStackArn:    stackID,
			CloudformationStackStatus: "UPDATE_IN_PROGRESS",
			ClusterStatus:             StatusUpdateInProgress,
			Scheduler:                 cfg.Scheduler(),
		},
		ChangeSet:          changes,
		ValidationMessages: failures,
	}, nil
}

// Delete removes the cluster and all its resources, it returns as soon
// as the stack deletion has been started
func (m *Manager) Delete(ctx context.Context, name string) (*DeleteOutput, error) {
	stack, err := m.describeClusterStack(ctx, name)
	if err != nil {
		return nil, err
	}

	m.log.Info("Deleting cluster", "name", name)

	err = m.c.CFN.DeleteStack(ctx, stack.Name)
	if err != nil {
		return nil, err
	}

	// stack deletion has already started, artifact removal is best effort
	if bucket, berr := m.artifactBucket(ctx); berr != nil {
		m.log.Warn("Unable to resolve the artifact bucket", "error", berr)
	} else if derr := m.c.S3.DeleteObjects(ctx, bucket, "clusters/"+name); derr != nil {
		m.log.Warn("Unable to remove the cluster artifacts", "bucket", bucket, "error", derr)
	}

	info := infoFromStack(stack, m.c.Region)
	info.CloudformationStackStatus = "DELETE_IN_PROGRESS"
	info.ClusterStatus = StatusDeleteInProgress

	return &DeleteOutput{Cluster: info}, nil
}

// Describe returns the detailed state of the cluster
func (m *Manager) Describe(ctx context.Context, name string) (*Description, error) {
	stack, err := m.describeClusterStack(ctx, name)
	if err != nil {
		return nil, err
	}

	fs, err := m.fleetStatus(ctx, name, stack)
	if err != nil {
		return nil, err
	}

	head, err := m.headNode(ctx, name)
	if err != nil {
		return nil, err
	}

	bucket, err := m.artifactBucket(ctx)
	if err != nil {
		return nil, err
	}

	d := &Description{
		ClusterName:               name,
		Region:                    m.c.Region,
		Version:                   stack.Tags[utils.VersionTag],
		CloudformationStackArn:    stack.ID,
		CloudformationStackStatus: stack.Status,
		ClusterStatus:             statusFromStack(stack.Status),
		Scheduler:                 stack.Tags[utils.SchedulerTag],
		CreationTime:              stack.CreationTime,
		LastUpdatedTime:           stack.LastUpdatedTime,
		ClusterConfiguration:      ConfigurationURL{URL: m.c.S3.ObjectURL(bucket, configKey(name))},
		ComputeFleetStatus:        fs.Status,
		Tags:                      stackTagList(stack.Tags),
		HeadNode:                  head,
	}

	if stack.StatusReason != "" && isFailedStatus(d.ClusterStatus) {
		d.Failures = []StatusReason{{Reason: stack.StatusReason}}
	}

	return d, nil
}

// List returns one page of clusters together with the token for the
// next page
func (m *Manager) List(ctx context.Context, statuses []string, nextToken string) ([]Info, string, error) {
	stacks, token, err := m.c.CFN.ListClusterStacks(ctx, nextToken)
	if err != nil {
		return nil, "", err
	}

	infos := []Info{}
	for _, s := range stacks {
		info := infoFromStack(&s, m.c.Region)
		if len(statuses) > 0 && !containsStatus(statuses, info.ClusterStatus) {
			continue
		}

		infos = append(infos, *info)
	}

	return infos, token, nil
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}

	return false
}

// StackEvents returns one page of CloudFormation events for the cluster
// stack, newest first
func (m *Manager) StackEvents(ctx context.Context, name, nextToken string) ([]StackEvent, string, error) {
	events, token, err := m.c.CFN.StackEvents(ctx, utils.ClusterStackName(name), nextToken)
	if err != nil {
		if aws.IsStackNotFound(err) {
			return nil, "", fmt.Errorf("cluster %s does not exist", name)
		}

		return nil, "", err
	}

	out := []StackEvent{}
	for _, e := range events {
		out = append(out, StackEvent{
			EventID:              e.EventID,
			StackName:            e.StackName,
			LogicalResourceID:    e.LogicalResourceID,
			PhysicalResourceID:   e.PhysicalResourceID,
			ResourceType:         e.ResourceType,
			ResourceStatus:       e.ResourceStatus,
			ResourceStatusReason: e.ResourceStatusReason,
			Timestamp:            e.Timestamp,
		})
	}

	return out, token, nil
}

func (m *Manager) validate(ctx context.Context, name string, cfg *config.ClusterConfig, suppress []string) []validators.Failure {
	runner := validators.NewRunner(validators.ClusterValidators(name, cfg, m.c.EC2), suppress, m.log)

	return runner.Run(ctx)
}

// blockingLevel defaults the failure level gating an operation to ERROR
func blockingLevel(level validators.FailureLevel) validators.FailureLevel {
	if level == "" {
		return validators.FailureLevelError
	}

	return level
}

// describeClusterStack returns the stack managing the named cluster,
// a missing stack is reported as a missing cluster
func (m *Manager) describeClusterStack(ctx context.Context, name string) (*aws.Stack, error) {
	stack, err := m.c.CFN.DescribeStack(ctx, utils.ClusterStackName(name))
	if err != nil {
		if aws.IsStackNotFound(err) {
			return nil, fmt.Errorf("cluster %s does not exist", name)
		}

		return nil, err
	}

	return stack, nil
}

// artifactBucket returns the name of the bucket holding cluster
// configurations and templates for this account and region
func (m *Manager) artifactBucket(ctx context.Context) (string, error) {
	account, err := m.c.STS.AccountID(ctx)
	if err != nil {
		return "", err
	}

	return utils.ArtifactBucketName(account, m.c.Region), nil
}

// uploadArtifacts writes the raw configuration and the synthesized
// template to the artifact bucket and returns the template url
func (m *Manager) uploadArtifacts(ctx context.Context, name string, raw []byte, cfg *config.ClusterConfig) (string, error) {
	bucket, err := m.artifactBucket(ctx)
	if err != nil {
		return "", err
	}

	exists, err := m.c.S3.BucketExists(ctx, bucket)
	if err != nil {
		return "", err
	}

	if !exists {
		err = m.c.S3.CreateBucket(ctx, bucket)
		if err != nil {
			return "", err
		}
	}

	err = m.c.S3.PutObject(ctx, bucket, configKey(name), raw)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(buildTemplate(name, cfg, m.version))
	if err != nil {
		return "", fmt.Errorf("unable to serialize the cluster template: %w", err)
	}

	err = m.c.S3.PutObject(ctx, bucket, templateKey(name), body)
	if err != nil {
		return "", err
	}

	return m.c.S3.ObjectURL(bucket, templateKey(name)), nil
}

// stackTags builds the tags identifying a cluster stack, user defined
// tags are carried alongside them
func (m *Manager) stackTags(name string, raw []byte, cfg *config.ClusterConfig) (map[string]string, error) {
	hash, err := utils.HashString(string(raw))
	if err != nil {
		return nil, err
	}

	tags := map[string]string{
		utils.VersionTag:     m.version,
		utils.ClusterNameTag: name,
		utils.ConfigHashTag:  hash,
		utils.SchedulerTag:   cfg.Scheduler(),
	}

	for _, t := range cfg.Tags {
		tags[t.Key] = t.Value
	}

	return tags, nil
}

func configKey(name string) string {
	return fmt.Sprintf("clusters/%s/cluster-config.yaml", name)
}

func templateKey(name string) string {
	return fmt.Sprintf("clusters/%s/template.json", name)
}

func infoFromStack(s *aws.Stack, region string) *Info {
	return &Info{
		ClusterName:               utils.ClusterNameFromStack(s.Name),
		Region:                    region,
		Version:                   s.Tags[utils.VersionTag],
		CloudformationStackArn:    s.ID,
		CloudformationStackStatus: s.Status,
		ClusterStatus:             statusFromStack(s.Status),
		Scheduler:                 s.Tags[utils.SchedulerTag],
	}
}

func isFailedStatus(status string) bool {
	return status == StatusCreateFailed || status == StatusUpdateFailed || status == StatusDeleteFailed
}

func stackTagList(tags map[string]string) []config.Tag {
	out := []config.Tag{}
	for k, v := range tags {
		out = append(out, config.Tag{Key: k, Value: v})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}
