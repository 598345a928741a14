package image

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/logger"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/utils"
	"github.com/gantry-labs/gantry/pkg/validators"
)

// ErrConfigurationInvalid is returned when blocking validation failures
// prevent a build, the failures are returned alongside the error
var ErrConfigurationInvalid = errors.New("the image configuration is not valid")

// officialImageOwner is the account publishing gantry release images
const officialImageOwner = "amazon"

// Manager drives the lifecycle of custom machine images
type Manager struct {
	c       *clients.Clients
	log     logger.Logger
	version string
}

// NewManager creates a new image manager using the given clients
func NewManager(c *clients.Clients, version string) *Manager {
	return &Manager{c, c.Logger, version}
}

// BuildInput contains the details needed to build an image
type BuildInput struct {
	ID                     string
	Config                 []byte
	SuppressValidators     []string
	ValidationFailureLevel validators.FailureLevel
	Dryrun                 bool
	RollbackOnFailure      bool
}

// Build starts an image build from the given configuration, it returns
// as soon as the stack creation has been started
func (m *Manager) Build(ctx context.Context, in BuildInput) (*BuildOutput, error) {
	cfg, err := config.ParseImage(in.Config)
	if err != nil {
		return nil, err
	}

	ami, err := m.findAmi(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	exists, err := m.c.CFN.StackExists(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if ami != nil || exists {
		return nil, fmt.Errorf("image %s already exists", in.ID)
	}

	failures := m.validate(ctx, in.ID, cfg, in.SuppressValidators)
	if validators.HasBlocking(failures, blockingLevel(in.ValidationFailureLevel)) {
		return &BuildOutput{ValidationMessages: failures}, ErrConfigurationInvalid
	}

	if in.Dryrun {
		return &BuildOutput{Message: DryrunMessage, ValidationMessages: failures}, nil
	}

	m.log.Info("Building image", "id", in.ID, "parent", cfg.Build.ParentImage)

	templateURL, configURL, err := m.uploadArtifacts(ctx, in.ID, in.Config, cfg)
	if err != nil {
		return nil, err
	}

	stackID, err := m.c.CFN.CreateStack(ctx, aws.CreateStackInput{
		Name:            in.ID,
		TemplateURL:     templateURL,
		Tags:            m.stackTags(in.ID, configURL, cfg),
		DisableRollback: !in.RollbackOnFailure,
	})
	if err != nil {
		return nil, err
	}

	return &BuildOutput{
		Image: &Info{
			ImageID:                   in.ID,
			Region:                    m.c.Region,
			Version:                   m.version,
			ImageBuildStatus:          BuildStatusInProgress,
			CloudformationStackArn:    stackID,
			CloudformationStackStatus: "CREATE_IN_PROGRESS",
		},
		ValidationMessages: failures,
	}, nil
}

// Describe returns the detailed state of an image, either from the
// produced machine image or from the stack still building it
func (m *Manager) Describe(ctx context.Context, id string) (*Description, error) {
	ami, err := m.findAmi(ctx, id)
	if err != nil {
		return nil, err
	}

	if ami != nil {
		d := &Description{
			ImageID:          id,
			Region:           m.c.Region,
			Version:          ami.Tags[utils.VersionTag],
			ImageBuildStatus: BuildStatusComplete,
			Ec2AmiInfo:       amiInfo(ami),
		}

		if !ami.CreationDate.IsZero() {
			created := ami.CreationDate
			d.CreationTime = &created
		}

		if url := ami.Tags[utils.ImageConfigTag]; url != "" {
			d.ImageConfiguration = &ConfigurationURL{URL: url}
		}

		return d, nil
	}

	stack, err := m.describeImageStack(ctx, id)
	if err != nil {
		return nil, err
	}

	created := stack.CreationTime

	d := &Description{
		ImageID:                   id,
		Region:                    m.c.Region,
		Version:                   stack.Tags[utils.VersionTag],
		ImageBuildStatus:          buildStatusFromStack(stack.Status),
		CloudformationStackArn:    stack.ID,
		CloudformationStackStatus: stack.Status,
		CreationTime:              &created,
		Tags:                      stackTagList(stack.Tags),
	}

	if url := stack.Tags[utils.ImageConfigTag]; url != "" {
		d.ImageConfiguration = &ConfigurationURL{URL: url}
	}

	if stack.StatusReason != "" && d.ImageBuildStatus == BuildStatusFailed {
		d.Failures = []StatusReason{{Reason: stack.StatusReason}}
	}

	return d, nil
}

// List returns one page of images in the requested status bucket
// together with the token for the next page
func (m *Manager) List(ctx context.Context, status, nextToken string) ([]Info, string, error) {
	switch status {
	case StatusAvailable:
		return m.listAvailable(ctx)
	case StatusPending, StatusFailed:
		return m.listBuilding(ctx, status, nextToken)
	}

	return nil, "", fmt.Errorf("image status %s is not valid, must be one of %s, %s, %s", status, StatusAvailable, StatusPending, StatusFailed)
}

// Delete removes the machine image, its snapshots and the stack that
// built it
func (m *Manager) Delete(ctx context.Context, id string, force bool) (*DeleteOutput, error) {
	ami, err := m.findAmi(ctx, id)
	if err != nil {
		return nil, err
	}

	stack, err := m.c.CFN.DescribeStack(ctx, id)
	if err != nil && !aws.IsStackNotFound(err) {
		return nil, err
	}

	if ami == nil && stack == nil {
		return nil, fmt.Errorf("image %s does not exist", id)
	}

	if ami != nil && !force {
		err := m.checkAmiUnused(ctx, id, ami)
		if err != nil {
			return nil, err
		}
	}

	if ami == nil && !force && buildStatusFromStack(stack.Status) == BuildStatusInProgress {
		return nil, fmt.Errorf("image %s is still being built, pass --force to delete it anyway", id)
	}

	version := ""

	if ami != nil {
		version = ami.Tags[utils.VersionTag]

		m.log.Info("Deregistering image", "id", id, "ami", ami.ID)

		err := m.c.EC2.DeregisterImage(ctx, ami.ID)
		if err != nil {
			return nil, err
		}

		for _, s := range ami.SnapshotIDs {
			err := m.c.EC2.DeleteSnapshot(ctx, s)
			if err != nil {
				return nil, err
			}
		}
	}

	if stack != nil {
		version = stack.Tags[utils.VersionTag]

		m.log.Info("Deleting image stack", "id", id)

		err := m.c.CFN.DeleteStack(ctx, stack.Name)
		if err != nil {
			return nil, err
		}
	}

	return &DeleteOutput{
		Image: &Info{
			ImageID:          id,
			Region:           m.c.Region,
			Version:          version,
			ImageBuildStatus: BuildStatusDeleteInProgress,
		},
	}, nil
}

// ListOfficial returns the release images published for the running
// major version, optionally narrowed by os and architecture
func (m *Manager) ListOfficial(ctx context.Context, osName, architecture string) ([]OfficialImage, error) {
	filters := []aws.Filter{
		{Name: "name", Values: []string{officialNamePattern(m.version, osName)}},
		{Name: "state", Values: []string{"available"}},
	}

	if architecture != "" {
		filters = append(filters, aws.Filter{Name: "architecture", Values: []string{architecture}})
	}

	images, err := m.c.EC2.DescribeImages(ctx, aws.DescribeImagesInput{
		Owners:  []string{officialImageOwner},
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}

	out := []OfficialImage{}
	for _, ami := range images {
		out = append(out, officialImage(ami))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

// StackEvents returns one page of CloudFormation events for the image
// stack, newest first
func (m *Manager) StackEvents(ctx context.Context, id, nextToken string) ([]StackEvent, string, error) {
	events, token, err := m.c.CFN.StackEvents(ctx, id, nextToken)
	if err != nil {
		if aws.IsStackNotFound(err) {
			return nil, "", fmt.Errorf("image %s does not exist", id)
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

func (m *Manager) listAvailable(ctx context.Context) ([]Info, string, error) {
	images, err := m.c.EC2.DescribeImages(ctx, aws.DescribeImagesInput{
		Owners:  []string{"self"},
		Filters: []aws.Filter{{Name: "tag-key", Values: []string{utils.ImageIDTag}}},
	})
	if err != nil {
		return nil, "", err
	}

	infos := []Info{}
	for _, ami := range images {
		infos = append(infos, Info{
			ImageID:          ami.Tags[utils.ImageIDTag],
			Region:           m.c.Region,
			Version:          ami.Tags[utils.VersionTag],
			ImageBuildStatus: BuildStatusComplete,
			Ec2AmiInfo:       &AmiInfo{AmiID: ami.ID},
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ImageID < infos[j].ImageID })

	return infos, "", nil
}

func (m *Manager) listBuilding(ctx context.Context, status, nextToken string) ([]Info, string, error) {
	stacks, token, err := m.c.CFN.ListImageStacks(ctx, nextToken)
	if err != nil {
		return nil, "", err
	}

	infos := []Info{}
	for _, s := range stacks {
		bs := buildStatusFromStack(s.Status)
		if status == StatusPending && bs != BuildStatusInProgress && bs != BuildStatusDeleteInProgress {
			continue
		}

		if status == StatusFailed && bs != BuildStatusFailed && bs != BuildStatusDeleteFailed {
			continue
		}

		infos = append(infos, Info{
			ImageID:                   s.Tags[utils.ImageIDTag],
			Region:                    m.c.Region,
			Version:                   s.Tags[utils.VersionTag],
			ImageBuildStatus:          bs,
			CloudformationStackArn:    s.ID,
			CloudformationStackStatus: s.Status,
		})
	}

	return infos, token, nil
}

func (m *Manager) validate(ctx context.Context, id string, cfg *config.ImageConfig, suppress []string) []validators.Failure {
	runner := validators.NewRunner(validators.ImageValidators(id, cfg, m.c.EC2, m.c.S3, m.c.HTTP), suppress, m.log)

	return runner.Run(ctx)
}

// blockingLevel defaults the failure level gating an operation to ERROR
func blockingLevel(level validators.FailureLevel) validators.FailureLevel {
	if level == "" {
		return validators.FailureLevelError
	}

	return level
}

// findAmi returns the machine image produced for the given image id,
// nil when no build has completed
func (m *Manager) findAmi(ctx context.Context, id string) (*aws.AMI, error) {
	images, err := m.c.EC2.DescribeImages(ctx, aws.DescribeImagesInput{
		Owners:  []string{"self"},
		Filters: []aws.Filter{{Name: "tag:" + utils.ImageIDTag, Values: []string{id}}},
	})
	if err != nil {
		return nil, err
	}

	if len(images) == 0 {
		return nil, nil
	}

	return &images[0], nil
}

// describeImageStack returns the stack building the image, a missing
// stack is reported as a missing image
func (m *Manager) describeImageStack(ctx context.Context, id string) (*aws.Stack, error) {
	stack, err := m.c.CFN.DescribeStack(ctx, id)
	if err != nil {
		if aws.IsStackNotFound(err) {
			return nil, fmt.Errorf("image %s does not exist", id)
		}

		return nil, err
	}

	return stack, nil
}

// checkAmiUnused fails when the image is shared with other accounts or
// still used by instances that have not been terminated
func (m *Manager) checkAmiUnused(ctx context.Context, id string, ami *aws.AMI) error {
	shared, err := m.c.EC2.ImageSharedAccounts(ctx, ami.ID)
	if err != nil {
		return err
	}

	if len(shared) > 0 {
		return fmt.Errorf("image %s is shared with %s, pass --force to delete it anyway", id, strings.Join(shared, ", "))
	}

	instances, _, err := m.c.EC2.DescribeInstances(ctx, []aws.Filter{
		{Name: "image-id", Values: []string{ami.ID}},
		{Name: "instance-state-name", Values: []string{"pending", "running", "stopping", "stopped"}},
	}, "")
	if err != nil {
		return err
	}

	if len(instances) > 0 {
		return fmt.Errorf("image %s is used by %d instances, pass --force to delete it anyway", id, len(instances))
	}

	return nil
}

// uploadArtifacts writes the raw configuration and the synthesized
// template to the artifact bucket and returns their urls, a custom
// bucket must already exist while the default one is created on demand
func (m *Manager) uploadArtifacts(ctx context.Context, id string, raw []byte, cfg *config.ImageConfig) (string, string, error) {
	bucket := cfg.CustomS3Bucket

	if bucket == "" {
		account, err := m.c.STS.AccountID(ctx)
		if err != nil {
			return "", "", err
		}

		bucket = utils.ArtifactBucketName(account, m.c.Region)
	}

	exists, err := m.c.S3.BucketExists(ctx, bucket)
	if err != nil {
		return "", "", err
	}

	if !exists {
		if cfg.CustomS3Bucket != "" {
			return "", "", fmt.Errorf("bucket %s does not exist", bucket)
		}

		err = m.c.S3.CreateBucket(ctx, bucket)
		if err != nil {
			return "", "", err
		}
	}

	err = m.c.S3.PutObject(ctx, bucket, configKey(id), raw)
	if err != nil {
		return "", "", err
	}

	configURL := m.c.S3.ObjectURL(bucket, configKey(id))

	body, err := json.Marshal(buildTemplate(id, cfg, m.version, configURL))
	if err != nil {
		return "", "", fmt.Errorf("unable to serialize the image template: %w", err)
	}

	err = m.c.S3.PutObject(ctx, bucket, templateKey(id), body)
	if err != nil {
		return "", "", err
	}

	return m.c.S3.ObjectURL(bucket, templateKey(id)), configURL, nil
}

// stackTags builds the tags identifying an image stack, user defined
// image tags are carried alongside them
func (m *Manager) stackTags(id, configURL string, cfg *config.ImageConfig) map[string]string {
	tags := map[string]string{
		utils.VersionTag:     m.version,
		utils.ImageIDTag:     id,
		utils.ImageNameTag:   id,
		utils.ImageConfigTag: configURL,
	}

	if cfg.Image != nil {
		for _, t := range cfg.Image.Tags {
			tags[t.Key] = t.Value
		}
	}

	return tags
}

func configKey(id string) string {
	return fmt.Sprintf("images/%s/image-config.yaml", id)
}

func templateKey(id string) string {
	return fmt.Sprintf("images/%s/template.json", id)
}

func amiInfo(ami *aws.AMI) *AmiInfo {
	return &AmiInfo{
		AmiID:        ami.ID,
		AmiName:      ami.Name,
		State:        ami.State,
		Description:  ami.Description,
		Architecture: ami.Architecture,
		Tags:         stackTagList(ami.Tags),
	}
}

// officialImage maps a release machine image, names follow
// gantry-<version>-<os>-<architecture>-<timestamp>
func officialImage(ami aws.AMI) OfficialImage {
	img := OfficialImage{
		AmiID:        ami.ID,
		Name:         ami.Name,
		Architecture: ami.Architecture,
	}

	parts := strings.Split(strings.TrimPrefix(ami.Name, "gantry-"), "-")
	if len(parts) >= 2 {
		img.Version = parts[0]
		img.OS = parts[1]
	}

	return img
}

// officialNamePattern matches the release images of the running major
// version
func officialNamePattern(version, osName string) string {
	if osName == "" {
		return fmt.Sprintf("gantry-%s.*", majorVersion(version))
	}

	return fmt.Sprintf("gantry-%s.*-%s-*", majorVersion(version), osName)
}

func majorVersion(version string) string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return strings.SplitN(version, ".", 2)[0]
	}

	return strconv.FormatInt(v.Major(), 10)
}

func stackTagList(tags map[string]string) []config.Tag {
	out := []config.Tag{}
	for k, v := range tags {
		out = append(out, config.Tag{Key: k, Value: v})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}
