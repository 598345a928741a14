package config

// Supported schedulers
const (
	SchedulerSlurm    = "slurm"
	SchedulerAwsBatch = "awsbatch"
)

// Supported capacity types
const (
	CapacityTypeOnDemand = "ONDEMAND"
	CapacityTypeSpot     = "SPOT"
)

// Supported shared storage types
const (
	StorageTypeEbs       = "Ebs"
	StorageTypeEfs       = "Efs"
	StorageTypeFsxLustre = "FsxLustre"
)

// Defaults applied to optional cluster settings
const (
	DefaultMaxCount       = 10
	DefaultVolumeSize     = 35
	DefaultVolumeType     = "gp3"
	DefaultLogRetention   = 14
	DefaultDeletionPolicy = "Delete"
)

// Limits imposed on the size of a cluster definition
const (
	MaxQueues           = 10
	MaxComputeResources = 5
)

// SupportedOses are the operating systems a cluster or image can be
// built from
var SupportedOses = []string{"alinux2", "ubuntu2004", "ubuntu2204", "centos7"}

// ClusterConfig is the declarative definition of a cluster
type ClusterConfig struct {
	Region        string          `yaml:"Region,omitempty"`
	Image         *Image          `yaml:"Image"`
	HeadNode      *HeadNode       `yaml:"HeadNode"`
	Scheduling    *Scheduling     `yaml:"Scheduling"`
	SharedStorage []SharedStorage `yaml:"SharedStorage,omitempty"`
	Tags          []Tag           `yaml:"Tags,omitempty"`
	Monitoring    *Monitoring     `yaml:"Monitoring,omitempty"`
	DevSettings   *DevSettings    `yaml:"DevSettings,omitempty"`
}

// Image selects the operating system for all nodes in the cluster
type Image struct {
	Os        string `yaml:"Os"`
	CustomAmi string `yaml:"CustomAmi,omitempty"`
}

// HeadNode defines the instance which manages the cluster
type HeadNode struct {
	InstanceType string              `yaml:"InstanceType"`
	Networking   *HeadNodeNetworking `yaml:"Networking"`
	Ssh          *Ssh                `yaml:"Ssh,omitempty"`
	Imds         *Imds               `yaml:"Imds,omitempty"`
	LocalStorage *LocalStorage       `yaml:"LocalStorage,omitempty"`
	Iam          *Iam                `yaml:"Iam,omitempty"`
}

// HeadNodeNetworking defines the network placement of the head node
type HeadNodeNetworking struct {
	SubnetId                 string   `yaml:"SubnetId"`
	ElasticIp                string   `yaml:"ElasticIp,omitempty"` // "true", "false" or an allocation id
	SecurityGroups           []string `yaml:"SecurityGroups,omitempty"`
	AdditionalSecurityGroups []string `yaml:"AdditionalSecurityGroups,omitempty"`
}

// Ssh defines the key pair used to access the head node
type Ssh struct {
	KeyName    string `yaml:"KeyName,omitempty"`
	AllowedIps string `yaml:"AllowedIps,omitempty"`
}

// Imds defines the instance metadata service settings for the head node
type Imds struct {
	Secured *bool `yaml:"Secured,omitempty"`
}

// IsSecured returns the IMDS secured setting, defaulting to true
func (i *Imds) IsSecured() bool {
	if i == nil || i.Secured == nil {
		return true
	}

	return *i.Secured
}

// LocalStorage defines the root volume of a node
type LocalStorage struct {
	RootVolume *RootVolume `yaml:"RootVolume,omitempty"`
}

// RootVolume defines the settings for a node root volume
type RootVolume struct {
	Size       *int   `yaml:"Size,omitempty"`
	VolumeType string `yaml:"VolumeType,omitempty"`
	Iops       *int   `yaml:"Iops,omitempty"`
	Throughput *int   `yaml:"Throughput,omitempty"`
	Encrypted  *bool  `yaml:"Encrypted,omitempty"`
}

// Iam defines the role attached to a node
type Iam struct {
	InstanceRole          string                `yaml:"InstanceRole,omitempty"`
	AdditionalIamPolicies []AdditionalIamPolicy `yaml:"AdditionalIamPolicies,omitempty"`
}

// AdditionalIamPolicy is a managed policy attached to a node in addition
// to its role
type AdditionalIamPolicy struct {
	Policy string `yaml:"Policy"`
}

// Scheduling defines the scheduler and its queues
type Scheduling struct {
	Scheduler      string          `yaml:"Scheduler"`
	SlurmQueues    []SlurmQueue    `yaml:"SlurmQueues,omitempty"`
	AwsBatchQueues []AwsBatchQueue `yaml:"AwsBatchQueues,omitempty"`
}

// SlurmQueue is a single queue managed by the slurm scheduler
type SlurmQueue struct {
	Name             string                 `yaml:"Name"`
	CapacityType     string                 `yaml:"CapacityType,omitempty"`
	Networking       *QueueNetworking       `yaml:"Networking"`
	ComputeResources []SlurmComputeResource `yaml:"ComputeResources"`
}

// AwsBatchQueue is a single queue managed by AWS Batch
type AwsBatchQueue struct {
	Name             string                    `yaml:"Name"`
	CapacityType     string                    `yaml:"CapacityType,omitempty"`
	Networking       *QueueNetworking          `yaml:"Networking"`
	ComputeResources []AwsBatchComputeResource `yaml:"ComputeResources"`
}

// QueueNetworking defines the network placement for the compute nodes
// of a queue
type QueueNetworking struct {
	SubnetIds      []string        `yaml:"SubnetIds"`
	PlacementGroup *PlacementGroup `yaml:"PlacementGroup,omitempty"`
	SecurityGroups []string        `yaml:"SecurityGroups,omitempty"`
}

// PlacementGroup defines the placement group for the compute nodes
// of a queue
type PlacementGroup struct {
	Enabled *bool  `yaml:"Enabled,omitempty"`
	Id      string `yaml:"Id,omitempty"`
}

// IsEnabled returns true when the placement group is enabled
func (p *PlacementGroup) IsEnabled() bool {
	if p == nil || p.Enabled == nil {
		return false
	}

	return *p.Enabled
}

// SlurmComputeResource defines a set of identical compute nodes within
// a slurm queue
type SlurmComputeResource struct {
	Name                              string `yaml:"Name"`
	InstanceType                      string `yaml:"InstanceType"`
	MinCount                          *int   `yaml:"MinCount,omitempty"`
	MaxCount                          *int   `yaml:"MaxCount,omitempty"`
	Efa                               *Efa   `yaml:"Efa,omitempty"`
	DisableSimultaneousMultithreading *bool  `yaml:"DisableSimultaneousMultithreading,omitempty"`
}

// MinCountOrDefault returns the minimum node count, defaulting to zero
func (c *SlurmComputeResource) MinCountOrDefault() int {
	if c.MinCount == nil {
		return 0
	}

	return *c.MinCount
}

// MaxCountOrDefault returns the maximum node count, defaulting to
// DefaultMaxCount
func (c *SlurmComputeResource) MaxCountOrDefault() int {
	if c.MaxCount == nil {
		return DefaultMaxCount
	}

	return *c.MaxCount
}

// Efa defines the elastic fabric adapter settings for a compute resource
type Efa struct {
	Enabled    *bool `yaml:"Enabled,omitempty"`
	GdrSupport *bool `yaml:"GdrSupport,omitempty"`
}

// IsEnabled returns true when the elastic fabric adapter is enabled
func (e *Efa) IsEnabled() bool {
	if e == nil || e.Enabled == nil {
		return false
	}

	return *e.Enabled
}

// AwsBatchComputeResource defines the size of an AWS Batch compute
// environment
type AwsBatchComputeResource struct {
	Name              string   `yaml:"Name"`
	InstanceTypes     []string `yaml:"InstanceTypes"`
	MinvCpus          *int     `yaml:"MinvCpus,omitempty"`
	MaxvCpus          *int     `yaml:"MaxvCpus,omitempty"`
	DesiredvCpus      *int     `yaml:"DesiredvCpus,omitempty"`
	SpotBidPercentage *int     `yaml:"SpotBidPercentage,omitempty"`
}

// SharedStorage is a single storage mount shared by all nodes
type SharedStorage struct {
	MountDir          string             `yaml:"MountDir"`
	Name              string             `yaml:"Name"`
	StorageType       string             `yaml:"StorageType"`
	EbsSettings       *EbsSettings       `yaml:"EbsSettings,omitempty"`
	EfsSettings       *EfsSettings       `yaml:"EfsSettings,omitempty"`
	FsxLustreSettings *FsxLustreSettings `yaml:"FsxLustreSettings,omitempty"`
}

// EbsSettings defines an EBS volume shared through the head node
type EbsSettings struct {
	VolumeType     string `yaml:"VolumeType,omitempty"`
	Size           *int   `yaml:"Size,omitempty"`
	Iops           *int   `yaml:"Iops,omitempty"`
	Throughput     *int   `yaml:"Throughput,omitempty"`
	Encrypted      *bool  `yaml:"Encrypted,omitempty"`
	KmsKeyId       string `yaml:"KmsKeyId,omitempty"`
	SnapshotId     string `yaml:"SnapshotId,omitempty"`
	DeletionPolicy string `yaml:"DeletionPolicy,omitempty"`
}

// SizeOrDefault returns the volume size in GiB, defaulting to
// DefaultVolumeSize
func (e *EbsSettings) SizeOrDefault() int {
	if e == nil || e.Size == nil {
		return DefaultVolumeSize
	}

	return *e.Size
}

// VolumeTypeOrDefault returns the volume type, defaulting to
// DefaultVolumeType
func (e *EbsSettings) VolumeTypeOrDefault() string {
	if e == nil || e.VolumeType == "" {
		return DefaultVolumeType
	}

	return e.VolumeType
}

// EfsSettings defines an EFS file system mounted on all nodes
type EfsSettings struct {
	Encrypted             *bool  `yaml:"Encrypted,omitempty"`
	KmsKeyId              string `yaml:"KmsKeyId,omitempty"`
	PerformanceMode       string `yaml:"PerformanceMode,omitempty"`
	ThroughputMode        string `yaml:"ThroughputMode,omitempty"`
	ProvisionedThroughput *int   `yaml:"ProvisionedThroughput,omitempty"`
	FileSystemId          string `yaml:"FileSystemId,omitempty"`
}

// FsxLustreSettings defines an FSx for Lustre file system mounted on
// all nodes
type FsxLustreSettings struct {
	StorageCapacity          *int   `yaml:"StorageCapacity,omitempty"`
	DeploymentType           string `yaml:"DeploymentType,omitempty"`
	ImportPath               string `yaml:"ImportPath,omitempty"`
	ExportPath               string `yaml:"ExportPath,omitempty"`
	PerUnitStorageThroughput *int   `yaml:"PerUnitStorageThroughput,omitempty"`
	FileSystemId             string `yaml:"FileSystemId,omitempty"`
}

// Tag is a user supplied tag propagated to all created resources
type Tag struct {
	Key   string `yaml:"Key" json:"key"`
	Value string `yaml:"Value" json:"value"`
}

// Monitoring defines the logging and monitoring for the cluster nodes
type Monitoring struct {
	Logs               *MonitoringLogs `yaml:"Logs,omitempty"`
	DetailedMonitoring *bool           `yaml:"DetailedMonitoring,omitempty"`
}

// MonitoringLogs defines the log shipping for the cluster nodes
type MonitoringLogs struct {
	CloudWatch *CloudWatchLogs `yaml:"CloudWatch,omitempty"`
}

// CloudWatchLogs defines the CloudWatch log group for the cluster
type CloudWatchLogs struct {
	Enabled         *bool `yaml:"Enabled,omitempty"`
	RetentionInDays *int  `yaml:"RetentionInDays,omitempty"`
}

// IsEnabled returns true when log shipping to CloudWatch is enabled,
// the default
func (c *CloudWatchLogs) IsEnabled() bool {
	if c == nil || c.Enabled == nil {
		return true
	}

	return *c.Enabled
}

// RetentionOrDefault returns the log retention in days, defaulting to
// DefaultLogRetention
func (c *CloudWatchLogs) RetentionOrDefault() int {
	if c == nil || c.RetentionInDays == nil {
		return DefaultLogRetention
	}

	return *c.RetentionInDays
}

// DevSettings contains overrides used when developing gantry itself
type DevSettings struct {
	Cookbook string    `yaml:"Cookbook,omitempty"`
	Timeouts *Timeouts `yaml:"Timeouts,omitempty"`
}

// Timeouts overrides the default bootstrap timeouts for the cluster nodes
type Timeouts struct {
	HeadNodeBootstrapTimeout    *int `yaml:"HeadNodeBootstrapTimeout,omitempty"`
	ComputeNodeBootstrapTimeout *int `yaml:"ComputeNodeBootstrapTimeout,omitempty"`
}

// CloudWatchLogs returns the CloudWatch settings for the cluster, nil
// when not configured
func (c *ClusterConfig) CloudWatchLogs() *CloudWatchLogs {
	if c.Monitoring == nil || c.Monitoring.Logs == nil {
		return nil
	}

	return c.Monitoring.Logs.CloudWatch
}

// Scheduler returns the configured scheduler
func (c *ClusterConfig) Scheduler() string {
	if c.Scheduling == nil {
		return ""
	}

	return c.Scheduling.Scheduler
}

// Queues returns the names of all queues regardless of scheduler
func (c *ClusterConfig) Queues() []string {
	names := []string{}

	if c.Scheduling == nil {
		return names
	}

	for _, q := range c.Scheduling.SlurmQueues {
		names = append(names, q.Name)
	}

	for _, q := range c.Scheduling.AwsBatchQueues {
		names = append(names, q.Name)
	}

	return names
}

// InstanceTypes returns the distinct instance types referenced by the
// head node and all compute resources
func (c *ClusterConfig) InstanceTypes() []string {
	seen := map[string]bool{}
	types := []string{}

	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}

	if c.HeadNode != nil {
		add(c.HeadNode.InstanceType)
	}

	if c.Scheduling != nil {
		for _, q := range c.Scheduling.SlurmQueues {
			for _, cr := range q.ComputeResources {
				add(cr.InstanceType)
			}
		}

		for _, q := range c.Scheduling.AwsBatchQueues {
			for _, cr := range q.ComputeResources {
				for _, t := range cr.InstanceTypes {
					add(t)
				}
			}
		}
	}

	return types
}

// SubnetIds returns the distinct subnets referenced by the head node
// and all queues
func (c *ClusterConfig) SubnetIds() []string {
	seen := map[string]bool{}
	ids := []string{}

	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if c.HeadNode != nil && c.HeadNode.Networking != nil {
		add(c.HeadNode.Networking.SubnetId)
	}

	if c.Scheduling != nil {
		for _, q := range c.Scheduling.SlurmQueues {
			if q.Networking != nil {
				for _, id := range q.Networking.SubnetIds {
					add(id)
				}
			}
		}

		for _, q := range c.Scheduling.AwsBatchQueues {
			if q.Networking != nil {
				for _, id := range q.Networking.SubnetIds {
					add(id)
				}
			}
		}
	}

	return ids
}
