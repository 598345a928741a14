package config

// Supported image component types
const (
	ComponentTypeArn    = "arn"
	ComponentTypeScript = "script"
)

// MaxComponents is the maximum number of custom components an image
// build can reference
const MaxComponents = 15

// ImageConfig is the declarative definition of a custom machine image,
// the image id is given on the command line rather than in the document
type ImageConfig struct {
	Region         string            `yaml:"Region,omitempty"`
	Image          *ImageSettings    `yaml:"Image,omitempty"`
	Build          *Build            `yaml:"Build"`
	DevSettings    *ImageDevSettings `yaml:"DevSettings,omitempty"`
	CustomS3Bucket string            `yaml:"CustomS3Bucket,omitempty"`
}

// ImageSettings defines the properties of the produced image
type ImageSettings struct {
	Tags       []Tag        `yaml:"Tags,omitempty"`
	RootVolume *ImageVolume `yaml:"RootVolume,omitempty"`
}

// ImageVolume defines the root volume the produced image boots from
type ImageVolume struct {
	Size      *int   `yaml:"Size,omitempty"`
	Encrypted *bool  `yaml:"Encrypted,omitempty"`
	KmsKeyId  string `yaml:"KmsKeyId,omitempty"`
}

// Build defines how the image is produced
type Build struct {
	InstanceType     string      `yaml:"InstanceType"`
	ParentImage      string      `yaml:"ParentImage"`
	Components       []Component `yaml:"Components,omitempty"`
	Tags             []Tag       `yaml:"Tags,omitempty"`
	SubnetId         string      `yaml:"SubnetId,omitempty"`
	SecurityGroupIds []string    `yaml:"SecurityGroupIds,omitempty"`
	Iam              *BuildIam   `yaml:"Iam,omitempty"`
}

// Component is a custom build step applied to the image
type Component struct {
	Type  string `yaml:"Type"`  // "arn" or "script"
	Value string `yaml:"Value"` // component arn or script url
}

// BuildIam defines the roles used by the image build infrastructure,
// both are full arns
type BuildIam struct {
	InstanceRole      string `yaml:"InstanceRole,omitempty"`
	CleanupLambdaRole string `yaml:"CleanupLambdaRole,omitempty"`
}

// ImageDevSettings contains overrides used when developing gantry itself
type ImageDevSettings struct {
	UpdateOsAndReboot          bool                       `yaml:"UpdateOsAndReboot,omitempty"`
	DisableGantryComponent     bool                       `yaml:"DisableGantryComponent,omitempty"`
	TerminateInstanceOnFailure *bool                      `yaml:"TerminateInstanceOnFailure,omitempty"`
	DistributionConfiguration  *DistributionConfiguration `yaml:"DistributionConfiguration,omitempty"`
}

// DistributionConfiguration copies the produced image to other regions,
// Regions is a comma separated list and LaunchPermission a JSON document
type DistributionConfiguration struct {
	Regions          string `yaml:"Regions,omitempty"`
	LaunchPermission string `yaml:"LaunchPermission,omitempty"`
}

// TerminateOnFailure returns true when the build instance is terminated
// after a failed build, the default
func (d *ImageDevSettings) TerminateOnFailure() bool {
	if d == nil || d.TerminateInstanceOnFailure == nil {
		return true
	}

	return *d.TerminateInstanceOnFailure
}

// UpdatesOs returns true when os packages are updated and the instance
// rebooted before the image is captured
func (d *ImageDevSettings) UpdatesOs() bool {
	if d == nil {
		return false
	}

	return d.UpdateOsAndReboot
}

// IncludesGantryComponent returns true when the build installs the
// gantry node software, the default
func (d *ImageDevSettings) IncludesGantryComponent() bool {
	if d == nil {
		return true
	}

	return !d.DisableGantryComponent
}

// Distribution returns the distribution overrides, nil when unset
func (d *ImageDevSettings) Distribution() *DistributionConfiguration {
	if d == nil {
		return nil
	}

	return d.DistributionConfiguration
}
