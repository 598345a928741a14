package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry-labs/gantry/pkg/config"
)

var batchConfigYAML = []byte(`
Region: eu-west-1
Image:
  Os: alinux2
HeadNode:
  InstanceType: t3.micro
  Networking:
    SubnetId: subnet-0f1e2d3c4b5a6978
Scheduling:
  Scheduler: awsbatch
  AwsBatchQueues:
  - Name: batch
    Networking:
      SubnetIds:
      - subnet-0f1e2d3c4b5a6978
    ComputeResources:
    - Name: vcpus
      InstanceTypes:
      - optimal
      MaxvCpus: 128
`)

var storageConfigYAML = []byte(`
Region: eu-west-1
Image:
  Os: alinux2
HeadNode:
  InstanceType: t3.micro
  Networking:
    SubnetId: subnet-0f1e2d3c4b5a6978
Scheduling:
  Scheduler: slurm
  SlurmQueues:
  - Name: compute
    Networking:
      SubnetIds:
      - subnet-0f1e2d3c4b5a6978
    ComputeResources:
    - Name: general
      InstanceType: c5.large
SharedStorage:
- MountDir: /shared
  Name: data
  StorageType: Ebs
  EbsSettings:
    Size: 50
    DeletionPolicy: Retain
Monitoring:
  Logs:
    CloudWatch:
      RetentionInDays: 30
`)

func parseConfig(t *testing.T, doc []byte) *config.ClusterConfig {
	cfg, err := config.ParseCluster(doc)
	require.NoError(t, err)

	return cfg
}

func templateResource(t *testing.T, tmpl map[string]interface{}, id string) map[string]interface{} {
	resources := tmpl["Resources"].(map[string]interface{})

	r, ok := resources[id]
	require.True(t, ok, "resource %s not found", id)

	return r.(map[string]interface{})
}

func templateProperties(t *testing.T, tmpl map[string]interface{}, id string) map[string]interface{} {
	return templateResource(t, tmpl, id)["Properties"].(map[string]interface{})
}

func hasResource(tmpl map[string]interface{}, id string) bool {
	_, ok := tmpl["Resources"].(map[string]interface{})[id]

	return ok
}

func hasOutput(tmpl map[string]interface{}, id string) bool {
	_, ok := tmpl["Outputs"].(map[string]interface{})[id]

	return ok
}

func TestTemplateProvisionsHeadNode(t *testing.T) {
	cfg := parseConfig(t, clusterConfigYAML)

	tmpl := buildTemplate("demo", cfg, "3.7.0")
	props := templateProperties(t, tmpl, "HeadNode")

	assert.Equal(t, "t3.micro", props["InstanceType"])
	assert.Equal(t, testSubnet, props["SubnetId"])
	assert.Equal(t, "{{resolve:ssm:/gantry/images/alinux2/latest}}", props["ImageId"])
	assert.Equal(t, "lab", props["KeyName"])
	assert.True(t, hasOutput(tmpl, "HeadNodeInstanceId"))
	assert.True(t, hasResource(tmpl, "HeadNodeSecurityGroup"))
}

func TestTemplateUsesCustomAmi(t *testing.T) {
	cfg := parseConfig(t, clusterConfigYAML)
	cfg.Image.CustomAmi = "ami-0123456789abcdef0"

	tmpl := buildTemplate("demo", cfg, "3.7.0")
	props := templateProperties(t, tmpl, "HeadNode")

	assert.Equal(t, "ami-0123456789abcdef0", props["ImageId"])
}

func TestTemplateUsesProvidedSecurityGroups(t *testing.T) {
	cfg := parseConfig(t, clusterConfigYAML)
	cfg.HeadNode.Networking.SecurityGroups = []string{"sg-0123456789abcdef0"}

	tmpl := buildTemplate("demo", cfg, "3.7.0")
	props := templateProperties(t, tmpl, "HeadNode")

	assert.False(t, hasResource(tmpl, "HeadNodeSecurityGroup"))
	assert.Equal(t, []interface{}{"sg-0123456789abcdef0"}, props["SecurityGroupIds"])
}

func TestTemplateAllocatesElasticIp(t *testing.T) {
	cfg := parseConfig(t, clusterConfigYAML)
	cfg.HeadNode.Networking.ElasticIp = "true"

	tmpl := buildTemplate("demo", cfg, "3.7.0")

	assert.True(t, hasResource(tmpl, "HeadNodeEIP"))
}

func TestTemplateCreatesFleetTableForSlurm(t *testing.T) {
	cfg := parseConfig(t, clusterConfigYAML)

	tmpl := buildTemplate("demo", cfg, "3.7.0")
	props := templateProperties(t, tmpl, "FleetStatusTable")

	assert.Equal(t, "gantry-demo", props["TableName"])
	assert.True(t, hasOutput(tmpl, "FleetStatusTableName"))
	assert.True(t, hasResource(tmpl, "LaunchTemplateComputeGeneral"))
	assert.False(t, hasResource(tmpl, "BatchComputeEnvironment"))
}

func TestTemplateCreatesBatchEnvironment(t *testing.T) {
	cfg := parseConfig(t, batchConfigYAML)

	tmpl := buildTemplate("demo", cfg, "3.7.0")
	props := templateProperties(t, tmpl, "BatchComputeEnvironment")

	cr := props["ComputeResources"].(map[string]interface{})
	assert.Equal(t, 128, cr["MaxvCpus"])
	assert.Equal(t, "EC2", cr["Type"])

	assert.True(t, hasResource(tmpl, "BatchJobQueue"))
	assert.True(t, hasOutput(tmpl, "BatchComputeEnvironment"))
	assert.False(t, hasResource(tmpl, "FleetStatusTable"))
}

func TestTemplateAddsSharedVolume(t *testing.T) {
	cfg := parseConfig(t, storageConfigYAML)

	tmpl := buildTemplate("demo", cfg, "3.7.0")
	vol := templateResource(t, tmpl, "SharedVolumeData")
	props := vol["Properties"].(map[string]interface{})

	assert.Equal(t, "Retain", vol["DeletionPolicy"])
	assert.Equal(t, 50, props["Size"])
	assert.Equal(t, "gp3", props["VolumeType"])
}

func TestTemplateAddsLogGroupWithRetention(t *testing.T) {
	cfg := parseConfig(t, storageConfigYAML)

	tmpl := buildTemplate("demo", cfg, "3.7.0")
	props := templateProperties(t, tmpl, "ClusterLogGroup")

	assert.Equal(t, "/aws/gantry/clusters/demo", props["LogGroupName"])
	assert.Equal(t, 30, props["RetentionInDays"])
}

func TestTemplateSkipsLogGroupWhenDisabled(t *testing.T) {
	enabled := false

	cfg := parseConfig(t, clusterConfigYAML)
	cfg.Monitoring = &config.Monitoring{
		Logs: &config.MonitoringLogs{
			CloudWatch: &config.CloudWatchLogs{Enabled: &enabled},
		},
	}

	tmpl := buildTemplate("demo", cfg, "3.7.0")

	assert.False(t, hasResource(tmpl, "ClusterLogGroup"))
}

func TestLogicalIDDropsInvalidCharacters(t *testing.T) {
	assert.Equal(t, "LaunchTemplateGpuQueueCr1", logicalID("LaunchTemplate", "gpu-queue", "cr-1"))
	assert.Equal(t, "SharedVolumeData", logicalID("SharedVolume", "data"))
}
