package cluster

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/utils"
)

// buildTemplate synthesizes the CloudFormation template provisioning the
// cluster infrastructure
func buildTemplate(name string, cfg *config.ClusterConfig, version string) map[string]interface{} {
	resources := map[string]interface{}{}
	outputs := map[string]interface{}{}

	resources["HeadNodeRole"] = headNodeRole(cfg)
	resources["HeadNodeInstanceProfile"] = map[string]interface{}{
		"Type": "AWS::IAM::InstanceProfile",
		"Properties": map[string]interface{}{
			"Roles": []interface{}{ref("HeadNodeRole")},
		},
	}

	if len(cfg.HeadNode.Networking.SecurityGroups) == 0 {
		resources["HeadNodeSecurityGroup"] = headNodeSecurityGroup(cfg)
	}

	resources["HeadNode"] = headNodeInstance(name, cfg)
	outputs["HeadNodeInstanceId"] = output(ref("HeadNode"))

	if cfg.HeadNode.Networking.ElasticIp == "true" {
		resources["HeadNodeEIP"] = map[string]interface{}{
			"Type": "AWS::EC2::EIP",
			"Properties": map[string]interface{}{
				"Domain":     "vpc",
				"InstanceId": ref("HeadNode"),
			},
		}
	}

	if cfg.Scheduler() == config.SchedulerSlurm {
		resources["FleetStatusTable"] = map[string]interface{}{
			"Type": "AWS::DynamoDB::Table",
			"Properties": map[string]interface{}{
				"TableName":   utils.FleetStatusTable(name),
				"BillingMode": "PAY_PER_REQUEST",
				"AttributeDefinitions": []interface{}{
					map[string]interface{}{"AttributeName": "Id", "AttributeType": "S"},
				},
				"KeySchema": []interface{}{
					map[string]interface{}{"AttributeName": "Id", "KeyType": "HASH"},
				},
			},
		}
		outputs["FleetStatusTableName"] = output(ref("FleetStatusTable"))

		for _, q := range cfg.Scheduling.SlurmQueues {
			for _, cr := range q.ComputeResources {
				id := logicalID("LaunchTemplate", q.Name, cr.Name)
				resources[id] = computeLaunchTemplate(name, cfg, q, cr)
			}
		}
	}

	if cfg.Scheduler() == config.SchedulerAwsBatch {
		q := cfg.Scheduling.AwsBatchQueues[0]
		resources["BatchComputeEnvironment"] = batchComputeEnvironment(cfg, q)
		resources["BatchJobQueue"] = map[string]interface{}{
			"Type": "AWS::Batch::JobQueue",
			"Properties": map[string]interface{}{
				"JobQueueName": fmt.Sprintf("%s-%s", utils.ClusterStackName(name), q.Name),
				"Priority":     1,
				"ComputeEnvironmentOrder": []interface{}{
					map[string]interface{}{"Order": 1, "ComputeEnvironment": ref("BatchComputeEnvironment")},
				},
			},
		}
		outputs["BatchComputeEnvironment"] = output(ref("BatchComputeEnvironment"))
	}

	if cfg.CloudWatchLogs().IsEnabled() {
		resources["ClusterLogGroup"] = map[string]interface{}{
			"Type": "AWS::Logs::LogGroup",
			"Properties": map[string]interface{}{
				"LogGroupName":    utils.ClusterLogGroup(name),
				"RetentionInDays": cfg.CloudWatchLogs().RetentionOrDefault(),
			},
		}
		outputs["ClusterLogGroupName"] = output(ref("ClusterLogGroup"))
	}

	for _, s := range cfg.SharedStorage {
		if s.StorageType != config.StorageTypeEbs || externalStorage(s) {
			continue
		}

		id := logicalID("SharedVolume", s.Name)
		resources[id] = sharedVolume(s)
	}

	return map[string]interface{}{
		"AWSTemplateFormatVersion": "2010-09-09",
		"Description":              fmt.Sprintf("Cluster %s provisioned by gantry %s", name, version),
		"Resources":                resources,
		"Outputs":                  outputs,
	}
}

func headNodeRole(cfg *config.ClusterConfig) map[string]interface{} {
	policies := []interface{}{
		"arn:aws:iam::aws:policy/CloudWatchAgentServerPolicy",
		"arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore",
	}

	if cfg.HeadNode.Iam != nil {
		for _, p := range cfg.HeadNode.Iam.AdditionalIamPolicies {
			policies = append(policies, p.Policy)
		}
	}

	return map[string]interface{}{
		"Type": "AWS::IAM::Role",
		"Properties": map[string]interface{}{
			"AssumeRolePolicyDocument": map[string]interface{}{
				"Version": "2012-10-17",
				"Statement": []interface{}{
					map[string]interface{}{
						"Effect":    "Allow",
						"Principal": map[string]interface{}{"Service": "ec2.amazonaws.com"},
						"Action":    "sts:AssumeRole",
					},
				},
			},
			"ManagedPolicyArns": policies,
		},
	}
}

func headNodeSecurityGroup(cfg *config.ClusterConfig) map[string]interface{} {
	allowed := "0.0.0.0/0"
	if cfg.HeadNode.Ssh != nil && cfg.HeadNode.Ssh.AllowedIps != "" {
		allowed = cfg.HeadNode.Ssh.AllowedIps
	}

	return map[string]interface{}{
		"Type": "AWS::EC2::SecurityGroup",
		"Properties": map[string]interface{}{
			"GroupDescription": "Enable access to the head node",
			"SecurityGroupIngress": []interface{}{
				map[string]interface{}{
					"IpProtocol": "tcp",
					"FromPort":   22,
					"ToPort":     22,
					"CidrIp":     allowed,
				},
			},
		},
	}
}

func headNodeInstance(name string, cfg *config.ClusterConfig) map[string]interface{} {
	props := map[string]interface{}{
		"InstanceType":       cfg.HeadNode.InstanceType,
		"ImageId":            imageID(cfg),
		"SubnetId":           cfg.HeadNode.Networking.SubnetId,
		"IamInstanceProfile": ref("HeadNodeInstanceProfile"),
		"Tags": []interface{}{
			tag(utils.ClusterNameTag, name),
			tag(utils.NodeTypeTag, utils.NodeTypeHeadNode),
			tag("Name", fmt.Sprintf("%s-head-node", name)),
		},
	}

	if cfg.HeadNode.Ssh != nil && cfg.HeadNode.Ssh.KeyName != "" {
		props["KeyName"] = cfg.HeadNode.Ssh.KeyName
	}

	if len(cfg.HeadNode.Networking.SecurityGroups) > 0 {
		props["SecurityGroupIds"] = toInterfaces(cfg.HeadNode.Networking.SecurityGroups)
	} else {
		ids := []interface{}{ref("HeadNodeSecurityGroup")}
		for _, sg := range cfg.HeadNode.Networking.AdditionalSecurityGroups {
			ids = append(ids, sg)
		}

		props["SecurityGroupIds"] = ids
	}

	if cfg.HeadNode.LocalStorage != nil && cfg.HeadNode.LocalStorage.RootVolume != nil {
		rv := cfg.HeadNode.LocalStorage.RootVolume

		ebs := map[string]interface{}{}
		if rv.Size != nil {
			ebs["VolumeSize"] = *rv.Size
		}
		if rv.VolumeType != "" {
			ebs["VolumeType"] = rv.VolumeType
		}
		if rv.Encrypted != nil {
			ebs["Encrypted"] = *rv.Encrypted
		}

		props["BlockDeviceMappings"] = []interface{}{
			map[string]interface{}{"DeviceName": "/dev/xvda", "Ebs": ebs},
		}
	}

	if !cfg.HeadNode.Imds.IsSecured() {
		props["MetadataOptions"] = map[string]interface{}{"HttpTokens": "optional"}
	}

	return map[string]interface{}{
		"Type":       "AWS::EC2::Instance",
		"Properties": props,
	}
}

func computeLaunchTemplate(name string, cfg *config.ClusterConfig, q config.SlurmQueue, cr config.SlurmComputeResource) map[string]interface{} {
	data := map[string]interface{}{
		"InstanceType": cr.InstanceType,
		"ImageId":      imageID(cfg),
		"TagSpecifications": []interface{}{
			map[string]interface{}{
				"ResourceType": "instance",
				"Tags": []interface{}{
					tag(utils.ClusterNameTag, name),
					tag(utils.NodeTypeTag, utils.NodeTypeCompute),
					tag(utils.QueueNameTag, q.Name),
				},
			},
		},
	}

	if cr.Efa.IsEnabled() {
		data["NetworkInterfaces"] = []interface{}{
			map[string]interface{}{"DeviceIndex": 0, "InterfaceType": "efa"},
		}
	}

	if cr.DisableSimultaneousMultithreading != nil && *cr.DisableSimultaneousMultithreading {
		data["CpuOptions"] = map[string]interface{}{"ThreadsPerCore": 1}
	}

	return map[string]interface{}{
		"Type": "AWS::EC2::LaunchTemplate",
		"Properties": map[string]interface{}{
			"LaunchTemplateName": fmt.Sprintf("%s-%s-%s", utils.ClusterStackName(name), q.Name, cr.Name),
			"LaunchTemplateData": data,
		},
	}
}

func batchComputeEnvironment(cfg *config.ClusterConfig, q config.AwsBatchQueue) map[string]interface{} {
	cr := q.ComputeResources[0]

	minv, maxv := 0, 256
	if cr.MinvCpus != nil {
		minv = *cr.MinvCpus
	}
	if cr.MaxvCpus != nil {
		maxv = *cr.MaxvCpus
	}

	crType := "EC2"
	if q.CapacityType == config.CapacityTypeSpot {
		crType = "SPOT"
	}

	props := map[string]interface{}{
		"Type":  "MANAGED",
		"State": "ENABLED",
		"ComputeResources": map[string]interface{}{
			"Type":          crType,
			"MinvCpus":      minv,
			"MaxvCpus":      maxv,
			"InstanceTypes": toInterfaces(cr.InstanceTypes),
			"Subnets":       toInterfaces(q.Networking.SubnetIds),
		},
	}

	if cr.DesiredvCpus != nil {
		props["ComputeResources"].(map[string]interface{})["DesiredvCpus"] = *cr.DesiredvCpus
	}

	return map[string]interface{}{
		"Type":       "AWS::Batch::ComputeEnvironment",
		"Properties": props,
	}
}

func sharedVolume(s config.SharedStorage) map[string]interface{} {
	props := map[string]interface{}{
		"AvailabilityZone": getAtt("HeadNode", "AvailabilityZone"),
		"VolumeType":       s.EbsSettings.VolumeTypeOrDefault(),
		"Size":             s.EbsSettings.SizeOrDefault(),
	}

	if s.EbsSettings != nil {
		if s.EbsSettings.Iops != nil {
			props["Iops"] = *s.EbsSettings.Iops
		}
		if s.EbsSettings.Throughput != nil {
			props["Throughput"] = *s.EbsSettings.Throughput
		}
		if s.EbsSettings.Encrypted != nil {
			props["Encrypted"] = *s.EbsSettings.Encrypted
		}
		if s.EbsSettings.KmsKeyId != "" {
			props["KmsKeyId"] = s.EbsSettings.KmsKeyId
		}
		if s.EbsSettings.SnapshotId != "" {
			props["SnapshotId"] = s.EbsSettings.SnapshotId
		}
	}

	policy := config.DefaultDeletionPolicy
	if s.EbsSettings != nil && s.EbsSettings.DeletionPolicy != "" {
		policy = s.EbsSettings.DeletionPolicy
	}

	return map[string]interface{}{
		"Type":           "AWS::EC2::Volume",
		"DeletionPolicy": policy,
		"Properties":     props,
	}
}

// externalStorage returns true when the storage references an existing
// file system instead of creating one
func externalStorage(s config.SharedStorage) bool {
	switch s.StorageType {
	case config.StorageTypeEfs:
		return s.EfsSettings != nil && s.EfsSettings.FileSystemId != ""
	case config.StorageTypeFsxLustre:
		return s.FsxLustreSettings != nil && s.FsxLustreSettings.FileSystemId != ""
	}

	return false
}

// imageID returns the image for the cluster nodes, either the custom
// ami or the published gantry image for the os
func imageID(cfg *config.ClusterConfig) interface{} {
	if cfg.Image.CustomAmi != "" {
		return cfg.Image.CustomAmi
	}

	return fmt.Sprintf("{{resolve:ssm:/gantry/images/%s/latest}}", cfg.Image.Os)
}

// logicalID builds a CloudFormation logical id from name parts, anything
// not a letter or digit is dropped
func logicalID(parts ...string) string {
	var b strings.Builder

	for _, p := range parts {
		upper := true
		for _, r := range p {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				upper = true
				continue
			}

			if upper {
				b.WriteRune(unicode.ToUpper(r))
				upper = false
				continue
			}

			b.WriteRune(r)
		}
	}

	return b.String()
}

func ref(id string) map[string]interface{} {
	return map[string]interface{}{"Ref": id}
}

func getAtt(id, attr string) map[string]interface{} {
	return map[string]interface{}{"Fn::GetAtt": []interface{}{id, attr}}
}

func output(value interface{}) map[string]interface{} {
	return map[string]interface{}{"Value": value}
}

func tag(key, value string) map[string]interface{} {
	return map[string]interface{}{"Key": key, "Value": value}
}

func toInterfaces(list []string) []interface{} {
	out := make([]interface{}, 0, len(list))
	for _, i := range list {
		out = append(out, i)
	}

	return out
}
