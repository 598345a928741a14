package image

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/semver"

	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/utils"
)

// buildLogRetentionDays is how long the build logs of an image are kept
const buildLogRetentionDays = 180

// nodeComponentArn resolves the released component installing the gantry
// node software, published to ssm alongside the official images
const nodeComponentArn = "{{resolve:ssm:/gantry/components/node/latest}}"

// cleanupHandler deletes the build stack once image builder reports the
// image available, failed stacks are kept so the failure can be inspected
const cleanupHandler = `import json
import boto3

def handler(event, context):
    message = json.loads(event["Records"][0]["Sns"]["Message"])
    if message.get("state", {}).get("status") != "AVAILABLE":
        return

    boto3.client("cloudformation").delete_stack(StackName="${AWS::StackName}")
`

// buildTemplate synthesizes the CloudFormation template driving an
// EC2 Image Builder pipeline for the image
func buildTemplate(id string, cfg *config.ImageConfig, version, configURL string) map[string]interface{} {
	resources := map[string]interface{}{}
	outputs := map[string]interface{}{}

	build := cfg.Build
	profile := instanceProfile(build, resources)

	infrastructure := map[string]interface{}{
		"Name":                       fmt.Sprintf("gantry-%s-infrastructure", id),
		"InstanceProfileName":        profile,
		"InstanceTypes":              []interface{}{build.InstanceType},
		"TerminateInstanceOnFailure": cfg.DevSettings.TerminateOnFailure(),
		"SnsTopicArn":                ref("BuildNotificationTopic"),
	}

	if build.SubnetId != "" {
		infrastructure["SubnetId"] = build.SubnetId
	}

	if len(build.SecurityGroupIds) > 0 {
		infrastructure["SecurityGroupIds"] = toInterfaces(build.SecurityGroupIds)
	}

	resources["InfrastructureConfiguration"] = map[string]interface{}{
		"Type":       "AWS::ImageBuilder::InfrastructureConfiguration",
		"Properties": infrastructure,
	}

	recipe := map[string]interface{}{
		"Name":        fmt.Sprintf("gantry-%s", id),
		"Version":     recipeVersion(version),
		"ParentImage": build.ParentImage,
		"Components":  recipeComponents(id, cfg, version, resources),
	}

	if mapping := rootVolumeMapping(cfg); mapping != nil {
		recipe["BlockDeviceMappings"] = []interface{}{mapping}
	}

	resources["ImageRecipe"] = map[string]interface{}{
		"Type":       "AWS::ImageBuilder::ImageRecipe",
		"Properties": recipe,
	}

	resources["DistributionConfiguration"] = map[string]interface{}{
		"Type": "AWS::ImageBuilder::DistributionConfiguration",
		"Properties": map[string]interface{}{
			"Name":          fmt.Sprintf("gantry-%s-distribution", id),
			"Distributions": distributions(id, cfg, version, configURL),
		},
	}

	resources["Image"] = map[string]interface{}{
		"Type": "AWS::ImageBuilder::Image",
		"Properties": map[string]interface{}{
			"ImageRecipeArn":                 ref("ImageRecipe"),
			"InfrastructureConfigurationArn": ref("InfrastructureConfiguration"),
			"DistributionConfigurationArn":   ref("DistributionConfiguration"),
			"ImageTestsConfiguration": map[string]interface{}{
				"ImageTestsEnabled": false,
			},
		},
	}

	cleanupResources(cfg, resources)

	// the log group outlives the stack so build logs stay readable after
	// the build infrastructure is cleaned up
	resources["BuildLogGroup"] = map[string]interface{}{
		"Type":           "AWS::Logs::LogGroup",
		"DeletionPolicy": "Retain",
		"Properties": map[string]interface{}{
			"LogGroupName":    utils.ImageLogGroup(id),
			"RetentionInDays": buildLogRetentionDays,
		},
	}

	outputs["ImageId"] = output(getAtt("Image", "ImageId"))

	return map[string]interface{}{
		"AWSTemplateFormatVersion": "2010-09-09",
		"Description":              fmt.Sprintf("Image %s built by gantry %s", id, version),
		"Resources":                resources,
		"Outputs":                  outputs,
	}
}

// instanceProfile returns the instance profile used by the build
// instance, creating role and profile resources when none is supplied
func instanceProfile(build *config.Build, resources map[string]interface{}) interface{} {
	role := ""
	if build.Iam != nil {
		role = build.Iam.InstanceRole
	}

	if strings.Contains(role, ":instance-profile/") {
		return iamResourceName(role)
	}

	if role != "" {
		resources["BuildInstanceProfile"] = map[string]interface{}{
			"Type": "AWS::IAM::InstanceProfile",
			"Properties": map[string]interface{}{
				"Roles": []interface{}{iamResourceName(role)},
			},
		}

		return ref("BuildInstanceProfile")
	}

	resources["BuildRole"] = map[string]interface{}{
		"Type": "AWS::IAM::Role",
		"Properties": map[string]interface{}{
			"AssumeRolePolicyDocument": assumeRolePolicy("ec2.amazonaws.com"),
			"ManagedPolicyArns": []interface{}{
				"arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore",
				"arn:aws:iam::aws:policy/EC2InstanceProfileForImageBuilder",
			},
		},
	}

	resources["BuildInstanceProfile"] = map[string]interface{}{
		"Type": "AWS::IAM::InstanceProfile",
		"Properties": map[string]interface{}{
			"Roles": []interface{}{ref("BuildRole")},
		},
	}

	return ref("BuildInstanceProfile")
}

// recipeComponents assembles the ordered build steps of the recipe, the
// os update runs first and custom components last
func recipeComponents(id string, cfg *config.ImageConfig, version string, resources map[string]interface{}) []interface{} {
	components := []interface{}{}

	if cfg.DevSettings.UpdatesOs() {
		components = append(components, map[string]interface{}{
			"ComponentArn": map[string]interface{}{
				"Fn::Sub": "arn:${AWS::Partition}:imagebuilder:${AWS::Region}:aws:component/update-linux/x.x.x",
			},
		})
	}

	if cfg.DevSettings.IncludesGantryComponent() {
		components = append(components, map[string]interface{}{"ComponentArn": nodeComponentArn})
	}

	for i, c := range cfg.Build.Components {
		if c.Type == config.ComponentTypeArn {
			components = append(components, map[string]interface{}{"ComponentArn": c.Value})
			continue
		}

		name := fmt.Sprintf("ScriptComponent%d", i)
		resources[name] = scriptComponent(id, i, c.Value, version)
		components = append(components, map[string]interface{}{"ComponentArn": ref(name)})
	}

	return components
}

// scriptComponent wraps a custom script url into an Image Builder
// component downloading and executing it during the build phase
func scriptComponent(id string, index int, url, version string) map[string]interface{} {
	action := "WebDownload"
	if strings.HasPrefix(url, "s3://") {
		action = "S3Download"
	}

	target := fmt.Sprintf("/tmp/gantry-script-%d.sh", index)

	doc := fmt.Sprintf(`name: gantry-script-%d
schemaVersion: 1.0
phases:
  - name: build
    steps:
      - name: Download
        action: %s
        inputs:
          - source: %s
            destination: %s
      - name: Execute
        action: ExecuteBash
        inputs:
          commands:
            - chmod +x %s
            - %s
`, index, action, url, target, target, target)

	return map[string]interface{}{
		"Type": "AWS::ImageBuilder::Component",
		"Properties": map[string]interface{}{
			"Name":     fmt.Sprintf("gantry-%s-script-%d", id, index),
			"Platform": "Linux",
			"Version":  recipeVersion(version),
			"Data":     doc,
		},
	}
}

// distributions lists the regions the produced image is copied to, the
// stack region unless dev settings override it
func distributions(id string, cfg *config.ImageConfig, version, configURL string) []interface{} {
	ami := map[string]interface{}{
		"Name":    fmt.Sprintf("%s {{ imagebuilder:buildDate }}", id),
		"AmiTags": amiTags(id, cfg, version, configURL),
	}

	if lp := launchPermission(cfg); lp != nil {
		ami["LaunchPermission"] = lp
	}

	d := cfg.DevSettings.Distribution()
	if d == nil || d.Regions == "" {
		return []interface{}{map[string]interface{}{
			"Region":                       ref("AWS::Region"),
			"AmiDistributionConfiguration": ami,
		}}
	}

	out := []interface{}{}
	for _, region := range strings.Split(d.Regions, ",") {
		out = append(out, map[string]interface{}{
			"Region":                       strings.TrimSpace(region),
			"AmiDistributionConfiguration": ami,
		})
	}

	return out
}

// launchPermission decodes the launch permission document, validation
// has already established it is valid json
func launchPermission(cfg *config.ImageConfig) interface{} {
	d := cfg.DevSettings.Distribution()
	if d == nil || d.LaunchPermission == "" {
		return nil
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(d.LaunchPermission), &doc); err != nil {
		return nil
	}

	return doc
}

// cleanupResources deletes the build stack through a lambda subscribed
// to the image builder notifications, only the produced machine image
// and the retained log group are left behind
func cleanupResources(cfg *config.ImageConfig, resources map[string]interface{}) {
	resources["BuildNotificationTopic"] = map[string]interface{}{
		"Type": "AWS::SNS::Topic",
	}

	resources["CleanupFunction"] = map[string]interface{}{
		"Type": "AWS::Lambda::Function",
		"Properties": map[string]interface{}{
			"Handler": "index.handler",
			"Runtime": "python3.12",
			"Timeout": 900,
			"Role":    cleanupRole(cfg, resources),
			"Code": map[string]interface{}{
				"ZipFile": map[string]interface{}{"Fn::Sub": cleanupHandler},
			},
		},
	}

	resources["CleanupPermission"] = map[string]interface{}{
		"Type": "AWS::Lambda::Permission",
		"Properties": map[string]interface{}{
			"Action":       "lambda:InvokeFunction",
			"FunctionName": getAtt("CleanupFunction", "Arn"),
			"Principal":    "sns.amazonaws.com",
			"SourceArn":    ref("BuildNotificationTopic"),
		},
	}

	resources["CleanupSubscription"] = map[string]interface{}{
		"Type": "AWS::SNS::Subscription",
		"Properties": map[string]interface{}{
			"Protocol": "lambda",
			"TopicArn": ref("BuildNotificationTopic"),
			"Endpoint": getAtt("CleanupFunction", "Arn"),
		},
	}
}

// cleanupRole returns the execution role of the cleanup function,
// created unless the configuration provides one
func cleanupRole(cfg *config.ImageConfig, resources map[string]interface{}) interface{} {
	if cfg.Build.Iam != nil && cfg.Build.Iam.CleanupLambdaRole != "" {
		return cfg.Build.Iam.CleanupLambdaRole
	}

	resources["CleanupRole"] = map[string]interface{}{
		"Type": "AWS::IAM::Role",
		"Properties": map[string]interface{}{
			"AssumeRolePolicyDocument": assumeRolePolicy("lambda.amazonaws.com"),
			"ManagedPolicyArns": []interface{}{
				"arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole",
			},
			"Policies": []interface{}{
				map[string]interface{}{
					"PolicyName": "DeleteBuildStack",
					"PolicyDocument": map[string]interface{}{
						"Version": "2012-10-17",
						"Statement": []interface{}{
							map[string]interface{}{
								"Effect": "Allow",
								"Action": "cloudformation:DeleteStack",
								"Resource": map[string]interface{}{
									"Fn::Sub": "arn:${AWS::Partition}:cloudformation:${AWS::Region}:${AWS::AccountId}:stack/${AWS::StackName}/*",
								},
							},
							map[string]interface{}{
								"Effect": "Allow",
								"Action": []interface{}{
									"iam:DeleteRole",
									"iam:DeleteRolePolicy",
									"iam:DetachRolePolicy",
									"iam:DeleteInstanceProfile",
									"iam:RemoveRoleFromInstanceProfile",
									"imagebuilder:DeleteInfrastructureConfiguration",
									"imagebuilder:DeleteImageRecipe",
									"imagebuilder:DeleteDistributionConfiguration",
									"imagebuilder:DeleteImage",
									"imagebuilder:DeleteComponent",
									"lambda:DeleteFunction",
									"lambda:RemovePermission",
									"sns:DeleteTopic",
									"sns:Unsubscribe",
									"sns:GetTopicAttributes",
								},
								"Resource": "*",
							},
						},
					},
				},
			},
		},
	}

	return getAtt("CleanupRole", "Arn")
}

func rootVolumeMapping(cfg *config.ImageConfig) map[string]interface{} {
	if cfg.Image == nil || cfg.Image.RootVolume == nil {
		return nil
	}

	v := cfg.Image.RootVolume

	ebs := map[string]interface{}{}
	if v.Size != nil {
		ebs["VolumeSize"] = *v.Size
	}

	if v.Encrypted != nil {
		ebs["Encrypted"] = *v.Encrypted
	}

	if v.KmsKeyId != "" {
		ebs["KmsKeyId"] = v.KmsKeyId
	}

	if len(ebs) == 0 {
		return nil
	}

	return map[string]interface{}{
		"DeviceName": "/dev/xvda",
		"Ebs":        ebs,
	}
}

// amiTags are written to the produced machine image so it can be found
// by the image id later
func amiTags(id string, cfg *config.ImageConfig, version, configURL string) map[string]interface{} {
	tags := map[string]interface{}{
		utils.ImageIDTag:     id,
		utils.ImageNameTag:   id,
		utils.VersionTag:     version,
		utils.ImageConfigTag: configURL,
	}

	if cfg.Image != nil {
		for _, t := range cfg.Image.Tags {
			tags[t.Key] = t.Value
		}
	}

	return tags
}

// recipeVersion returns a version Image Builder accepts, development
// builds fall back to a placeholder
func recipeVersion(version string) string {
	if _, err := semver.NewVersion(version); err != nil {
		return "0.0.1"
	}

	return version
}

// iamResourceName returns the trailing name of a role or instance
// profile arn
func iamResourceName(arn string) string {
	parts := strings.Split(arn, "/")

	return parts[len(parts)-1]
}

func assumeRolePolicy(service string) map[string]interface{} {
	return map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []interface{}{
			map[string]interface{}{
				"Effect":    "Allow",
				"Principal": map[string]interface{}{"Service": service},
				"Action":    "sts:AssumeRole",
			},
		},
	}
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

func toInterfaces(list []string) []interface{} {
	out := make([]interface{}, 0, len(list))
	for _, i := range list {
		out = append(out, i)
	}

	return out
}
