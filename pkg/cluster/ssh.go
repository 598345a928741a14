package cluster

import (
	"context"
	"fmt"

	"github.com/gantry-labs/gantry/pkg/config"
)

// ConnectionInfo describes how to reach the head node of a cluster
type ConnectionInfo struct {
	Host string `json:"host"`
	User string `json:"user"`
}

// osLogins maps the cluster operating system to the default login user
// of its AMIs
var osLogins = map[string]string{
	"alinux2":    "ec2-user",
	"ubuntu2004": "ubuntu",
	"ubuntu2204": "ubuntu",
	"centos7":    "centos",
}

// HeadNodeConnection resolves the address and login user used to reach
// the head node of the cluster over ssh, the public address is preferred
// over the private one
func (m *Manager) HeadNodeConnection(ctx context.Context, name string) (*ConnectionInfo, error) {
	if _, err := m.describeClusterStack(ctx, name); err != nil {
		return nil, err
	}

	node, err := m.headNode(ctx, name)
	if err != nil {
		return nil, err
	}

	if node == nil {
		return nil, fmt.Errorf("cluster %s does not have a running head node", name)
	}

	host := node.PublicIPAddress
	if host == "" {
		host = node.PrivateIPAddress
	}

	cfg, err := m.storedConfig(ctx, name)
	if err != nil {
		return nil, err
	}

	user, ok := osLogins[cfg.Image.Os]
	if !ok {
		return nil, fmt.Errorf("no login user known for os %s", cfg.Image.Os)
	}

	return &ConnectionInfo{Host: host, User: user}, nil
}

// storedConfig reads back the configuration document the cluster was
// created with from the artifact bucket
func (m *Manager) storedConfig(ctx context.Context, name string) (*config.ClusterConfig, error) {
	bucket, err := m.artifactBucket(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := m.c.S3.GetObject(ctx, bucket, configKey(name))
	if err != nil {
		return nil, fmt.Errorf("unable to read the configuration of cluster %s: %w", name, err)
	}

	return config.ParseCluster(raw)
}
