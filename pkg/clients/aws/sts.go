package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
)

// STS defines the interactions with the AWS STS API
type STS interface {
	// AccountID returns the id of the account the current credentials
	// belong to
	AccountID(ctx context.Context) (string, error)
}

// STSImpl is a concrete implementation of the STS interface
type STSImpl struct {
	client *sts.Client
	log    logger.Logger

	// the account id never changes for a set of credentials, cache it
	account string
}

// NewSTS creates a new STS client
func NewSTS(cfg aws.Config, l logger.Logger) STS {
	return &STSImpl{client: sts.NewFromConfig(cfg), log: l}
}

func (c *STSImpl) AccountID(ctx context.Context) (string, error) {
	if c.account != "" {
		return c.account, nil
	}

	out, err := c.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("unable to get caller identity: %w", err)
	}

	c.account = aws.ToString(out.Account)

	return c.account, nil
}
