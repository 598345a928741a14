package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go/logging"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
)

// NewConfig loads the default AWS configuration for the given region.
// When region is empty the region is resolved from the environment and
// the shared configuration files.
// SDK request logging is routed to the given logger at trace level.
func NewConfig(ctx context.Context, region string, l logger.Logger) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithLogger(&sdkLogger{l}),
	}

	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	if l.IsDebug() || l.IsTrace() {
		opts = append(opts, config.WithClientLogMode(aws.LogRetries))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS configuration: %w", err)
	}

	return cfg, nil
}

// sdkLogger adapts our logger to the smithy logging interface used
// by the AWS SDK
type sdkLogger struct {
	log logger.Logger
}

func (s *sdkLogger) Logf(classification logging.Classification, format string, v ...interface{}) {
	switch classification {
	case logging.Warn:
		s.log.Warn(fmt.Sprintf(format, v...))
	default:
		s.log.Trace(fmt.Sprintf(format, v...))
	}
}
