package clients

import (
	"context"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/command"
	"github.com/gantry-labs/gantry/pkg/clients/getter"
	"github.com/gantry-labs/gantry/pkg/clients/http"
	"github.com/gantry-labs/gantry/pkg/clients/logger"
	"github.com/gantry-labs/gantry/pkg/clients/tar"
)

type Clients struct {
	CFN    aws.CFN
	EC2    aws.EC2
	Logs   aws.Logs
	S3     aws.S3
	Dynamo aws.Dynamo
	Batch  aws.Batch
	STS    aws.STS
	Getter getter.Getter
	HTTP   http.HTTP
	TarGz  *tar.TarGz
	Exec   command.Command
	Logger logger.Logger
	Region string
}

// GenerateClients creates the various clients for managing clusters and
// images in the given region, when region is empty it is resolved from
// the environment and the shared configuration files
func GenerateClients(ctx context.Context, region string, l logger.Logger) (*Clients, error) {
	cfg, err := aws.NewConfig(ctx, region, l)
	if err != nil {
		return nil, err
	}

	bp := getter.NewGetter(false)

	tgz := &tar.TarGz{}

	return &Clients{
		CFN:    aws.NewCFN(cfg, l),
		EC2:    aws.NewEC2(cfg, l),
		Logs:   aws.NewLogs(cfg, l),
		S3:     aws.NewS3(cfg, l),
		Dynamo: aws.NewDynamo(cfg, l),
		Batch:  aws.NewBatch(cfg, l),
		STS:    aws.NewSTS(cfg, l),
		Getter: bp,
		HTTP:   http.NewHTTP(l),
		TarGz:  tgz,
		Exec:   command.NewCommand(l),
		Logger: l,
		Region: cfg.Region,
	}, nil
}

// Factory creates the service clients once the target region is known,
// the region is only resolved after command flags have been parsed
type Factory func(ctx context.Context, region string) (*Clients, error)

// DefaultFactory returns a Factory backed by GenerateClients
func DefaultFactory(l logger.Logger) Factory {
	return func(ctx context.Context, region string) (*Clients, error) {
		return GenerateClients(ctx, region, l)
	}
}
