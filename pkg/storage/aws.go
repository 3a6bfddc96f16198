package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/version"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// AWSOptions selects the account and endpoint of the AWS-backed stores.
type AWSOptions struct {
	Region   string
	Profile  string
	Endpoint string // overrides AWS_ENDPOINT_URL, e.g. a LocalStack URL
}

// NewAWSConfig loads the default credential chain and tags every request
// with the AssetLens user agent.
func NewAWSConfig(ctx context.Context, o AWSOptions) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if o.Region != "" {
		opts = append(opts, config.WithRegion(o.Region))
	}
	if o.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(o.Profile))
	}

	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("AWS_ENDPOINT_URL")
	}
	if endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}

	cfg.APIOptions = append(cfg.APIOptions, func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("AssetLensUserAgent", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
			middleware.BuildOutput, middleware.Metadata, error,
		) {
			if req, ok := input.Request.(*smithyhttp.Request); ok {
				ua := req.Header.Get("User-Agent")
				if ua == "" {
					req.Header.Set("User-Agent", version.UserAgent())
				} else {
					req.Header.Set("User-Agent", ua+" "+version.UserAgent())
				}
			}
			return next.HandleBuild(ctx, input)
		}), middleware.After)
	})

	return cfg, nil
}
