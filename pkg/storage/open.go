package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Open builds a store from a URL:
//
//	s3://bucket/prefix
//	dynamodb://table
//	http(s)://host/api
//	file:///path or a bare path
func Open(ctx context.Context, rawURL string, o AWSOptions) (BlobStore, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("storage: empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("invalid store url %q: missing bucket", rawURL)
		}
		cfg, err := NewAWSConfig(ctx, o)
		if err != nil {
			return nil, err
		}
		pathStyle := o.Endpoint != ""
		return NewS3Store(cfg, u.Host, strings.TrimPrefix(u.Path, "/"), func(opts *s3.Options) {
			opts.UsePathStyle = pathStyle
		}), nil
	case "dynamodb":
		if u.Host == "" {
			return nil, fmt.Errorf("invalid store url %q: missing table", rawURL)
		}
		cfg, err := NewAWSConfig(ctx, o)
		if err != nil {
			return nil, err
		}
		return NewDynamoStore(cfg, u.Host), nil
	case "http", "https":
		return NewHTTPStore(rawURL), nil
	case "file":
		return NewLocalStore(u.Path), nil
	case "":
		return NewLocalStore(rawURL), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}
