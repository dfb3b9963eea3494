package s3

import "github.com/aws/aws-sdk-go-v2/feature/s3/manager"

type options struct {
	prefix      string
	region      string
	endpoint    string
	partSize    int64
	concurrency int
}

// Option configures a Store.
type Option func(*options)

// WithPrefix prepends prefix to every key (e.g. "indexes/").
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithRegion sets the AWS region used by New.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithEndpoint points New at a custom S3-compatible endpoint and enables
// path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithPartSize sets the multipart upload part size. Default: 8MB.
func WithPartSize(size int64) Option {
	return func(o *options) {
		if size >= manager.MinUploadPartSize {
			o.partSize = size
		}
	}
}

// WithConcurrency sets the number of concurrent part uploads. Default: 5.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func defaultOptions() options {
	return options{
		partSize:    8 * 1024 * 1024,
		concurrency: manager.DefaultUploadConcurrency,
	}
}
