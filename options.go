package s3upload

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/uptypes"
)

// WithRegion sets the AWS region for the storage client.
// If not specified, uses the region from the default configuration chain.
func WithRegion(region string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithProfile selects a named profile from the shared AWS configuration files.
func WithProfile(profile string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Profile = profile
	}
}

// WithStaticCredentials uses fixed credentials instead of the default chain.
// The session token may be empty.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
		c.SessionToken = sessionToken
	}
}

// WithMaxRetries sets the maximum number of attempts the AWS SDK makes per request.
// Default is 3. Parts are never re-uploaded by this package itself.
func WithMaxRetries(maxRetries int) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the HTTP timeout for individual requests.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client.
// It takes precedence over WithTimeout.
func WithCustomHTTPClient(client *http.Client) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithLogger sets the structured logger. Without it the client logs nothing.
func WithLogger(logger *slog.Logger) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets the filesystem local files are read from.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem billy.Filesystem) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithChunkSize sets the default part size for uploads made by the client.
// Default is 8 MiB. Non-positive values are rejected at upload time.
func WithChunkSize(chunkSize int64) uptypes.Option {
	return func(c *uptypes.ClientConfig) {
		c.ChunkSize = chunkSize
	}
}

// WithContentType sets the content type of the uploaded object.
// When unset it is detected from the file contents and extension.
func WithContentType(contentType string) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata adds user-defined metadata to the uploaded object.
func WithMetadata(metadata map[string]string) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// WithStorageClass sets the storage class of the uploaded object.
func WithStorageClass(storageClass uptypes.StorageClass) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		c.StorageClass = storageClass
	}
}

// WithProgress sets a progress tracker for the upload.
func WithProgress(tracker uptypes.ProgressTracker) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithUploadChunkSize sets the part size for this upload only.
// This overrides the client-level default.
func WithUploadChunkSize(chunkSize int64) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		c.ChunkSize = chunkSize
	}
}

// WithAbortOnCompleteFailure controls whether the session is aborted when the
// final commit fails. Default is true; false leaves the uploaded parts in
// place on the service.
func WithAbortOnCompleteFailure(abort bool) uptypes.UploadOption {
	return func(c *uptypes.UploadOptionConfig) {
		c.AbortOnCompleteFailure = abort
	}
}
