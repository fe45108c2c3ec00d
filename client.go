package s3upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/uptypes"
)

// defaultRegion is used when neither the options nor the environment name one.
const defaultRegion = "us-east-1"

// Client uploads local files to S3 with sequential multipart uploads.
// Its configuration is fixed at construction, so a Client is safe for
// concurrent use; each upload runs on its own uploader.
type Client struct {
	// api is the storage collaborator (an *s3.Client outside of tests)
	api s3api.MultipartAPI

	// config holds the resolved AWS configuration (zero for injected clients)
	config aws.Config

	// logger receives structured progress and failure logs
	logger *slog.Logger

	// fs is the filesystem local files are read from
	fs billy.Filesystem

	// rootedOS is set when fs is the OS filesystem rooted at "/", in which
	// case local paths are made absolute before use
	rootedOS bool

	// chunkSize is the default part size for uploads
	chunkSize int64
}

// New creates a Client backed by the AWS SDK. Credentials are resolved
// eagerly from the default chain (environment, shared config, SSO, IMDS)
// or from WithStaticCredentials / WithProfile, so a missing credential
// surfaces here as errors.KindCredentials rather than mid-upload.
//
// Example:
//
//	client, err := s3upload.New(ctx,
//	    s3upload.WithRegion("us-west-2"),
//	    s3upload.WithChunkSize(16*1024*1024),
//	)
func New(ctx context.Context, opts ...uptypes.Option) (*Client, error) {
	clientCfg := applyOptions(opts)

	cfg, err := loadAWSConfig(ctx, clientCfg)
	if err != nil {
		return nil, err
	}

	if err := checkCredentials(ctx, cfg); err != nil {
		return nil, err
	}

	var s3Opts []func(*s3.Options)
	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if clientCfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(clientCfg.Endpoint)
		})
	}

	// Custom HTTP client wins over the timeout shortcut
	switch {
	case clientCfg.CustomHTTPClient != nil:
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = clientCfg.CustomHTTPClient
		})
	case clientCfg.Timeout > 0:
		httpClient := &http.Client{
			Timeout: clientCfg.Timeout,
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	client := newClient(s3.NewFromConfig(cfg, s3Opts...), clientCfg)
	client.config = cfg

	client.logger.Debug("created s3upload client",
		"region", cfg.Region,
		"endpoint", clientCfg.Endpoint,
		"path_style", clientCfg.ForcePathStyle,
	)
	return client, nil
}

// NewWithClient creates a Client around a custom MultipartAPI implementation.
// This is primarily used for testing with mocked clients and for
// S3-compatible services configured outside this package. AWS-specific
// options (region, endpoint, credentials) are ignored.
func NewWithClient(api s3api.MultipartAPI, opts ...uptypes.Option) *Client {
	return newClient(api, applyOptions(opts))
}

func newClient(api s3api.MultipartAPI, clientCfg *uptypes.ClientConfig) *Client {
	client := &Client{
		api:       api,
		logger:    clientCfg.Logger,
		fs:        clientCfg.Filesystem,
		chunkSize: clientCfg.ChunkSize,
	}

	if client.logger == nil {
		client.logger = slog.New(slog.DiscardHandler)
	}

	// Default to OS filesystem rooted at /
	if client.fs == nil {
		client.fs = osfs.New("/")
		client.rootedOS = true
	}

	return client
}

func applyOptions(opts []uptypes.Option) *uptypes.ClientConfig {
	clientCfg := &uptypes.ClientConfig{
		MaxRetries: 3, // SDK-level retries only; parts are never re-sent by this module
		ChunkSize:  uptypes.DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}
	return clientCfg
}

// loadAWSConfig builds the AWS configuration from the options and the
// default configuration chain.
func loadAWSConfig(ctx context.Context, clientCfg *uptypes.ClientConfig) (aws.Config, error) {
	var cfg aws.Config

	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if clientCfg.Region != "" {
			loadOpts = append(loadOpts, config.WithRegion(clientCfg.Region))
		}
		if clientCfg.Profile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(clientCfg.Profile))
		}
		if clientCfg.AccessKeyID != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					clientCfg.AccessKeyID,
					clientCfg.SecretAccessKey,
					clientCfg.SessionToken,
				),
			))
		}
		if clientCfg.MaxRetries > 0 {
			loadOpts = append(loadOpts, config.WithRetryMaxAttempts(clientCfg.MaxRetries))
		}

		var err error
		cfg, err = config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			var profileErr config.SharedConfigProfileNotExistError
			if errors.As(err, &profileErr) {
				return aws.Config{}, s3errors.NewError(s3errors.KindCredentials, "loadConfig",
					fmt.Errorf("%w: %w", s3errors.ErrNoCredentials, err))
			}
			return aws.Config{}, s3errors.NewError(s3errors.KindUnexpected, "loadConfig", err)
		}
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	return cfg, nil
}

// checkCredentials resolves credentials once so that a missing credential is
// reported before any session is created.
func checkCredentials(ctx context.Context, cfg aws.Config) error {
	if cfg.Credentials == nil {
		return s3errors.NewError(s3errors.KindCredentials, "resolveCredentials", s3errors.ErrNoCredentials)
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return s3errors.NewError(s3errors.KindCredentials, "resolveCredentials",
			fmt.Errorf("%w: %w", s3errors.ErrNoCredentials, err))
	}
	if !creds.HasKeys() {
		return s3errors.NewError(s3errors.KindCredentials, "resolveCredentials", s3errors.ErrNoCredentials).
			WithMessage("credential provider returned no keys")
	}

	return nil
}

// Region returns the AWS region the client was configured for.
// It is empty for clients created with NewWithClient.
func (c *Client) Region() string {
	return c.config.Region
}
