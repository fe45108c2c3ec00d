package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload"
	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/progress"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/uptypes"
)

const envPrefix = "S3UPLOAD"

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitCredentials = 3
)

// usageError marks errors caused by the command line itself.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(viper.New(), stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

// exitCode maps an error returned by the command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var uerr *usageError
	if errors.As(err, &uerr) {
		return exitUsage
	}

	switch s3errors.KindOf(err) {
	case s3errors.KindInvalidInput:
		return exitUsage
	case s3errors.KindCredentials:
		return exitCredentials
	default:
		return exitFailure
	}
}

func newRootCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "s3upload --bucket BUCKET --file PATH [--key KEY]",
		Short: "Upload a local file to S3 with a sequential multipart upload",
		Long: "s3upload reads a local file in fixed-size chunks and uploads each chunk as one part of " +
			"an S3 multipart upload, one part at a time. On any part failure the upload is aborted.\n\n" +
			"Every flag can also be set through the environment, e.g. S3UPLOAD_BUCKET or S3UPLOAD_CHUNK_SIZE.",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &usageError{err: err}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(v, cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(v)
			if err != nil {
				return err
			}
			return upload(cmd.Context(), opts, stdout, stderr)
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err: fmt.Errorf("%w\n\n%s", err, c.UsageString())}
	})

	flags := cmd.Flags()
	flags.StringP("bucket", "b", "", "destination bucket (required)")
	flags.StringP("file", "f", "", "local file to upload (required)")
	flags.StringP("key", "k", "", "destination object key (defaults to the file's base name)")
	flags.StringP("chunk-size", "c", "8MiB", "part size in bytes, or with a KiB/MiB/GiB suffix")
	flags.String("region", "", "AWS region (defaults to the AWS configuration chain)")
	flags.String("endpoint", "", "custom S3 endpoint URL, e.g. for LocalStack or MinIO")
	flags.Bool("path-style", false, "use path-style addressing")
	flags.String("profile", "", "shared configuration profile")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Bool("progress", false, "show a progress bar instead of one line per part")
	flags.Bool("abort-on-complete-failure", true, "abort the upload when the final commit fails")

	return cmd
}

// bindFlags makes every flag readable through v, with S3UPLOAD_ environment
// variables taking effect for flags not set on the command line.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// options holds the resolved command line.
type options struct {
	bucket                 string
	file                   string
	key                    string
	chunkSize              int64
	region                 string
	endpoint               string
	pathStyle              bool
	profile                string
	logLevel               string
	logFormat              string
	progress               bool
	abortOnCompleteFailure bool
}

func loadOptions(v *viper.Viper) (*options, error) {
	opts := &options{
		bucket:                 v.GetString("bucket"),
		file:                   v.GetString("file"),
		key:                    v.GetString("key"),
		region:                 v.GetString("region"),
		endpoint:               v.GetString("endpoint"),
		pathStyle:              v.GetBool("path-style"),
		profile:                v.GetString("profile"),
		logLevel:               v.GetString("log-level"),
		logFormat:              v.GetString("log-format"),
		progress:               v.GetBool("progress"),
		abortOnCompleteFailure: v.GetBool("abort-on-complete-failure"),
	}

	if opts.bucket == "" {
		return nil, usagef("--bucket is required")
	}
	if opts.file == "" {
		return nil, usagef("--file is required")
	}
	if opts.key == "" {
		opts.key = filepath.Base(opts.file)
	}

	chunkSize, err := parseChunkSize(v.GetString("chunk-size"))
	if err != nil {
		return nil, err
	}
	opts.chunkSize = chunkSize

	return opts, nil
}

// parseChunkSize parses a positive byte count such as "5242880", "8MiB" or "1g".
// Suffixes are binary.
func parseChunkSize(s string) (int64, error) {
	size, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, usagef("invalid chunk size %q: %w", s, err)
	}
	if size <= 0 {
		return 0, usagef("invalid chunk size %q: must be positive", s)
	}
	return size, nil
}

func upload(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	logger, err := newLogger(opts.logLevel, opts.logFormat, stderr)
	if err != nil {
		return err
	}

	clientOpts := []uptypes.Option{
		s3upload.WithLogger(logger),
		s3upload.WithChunkSize(opts.chunkSize),
	}
	if opts.region != "" {
		clientOpts = append(clientOpts, s3upload.WithRegion(opts.region))
	}
	if opts.endpoint != "" {
		clientOpts = append(clientOpts, s3upload.WithEndpoint(opts.endpoint))
	}
	if opts.pathStyle {
		clientOpts = append(clientOpts, s3upload.WithForcePathStyle(true))
	}
	if opts.profile != "" {
		clientOpts = append(clientOpts, s3upload.WithProfile(opts.profile))
	}

	client, err := s3upload.New(ctx, clientOpts...)
	if err != nil {
		return err
	}

	var tracker uptypes.ProgressTracker = progress.NewLines(stdout)
	if opts.progress {
		tracker = progress.NewBar(stderr, stdout, filepath.Base(opts.file))
	}

	_, err = client.UploadFile(ctx, opts.bucket, opts.key, opts.file,
		s3upload.WithProgress(tracker),
		s3upload.WithAbortOnCompleteFailure(opts.abortOnCompleteFailure),
	)
	return err
}
