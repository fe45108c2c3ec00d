package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
)

func TestParseChunkSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "5242880", want: 5 * 1024 * 1024},
		{input: "8MiB", want: 8 * 1024 * 1024},
		{input: "512KiB", want: 512 * 1024},
		{input: "1GiB", want: 1024 * 1024 * 1024},
		{input: "16m", want: 16 * 1024 * 1024},
		{input: " 64MiB ", want: 64 * 1024 * 1024},
		{input: "0", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "lots", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseChunkSize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, exitUsage, exitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "usage", err: usagef("--bucket is required"), want: exitUsage},
		{
			name: "validation",
			err:  s3errors.NewError(s3errors.KindInvalidInput, "validateBucketName", s3errors.ErrInvalidBucketName),
			want: exitUsage,
		},
		{
			name: "credentials",
			err:  s3errors.NewError(s3errors.KindCredentials, "resolveCredentials", s3errors.ErrNoCredentials),
			want: exitCredentials,
		},
		{
			name: "part upload",
			err:  s3errors.NewObjectError(s3errors.KindPartUpload, "uploadPart", "b", "k", errors.New("boom")),
			want: exitFailure,
		},
		{
			name: "wrapped completion",
			err:  fmt.Errorf("upload: %w", s3errors.NewError(s3errors.KindCompletion, "complete", errors.New("boom"))),
			want: exitFailure,
		},
		{name: "plain", err: errors.New("something else"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing bucket", args: []string{"--file", "data.bin"}, wantErr: "--bucket is required"},
		{name: "missing file", args: []string{"--bucket", "my-bucket"}, wantErr: "--file is required"},
		{name: "unknown flag", args: []string{"--nope"}, wantErr: "unknown flag"},
		{name: "positional argument", args: []string{"--bucket", "b", "extra"}, wantErr: "unknown command"},
		{
			name:    "bad chunk size",
			args:    []string{"--bucket", "my-bucket", "--file", "data.bin", "--chunk-size", "huge"},
			wantErr: "invalid chunk size",
		},
		{
			name:    "bad log level",
			args:    []string{"--bucket", "my-bucket", "--file", "data.bin", "--log-level", "loud"},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("S3UPLOAD_BUCKET", "")
			t.Setenv("S3UPLOAD_FILE", "")

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)

			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr.String(), "Error: ")
			assert.Contains(t, stderr.String(), tt.wantErr)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestLoadOptions_Environment(t *testing.T) {
	t.Setenv("S3UPLOAD_BUCKET", "env-bucket")
	t.Setenv("S3UPLOAD_FILE", "/tmp/archive.tar.gz")
	t.Setenv("S3UPLOAD_CHUNK_SIZE", "16MiB")
	t.Setenv("S3UPLOAD_ABORT_ON_COMPLETE_FAILURE", "false")

	v := viper.New()
	cmd := newRootCmd(v, &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, cmd.ParseFlags([]string{"--region", "eu-west-1"}))
	require.NoError(t, bindFlags(v, cmd))

	opts, err := loadOptions(v)
	require.NoError(t, err)

	assert.Equal(t, "env-bucket", opts.bucket)
	assert.Equal(t, "/tmp/archive.tar.gz", opts.file)
	assert.Equal(t, "archive.tar.gz", opts.key)
	assert.Equal(t, int64(16*1024*1024), opts.chunkSize)
	assert.Equal(t, "eu-west-1", opts.region)
	assert.False(t, opts.abortOnCompleteFailure)
	assert.Equal(t, "warn", opts.logLevel)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("info", "json", &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("uploaded part", "part", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"uploaded part"`)

	_, err = newLogger("info", "xml", &buf)
	assert.Error(t, err)
}
