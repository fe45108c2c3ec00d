package s3upload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/uptypes"
)

const (
	// DefaultContentType is the default content type used when content type detection fails
	DefaultContentType = "application/octet-stream"

	// sniffLen is how many leading bytes are inspected for content detection
	sniffLen = 512
)

// UploadFile uploads a local file to bucket/key with a sequential multipart upload.
//
// The file is read in chunks of the configured chunk size; each chunk becomes
// one part, numbered from 1. The file handle is closed on every exit path.
// An empty file produces no parts and the commit is sent with an empty part
// list, which AWS S3 rejects; the resulting errors.KindCompletion error
// carries errors.ErrInvalidPartList.
//
// Returns:
//   - *UploadResult: the committed parts and the object's ETag and version
//   - error: an *errors.Error whose Kind names the failed phase
//
// Errors:
//   - KindInvalidInput: bucket, key, chunk size, metadata or content type rejected,
//     or the file would need more than uptypes.MaxParts parts
//   - KindUnexpected: the local file cannot be stat'ed, opened or read
//   - KindInitiation: the session could not be created
//   - KindPartUpload: a part failed; the session was aborted
//   - KindCompletion: the commit failed; the session was aborted unless disabled
//
// A failed abort is attached to the error and returned by errors.AbortFailure.
//
// Example:
//
//	result, err := client.UploadFile(ctx, "my-bucket", "backups/db.tar", "/var/backups/db.tar",
//	    s3upload.WithUploadChunkSize(64*1024*1024),
//	    s3upload.WithProgress(progress.NewLines(os.Stdout)),
//	)
func (c *Client) UploadFile(
	ctx context.Context,
	bucket, key, localPath string,
	opts ...uptypes.UploadOption,
) (*uptypes.UploadResult, error) {
	config, err := c.resolveUploadConfig(bucket, key, opts)
	if err != nil {
		return nil, err
	}

	if localPath == "" {
		return nil, s3errors.NewObjectError(s3errors.KindInvalidInput, "uploadFile", bucket, key, s3errors.ErrInvalidInput).
			WithMessage("local file path cannot be empty")
	}

	path, err := c.localPath(localPath)
	if err != nil {
		return nil, s3errors.NewObjectError(s3errors.KindUnexpected, "uploadFile", bucket, key, err)
	}

	info, err := c.fs.Stat(path)
	if err != nil {
		return nil, s3errors.NewObjectError(s3errors.KindUnexpected, "stat", bucket, key, err)
	}
	if !info.Mode().IsRegular() {
		return nil, s3errors.NewObjectError(s3errors.KindUnexpected, "stat", bucket, key, s3errors.ErrNotRegularFile).
			WithMessage(path)
	}

	if config.ContentType == "" {
		config.ContentType = c.detectContentType(path)
	}
	config.TotalSize = info.Size()

	if parts := multipart.PartCount(config.TotalSize, config.ChunkSize); parts > uptypes.MaxParts {
		return nil, s3errors.NewObjectError(s3errors.KindInvalidInput, "uploadFile", bucket, key, s3errors.ErrInvalidChunkSize).
			WithMessage(fmt.Sprintf("%d bytes in chunks of %d need %d parts, more than the %d allowed",
				config.TotalSize, config.ChunkSize, parts, uptypes.MaxParts))
	}

	file, err := c.fs.Open(path)
	if err != nil {
		return nil, s3errors.NewObjectError(s3errors.KindUnexpected, "open", bucket, key, err)
	}
	defer file.Close()

	c.logger.Info("starting multipart upload",
		"bucket", bucket,
		"key", key,
		"file", path,
		"size", config.TotalSize,
		"chunk_size", config.ChunkSize,
	)

	return multipart.NewUploader(c.api, c.logger).Upload(ctx, bucket, key, file, config)
}

// Upload uploads everything read from reader to bucket/key with a sequential
// multipart upload. The total size is unknown to progress trackers, which
// receive -1. The content type defaults to the one implied by the key's
// extension.
func (c *Client) Upload(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	opts ...uptypes.UploadOption,
) (*uptypes.UploadResult, error) {
	config, err := c.resolveUploadConfig(bucket, key, opts)
	if err != nil {
		return nil, err
	}

	if reader == nil {
		return nil, s3errors.NewObjectError(s3errors.KindInvalidInput, "upload", bucket, key, s3errors.ErrInvalidInput).
			WithMessage("reader cannot be nil")
	}

	if config.ContentType == "" {
		config.ContentType = detectContentTypeFromExtension(key)
	}
	config.TotalSize = -1

	return multipart.NewUploader(c.api, c.logger).Upload(ctx, bucket, key, reader, config)
}

// resolveUploadConfig applies upload options over the client defaults and
// validates the result. Nothing remote is touched.
func (c *Client) resolveUploadConfig(
	bucket, key string,
	opts []uptypes.UploadOption,
) (*uptypes.UploadConfig, error) {
	optCfg := &uptypes.UploadOptionConfig{
		ChunkSize:              c.chunkSize,
		AbortOnCompleteFailure: true,
	}
	for _, opt := range opts {
		opt(optCfg)
	}

	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}
	if err := validation.ValidateChunkSize(optCfg.ChunkSize); err != nil {
		return nil, err
	}
	if err := validation.ValidateMetadata(optCfg.Metadata); err != nil {
		return nil, err
	}
	if err := validation.ValidateContentType(optCfg.ContentType); err != nil {
		return nil, err
	}

	if validation.BelowServiceMinimum(optCfg.ChunkSize) {
		c.logger.Warn("chunk size is below the S3 minimum part size; AWS will reject multi-part objects",
			"chunk_size", optCfg.ChunkSize,
			"minimum", uptypes.MinServicePartSize,
		)
	}

	return &uptypes.UploadConfig{
		ContentType:            optCfg.ContentType,
		Metadata:               optCfg.Metadata,
		StorageClass:           optCfg.StorageClass,
		ChunkSize:              optCfg.ChunkSize,
		AbortOnCompleteFailure: optCfg.AbortOnCompleteFailure,
		ProgressTracker:        optCfg.ProgressTracker,
	}, nil
}

// localPath makes p absolute when the client reads from the OS filesystem
// rooted at "/", so that relative paths resolve against the working directory.
func (c *Client) localPath(p string) (string, error) {
	if !c.rootedOS || filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Abs(p)
}

// detectContentType sniffs the first bytes of the file at path and falls
// back to the file extension.
func (c *Client) detectContentType(path string) string {
	file, err := c.fs.Open(path)
	if err != nil {
		return detectContentTypeFromExtension(path)
	}
	defer file.Close()

	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(file, buf)
	if n > 0 {
		if mt := mimetype.Detect(buf[:n]); mt != nil && !mt.Is(DefaultContentType) {
			return mt.String()
		}
	}

	return detectContentTypeFromExtension(path)
}

func detectContentTypeFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}

	return DefaultContentType
}
