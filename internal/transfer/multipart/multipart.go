// Package multipart handles sequential multipart upload operations
// with a best-effort abort on failure.
package multipart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/uptypes"
)

// Uploader performs multipart uploads one part at a time.
// A single Uploader can be reused for several uploads but not concurrently.
type Uploader struct {
	s3Client s3api.MultipartAPI
	logger   *slog.Logger
}

// NewUploader creates a new multipart uploader.
// A nil logger discards all log output.
func NewUploader(s3Client s3api.MultipartAPI, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Uploader{
		s3Client: s3Client,
		logger:   logger,
	}
}

// Upload reads reader to EOF in chunks of config.ChunkSize bytes and uploads
// each chunk as one part of a new multipart upload, then commits the parts.
//
// Any part failure stops the loop and aborts the session. A failed abort is
// attached to the original error instead of replacing it. When the commit
// fails the session is aborted as well, unless config.AbortOnCompleteFailure
// is false.
func (u *Uploader) Upload(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	config *uptypes.UploadConfig,
) (*uptypes.UploadResult, error) {
	startTime := time.Now()

	session, err := u.initiate(ctx, bucket, key, config)
	if err != nil {
		return nil, u.fail(config, err)
	}

	parts, err := u.uploadParts(ctx, session, reader, config)
	if err != nil {
		return nil, u.fail(config, u.abort(ctx, session, config, err))
	}

	result, err := u.complete(ctx, session, parts, startTime)
	if err != nil {
		if config.AbortOnCompleteFailure {
			err = u.abort(ctx, session, config, err)
		}
		return nil, u.fail(config, err)
	}

	if config.ProgressTracker != nil {
		config.ProgressTracker.Complete(result)
	}
	return result, nil
}

// getChunkSize returns the configured chunk size or default
func getChunkSize(configured int64) int64 {
	if configured > 0 {
		return configured
	}
	return uptypes.DefaultChunkSize
}

// initiate creates a new multipart upload. No session exists if it fails.
func (u *Uploader) initiate(
	ctx context.Context,
	bucket, key string,
	config *uptypes.UploadConfig,
) (*uptypes.UploadSession, *s3errors.Error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	if config.ContentType != "" {
		input.ContentType = aws.String(config.ContentType)
	}
	if config.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(config.StorageClass)
	}
	if len(config.Metadata) > 0 {
		input.Metadata = config.Metadata
	}

	output, err := u.s3Client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return nil, s3errors.NewObjectError(s3errors.KindInitiation, "initiate", bucket, key, s3errors.Classify(err))
	}

	uploadID := aws.ToString(output.UploadId)
	if uploadID == "" {
		return nil, s3errors.NewObjectError(s3errors.KindInitiation, "initiate", bucket, key, s3errors.ErrEmptyUploadID)
	}

	session := &uptypes.UploadSession{
		Bucket:    bucket,
		Key:       key,
		UploadID:  uploadID,
		ChunkSize: getChunkSize(config.ChunkSize),
	}

	u.logger.Debug("initiated multipart upload",
		"bucket", bucket,
		"key", key,
		"upload_id", uploadID,
		"chunk_size", session.ChunkSize,
	)
	return session, nil
}

// uploadParts reads and uploads parts until EOF. On failure it returns the
// parts uploaded so far together with the error.
func (u *Uploader) uploadParts(
	ctx context.Context,
	session *uptypes.UploadSession,
	reader io.Reader,
	config *uptypes.UploadConfig,
) ([]uptypes.PartRecord, *s3errors.Error) {
	buf := make([]byte, session.ChunkSize)
	parts := make([]uptypes.PartRecord, 0, estimateParts(config.TotalSize, session.ChunkSize))
	var transferred int64

	for partNumber := int32(1); ; partNumber++ {
		if err := ctx.Err(); err != nil {
			return parts, u.sessionError(s3errors.KindPartUpload, "uploadPart", session, err).
				WithPartNumber(partNumber)
		}

		n, readErr := io.ReadFull(reader, buf)
		if n == 0 {
			if readErr == nil || errors.Is(readErr, io.EOF) {
				return parts, nil
			}
			return parts, u.sessionError(s3errors.KindUnexpected, "readChunk", session, readErr).
				WithPartNumber(partNumber)
		}
		lastChunk := errors.Is(readErr, io.ErrUnexpectedEOF)
		if readErr != nil && !lastChunk {
			return parts, u.sessionError(s3errors.KindUnexpected, "readChunk", session, readErr).
				WithPartNumber(partNumber)
		}
		if partNumber > uptypes.MaxParts {
			return parts, u.sessionError(s3errors.KindInvalidInput, "uploadPart", session, s3errors.ErrInvalidChunkSize).
				WithPartNumber(partNumber).
				WithMessage(fmt.Sprintf("source exceeds %d parts of %d bytes", uptypes.MaxParts, session.ChunkSize))
		}

		etag, err := u.uploadPart(ctx, session, partNumber, buf[:n])
		if err != nil {
			return parts, err
		}

		part := uptypes.PartRecord{
			PartNumber: partNumber,
			ETag:       etag,
			Size:       int64(n),
		}
		parts = append(parts, part)
		transferred += int64(n)

		u.logger.Info("uploaded part",
			"bucket", session.Bucket,
			"key", session.Key,
			"part", partNumber,
			"size", n,
		)
		if config.ProgressTracker != nil {
			config.ProgressTracker.PartUploaded(part, transferred, config.TotalSize)
		}

		if lastChunk {
			return parts, nil
		}
	}
}

// estimateParts returns the expected number of parts, capped at
// uptypes.MaxParts, or 0 when the size is unknown.
func estimateParts(totalSize, chunkSize int64) int {
	if totalSize <= 0 || chunkSize <= 0 {
		return 0
	}
	return int(min(PartCount(totalSize, chunkSize), uptypes.MaxParts))
}

// PartCount returns ceil(totalSize/chunkSize), the number of parts a source
// of totalSize bytes is split into.
func PartCount(totalSize, chunkSize int64) int64 {
	if totalSize <= 0 {
		return 0
	}
	return (totalSize-1)/chunkSize + 1
}

// uploadPart uploads a single part and returns its ETag
func (u *Uploader) uploadPart(
	ctx context.Context,
	session *uptypes.UploadSession,
	partNumber int32,
	data []byte,
) (string, *s3errors.Error) {
	input := &s3.UploadPartInput{
		Bucket:        aws.String(session.Bucket),
		Key:           aws.String(session.Key),
		UploadId:      aws.String(session.UploadID),
		PartNumber:    aws.Int32(partNumber),
		ContentLength: aws.Int64(int64(len(data))),
		Body:          bytes.NewReader(data),
	}

	output, err := u.s3Client.UploadPart(ctx, input)
	if err != nil {
		return "", u.sessionError(s3errors.KindPartUpload, "uploadPart", session, s3errors.Classify(err)).
			WithPartNumber(partNumber)
	}

	return aws.ToString(output.ETag), nil
}

// complete commits the ordered part list
func (u *Uploader) complete(
	ctx context.Context,
	session *uptypes.UploadSession,
	parts []uptypes.PartRecord,
	startTime time.Time,
) (*uptypes.UploadResult, *s3errors.Error) {
	completed := make([]awstypes.CompletedPart, 0, len(parts))
	var size int64
	for _, part := range parts {
		completed = append(completed, awstypes.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int32(part.PartNumber),
		})
		size += part.Size
	}

	input := &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(session.Bucket),
		Key:      aws.String(session.Key),
		UploadId: aws.String(session.UploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	}

	output, err := u.s3Client.CompleteMultipartUpload(ctx, input)
	if err != nil {
		return nil, u.sessionError(s3errors.KindCompletion, "complete", session, s3errors.Classify(err))
	}

	result := &uptypes.UploadResult{
		Bucket:    session.Bucket,
		Key:       session.Key,
		UploadID:  session.UploadID,
		Parts:     parts,
		Size:      size,
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Location:  aws.ToString(output.Location),
		Duration:  time.Since(startTime),
	}

	u.logger.Info("completed multipart upload",
		"bucket", session.Bucket,
		"key", session.Key,
		"parts", len(parts),
		"size", size,
		"duration", result.Duration,
	)
	return result, nil
}

// abort terminates the session after cause. The abort runs even when ctx is
// cancelled. A failed abort is attached to cause.
func (u *Uploader) abort(
	ctx context.Context,
	session *uptypes.UploadSession,
	config *uptypes.UploadConfig,
	cause *s3errors.Error,
) *s3errors.Error {
	input := &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(session.Bucket),
		Key:      aws.String(session.Key),
		UploadId: aws.String(session.UploadID),
	}

	if _, err := u.s3Client.AbortMultipartUpload(context.WithoutCancel(ctx), input); err != nil {
		abortErr := u.sessionError(s3errors.KindAbort, "abort", session, s3errors.Classify(err))
		u.logger.Error("failed to abort multipart upload",
			"bucket", session.Bucket,
			"key", session.Key,
			"upload_id", session.UploadID,
			"error", err,
		)
		if config.ProgressTracker != nil {
			config.ProgressTracker.Aborted(session.UploadID, abortErr)
		}
		return cause.WithAbortFailure(abortErr)
	}

	u.logger.Warn("aborted multipart upload",
		"bucket", session.Bucket,
		"key", session.Key,
		"upload_id", session.UploadID,
		"cause", cause.Kind,
	)
	if config.ProgressTracker != nil {
		config.ProgressTracker.Aborted(session.UploadID, nil)
	}
	return cause
}

func (u *Uploader) sessionError(kind s3errors.Kind, op string, session *uptypes.UploadSession, err error) *s3errors.Error {
	return s3errors.NewObjectError(kind, op, session.Bucket, session.Key, err).WithUploadID(session.UploadID)
}

// fail notifies the progress tracker and returns err as an error value.
func (u *Uploader) fail(config *uptypes.UploadConfig, err *s3errors.Error) error {
	if config.ProgressTracker != nil {
		config.ProgressTracker.Error(err)
	}
	return err
}
