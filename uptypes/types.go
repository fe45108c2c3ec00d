// Package uptypes provides shared type definitions for the s3upload module.
package uptypes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"
)

// DefaultChunkSize is the part size used when none is configured (8 MiB).
const DefaultChunkSize int64 = 8 * 1024 * 1024

// MinServicePartSize is the smallest size S3 accepts for any part but the last.
// Smaller chunk sizes are allowed but will be rejected by AWS at commit time.
const MinServicePartSize int64 = 5 * 1024 * 1024

// MaxParts is the largest part number S3 accepts in one multipart upload.
const MaxParts = 10000

// StorageClass represents the storage class for the uploaded object.
type StorageClass string

// Predefined S3 storage classes
const (
	// StorageClassStandard is the default S3 storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacierIR provides Glacier Instant Retrieval storage
	StorageClassGlacierIR StorageClass = "GLACIER_IR"
)

// UploadSession is one in-progress multipart upload. It exists from a
// successful initiate until complete or abort succeeds and is never persisted.
type UploadSession struct {
	// Bucket is the destination bucket
	Bucket string

	// Key is the destination object key
	Key string

	// UploadID is the opaque identifier issued by the storage service
	UploadID string

	// ChunkSize is the fixed size of every part except possibly the last
	ChunkSize int64
}

// PartRecord is one successfully uploaded chunk.
type PartRecord struct {
	// PartNumber is the 1-based position of the part in the object
	PartNumber int32

	// ETag is the opaque token returned by the service, sent back verbatim at commit
	ETag string

	// Size is the number of bytes in the part
	Size int64
}

// UploadResult contains the result of a successful upload.
type UploadResult struct {
	// Bucket is the destination bucket
	Bucket string

	// Key is the object key that was written
	Key string

	// UploadID is the multipart session that produced the object
	UploadID string

	// Parts lists the committed parts in part-number order
	Parts []PartRecord

	// Size is the total number of bytes uploaded
	Size int64

	// ETag is the entity tag of the assembled object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Location is the URL of the assembled object, when the service returns one
	Location string

	// Duration is how long the upload took
	Duration time.Duration
}

// ProgressTracker receives one event per uploaded part, the outcome of any
// abort and a terminal event.
// Implementations are called from the uploading goroutine only.
type ProgressTracker interface {
	// PartUploaded is called after each successful part upload with the bytes
	// sent so far and the total size (-1 when unknown).
	PartUploaded(part PartRecord, bytesTransferred, totalBytes int64)

	// Complete is called when the object was committed
	Complete(result *UploadResult)

	// Aborted is called after an abort attempt with its outcome (nil when the
	// session was terminated)
	Aborted(uploadID string, err error)

	// Error is called when the upload failed
	Error(err error)
}

// UploadConfig holds the resolved configuration of one upload.
type UploadConfig struct {
	ContentType            string
	Metadata               map[string]string
	StorageClass           StorageClass
	ChunkSize              int64
	TotalSize              int64
	AbortOnCompleteFailure bool
	ProgressTracker        ProgressTracker
}

// Configuration types for functional options

// ClientConfig holds configuration for the upload client.
type ClientConfig struct {
	Region           string
	Endpoint         string
	Profile          string
	AccessKeyID      string
	SecretAccessKey  string
	SessionToken     string
	MaxRetries       int
	Timeout          time.Duration
	ForcePathStyle   bool
	ChunkSize        int64
	CustomAWSConfig  *aws.Config
	CustomHTTPClient *http.Client
	Logger           *slog.Logger
	Filesystem       billy.Filesystem
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	ContentType            string
	Metadata               map[string]string
	StorageClass           StorageClass
	ChunkSize              int64
	AbortOnCompleteFailure bool
	ProgressTracker        ProgressTracker
}

type (
	// Option is a functional option for configuring the upload client.
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring a single upload.
	UploadOption func(*UploadOptionConfig)
)
