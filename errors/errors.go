package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
	"github.com/hashicorp/go-multierror"
)

// Error represents a multipart upload failure with context about where it happened.
// It wraps the underlying AWS SDK or filesystem error with the upload phase (Kind),
// the operation name and the session coordinates.
type Error struct {
	// Kind is the phase of the upload that failed
	Kind Kind

	// Op is the operation that failed (e.g., "initiate", "uploadPart", "complete")
	Op string

	// Bucket is the destination bucket name (if applicable)
	Bucket string

	// Key is the destination object key (if applicable)
	Key string

	// UploadID is the multipart session identifier (empty when no session exists)
	UploadID string

	// PartNumber is the part being uploaded when the failure happened (0 if none)
	PartNumber int32

	// Err is the underlying error. When an abort failed after this error,
	// Err is a *multierror.Error holding the cause and the abort failure.
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("s3upload.")
	b.WriteString(e.Op)
	if e.Kind != "" {
		fmt.Fprintf(&b, " [%s]", e.Kind)
	}

	switch {
	case e.Bucket != "" && e.Key != "":
		fmt.Fprintf(&b, " %s/%s", e.Bucket, e.Key)
	case e.Bucket != "":
		fmt.Fprintf(&b, " bucket %s", e.Bucket)
	case e.Key != "":
		fmt.Fprintf(&b, " object %s", e.Key)
	}

	if e.PartNumber > 0 {
		fmt.Fprintf(&b, " part %d", e.PartNumber)
	}
	if e.UploadID != "" {
		fmt.Fprintf(&b, " (upload %s)", e.UploadID)
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind. An empty Op on the
// target matches any operation, which makes errors.Is(err, &Error{Kind: k})
// a kind check that also sees abort failures nested inside Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithUploadID adds the multipart session identifier to an existing error.
func (e *Error) WithUploadID(uploadID string) *Error {
	e.UploadID = uploadID
	return e
}

// WithPartNumber records the part that was in flight.
func (e *Error) WithPartNumber(partNumber int32) *Error {
	e.PartNumber = partNumber
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// WithAbortFailure attaches a failed abort to the error. The original cause
// stays first; both remain reachable through errors.Is and errors.As.
func (e *Error) WithAbortFailure(abortErr error) *Error {
	if abortErr == nil {
		return e
	}
	merr := multierror.Append(e.Err, abortErr)
	merr.ErrorFormat = formatSingleLine
	e.Err = merr
	return e
}

// NewError creates a new Error with the given kind, operation and underlying error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(kind Kind, op, bucket, key string, err error) *Error {
	return &Error{
		Kind:   kind,
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

func formatSingleLine(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; additionally: ")
}

// Sentinel errors for common upload failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrNoCredentials indicates that no credentials could be resolved from the environment
	ErrNoCredentials = errors.New("s3upload: no credentials found")

	// ErrInvalidCredentials indicates that the service rejected the credentials
	ErrInvalidCredentials = errors.New("s3upload: invalid credentials")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3upload: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3upload: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3upload: invalid object key")

	// ErrInvalidChunkSize indicates that the chunk size is not a positive integer
	ErrInvalidChunkSize = errors.New("s3upload: invalid chunk size")

	// ErrNotRegularFile indicates that the local path is a directory or special file
	ErrNotRegularFile = errors.New("s3upload: not a regular file")

	// ErrBucketNotFound indicates that the destination bucket does not exist
	ErrBucketNotFound = errors.New("s3upload: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3upload: access denied")

	// ErrEmptyUploadID indicates that the service accepted initiate but returned no upload ID
	ErrEmptyUploadID = errors.New("s3upload: service returned an empty upload id")

	// ErrUploadNotFound indicates that the multipart session no longer exists
	ErrUploadNotFound = errors.New("s3upload: upload not found")

	// ErrInvalidPartList indicates that the service rejected the committed part list
	ErrInvalidPartList = errors.New("s3upload: invalid part list")
)

// Classify maps a storage service error to one of the sentinel errors above,
// keeping the original error in the chain. Errors that carry no known
// service error code are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	var sentinel error
	switch apiErr.ErrorCode() {
	case "NoSuchBucket":
		sentinel = ErrBucketNotFound
	case "AccessDenied", "AllAccessDisabled", "Forbidden":
		sentinel = ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken", "TokenRefreshRequired":
		sentinel = ErrInvalidCredentials
	case "NoSuchUpload":
		sentinel = ErrUploadNotFound
	case "InvalidPart", "InvalidPartOrder", "EntityTooSmall", "MalformedXML":
		sentinel = ErrInvalidPartList
	default:
		return err
	}

	return fmt.Errorf("%w: %w", sentinel, err)
}

// KindOf returns the Kind of the outermost *Error in err's chain.
// It returns KindUnexpected for non-nil errors that carry no Kind and an
// empty Kind for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	return KindUnexpected
}

// IsKind reports whether any *Error of the given kind is in err's chain,
// including abort failures attached with WithAbortFailure.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// AbortFailure returns the abort failure attached to err, if any.
func AbortFailure(err error) (*Error, bool) {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return nil, false
	}
	for _, e := range merr.Errors {
		var abortErr *Error
		if errors.As(e, &abortErr) && abortErr.Kind == KindAbort {
			return abortErr, true
		}
	}
	return nil, false
}

// IsBucketNotFound checks if an error indicates that the bucket was not found.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsCredentialError checks if an error was caused by missing or rejected credentials.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrNoCredentials) || errors.Is(err, ErrInvalidCredentials)
}
