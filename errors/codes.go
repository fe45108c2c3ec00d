// Package errors provides the error taxonomy for multipart uploads.
// Every failure returned by this module carries a Kind that tells the
// caller which phase of the upload failed and whether a remote session
// may have been left behind.
package errors

// Kind classifies an upload failure by the phase in which it happened.
// Kinds are string-based for debuggability and natural JSON serialization.
type Kind string

const (
	// Setup errors.

	// KindCredentials indicates no usable credentials could be resolved.
	// No session exists, so nothing needs cleaning up.
	KindCredentials Kind = "CREDENTIALS"

	// KindInvalidInput indicates the bucket, key or chunk size was rejected
	// before any remote call was made, or that a source of unknown size
	// outgrew the part limit, in which case the session is aborted.
	KindInvalidInput Kind = "INVALID_INPUT"

	// Session errors.

	// KindInitiation indicates the initiate call failed or returned no
	// upload ID. No session exists.
	KindInitiation Kind = "INITIATION_FAILED"

	// KindPartUpload indicates an upload-part call failed. An abort is
	// attempted with the session's upload ID.
	KindPartUpload Kind = "PART_UPLOAD_FAILED"

	// KindCompletion indicates the commit of the part list failed after
	// every part was uploaded.
	KindCompletion Kind = "COMPLETION_FAILED"

	// KindAbort indicates the abort call itself failed. It is always
	// reported next to the failure that caused the abort, never in place of it.
	KindAbort Kind = "ABORT_FAILED"

	// Generic errors.

	// KindUnexpected covers local I/O failures and anything else.
	KindUnexpected Kind = "UNEXPECTED"
)

// String returns the string form of the kind.
func (k Kind) String() string {
	return string(k)
}

// HasSession reports whether a failure of this kind can happen only after
// a remote session was created.
func (k Kind) HasSession() bool {
	switch k {
	case KindPartUpload, KindCompletion, KindAbort:
		return true
	default:
		return false
	}
}
