package testutil

import (
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/uptypes"
)

// MockProgressTracker is a mock implementation of ProgressTracker for testing.
type MockProgressTracker struct {
	CompleteCalled bool
	ErrorCalled    bool
	Result         *uptypes.UploadResult
	LastError      error
	Updates        []ProgressUpdate
	Aborts         []AbortEvent
}

// AbortEvent represents one abort attempt.
type AbortEvent struct {
	UploadID string
	Err      error
}

// ProgressUpdate represents a single part event.
type ProgressUpdate struct {
	Part        uptypes.PartRecord
	Transferred int64
	Total       int64
}

// PartUploaded records a part event.
func (m *MockProgressTracker) PartUploaded(part uptypes.PartRecord, bytesTransferred, totalBytes int64) {
	m.Updates = append(m.Updates, ProgressUpdate{
		Part:        part,
		Transferred: bytesTransferred,
		Total:       totalBytes,
	})
}

// Complete marks the upload as complete.
func (m *MockProgressTracker) Complete(result *uptypes.UploadResult) {
	m.CompleteCalled = true
	m.Result = result
}

// Aborted records an abort attempt.
func (m *MockProgressTracker) Aborted(uploadID string, err error) {
	m.Aborts = append(m.Aborts, AbortEvent{UploadID: uploadID, Err: err})
}

// Error records an error.
func (m *MockProgressTracker) Error(err error) {
	m.ErrorCalled = true
	m.LastError = err
}

var _ uptypes.ProgressTracker = (*MockProgressTracker)(nil)
