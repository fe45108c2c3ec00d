package multipart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"testing/iotest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/uptypes"
)

const (
	testBucket = "test-bucket"
	testKey    = "test/object.bin"
)

func newConfig(chunkSize, totalSize int64) *uptypes.UploadConfig {
	return &uptypes.UploadConfig{
		ChunkSize:              chunkSize,
		TotalSize:              totalSize,
		AbortOnCompleteFailure: true,
	}
}

// TestUploader_PartCount verifies that S bytes in chunks of C produce
// ceil(S/C) parts numbered 1..N and that the assembled object matches.
func TestUploader_PartCount(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		chunkSize int64
		wantSizes []int64
	}{
		{
			name:      "exact multiple",
			size:      30,
			chunkSize: 10,
			wantSizes: []int64{10, 10, 10},
		},
		{
			name:      "short last part",
			size:      25,
			chunkSize: 10,
			wantSizes: []int64{10, 10, 5},
		},
		{
			name:      "smaller than one chunk",
			size:      3,
			chunkSize: 10,
			wantSizes: []int64{3},
		},
		{
			name:      "one byte chunks",
			size:      5,
			chunkSize: 1,
			wantSizes: []int64{1, 1, 1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeService()
			data := testutil.GenerateRandomData(tt.size)

			result, err := NewUploader(fake, nil).Upload(
				context.Background(), testBucket, testKey, bytes.NewReader(data),
				newConfig(tt.chunkSize, int64(tt.size)),
			)
			require.NoError(t, err)
			require.NotNil(t, result)

			require.Len(t, result.Parts, len(tt.wantSizes))
			for i, part := range result.Parts {
				assert.Equal(t, int32(i+1), part.PartNumber)
				assert.Equal(t, tt.wantSizes[i], part.Size)
			}
			assert.Equal(t, int64(tt.size), result.Size)
			assert.Equal(t, fake.UploadID, result.UploadID)

			object, ok := fake.Object(testBucket, testKey)
			require.True(t, ok)
			assert.Equal(t, data, object)

			assert.Equal(t, 1, fake.CallCount(testutil.OpCreate))
			assert.Equal(t, len(tt.wantSizes), fake.CallCount(testutil.OpPart))
			assert.Equal(t, 1, fake.CallCount(testutil.OpComplete))
			assert.Equal(t, 0, fake.CallCount(testutil.OpAbort))
		})
	}
}

// TestUploader_TwentyMiBFile checks the 8/8/4 MiB split of a 20 MiB file and
// that the committed list carries the ETags the service returned.
func TestUploader_TwentyMiBFile(t *testing.T) {
	fake := testutil.NewFakeService()
	data := testutil.GenerateRandomData(20 * testutil.MiB)

	result, err := NewUploader(fake, nil).Upload(
		context.Background(), testBucket, testKey, bytes.NewReader(data),
		newConfig(uptypes.DefaultChunkSize, int64(len(data))),
	)
	require.NoError(t, err)

	require.Len(t, fake.Parts, 3)
	assert.Len(t, fake.Parts[0].Body, 8*testutil.MiB)
	assert.Len(t, fake.Parts[1].Body, 8*testutil.MiB)
	assert.Len(t, fake.Parts[2].Body, 4*testutil.MiB)

	require.Len(t, fake.CompleteInputs, 1)
	committed := fake.CompleteInputs[0].MultipartUpload.Parts
	require.Len(t, committed, 3)
	for i, cp := range committed {
		assert.Equal(t, int32(i+1), aws.ToInt32(cp.PartNumber))
		assert.Equal(t, fake.Parts[i].ETag, aws.ToString(cp.ETag))
		assert.Equal(t, result.Parts[i].ETag, aws.ToString(cp.ETag))
	}
	assert.Equal(t, `"test-bucket/test/object.bin-3"`, result.ETag)
}

// TestUploader_ShortReads verifies that a reader returning fewer bytes than
// asked still yields full-size parts.
func TestUploader_ShortReads(t *testing.T) {
	fake := testutil.NewFakeService()
	data := testutil.GenerateRandomData(100)

	result, err := NewUploader(fake, nil).Upload(
		context.Background(), testBucket, testKey, iotest.OneByteReader(bytes.NewReader(data)),
		newConfig(40, -1),
	)
	require.NoError(t, err)

	require.Len(t, result.Parts, 3)
	assert.Equal(t, int64(40), result.Parts[0].Size)
	assert.Equal(t, int64(40), result.Parts[1].Size)
	assert.Equal(t, int64(20), result.Parts[2].Size)

	object, _ := fake.Object(testBucket, testKey)
	assert.Equal(t, data, object)
}

// TestUploader_PartFailure verifies that a failure on part k stops the loop,
// aborts the session and never commits.
func TestUploader_PartFailure(t *testing.T) {
	tests := []struct {
		name       string
		failOnPart int32
	}{
		{name: "first part", failOnPart: 1},
		{name: "second part", failOnPart: 2},
		{name: "last part", failOnPart: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeService()
			fake.PartErrs[tt.failOnPart] = testutil.NewAPIError("InternalError", "boom")
			tracker := &testutil.MockProgressTracker{}

			data := testutil.GenerateRandomData(40)
			config := newConfig(10, 40)
			config.ProgressTracker = tracker

			result, err := NewUploader(fake, nil).Upload(
				context.Background(), testBucket, testKey, bytes.NewReader(data), config,
			)
			require.Error(t, err)
			assert.Nil(t, result)

			assert.Equal(t, s3errors.KindPartUpload, s3errors.KindOf(err))
			var uploadErr *s3errors.Error
			require.True(t, errors.As(err, &uploadErr))
			assert.Equal(t, tt.failOnPart, uploadErr.PartNumber)
			assert.Equal(t, fake.UploadID, uploadErr.UploadID)

			assert.Len(t, fake.Parts, int(tt.failOnPart-1))
			assert.Equal(t, int(tt.failOnPart), fake.CallCount(testutil.OpPart))
			assert.Equal(t, 0, fake.CallCount(testutil.OpComplete))
			assert.Equal(t, []string{fake.UploadID}, fake.AbortedUploadIDs)

			_, abortFailed := s3errors.AbortFailure(err)
			assert.False(t, abortFailed)

			assert.Len(t, tracker.Updates, int(tt.failOnPart-1))
			assert.Equal(t, []testutil.AbortEvent{{UploadID: fake.UploadID}}, tracker.Aborts)
			assert.True(t, tracker.ErrorCalled)
			assert.False(t, tracker.CompleteCalled)
		})
	}
}

// TestUploader_AbortFailure verifies that a failed abort is reported next to
// the part failure rather than in place of it.
func TestUploader_AbortFailure(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.PartErrs[2] = testutil.NewAPIError("RequestTimeout", "part timed out")
	fake.AbortErr = testutil.NewAPIError("NoSuchUpload", "upload vanished")
	tracker := &testutil.MockProgressTracker{}
	config := newConfig(10, 30)
	config.ProgressTracker = tracker

	_, err := NewUploader(fake, nil).Upload(
		context.Background(), testBucket, testKey, bytes.NewReader(testutil.GenerateRandomData(30)), config,
	)
	require.Error(t, err)

	require.Len(t, tracker.Aborts, 1)
	assert.Equal(t, fake.UploadID, tracker.Aborts[0].UploadID)
	assert.True(t, s3errors.IsKind(tracker.Aborts[0].Err, s3errors.KindAbort))

	assert.Equal(t, s3errors.KindPartUpload, s3errors.KindOf(err))
	assert.True(t, s3errors.IsKind(err, s3errors.KindPartUpload))
	assert.True(t, s3errors.IsKind(err, s3errors.KindAbort))
	assert.ErrorIs(t, err, s3errors.ErrUploadNotFound)

	abortErr, ok := s3errors.AbortFailure(err)
	require.True(t, ok)
	assert.Equal(t, "abort", abortErr.Op)
	assert.Equal(t, fake.UploadID, abortErr.UploadID)

	assert.Contains(t, err.Error(), "part timed out")
	assert.Contains(t, err.Error(), "upload vanished")
	assert.Contains(t, err.Error(), "part 2")
}

// TestUploader_InitiateFailure verifies that no other call follows a failed initiate.
func TestUploader_InitiateFailure(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*testutil.FakeService)
		sentinel error
	}{
		{
			name: "service error",
			setup: func(f *testutil.FakeService) {
				f.InitiateErr = testutil.NewAPIError("NoSuchBucket", "bucket does not exist")
			},
			sentinel: s3errors.ErrBucketNotFound,
		},
		{
			name: "access denied",
			setup: func(f *testutil.FakeService) {
				f.InitiateErr = testutil.NewAPIError("AccessDenied", "denied")
			},
			sentinel: s3errors.ErrAccessDenied,
		},
		{
			name: "empty upload id",
			setup: func(f *testutil.FakeService) {
				f.UploadID = ""
			},
			sentinel: s3errors.ErrEmptyUploadID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeService()
			tt.setup(fake)
			tracker := &testutil.MockProgressTracker{}
			config := newConfig(10, 20)
			config.ProgressTracker = tracker

			_, err := NewUploader(fake, nil).Upload(
				context.Background(), testBucket, testKey, bytes.NewReader(testutil.GenerateRandomData(20)), config,
			)
			require.Error(t, err)

			assert.Equal(t, s3errors.KindInitiation, s3errors.KindOf(err))
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, []string{testutil.OpCreate}, fake.Calls)
			assert.True(t, tracker.ErrorCalled)
		})
	}
}

// TestUploader_CompletionFailure covers the abort-after-commit-failure switch.
func TestUploader_CompletionFailure(t *testing.T) {
	tests := []struct {
		name      string
		abort     bool
		wantCalls []string
	}{
		{
			name:      "aborts by default",
			abort:     true,
			wantCalls: []string{testutil.OpCreate, testutil.OpPart, testutil.OpPart, testutil.OpComplete, testutil.OpAbort},
		},
		{
			name:      "leaves session when disabled",
			abort:     false,
			wantCalls: []string{testutil.OpCreate, testutil.OpPart, testutil.OpPart, testutil.OpComplete},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeService()
			fake.CompleteErr = testutil.NewAPIError("InternalError", "commit failed")
			config := newConfig(10, 20)
			config.AbortOnCompleteFailure = tt.abort

			_, err := NewUploader(fake, nil).Upload(
				context.Background(), testBucket, testKey, bytes.NewReader(testutil.GenerateRandomData(20)), config,
			)
			require.Error(t, err)

			assert.Equal(t, s3errors.KindCompletion, s3errors.KindOf(err))
			assert.Equal(t, tt.wantCalls, fake.Calls)
		})
	}
}

// TestUploader_EmptyInput verifies that zero bytes commit an empty part list,
// which the service rejects.
func TestUploader_EmptyInput(t *testing.T) {
	fake := testutil.NewFakeService()

	_, err := NewUploader(fake, nil).Upload(
		context.Background(), testBucket, testKey, bytes.NewReader(nil), newConfig(10, 0),
	)
	require.Error(t, err)

	assert.Equal(t, s3errors.KindCompletion, s3errors.KindOf(err))
	assert.ErrorIs(t, err, s3errors.ErrInvalidPartList)
	assert.Equal(t, 0, fake.CallCount(testutil.OpPart))

	require.Len(t, fake.CompleteInputs, 1)
	assert.Empty(t, fake.CompleteInputs[0].MultipartUpload.Parts)
	assert.Equal(t, []string{fake.UploadID}, fake.AbortedUploadIDs)
}

// TestUploader_ReadFailure verifies that a local read error aborts the session.
func TestUploader_ReadFailure(t *testing.T) {
	fake := testutil.NewFakeService()
	readErr := errors.New("disk read failed")
	reader := io.MultiReader(bytes.NewReader(testutil.GenerateRandomData(10)), iotest.ErrReader(readErr))

	_, err := NewUploader(fake, nil).Upload(
		context.Background(), testBucket, testKey, reader, newConfig(4, 10),
	)
	require.Error(t, err)

	assert.Equal(t, s3errors.KindUnexpected, s3errors.KindOf(err))
	assert.ErrorIs(t, err, readErr)
	assert.Len(t, fake.Parts, 2)
	assert.Equal(t, 0, fake.CallCount(testutil.OpComplete))
	assert.Equal(t, []string{fake.UploadID}, fake.AbortedUploadIDs)
}

// TestUploader_CancelledContext verifies that cancellation stops the loop and
// the abort still goes out.
func TestUploader_CancelledContext(t *testing.T) {
	var abortCtxErr error
	mock := &testutil.MockS3Client{
		OnAbort: func(ctx context.Context, params *s3.AbortMultipartUploadInput) (*s3.AbortMultipartUploadOutput, error) {
			abortCtxErr = ctx.Err()
			assert.Equal(t, testutil.MockUploadID, aws.ToString(params.UploadId))
			return &s3.AbortMultipartUploadOutput{}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewUploader(mock, nil).Upload(
		ctx, testBucket, testKey, bytes.NewReader(testutil.GenerateRandomData(10)), newConfig(5, 10),
	)
	require.Error(t, err)

	assert.Equal(t, s3errors.KindPartUpload, s3errors.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, abortCtxErr)
	assert.Equal(t, []string{testutil.OpCreate, testutil.OpAbort}, mock.Calls)
}

// TestUploader_DeclaredSizeTooLarge verifies that a declared size far beyond
// what the reader delivers does not drive allocation.
func TestUploader_DeclaredSizeTooLarge(t *testing.T) {
	mock := &testutil.MockS3Client{}

	result, err := NewUploader(mock, nil).Upload(
		context.Background(), testBucket, testKey, bytes.NewReader([]byte("abc")), newConfig(1, 1<<40),
	)
	require.NoError(t, err)

	require.Len(t, result.Parts, 3)
	for i, part := range result.Parts {
		assert.Equal(t, fmt.Sprintf(`"etag-%d"`, i+1), part.ETag)
	}
	assert.Equal(t, `"mock-object"`, result.ETag)
}

// TestUploader_PartLimit verifies that a source needing more than MaxParts
// parts is stopped before part MaxParts+1 and the session is aborted.
func TestUploader_PartLimit(t *testing.T) {
	mock := &testutil.MockS3Client{}
	tracker := &testutil.MockProgressTracker{}
	config := newConfig(1, -1)
	config.ProgressTracker = tracker

	_, err := NewUploader(mock, nil).Upload(
		context.Background(), testBucket, testKey,
		bytes.NewReader(make([]byte, uptypes.MaxParts+1)), config,
	)
	require.Error(t, err)

	assert.Equal(t, s3errors.KindInvalidInput, s3errors.KindOf(err))
	assert.ErrorIs(t, err, s3errors.ErrInvalidChunkSize)
	var uploadErr *s3errors.Error
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, int32(uptypes.MaxParts+1), uploadErr.PartNumber)

	assert.Len(t, tracker.Updates, uptypes.MaxParts)
	assert.Equal(t, []testutil.AbortEvent{{UploadID: testutil.MockUploadID}}, tracker.Aborts)
	assert.Equal(t, testutil.OpAbort, mock.Calls[len(mock.Calls)-1])
	assert.NotContains(t, mock.Calls, testutil.OpComplete)
}

// TestUploader_InitiateInput verifies object attributes are sent on initiate.
func TestUploader_InitiateInput(t *testing.T) {
	fake := testutil.NewFakeService()
	config := newConfig(10, 5)
	config.ContentType = "text/plain"
	config.StorageClass = uptypes.StorageClassStandardIA
	config.Metadata = map[string]string{"owner": "ops"}

	_, err := NewUploader(fake, nil).Upload(
		context.Background(), testBucket, testKey, bytes.NewReader([]byte("hello")), config,
	)
	require.NoError(t, err)

	require.Len(t, fake.CreateInputs, 1)
	input := fake.CreateInputs[0]
	assert.Equal(t, testBucket, aws.ToString(input.Bucket))
	assert.Equal(t, testKey, aws.ToString(input.Key))
	assert.Equal(t, "text/plain", aws.ToString(input.ContentType))
	assert.Equal(t, "STANDARD_IA", string(input.StorageClass))
	assert.Equal(t, map[string]string{"owner": "ops"}, input.Metadata)
}

// TestUploader_ProgressEvents verifies one event per part with running totals.
func TestUploader_ProgressEvents(t *testing.T) {
	fake := testutil.NewFakeService()
	tracker := &testutil.MockProgressTracker{}
	config := newConfig(8, 20)
	config.ProgressTracker = tracker

	result, err := NewUploader(fake, nil).Upload(
		context.Background(), testBucket, testKey, bytes.NewReader(testutil.GenerateRandomData(20)), config,
	)
	require.NoError(t, err)

	require.Len(t, tracker.Updates, 3)
	wantTransferred := []int64{8, 16, 20}
	for i, update := range tracker.Updates {
		assert.Equal(t, int32(i+1), update.Part.PartNumber)
		assert.Equal(t, wantTransferred[i], update.Transferred)
		assert.Equal(t, int64(20), update.Total)
	}
	assert.True(t, tracker.CompleteCalled)
	assert.Same(t, result, tracker.Result)
	assert.False(t, tracker.ErrorCalled)
}

func TestEstimateParts(t *testing.T) {
	tests := []struct {
		name      string
		totalSize int64
		chunkSize int64
		want      int
	}{
		{name: "unknown size", totalSize: -1, chunkSize: 10, want: 0},
		{name: "empty", totalSize: 0, chunkSize: 10, want: 0},
		{name: "exact", totalSize: 20, chunkSize: 10, want: 2},
		{name: "remainder", totalSize: 21, chunkSize: 10, want: 3},
		{name: "capped at part limit", totalSize: 1 << 40, chunkSize: 1, want: uptypes.MaxParts},
		{name: "non-positive chunk", totalSize: 10, chunkSize: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, estimateParts(tt.totalSize, tt.chunkSize))
		})
	}
}

func TestPartCount(t *testing.T) {
	assert.Equal(t, int64(0), PartCount(0, 8))
	assert.Equal(t, int64(1), PartCount(1, 8))
	assert.Equal(t, int64(1), PartCount(8, 8))
	assert.Equal(t, int64(2), PartCount(9, 8))
	assert.Equal(t, int64(1<<40), PartCount(1<<40, 1))
}

func TestGetChunkSize(t *testing.T) {
	assert.Equal(t, int64(uptypes.DefaultChunkSize), getChunkSize(0))
	assert.Equal(t, int64(uptypes.DefaultChunkSize), getChunkSize(-5))
	assert.Equal(t, int64(42), getChunkSize(42))
}
