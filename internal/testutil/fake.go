package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/s3api"
)

// Operation names recorded by FakeService.
const (
	OpCreate   = "CreateMultipartUpload"
	OpPart     = "UploadPart"
	OpComplete = "CompleteMultipartUpload"
	OpAbort    = "AbortMultipartUpload"
)

// RecordedPart is a part received by FakeService.
type RecordedPart struct {
	UploadID   string
	PartNumber int32
	Body       []byte
	ETag       string
}

// FakeService is an in-memory multipart upload service. It records every
// call, keeps part bodies, assembles objects on complete and validates the
// committed part list the way S3 does. Failures can be injected per operation.
type FakeService struct {
	mu sync.Mutex

	// UploadID is returned by CreateMultipartUpload (default "upload-1")
	UploadID string

	// InitiateErr makes CreateMultipartUpload fail
	InitiateErr error

	// PartErrs makes UploadPart fail for the given part numbers
	PartErrs map[int32]error

	// CompleteErr makes CompleteMultipartUpload fail
	CompleteErr error

	// AbortErr makes AbortMultipartUpload fail
	AbortErr error

	// Calls lists the operations in the order they were invoked
	Calls []string

	// CreateInputs holds every CreateMultipartUpload input
	CreateInputs []*s3.CreateMultipartUploadInput

	// Parts holds every successfully received part, in arrival order
	Parts []RecordedPart

	// CompleteInputs holds every CompleteMultipartUpload input
	CompleteInputs []*s3.CompleteMultipartUploadInput

	// AbortedUploadIDs lists the upload IDs passed to AbortMultipartUpload
	AbortedUploadIDs []string

	// Objects maps "bucket/key" to the assembled object bytes
	Objects map[string][]byte
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		UploadID: "upload-1",
		PartErrs: make(map[int32]error),
		Objects:  make(map[string][]byte),
	}
}

// CreateMultipartUpload records the call and issues UploadID.
func (f *FakeService) CreateMultipartUpload(
	_ context.Context,
	params *s3.CreateMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, OpCreate)
	f.CreateInputs = append(f.CreateInputs, params)
	if f.InitiateErr != nil {
		return nil, f.InitiateErr
	}
	return &s3.CreateMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		UploadId: aws.String(f.UploadID),
	}, nil
}

// UploadPart records the part body and returns its MD5 ETag.
func (f *FakeService) UploadPart(
	_ context.Context,
	params *s3.UploadPartInput,
	_ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, OpPart)
	partNumber := aws.ToInt32(params.PartNumber)
	if err, ok := f.PartErrs[partNumber]; ok {
		return nil, err
	}

	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	etag := CalculateETag(body)
	f.Parts = append(f.Parts, RecordedPart{
		UploadID:   aws.ToString(params.UploadId),
		PartNumber: partNumber,
		Body:       body,
		ETag:       etag,
	})
	return &s3.UploadPartOutput{ETag: aws.String(etag)}, nil
}

// CompleteMultipartUpload validates the part list and assembles the object.
// An empty part list fails with MalformedXML and a list that does not match
// the received parts fails with InvalidPart, as on S3.
func (f *FakeService) CompleteMultipartUpload(
	_ context.Context,
	params *s3.CompleteMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, OpComplete)
	f.CompleteInputs = append(f.CompleteInputs, params)
	if f.CompleteErr != nil {
		return nil, f.CompleteErr
	}

	if params.MultipartUpload == nil || len(params.MultipartUpload.Parts) == 0 {
		return nil, NewAPIError("MalformedXML", "The XML you provided was not well-formed")
	}

	received := make(map[int32]RecordedPart, len(f.Parts))
	for _, part := range f.Parts {
		if part.UploadID == aws.ToString(params.UploadId) {
			received[part.PartNumber] = part
		}
	}

	var object bytes.Buffer
	for _, cp := range params.MultipartUpload.Parts {
		part, ok := received[aws.ToInt32(cp.PartNumber)]
		if !ok || part.ETag != aws.ToString(cp.ETag) {
			return nil, NewAPIError("InvalidPart", fmt.Sprintf("part %d not found", aws.ToInt32(cp.PartNumber)))
		}
		object.Write(part.Body)
	}

	objectKey := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	f.Objects[objectKey] = object.Bytes()

	return &s3.CompleteMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		ETag:     aws.String(fmt.Sprintf(`"%s-%d"`, objectKey, len(params.MultipartUpload.Parts))),
		Location: aws.String("https://example.invalid/" + objectKey),
	}, nil
}

// AbortMultipartUpload records the aborted upload ID.
func (f *FakeService) AbortMultipartUpload(
	_ context.Context,
	params *s3.AbortMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, OpAbort)
	f.AbortedUploadIDs = append(f.AbortedUploadIDs, aws.ToString(params.UploadId))
	if f.AbortErr != nil {
		return nil, f.AbortErr
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

// CallCount returns how many times op was invoked.
func (f *FakeService) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, call := range f.Calls {
		if call == op {
			n++
		}
	}
	return n
}

// Object returns the assembled object stored at bucket/key.
func (f *FakeService) Object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.Objects[bucket+"/"+key]
	return data, ok
}

var _ s3api.MultipartAPI = (*FakeService)(nil)
