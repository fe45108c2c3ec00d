// Package testutil provides test utilities and mocks for multipart uploads.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/s3api"
)

// MockUploadID is the upload ID issued by MockS3Client when OnCreate is unset.
const MockUploadID = "mock-upload"

// MockS3Client is a MultipartAPI whose calls are answered by optional hooks.
// Without a hook every call succeeds: create issues MockUploadID, each part
// gets the ETag "etag-<part number>", and complete returns a fixed ETag.
// Every call is recorded in Calls, hooked or not.
type MockS3Client struct {
	OnCreate   func(context.Context, *s3.CreateMultipartUploadInput) (*s3.CreateMultipartUploadOutput, error)
	OnPart     func(context.Context, *s3.UploadPartInput) (*s3.UploadPartOutput, error)
	OnComplete func(context.Context, *s3.CompleteMultipartUploadInput) (*s3.CompleteMultipartUploadOutput, error)
	OnAbort    func(context.Context, *s3.AbortMultipartUploadInput) (*s3.AbortMultipartUploadOutput, error)

	mu    sync.Mutex
	Calls []string
}

func (m *MockS3Client) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, op)
}

// CreateMultipartUpload answers with OnCreate or issues MockUploadID.
func (m *MockS3Client) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	m.record(OpCreate)
	if m.OnCreate != nil {
		return m.OnCreate(ctx, params)
	}
	return &s3.CreateMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		UploadId: aws.String(MockUploadID),
	}, nil
}

// UploadPart answers with OnPart or an ETag derived from the part number.
func (m *MockS3Client) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	_ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	m.record(OpPart)
	if m.OnPart != nil {
		return m.OnPart(ctx, params)
	}
	return &s3.UploadPartOutput{
		ETag: aws.String(fmt.Sprintf(`"etag-%d"`, aws.ToInt32(params.PartNumber))),
	}, nil
}

// CompleteMultipartUpload answers with OnComplete or a fixed object ETag.
func (m *MockS3Client) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	m.record(OpComplete)
	if m.OnComplete != nil {
		return m.OnComplete(ctx, params)
	}
	return &s3.CompleteMultipartUploadOutput{
		Bucket: params.Bucket,
		Key:    params.Key,
		ETag:   aws.String(`"mock-object"`),
	}, nil
}

// AbortMultipartUpload answers with OnAbort or succeeds.
func (m *MockS3Client) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	m.record(OpAbort)
	if m.OnAbort != nil {
		return m.OnAbort(ctx, params)
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

var _ s3api.MultipartAPI = (*MockS3Client)(nil)
