// Package validation provides input validation run before any remote call.
// This includes bucket name, object key, chunk size and metadata checks.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/uptypes"
)

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*\/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)

// ValidateBucketName validates that a bucket name is DNS-compliant according to S3 rules.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return invalidBucket(bucket, "bucket name cannot be empty")
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return invalidBucket(bucket, "bucket name must be between 3 and 63 characters long")
	}

	// Bucket names can consist only of lowercase letters, numbers, dots (.), and hyphens (-)
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return invalidBucket(bucket, "bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	first, last := bucket[0], bucket[len(bucket)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return invalidBucket(bucket, "bucket name cannot start or end with a hyphen or dot")
	}

	if strings.Contains(bucket, "..") {
		return invalidBucket(bucket, "bucket name cannot contain two adjacent periods")
	}

	if isIPAddress(bucket) {
		return invalidBucket(bucket, "bucket name cannot be formatted as an IP address")
	}

	return nil
}

// ValidateObjectKey validates that an object key is non-empty, at most 1024
// bytes and free of control characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return invalidKey(key, "object key cannot be empty")
	}

	if len(key) > 1024 {
		return invalidKey(key, "object key cannot exceed 1024 bytes")
	}

	for _, char := range key {
		if unicode.IsControl(char) {
			return invalidKey(key, "object key cannot contain control characters")
		}
	}

	return nil
}

// ValidateChunkSize validates that the chunk size is a positive number of bytes.
func ValidateChunkSize(chunkSize int64) error {
	if chunkSize <= 0 {
		return errors.NewError(errors.KindInvalidInput, "validateChunkSize", errors.ErrInvalidChunkSize).
			WithMessage(fmt.Sprintf("chunk size must be positive, got %d", chunkSize))
	}
	return nil
}

// BelowServiceMinimum reports whether parts of this size would be rejected by
// AWS S3 for every part but the last.
func BelowServiceMinimum(chunkSize int64) bool {
	return chunkSize < uptypes.MinServicePartSize
}

// ValidateMetadata validates metadata keys and values according to S3 rules.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateContentType validates that a content type looks like a MIME type.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	if !mimePattern.MatchString(contentType) {
		return errors.NewError(errors.KindInvalidInput, "validateContentType", errors.ErrInvalidInput).
			WithMessage("content type must be a valid MIME type")
	}
	return nil
}

func invalidBucket(bucket, message string) error {
	return errors.NewError(errors.KindInvalidInput, "validateBucketName", errors.ErrInvalidBucketName).
		WithBucket(bucket).
		WithMessage(message)
}

func invalidKey(key, message string) error {
	return errors.NewError(errors.KindInvalidInput, "validateObjectKey", errors.ErrInvalidObjectKey).
		WithKey(key).
		WithMessage(message)
}

func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as a dotted IPv4 address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}

func validateMetadataKey(key string) error {
	if key == "" {
		return errors.NewError(errors.KindInvalidInput, "validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot be empty")
	}

	if len(key) > 128 {
		return errors.NewError(errors.KindInvalidInput, "validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot exceed 128 characters")
	}

	for _, prefix := range []string{"aws:", "x-amz-", "x-amz:"} {
		if strings.HasPrefix(strings.ToLower(key), prefix) {
			return errors.NewError(errors.KindInvalidInput, "validateMetadata", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}

	// Printable ASCII without spaces
	for _, char := range key {
		if char <= 32 || char > 126 {
			return errors.NewError(errors.KindInvalidInput, "validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key can only contain printable ASCII characters")
		}
	}

	return nil
}

func validateMetadataValue(value string) error {
	if len(value) > 2048 {
		return errors.NewError(errors.KindInvalidInput, "validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 characters")
	}

	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\t' {
			return errors.NewError(errors.KindInvalidInput, "validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}

	return nil
}
