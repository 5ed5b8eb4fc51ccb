package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/provider"
)

func TestClassify_S3Codes(t *testing.T) {
	chain := NewChain()

	tests := []struct {
		code   string
		status int
		expect domain.ErrorType
	}{
		{"ExpiredToken", 400, domain.ErrTokenExpired},
		{"InvalidAccessKeyId", 403, domain.ErrInvalidCredentials},
		{"SignatureDoesNotMatch", 403, domain.ErrInvalidCredentials},
		{"AccessDenied", 403, domain.ErrInsufficientPermissions},
		{"NoSuchBucket", 404, domain.ErrBucketNotFound},
		{"InvalidBucketName", 400, domain.ErrInvalidBucketName},
		{"NoSuchKey", 404, domain.ErrFileNotFound},
		{"SlowDown", 503, domain.ErrAPIQuotaExceeded},
		{"QuotaExceeded", 400, domain.ErrStorageQuotaExceeded},
		{"NotImplemented", 501, domain.ErrFeatureNotSupported},
	}

	for _, tt := range tests {
		err := &provider.Error{Provider: "s3", Code: tt.code, StatusCode: tt.status, Message: "request failed"}
		if got := chain.Classify("s3", err); got != tt.expect {
			t.Errorf("Classify(s3, %s) = %v, want %v", tt.code, got, tt.expect)
		}
	}
}

func TestClassify_DriveCodes(t *testing.T) {
	chain := NewChain()

	tests := []struct {
		code   string
		status int
		expect domain.ErrorType
	}{
		{"invalid_grant", 400, domain.ErrInvalidRefreshToken},
		{"invalid_client", 401, domain.ErrInvalidCredentials},
		{"authError", 401, domain.ErrTokenExpired},
		{"userRateLimitExceeded", 403, domain.ErrAPIQuotaExceeded},
		{"storageQuotaExceeded", 403, domain.ErrStorageQuotaExceeded},
		{"insufficientPermissions", 403, domain.ErrInsufficientPermissions},
		{"notFound", 404, domain.ErrFileNotFound},
		{"backendError", 503, domain.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		err := &provider.Error{Provider: "drive", Code: tt.code, StatusCode: tt.status, Message: "request failed"}
		if got := chain.Classify("drive", err); got != tt.expect {
			t.Errorf("Classify(drive, %s) = %v, want %v", tt.code, got, tt.expect)
		}
	}
}

func TestClassify_GenericFallback(t *testing.T) {
	chain := NewChain()

	tests := []struct {
		err    error
		expect domain.ErrorType
	}{
		{errors.New("token expired for user"), domain.ErrTokenExpired},
		{errors.New("connection refused"), domain.ErrNetwork},
		{errors.New("dial tcp: no such host"), domain.ErrNetwork},
		{errors.New("request timed out"), domain.ErrTimeout},
		{errors.New("503 Service Unavailable"), domain.ErrServiceUnavailable},
		{errors.New("rate limit exceeded"), domain.ErrAPIQuotaExceeded},
		{errors.New("storage quota exhausted"), domain.ErrStorageQuotaExceeded},
		{errors.New("something inexplicable"), domain.ErrUnknown},
		{context.DeadlineExceeded, domain.ErrTimeout},
	}

	for _, tt := range tests {
		if got := chain.Classify("unknown-provider", tt.err); got != tt.expect {
			t.Errorf("Classify(%q) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestClassify_StructuredStatusBeatsMessage(t *testing.T) {
	chain := NewChain()

	// A 401 with a misleading message must still classify on the status.
	err := &provider.Error{Provider: "drive", StatusCode: 401, Message: "something odd happened"}
	if got := chain.Classify("drive", err); got != domain.ErrInvalidCredentials {
		t.Errorf("Classify = %v, want %v", got, domain.ErrInvalidCredentials)
	}
}

func TestClassify_RefreshRateLimited(t *testing.T) {
	chain := NewChain()

	err := &provider.Error{Provider: "drive", StatusCode: 429, Message: "token refresh rejected"}
	if got := chain.Classify("drive", err); got != domain.ErrTokenRefreshRateLimited {
		t.Errorf("Classify = %v, want %v", got, domain.ErrTokenRefreshRateLimited)
	}
}

func TestClassify_WrappedProviderError(t *testing.T) {
	chain := NewChain()

	inner := &provider.Error{Provider: "s3", Code: "NoSuchBucket", StatusCode: 404, Message: "bucket missing"}
	wrapped := fmt.Errorf("upload failed: %w", inner)
	if got := chain.Classify("s3", wrapped); got != domain.ErrBucketNotFound {
		t.Errorf("Classify = %v, want %v", got, domain.ErrBucketNotFound)
	}
}

func TestClassify_NilError(t *testing.T) {
	chain := NewChain()
	if got := chain.Classify("s3", nil); got != domain.ErrUnknown {
		t.Errorf("Classify(nil) = %v, want %v", got, domain.ErrUnknown)
	}
}
