package classify

import "github.com/vietddude/cloudlink/internal/core/domain"

// NewS3Classifier builds the rule table for S3-compatible providers.
// Codes follow the S3 error code vocabulary; rules over structured codes
// come before any substring fallback.
func NewS3Classifier() *Classifier {
	return &Classifier{
		provider: "s3",
		rules: []rule{
			{code("expiredtoken"), domain.ErrTokenExpired},
			{code("tokenrefreshrequired"), domain.ErrTokenExpired},
			{code("invalidaccesskeyid"), domain.ErrInvalidCredentials},
			{code("signaturedoesnotmatch"), domain.ErrInvalidCredentials},
			{code("accessdenied"), domain.ErrInsufficientPermissions},
			{code("nosuchbucket"), domain.ErrBucketNotFound},
			{code("invalidbucketname"), domain.ErrInvalidBucketName},
			{code("nosuchkey"), domain.ErrFileNotFound},
			{code("slowdown"), domain.ErrAPIQuotaExceeded},
			{code("quotaexceeded"), domain.ErrStorageQuotaExceeded},
			{code("notimplemented"), domain.ErrFeatureNotSupported},
			{code("serviceunavailable"), domain.ErrServiceUnavailable},
			{code("requesttimeout"), domain.ErrTimeout},
		},
	}
}
