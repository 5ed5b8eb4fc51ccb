package classify

import "github.com/vietddude/cloudlink/internal/core/domain"

// NewDriveClassifier builds the rule table for Drive-like providers.
// The OAuth error codes ("invalid_grant" etc) surface on token calls;
// the camel-case reason codes surface on API calls.
func NewDriveClassifier() *Classifier {
	return &Classifier{
		provider: "drive",
		rules: []rule{
			{code("invalid_grant"), domain.ErrInvalidRefreshToken},
			{code("invalid_client"), domain.ErrInvalidCredentials},
			{code("autherror"), domain.ErrTokenExpired},
			{code("expiredtoken"), domain.ErrTokenExpired},
			{code("userratelimitexceeded"), domain.ErrAPIQuotaExceeded},
			{code("ratelimitexceeded"), domain.ErrAPIQuotaExceeded},
			{code("dailylimitexceeded"), domain.ErrAPIQuotaExceeded},
			{code("storagequotaexceeded"), domain.ErrStorageQuotaExceeded},
			{code("insufficientpermissions"), domain.ErrInsufficientPermissions},
			{code("notfound"), domain.ErrFileNotFound},
			{code("backenderror"), domain.ErrServiceUnavailable},
			{all(code("rate_limit_exceeded"), contains("refresh")), domain.ErrTokenRefreshRateLimited},
		},
	}
}
