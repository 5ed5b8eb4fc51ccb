// Package classify maps arbitrary provider errors into the closed
// ErrorType taxonomy. Classification is a pure function of the error's
// structured fields and message; provider-specific rule tables run
// first, then a generic table, then the unknown fallback.
package classify

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/provider"
)

// rule pairs a predicate with the ErrorType it yields. Rules are
// evaluated in table order; the first match wins.
type rule struct {
	match   func(e errFields) bool
	errType domain.ErrorType
}

// errFields is the normalized view of an error the predicates see.
type errFields struct {
	code    string // provider error code, lowercased
	status  int    // HTTP status, 0 when unknown
	message string // full error text, lowercased
}

// Classifier maps raw errors for one provider family.
type Classifier struct {
	provider string
	rules    []rule
}

// Classify resolves the error to an ErrorType. It never panics and
// always returns a member of the taxonomy.
func (c *Classifier) Classify(err error) domain.ErrorType {
	if err == nil {
		return domain.ErrUnknown
	}

	f := fieldsOf(err)
	for _, r := range c.rules {
		if r.match(f) {
			return r.errType
		}
	}
	for _, r := range genericRules {
		if r.match(f) {
			return r.errType
		}
	}
	if t, ok := classifyTransport(err); ok {
		return t
	}
	return domain.ErrUnknown
}

func fieldsOf(err error) errFields {
	f := errFields{message: strings.ToLower(err.Error())}
	var pe *provider.Error
	if errors.As(err, &pe) {
		f.code = strings.ToLower(pe.Code)
		f.status = pe.StatusCode
	}
	return f
}

// classifyTransport handles errors raised below the provider API:
// timeouts and network failures.
func classifyTransport(err error) (domain.ErrorType, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ErrTimeout, true
		}
		return domain.ErrNetwork, true
	}
	return "", false
}

// Predicate helpers keep the rule tables readable.

func code(want string) func(errFields) bool {
	return func(f errFields) bool { return f.code == want }
}

func status(want int) func(errFields) bool {
	return func(f errFields) bool { return f.status == want }
}

func contains(substrs ...string) func(errFields) bool {
	return func(f errFields) bool {
		for _, s := range substrs {
			if strings.Contains(f.message, s) {
				return true
			}
		}
		return false
	}
}

func all(preds ...func(errFields) bool) func(errFields) bool {
	return func(f errFields) bool {
		for _, p := range preds {
			if !p(f) {
				return false
			}
		}
		return true
	}
}

// genericRules apply to every provider after its own table. Substring
// matches are the documented fallback for SDKs that surface no
// structured fields.
var genericRules = []rule{
	{all(status(429), contains("refresh")), domain.ErrTokenRefreshRateLimited},
	{status(429), domain.ErrAPIQuotaExceeded},
	{status(401), domain.ErrInvalidCredentials},
	{status(403), domain.ErrInsufficientPermissions},
	{status(404), domain.ErrFileNotFound},
	{status(501), domain.ErrFeatureNotSupported},
	{func(f errFields) bool { return f.status >= 500 && f.status < 600 }, domain.ErrServiceUnavailable},
	{contains("token expired", "token has expired", "expired access token"), domain.ErrTokenExpired},
	{contains("invalid refresh token", "refresh token revoked"), domain.ErrInvalidRefreshToken},
	{contains("invalid credentials", "unauthorized"), domain.ErrInvalidCredentials},
	{contains("permission denied", "access denied", "forbidden"), domain.ErrInsufficientPermissions},
	{contains("storage quota", "insufficient storage"), domain.ErrStorageQuotaExceeded},
	{contains("rate limit", "too many requests", "quota exceeded"), domain.ErrAPIQuotaExceeded},
	{contains("timeout", "timed out", "deadline exceeded"), domain.ErrTimeout},
	{contains("connection refused", "connection reset", "no such host", "network is unreachable", "broken pipe"), domain.ErrNetwork},
	{contains("service unavailable", "bad gateway", "internal server error"), domain.ErrServiceUnavailable},
	{contains("not found"), domain.ErrFileNotFound},
	{contains("not supported", "not implemented"), domain.ErrFeatureNotSupported},
}

// Chain tries each provider classifier by name, falling back to the
// generic classifier for unknown providers.
type Chain struct {
	classifiers map[string]*Classifier
	generic     *Classifier
}

// NewChain builds the default classifier chain with the S3 and Drive
// rule tables registered.
func NewChain() *Chain {
	return &Chain{
		classifiers: map[string]*Classifier{
			"s3":    NewS3Classifier(),
			"drive": NewDriveClassifier(),
		},
		generic: &Classifier{provider: "generic"},
	}
}

// Classify resolves the error raised by the named provider.
func (c *Chain) Classify(providerName string, err error) domain.ErrorType {
	if cl, ok := c.classifiers[providerName]; ok {
		return cl.Classify(err)
	}
	return c.generic.Classify(err)
}
