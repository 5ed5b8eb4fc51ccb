package recovery

import "github.com/vietddude/cloudlink/internal/core/domain"

// strategyTable maps every classified error to its recovery strategy.
var strategyTable = map[domain.ErrorType]domain.RecoveryStrategy{
	domain.ErrTokenExpired:            domain.StrategyTokenRefresh,
	domain.ErrInvalidCredentials:      domain.StrategyTokenRefresh,
	domain.ErrInvalidRefreshToken:     domain.StrategyUserIntervention,
	domain.ErrNetwork:                 domain.StrategyNetworkRetry,
	domain.ErrTimeout:                 domain.StrategyNetworkRetry,
	domain.ErrAPIQuotaExceeded:        domain.StrategyQuotaWait,
	domain.ErrStorageQuotaExceeded:    domain.StrategyQuotaWait,
	domain.ErrTokenRefreshRateLimited: domain.StrategyQuotaWait,
	domain.ErrServiceUnavailable:      domain.StrategyServiceRetry,
	domain.ErrInsufficientPermissions: domain.StrategyUserIntervention,
	domain.ErrBucketNotFound:          domain.StrategyUserIntervention,
	domain.ErrInvalidBucketName:       domain.StrategyUserIntervention,
}

// DetermineStrategy resolves the recovery strategy for a classified
// error. Unknown or absent errors fall back to a health-check retry.
func DetermineStrategy(errType domain.ErrorType) domain.RecoveryStrategy {
	if s, ok := strategyTable[errType]; ok {
		return s
	}
	return domain.StrategyHealthCheckRetry
}
