package domain

// RecoveryStrategy names the automated response chosen for a classified error.
type RecoveryStrategy string

const (
	StrategyNoActionNeeded   RecoveryStrategy = "no_action_needed"
	StrategyTokenRefresh     RecoveryStrategy = "token_refresh"
	StrategyNetworkRetry     RecoveryStrategy = "network_retry"
	StrategyQuotaWait        RecoveryStrategy = "quota_wait"
	StrategyServiceRetry     RecoveryStrategy = "service_retry"
	StrategyUserIntervention RecoveryStrategy = "user_intervention_required"
	StrategyHealthCheckRetry RecoveryStrategy = "health_check_retry"
)

// RecoveryResult is the structured outcome of one recovery run. Nothing
// throws past the orchestrator boundary; failures are reported here.
type RecoveryResult struct {
	Strategy   RecoveryStrategy
	Successful bool
	Message    string
	// RecommendedActions is filled when the user must act.
	RecommendedActions []string
}
