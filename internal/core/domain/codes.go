package domain

// FailureCode is a stable, machine-readable reason a request was refused
type FailureCode string

const (
	CodeActionMissing       FailureCode = "ai.action_missing"
	CodeProviderUnavailable FailureCode = "ai.provider_unavailable"
	CodeProviderMissing     FailureCode = "ai.provider_missing"
	CodeDisabled            FailureCode = "ai.disabled"
	CodeAuthRequired        FailureCode = "auth.required"
	CodeCoverDisabled       FailureCode = "ai.images.cover_disabled"
	CodeRateLimited         FailureCode = "ai.rate_limited"
	CodeQuotaExceeded       FailureCode = "ai.quota_exceeded"
	CodeBlocked             FailureCode = "ai.blocked"
)

// Failure is a structured refusal returned to callers instead of an error
type Failure struct {
	Code    FailureCode `json:"code"`
	Message string      `json:"message"`
}

// NewFailure creates a Failure
func NewFailure(code FailureCode, message string) *Failure {
	return &Failure{Code: code, Message: message}
}

func (f *Failure) String() string {
	return string(f.Code) + ": " + f.Message
}
