package domain

import "time"

// SafetyStatus classifies a provider for presentation purposes.
type SafetyStatus string

const (
	SafetySafe   SafetyStatus = "safe"
	SafetyUnsafe SafetyStatus = "unsafe"
)

// ProviderInfo is the static identity of a search provider.
type ProviderInfo struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	URL              string       `json:"url,omitempty"`
	SpecializedTo    Category     `json:"specializedTo"`
	Safety           SafetyStatus `json:"safety"`
	EnabledByDefault bool         `json:"enabledByDefault"`
}

// MatchesCategory is the single category predicate used everywhere a provider
// set is narrowed for a round: a provider participates when it serves every
// category (SpecializedTo == All), when the requested category is All, or when
// the two match exactly.
func (p ProviderInfo) MatchesCategory(c Category) bool {
	return p.SpecializedTo == CategoryAll || c == CategoryAll || p.SpecializedTo == c
}

// FailureKind is the closed taxonomy of per-provider failures. Failures are
// captured as data on the round, never surfaced as errors from the engine.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureTransport FailureKind = "transport"
	FailureHTTP      FailureKind = "http"
	FailureParse     FailureKind = "parse"
)

// ProviderFailure records one provider that could not contribute to a round.
type ProviderFailure struct {
	ProviderID   string      `json:"providerId"`
	ProviderName string      `json:"providerName"`
	Kind         FailureKind `json:"kind"`
	Message      string      `json:"message,omitempty"`
}

// ProviderDiagnostics is the queryable health record of one provider.
type ProviderDiagnostics struct {
	ProviderInfo
	TotalRequests       int64      `json:"totalRequests"`
	TotalFailures       int64      `json:"totalFailures"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
}
