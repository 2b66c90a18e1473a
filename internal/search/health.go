package search

import (
	"sort"
	"time"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/metrics"
)

const (
	providerFailureThreshold = 3
	providerBlockBase        = 2 * time.Minute
	providerBlockMax         = 15 * time.Minute
)

type providerHealth struct {
	info                domain.ProviderInfo
	totalRequests       int64
	totalFailures       int64
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
}

// exponentialBlockDuration doubles the block window for every consecutive
// failure past the threshold, capped at providerBlockMax.
func exponentialBlockDuration(consecutiveFailures int) time.Duration {
	duration := providerBlockBase
	for i := providerFailureThreshold; i < consecutiveFailures; i++ {
		duration *= 2
		if duration >= providerBlockMax {
			return providerBlockMax
		}
	}
	return duration
}

func (e *Engine) isProviderBlocked(providerID string, now time.Time) (bool, time.Time, string) {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	health, ok := e.health[providerID]
	if !ok || now.After(health.blockedUntil) {
		return false, time.Time{}, ""
	}
	return true, health.blockedUntil, health.lastError
}

func (e *Engine) recordProviderResult(info domain.ProviderInfo, searchErr error, elapsed time.Duration, now time.Time) {
	providerID := info.ID

	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	health, ok := e.health[providerID]
	if !ok {
		health = &providerHealth{}
		e.health[providerID] = health
	}
	health.info = info

	health.totalRequests++
	health.lastLatency = elapsed
	metrics.ProviderRequestDuration.WithLabelValues(providerID).Observe(elapsed.Seconds())

	if searchErr == nil {
		health.consecutiveFailures = 0
		health.blockedUntil = time.Time{}
		health.lastError = ""
		health.lastSuccessAt = now
		metrics.ProviderRequestsTotal.WithLabelValues(providerID, "ok").Inc()
		metrics.ProviderAvailable.WithLabelValues(providerID).Set(1)
		return
	}

	health.totalFailures++
	health.consecutiveFailures++
	health.lastError = searchErr.Error()
	health.lastFailureAt = now

	status := "error"
	if fetch.KindOf(searchErr) == domain.FailureTimeout {
		status = "timeout"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(providerID, status).Inc()

	if health.consecutiveFailures >= providerFailureThreshold {
		health.blockedUntil = now.Add(exponentialBlockDuration(health.consecutiveFailures))
		metrics.ProviderAvailable.WithLabelValues(providerID).Set(0)
	}
}

// Diagnostics reports the per-provider health counters for every provider
// the engine has talked to, merged with the static registry so providers
// never used still show up with zeroed counters. Configured Torznab
// endpoints appear after the built-ins once a round has exercised them.
func (e *Engine) Diagnostics() []domain.ProviderDiagnostics {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	out := make([]domain.ProviderDiagnostics, 0, len(e.builtins)+len(e.health))
	seen := make(map[string]struct{}, len(e.builtins))
	for _, provider := range e.builtins {
		info := provider.Info()
		seen[info.ID] = struct{}{}
		diag := domain.ProviderDiagnostics{ProviderInfo: info}
		if health, ok := e.health[info.ID]; ok {
			fillDiagnostics(&diag, health)
		}
		out = append(out, diag)
	}

	var extras []domain.ProviderDiagnostics
	for id, health := range e.health {
		if _, ok := seen[id]; ok {
			continue
		}
		diag := domain.ProviderDiagnostics{ProviderInfo: health.info}
		fillDiagnostics(&diag, health)
		extras = append(extras, diag)
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i].ID < extras[j].ID })
	return append(out, extras...)
}

func fillDiagnostics(diag *domain.ProviderDiagnostics, health *providerHealth) {
	diag.TotalRequests = health.totalRequests
	diag.TotalFailures = health.totalFailures
	diag.ConsecutiveFailures = health.consecutiveFailures
	diag.LastError = health.lastError
	diag.LastLatencyMS = health.lastLatency.Milliseconds()
	if !health.lastSuccessAt.IsZero() {
		at := health.lastSuccessAt
		diag.LastSuccessAt = &at
	}
	if !health.lastFailureAt.IsZero() {
		at := health.lastFailureAt
		diag.LastFailureAt = &at
	}
}
