// Package jackett imports configured indexers from a Jackett instance as
// Torznab provider configs.
package jackett

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/metrics"
	"torrentsearch/searchd/internal/store"
)

// ConfigStore is the slice of the persistence layer the syncer needs.
// *store.Store satisfies it.
type ConfigStore interface {
	ListTorznabConfigs(ctx context.Context) ([]store.TorznabConfig, error)
	FindTorznabConfigByURL(ctx context.Context, url string) (store.TorznabConfig, error)
	InsertTorznabConfig(ctx context.Context, cfg store.TorznabConfig) (store.TorznabConfig, error)
	UpdateTorznabConfig(ctx context.Context, cfg store.TorznabConfig) error
}

// Report summarizes one sync run. It is retained on the syncer and stays
// queryable until the next run overwrites it.
type Report struct {
	BaseURL    string    `json:"baseUrl"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Errors     []string  `json:"errors"`
}

// Syncer pulls the configured indexer list from Jackett and upserts one
// Torznab config per indexer, matched by the exact results URL.
type Syncer struct {
	client *fetch.Client
	store  ConfigStore
	logger *slog.Logger
	retry  fetch.RetryConfig

	mu         sync.Mutex
	lastReport *Report
}

func NewSyncer(client *fetch.Client, configStore ConfigStore, logger *slog.Logger) *Syncer {
	if client == nil {
		client = fetch.NewClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		client: client,
		store:  configStore,
		logger: logger,
		retry:  fetch.DefaultRetryConfig(),
	}
}

// indexer tolerates the field spellings different Jackett versions emit.
type indexer struct {
	ID    string
	Title string
}

func (ix *indexer) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pick := func(keys ...string) string {
		for _, key := range keys {
			value, ok := raw[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(value, &s); err == nil && s != "" {
				return s
			}
		}
		return ""
	}
	ix.ID = pick("Id", "IndexerId", "id")
	ix.Title = pick("Title", "title", "Name", "name")
	return nil
}

// Sync imports every configured indexer from the Jackett instance at baseURL.
// Individual indexer failures are collected into the report instead of
// aborting the run.
func (s *Syncer) Sync(ctx context.Context, baseURL, apiKey string) (Report, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return Report{}, errors.New("jackett base URL is required")
	}

	report := Report{BaseURL: baseURL, StartedAt: time.Now().UTC()}

	indexers, err := s.fetchIndexers(ctx, baseURL, apiKey)
	if err != nil {
		metrics.JackettSyncTotal.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("fetch jackett indexers: %w", err)
	}

	for _, ix := range indexers {
		if ix.ID == "" {
			report.Skipped++
			continue
		}
		name := ix.Title
		if name == "" {
			name = ix.ID
		}
		resultsURL := fmt.Sprintf("%s/api/v2.0/indexers/%s/results/torznab", baseURL, ix.ID)

		existing, err := s.store.FindTorznabConfigByURL(ctx, resultsURL)
		switch {
		case err == nil:
			if existing.Name == name && existing.APIKey == apiKey {
				report.Skipped++
				continue
			}
			existing.Name = name
			existing.APIKey = apiKey
			if err := s.store.UpdateTorznabConfig(ctx, existing); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", ix.ID, err))
				continue
			}
			report.Updated++
		case errors.Is(err, store.ErrNotFound):
			_, err := s.store.InsertTorznabConfig(ctx, store.TorznabConfig{
				Name:     name,
				URL:      resultsURL,
				APIKey:   apiKey,
				Category: domain.CategoryAll,
			})
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", ix.ID, err))
				continue
			}
			report.Inserted++
		default:
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", ix.ID, err))
		}
	}

	report.FinishedAt = time.Now().UTC()

	status := "ok"
	if len(report.Errors) > 0 {
		status = "partial"
	}
	metrics.JackettSyncTotal.WithLabelValues(status).Inc()
	s.logger.Info("jackett sync finished",
		slog.String("baseUrl", baseURL),
		slog.Int("inserted", report.Inserted),
		slog.Int("updated", report.Updated),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", len(report.Errors)),
	)

	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()
	return report, nil
}

func (s *Syncer) fetchIndexers(ctx context.Context, baseURL, apiKey string) ([]indexer, error) {
	url := baseURL + "/api/v2.0/indexers?configured=true"
	if apiKey != "" {
		url += "&apikey=" + apiKey
	}

	var indexers []indexer
	err := fetch.Retry(ctx, s.retry, func() error {
		indexers = indexers[:0]
		return s.client.GetJSON(ctx, url, &indexers)
	})
	return indexers, err
}

// jackettResultsPattern matches the results URL Sync writes for each
// indexer; the first group is the instance base URL.
var jackettResultsPattern = regexp.MustCompile(`^(https?://.+)/api/v2\.0/indexers/[^/]+/results/torznab$`)

// SyncAll re-syncs every Jackett instance already represented in the stored
// configs. Instances are recovered from the results URLs, so manually added
// plain Torznab endpoints are left alone. One failing instance does not stop
// the others; its report carries the error.
func (s *Syncer) SyncAll(ctx context.Context) ([]Report, error) {
	configs, err := s.store.ListTorznabConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list torznab configs: %w", err)
	}

	type instance struct {
		baseURL string
		apiKey  string
	}
	var instances []instance
	seen := make(map[string]struct{})
	for _, cfg := range configs {
		match := jackettResultsPattern.FindStringSubmatch(cfg.URL)
		if match == nil {
			continue
		}
		baseURL := match[1]
		if _, ok := seen[baseURL]; ok {
			continue
		}
		seen[baseURL] = struct{}{}
		instances = append(instances, instance{baseURL: baseURL, apiKey: cfg.APIKey})
	}

	reports := make([]Report, 0, len(instances))
	for _, inst := range instances {
		report, err := s.Sync(ctx, inst.baseURL, inst.apiKey)
		if err != nil {
			reports = append(reports, Report{
				BaseURL: inst.baseURL,
				Errors:  []string{err.Error()},
			})
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// LastReport returns the most recent sync outcome, or false when no sync has
// run yet.
func (s *Syncer) LastReport() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return Report{}, false
	}
	return *s.lastReport, true
}
