package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/fetch"
	"torrentsearch/searchd/internal/metrics"
	"torrentsearch/searchd/internal/providers/torznab"
	"torrentsearch/searchd/internal/store"
)

// maxConcurrentProviders bounds the fan-out so a large Torznab config set
// cannot overwhelm the host or the remote indexers.
const maxConcurrentProviders = 10

var (
	ErrInvalidQuery = errors.New("query is required")

	// ErrNetworkUnavailable aborts a whole round before any provider runs.
	ErrNetworkUnavailable = fetch.ErrNetworkUnavailable
)

// Provider is the one contract every search source implements.
type Provider interface {
	Info() domain.ProviderInfo
	Search(ctx context.Context, query string, category domain.Category) ([]domain.Torrent, error)
}

// ConnectivityChecker answers whether any outbound network path exists.
type ConnectivityChecker interface {
	Check(ctx context.Context) error
}

// ConfigSource supplies the per-round snapshot of dynamic state: persisted
// Torznab endpoints and the user settings. *store.Store satisfies it.
type ConfigSource interface {
	ListTorznabConfigs(ctx context.Context) ([]store.TorznabConfig, error)
	Settings(ctx context.Context) (store.Settings, error)
}

// Engine owns the built-in provider registry and runs search rounds.
type Engine struct {
	builtins        []Provider
	configs         ConfigSource
	connectivity    ConnectivityChecker
	client          *fetch.Client
	providerTimeout time.Duration
	logger          *slog.Logger

	cache *roundCache

	healthMu sync.Mutex
	health   map[string]*providerHealth
}

type EngineOption func(*Engine)

func WithConnectivityChecker(checker ConnectivityChecker) EngineOption {
	return func(e *Engine) {
		e.connectivity = checker
	}
}

func WithProviderTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		if timeout > 0 {
			e.providerTimeout = timeout
		}
	}
}

func WithFetchClient(client *fetch.Client) EngineOption {
	return func(e *Engine) {
		if client != nil {
			e.client = client
		}
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithRedisCache(backend *RedisCacheBackend) EngineOption {
	return func(e *Engine) {
		e.cache.redis = backend
	}
}

func WithCacheTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		if ttl > 0 {
			e.cache.ttl = ttl
		}
	}
}

func WithCacheDisabled(disabled bool) EngineOption {
	return func(e *Engine) {
		e.cache.disabled = disabled
	}
}

func NewEngine(builtins []Provider, configs ConfigSource, opts ...EngineOption) *Engine {
	kept := make([]Provider, 0, len(builtins))
	seen := make(map[string]struct{}, len(builtins))
	for _, provider := range builtins {
		if provider == nil {
			continue
		}
		id := strings.TrimSpace(provider.Info().ID)
		if id == "" {
			continue
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, provider)
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Info().ID < kept[j].Info().ID
	})

	engine := &Engine{
		builtins:        kept,
		configs:         configs,
		client:          fetch.NewClient(),
		providerTimeout: 15 * time.Second,
		logger:          slog.Default(),
		cache:           newRoundCache(),
		health:          make(map[string]*providerHealth),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Builtins lists the static provider identities.
func (e *Engine) Builtins() []domain.ProviderInfo {
	infos := make([]domain.ProviderInfo, 0, len(e.builtins))
	for _, provider := range e.builtins {
		infos = append(infos, provider.Info())
	}
	return infos
}

// SearchTorrents runs one round: it resolves the active provider set from a
// consistent settings snapshot, fans out concurrently and streams cumulative
// emissions on the returned channel. The last emission carries Final=true.
// Per-provider failures surface as data inside the emissions; the only errors
// returned here are invalid input and the up-front connectivity check.
func (e *Engine) SearchTorrents(ctx context.Context, query string, category domain.Category) (<-chan domain.SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	category = domain.NormalizeCategory(string(category))

	if e.connectivity != nil {
		if err := e.connectivity.Check(ctx); err != nil {
			return nil, ErrNetworkUnavailable
		}
	}

	selected, err := e.resolveProviders(ctx, category)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.SearchResults, len(selected)+1)

	// Empty set short-circuits: one empty final emission, no network calls.
	if len(selected) == 0 {
		ch <- domain.SearchResults{Query: query, Category: category, Torrents: []domain.Torrent{}, Failures: []domain.ProviderFailure{}, Final: true}
		close(ch)
		return ch, nil
	}

	if cached, ok := e.cache.lookup(query, category, selected); ok {
		cached.Final = true
		ch <- cached
		close(ch)
		return ch, nil
	}

	go e.executeRound(ctx, query, category, selected, ch)
	return ch, nil
}

// resolveProviders snapshots settings and Torznab configs once and narrows
// the combined set by category and by the enabled-id set.
func (e *Engine) resolveProviders(ctx context.Context, category domain.Category) ([]Provider, error) {
	var (
		settings store.Settings
		configs  []store.TorznabConfig
	)
	if e.configs != nil {
		var err error
		settings, err = e.configs.Settings(ctx)
		if err != nil {
			return nil, err
		}
		configs, err = e.configs.ListTorznabConfigs(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		settings = store.DefaultSettings()
	}

	enabled := make(map[string]struct{}, len(settings.EnabledProviderIDs))
	for _, id := range settings.EnabledProviderIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			enabled[id] = struct{}{}
		}
	}
	isEnabled := func(info domain.ProviderInfo) bool {
		if len(enabled) == 0 {
			return info.EnabledByDefault
		}
		_, ok := enabled[info.ID]
		return ok
	}

	var selected []Provider
	for _, provider := range e.builtins {
		info := provider.Info()
		if !isEnabled(info) || !info.MatchesCategory(category) {
			continue
		}
		selected = append(selected, provider)
	}
	for _, cfg := range configs {
		provider := torznab.NewProvider(torznab.Config{
			ID:       cfg.ID,
			Name:     cfg.Name,
			URL:      cfg.URL,
			APIKey:   cfg.APIKey,
			Category: cfg.Category,
			Client:   e.client,
		})
		info := provider.Info()
		if len(enabled) > 0 {
			if _, ok := enabled[info.ID]; !ok {
				continue
			}
		}
		if !info.MatchesCategory(category) {
			continue
		}
		selected = append(selected, provider)
	}
	return selected, nil
}

func (e *Engine) executeRound(ctx context.Context, query string, category domain.Category, selected []Provider, ch chan<- domain.SearchResults) {
	defer close(ch)

	startedAt := time.Now()
	e.logger.Info("search round started",
		slog.String("query", query),
		slog.String("category", string(category)),
		slog.Int("providers", len(selected)),
	)

	var (
		mu       sync.Mutex
		torrents []domain.Torrent
		failures []domain.ProviderFailure
		done     int
	)

	emit := func(final bool) {
		// Callers hold mu.
		snapshot := domain.SearchResults{
			Query:     query,
			Category:  category,
			Torrents:  append([]domain.Torrent(nil), torrents...),
			Failures:  append([]domain.ProviderFailure(nil), failures...),
			Pending:   len(selected) - done,
			ElapsedMS: time.Since(startedAt).Milliseconds(),
			Final:     final,
		}
		if snapshot.Torrents == nil {
			snapshot.Torrents = []domain.Torrent{}
		}
		if snapshot.Failures == nil {
			snapshot.Failures = []domain.ProviderFailure{}
		}
		if final {
			e.cache.store(query, category, selected, snapshot)
		}
		select {
		case ch <- snapshot:
		case <-ctx.Done():
		}
	}

	sem := semaphore.NewWeighted(maxConcurrentProviders)
	var wg sync.WaitGroup

	for _, provider := range selected {
		wg.Add(1)
		go func(current Provider) {
			defer wg.Done()

			info := current.Info()
			if err := sem.Acquire(ctx, 1); err != nil {
				// Round cancelled while queued: not a provider failure.
				mu.Lock()
				done++
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			now := time.Now()
			if blocked, until, lastErr := e.isProviderBlocked(info.ID, now); blocked {
				e.logger.Warn("provider blocked, skipping",
					slog.String("provider", info.ID),
					slog.Time("until", until),
				)
				mu.Lock()
				done++
				failures = append(failures, domain.ProviderFailure{
					ProviderID:   info.ID,
					ProviderName: info.Name,
					Kind:         domain.FailureTransport,
					Message:      "temporarily unavailable: " + lastErr,
				})
				emit(done == len(selected))
				mu.Unlock()
				return
			}

			searchCtx, cancel := context.WithTimeout(ctx, e.providerTimeout)
			defer cancel()

			providerStartedAt := time.Now()
			items, searchErr := current.Search(searchCtx, query, category)
			elapsed := time.Since(providerStartedAt)

			if ctx.Err() != nil {
				// Cancelled rounds produce no further emissions and no
				// failure entries for torn-down providers.
				return
			}

			e.recordProviderResult(info, searchErr, elapsed, time.Now())

			mu.Lock()
			done++
			if searchErr != nil {
				kind := fetch.KindOf(searchErr)
				e.logger.Warn("provider failed",
					slog.String("provider", info.ID),
					slog.String("kind", string(kind)),
					slog.Int64("elapsedMs", elapsed.Milliseconds()),
					slog.String("error", searchErr.Error()),
				)
				failures = append(failures, domain.ProviderFailure{
					ProviderID:   info.ID,
					ProviderName: info.Name,
					Kind:         kind,
					Message:      searchErr.Error(),
				})
			} else {
				e.logger.Info("provider completed",
					slog.String("provider", info.ID),
					slog.Int("results", len(items)),
					slog.Int64("elapsedMs", elapsed.Milliseconds()),
				)
				for _, item := range items {
					if !item.Usable() {
						continue
					}
					if item.ProviderID == "" {
						item.ProviderID = info.ID
						item.ProviderName = info.Name
					}
					torrents = append(torrents, item)
				}
			}
			emit(done == len(selected))
			mu.Unlock()
		}(provider)
	}

	wg.Wait()

	if ctx.Err() == nil {
		metrics.SearchRoundsTotal.WithLabelValues(string(category)).Inc()
		e.logger.Info("search round completed",
			slog.String("query", query),
			slog.Int("results", len(torrents)),
			slog.Int("failures", len(failures)),
			slog.Int64("elapsedMs", time.Since(startedAt).Milliseconds()),
		)
	}
}
