package app

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"equidify/internal/domain"
	"equidify/internal/infra"
	"equidify/internal/infra/finnhub"
	"equidify/internal/infra/storage"
	"equidify/internal/service"
)

// DefaultConfigPath is used when no --config flag is given
const DefaultConfigPath = "configs/config.yaml"

const missingKeyNotice = "Please set your Finnhub API key (FINNHUB_API_KEY) to load live data"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string

	Config     *infra.Config
	Metrics    *infra.Metrics
	Storage    *storage.Storage
	Downloader *infra.LogoDownloader
	Notifier   domain.Notifier
	Renderer   domain.Renderer

	Client     *finnhub.Client
	Cache      *service.QuoteCache
	Quotes     *service.QuoteService
	Dispatcher *service.Dispatcher
	Stream     *finnhub.Stream
	Watchlist  *service.WatchlistService
	Dashboard  *service.Dashboard

	background sync.WaitGroup
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize loads config, opens storage and wires every component.
// Nothing touches the network until Run.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping Equidify...", slog.String("version", cfg.App.Version))

	b.Metrics = infra.NewMetrics()
	b.Notifier = infra.NewLogNotifier(logger)
	b.Renderer = infra.NewLogRenderer(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	stored, err := store.LoadConfigMap()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(stored))
	for k := range stored {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	slog.Info("✅ Database initialized", slog.Any("stored_keys", keys))

	// 4. Initialize Logo Downloader
	downloader, err := infra.NewLogoDownloader(cfg.Storage.LogoDir)
	if err != nil {
		return err
	}
	b.Downloader = downloader

	// 5. Market data
	key := cfg.API.Finnhub.APIKey
	b.Client = finnhub.NewClient(key,
		finnhub.WithBaseURL(cfg.API.Finnhub.RestURL),
		finnhub.WithHTTPClient(infra.NewHTTPClient(cfg.RequestTimeout())),
		finnhub.WithMetrics(b.Metrics),
	)
	b.Cache = service.NewQuoteCache(cfg.QuoteTTL(), cfg.ProfileTTL(), service.WithCacheMetrics(b.Metrics))
	b.Quotes = service.NewQuoteService(b.Client, b.Cache, b.Notifier)

	// 6. Live prices: stream -> dispatcher -> renderer
	b.Dispatcher = service.NewDispatcher(b.Notifier, b.Metrics)
	b.Dispatcher.RegisterAll(b.Renderer.RenderPrice)

	stream, err := finnhub.NewStream(cfg.API.Finnhub.WSURL, key, domain.NewSubscriptionSet(), b.Dispatcher.Dispatch,
		finnhub.WithRetryPolicy(infra.FixedDelay{Delay: cfg.ReconnectDelay()}),
		finnhub.WithStreamMetrics(b.Metrics),
	)
	if err != nil {
		return err
	}
	b.Stream = stream

	// 7. Watchlist & dashboard
	b.Watchlist = service.NewWatchlistService(store, b.Quotes, stream, b.Notifier)
	if err := b.Watchlist.Load(); err != nil {
		return err
	}

	b.Dashboard = service.NewDashboard(service.DashboardConfig{
		Indices:        cfg.Polling.Indices,
		UpdateInterval: cfg.UpdateInterval(),
		StatusInterval: cfg.StatusInterval(),
	}, b.Quotes, b.Watchlist, stream, b.Renderer, b.Notifier)

	if !cfg.HasAPIKey() {
		b.Notifier.Notify(domain.NoticeWarning, missingKeyNotice)
	}

	slog.Info("✅ Components wired")
	return nil
}

// Run connects the stream, starts polling and blocks until ctx is done.
func (b *Bootstrap) Run(ctx context.Context) error {
	if err := b.Stream.Connect(ctx); err != nil {
		return err
	}
	defer b.Stream.Disconnect()

	b.Dashboard.Start(ctx)
	defer b.Dashboard.Stop()

	b.background.Add(1)
	go func() {
		defer b.background.Done()
		b.SyncLogos(ctx)
	}()
	// Wait for in-flight logo downloads
	defer b.background.Wait()

	slog.InfoContext(ctx, "✨ Equidify is live. Press Ctrl+C to exit.")
	<-ctx.Done()

	slog.Info("👋 Shutting down gracefully...")
	return nil
}

// Close waits for background work, logs a final metrics snapshot and
// releases storage
func (b *Bootstrap) Close() {
	b.background.Wait()
	if b.Metrics != nil {
		snap := b.Metrics.Snapshot()
		slog.Info("📊 Final metrics",
			slog.Uint64("cache_hits", snap.CacheHits),
			slog.Uint64("cache_misses", snap.CacheMisses),
			slog.Uint64("rest_requests", snap.RestRequests),
			slog.Uint64("rest_failures", snap.RestFailures),
			slog.Uint64("stream_messages", snap.StreamMessages),
			slog.Uint64("trades_dispatched", snap.TradesDispatched),
			slog.Uint64("parse_errors", snap.ParseErrors),
			slog.Uint64("reconnects", snap.Reconnects),
			slog.Uint64("handler_panics", snap.HandlerPanics),
		)
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
}

// SyncLogos downloads company logos for every watchlist symbol in the background
func (b *Bootstrap) SyncLogos(ctx context.Context) {
	slog.Info("🔄 Starting logo synchronization...")

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, item := range b.Watchlist.Items() {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			profile := b.Quotes.GetProfile(ctx, sym)
			if profile == nil || profile.Logo == "" {
				return
			}

			if _, err := b.Downloader.DownloadLogo(ctx, sym, profile.Logo); err != nil {
				slog.Warn("Failed to download logo", slog.String("symbol", sym), slog.Any("error", err))
			}
		}(item.Symbol)
	}

	wg.Wait()
	slog.Info("✨ Logo synchronization completed")
}
