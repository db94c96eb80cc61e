package infra

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"equidify/internal/domain"
)

// LogNotifier renders notices as structured log lines.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier on top of the given logger (slog.Default when nil).
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("module", "notice")}
}

// Notify implements domain.Notifier
func (n *LogNotifier) Notify(level domain.NoticeLevel, message string) {
	switch level {
	case domain.NoticeError:
		n.logger.Error(message, slog.String("level", string(level)))
	case domain.NoticeWarning:
		n.logger.Warn(message, slog.String("level", string(level)))
	default:
		n.logger.Info(message, slog.String("level", string(level)))
	}
}

// LogRenderer is the headless presentation layer: every render call becomes a log line.
type LogRenderer struct {
	logger *slog.Logger
}

// NewLogRenderer creates a renderer on top of the given logger (slog.Default when nil).
func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRenderer{logger: logger.With("module", "render")}
}

// RenderIndices implements domain.Renderer
func (r *LogRenderer) RenderIndices(cards []domain.IndexCard) {
	for _, card := range cards {
		if card.Quote == nil {
			r.logger.Info("Index", slog.String("symbol", card.Symbol), slog.String("price", "--"))
			continue
		}
		r.logger.Info("Index",
			slog.String("symbol", card.Symbol),
			slog.String("price", FormatCurrency(card.Quote.Price)),
			slog.String("change_pct", FormatPercent(&card.Quote.ChangePct)),
			slog.String("direction", card.Quote.ChangeDirection()),
		)
	}
}

// RenderWatchlist implements domain.Renderer
func (r *LogRenderer) RenderWatchlist(rows []domain.WatchlistRow) {
	if len(rows) == 0 {
		r.logger.Info("Your watchlist is empty")
		return
	}
	for _, row := range rows {
		price := "--"
		if row.Quote != nil {
			price = FormatCurrency(row.Quote.Price)
		}
		r.logger.Info("Watchlist",
			slog.String("symbol", row.Item.Symbol),
			slog.String("name", row.Item.Name),
			slog.String("price", price),
			slog.String("change_pct", FormatPercent(row.ChangePct)),
		)
	}
}

// RenderMarketStatus implements domain.Renderer
func (r *LogRenderer) RenderMarketStatus(status domain.MarketStatus) {
	r.logger.Info("Market status", slog.String("status", string(status)), slog.String("label", status.Label()))
}

// RenderPrice implements domain.Renderer
func (r *LogRenderer) RenderPrice(ev domain.PriceUpdateEvent) {
	r.logger.Debug("Price",
		slog.String("symbol", ev.Symbol),
		slog.String("price", FormatCurrency(ev.Price)),
		slog.Time("ts", ev.Timestamp),
	)
}

// FormatCurrency renders a USD price with two decimals.
func FormatCurrency(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatPercent renders a signed percentage; nil renders as "--".
func FormatPercent(d *decimal.Decimal) string {
	if d == nil {
		return "--"
	}
	s := d.StringFixed(2)
	if !d.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}
