package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"equidify/internal/domain"
	"equidify/internal/infra"
)

const (
	// DefaultWSURL is the public trade stream endpoint
	DefaultWSURL = "wss://ws.finnhub.io"

	streamHandshakeTimeout = 10 * time.Second
	streamReadTimeout      = 60 * time.Second
	streamWriteTimeout     = 10 * time.Second
	defaultReconnectDelay  = 5 * time.Second
)

// Stream is the Finnhub trade websocket. It owns one connection at a time,
// replays the subscription registry on every open and reconnects according
// to its RetryPolicy.
type Stream struct {
	endpoint string
	registry *domain.SubscriptionSet
	handler  domain.PriceUpdateHandler
	retry    infra.RetryPolicy
	metrics  *infra.Metrics
	logger   *slog.Logger
	dialer   websocket.Dialer

	// subMu serializes registry changes with the open-time replay
	subMu sync.Mutex

	mu      sync.RWMutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	state   domain.StreamState
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ domain.PriceStream = (*Stream)(nil)

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithRetryPolicy replaces the default fixed 5s reconnect delay.
func WithRetryPolicy(p infra.RetryPolicy) StreamOption {
	return func(s *Stream) {
		s.retry = p
	}
}

// WithStreamMetrics records stream activity in m.
func WithStreamMetrics(m *infra.Metrics) StreamOption {
	return func(s *Stream) {
		s.metrics = m
	}
}

// NewStream creates a stream for wsURL authenticated by token. Trades are
// delivered to handler on the stream goroutine.
func NewStream(wsURL, token string, registry *domain.SubscriptionSet, handler domain.PriceUpdateHandler, opts ...StreamOption) (*Stream, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	if registry == nil {
		registry = domain.NewSubscriptionSet()
	}

	s := &Stream{
		endpoint: u.String(),
		registry: registry,
		handler:  handler,
		retry:    infra.FixedDelay{Delay: defaultReconnectDelay},
		metrics:  infra.NewMetrics(),
		logger:   slog.Default().With("module", "stream"),
		dialer:   websocket.Dialer{HandshakeTimeout: streamHandshakeTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Connect starts the connection loop. It is a no-op while the loop is
// already running.
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true
	s.state = domain.StreamConnecting

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.connectionLoop(ctx)

	return nil
}

// connectionLoop dials, reads until the socket drops, then waits out the retry policy
func (s *Stream) connectionLoop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Stream panic recovered", slog.Any("panic", r))
		}
		s.closeConnection()
		s.mu.Lock()
		s.running = false
		s.state = domain.StreamDisconnected
		s.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stream connection loop stopped")
			return
		default:
		}

		s.setState(domain.StreamConnecting)

		if err := s.connect(ctx); err != nil {
			s.logger.Warn("Stream connection failed",
				slog.Any("error", err),
				slog.Int("attempt", attempt),
			)
		} else {
			attempt = 0
			s.readLoop(ctx)
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("Stream closed")
		}

		s.setState(domain.StreamDisconnected)

		delay, ok := s.retry.Next(attempt)
		if !ok {
			s.logger.Error("Stream retry policy exhausted, giving up", slog.Int("attempts", attempt))
			return
		}
		attempt++
		s.metrics.RecordReconnect()

		s.logger.Info("Stream reconnecting", slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connect dials the endpoint and replays the registry
func (s *Stream) connect(ctx context.Context) error {
	header := make(http.Header)
	header.Add("User-Agent", infra.DefaultUserAgent)

	conn, _, err := s.dialer.DialContext(ctx, s.endpoint, header)
	if err != nil {
		return domain.NewNetworkError("dial", fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err))
	}

	// Open and replay under subMu so a concurrent Subscribe is either part of
	// the snapshot or sent after it, never both.
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.mu.Lock()
	s.conn = conn
	s.state = domain.StreamOpen
	s.mu.Unlock()
	s.metrics.IncrementConnections()

	symbols := s.registry.All()
	for _, symbol := range symbols {
		if err := s.send(directiveSubscribe, symbol); err != nil {
			s.closeConnection()
			return fmt.Errorf("replay subscribe %s: %w", symbol, err)
		}
	}

	s.logger.Info("Stream connected", slog.Int("symbols", len(symbols)))
	return nil
}

// readLoop reads messages until the connection fails
func (s *Stream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()

		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Stream read error", slog.Any("error", err))
			}
			s.closeConnection()
			return
		}

		s.handleMessage(message)
	}
}

// handleMessage decodes one frame. Only the first trade of a batch is delivered.
func (s *Stream) handleMessage(message []byte) {
	s.metrics.RecordStreamMessage()

	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.metrics.RecordParseError()
		s.logger.Warn("Stream message parse error", slog.Any("error", err))
		return
	}

	switch msg.Type {
	case "trade":
	case "error":
		s.logger.Warn("Stream error message", slog.String("msg", msg.Msg))
		return
	default:
		return
	}

	if len(msg.Data) == 0 {
		return
	}

	t := msg.Data[0]
	ev := domain.PriceUpdateEvent{
		Symbol:    t.Symbol,
		Price:     t.Price,
		Timestamp: time.UnixMilli(t.Timestamp),
	}

	if s.handler != nil {
		s.handler(ev)
		s.metrics.RecordTradeDispatched()
	}
}

// Subscribe adds symbol to the registry and, if the stream is open and the
// symbol is new, sends a subscribe directive. Otherwise the directive is dropped.
func (s *Stream) Subscribe(symbol string) {
	s.apply(directiveSubscribe, symbol, s.registry.Add)
}

// Unsubscribe removes symbol from the registry and, if the stream is open
// and the symbol was present, sends an unsubscribe directive.
func (s *Stream) Unsubscribe(symbol string) {
	s.apply(directiveUnsubscribe, symbol, s.registry.Remove)
}

func (s *Stream) apply(kind, symbol string, mutate func(string) bool) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	if !mutate(symbol) {
		return
	}
	if s.State() != domain.StreamOpen {
		s.logger.Debug("Stream not open, directive dropped",
			slog.String("type", kind),
			slog.String("symbol", symbol),
		)
		return
	}
	if err := s.send(kind, symbol); err != nil {
		s.logger.Warn("Stream directive failed",
			slog.String("type", kind),
			slog.String("symbol", symbol),
			slog.Any("error", err),
		)
	}
}

// send writes one directive frame
func (s *Stream) send(kind, symbol string) error {
	data, err := json.Marshal(directive{Type: kind, Symbol: symbol})
	if err != nil {
		return err
	}
	return s.threadSafeWrite(websocket.TextMessage, data)
}

// threadSafeWrite sends a message to the WebSocket connection in a thread-safe manner
func (s *Stream) threadSafeWrite(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return domain.ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteMessage(messageType, data)
}

// closeConnection safely closes the WebSocket connection
func (s *Stream) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.metrics.DecrementConnections()
	}
	if s.state == domain.StreamOpen {
		s.state = domain.StreamDisconnected
	}
}

// Disconnect stops the loop, closes the socket and waits for the goroutine
func (s *Stream) Disconnect() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	s.closeConnection()
	s.wg.Wait()
	s.logger.Info("Stream disconnected")
}

// State returns the current connection state.
func (s *Stream) State() domain.StreamState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConnected reports whether the stream is open.
func (s *Stream) IsConnected() bool {
	return s.State() == domain.StreamOpen
}

// Registry returns the subscription set the stream replays.
func (s *Stream) Registry() *domain.SubscriptionSet {
	return s.registry
}

func (s *Stream) setState(state domain.StreamState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
