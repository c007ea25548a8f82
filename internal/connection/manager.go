package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/stockstream/internal/auth"
	"github.com/rickgao/stockstream/internal/metrics"
	"github.com/rickgao/stockstream/internal/model"
	"github.com/rickgao/stockstream/internal/router"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClientFactory replaces the gorilla-backed client, mainly for tests.
func WithClientFactory(f ClientFactory) ManagerOption {
	return func(m *Manager) {
		m.newClient = f
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(s *metrics.Stream) ManagerOption {
	return func(m *Manager) {
		m.metrics = s
	}
}

type stateHandlerEntry struct {
	id uuid.UUID
	fn StateHandler
}

// Manager owns the single vendor connection. It drives
// connecting → connected → authenticated, replays the desired
// subscriptions after authentication, reconnects with linear backoff and
// fans decoded frames out to listeners.
//
// One goroutine runs the whole socket lifecycle, so socket events are
// handled strictly in order. Public methods are safe for concurrent use.
type Manager struct {
	cfg       ManagerConfig
	apiKey    string
	newClient ClientFactory
	registry  *router.Registry
	metrics   *metrics.Stream
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// notifyMu orders state notifications with the initial notification
	// a new state handler receives.
	notifyMu sync.Mutex

	// wireMu serializes subscribe/unsubscribe frames, including a whole
	// replay, so the last frame for a subscription matches the registry.
	wireMu sync.Mutex

	mu            sync.Mutex
	client        Client
	state         State
	attempts      int
	started       bool
	stopped       bool
	stateHandlers []stateHandlerEntry
	lastStatus    model.Status

	reconnects     atomic.Int64
	framesReceived atomic.Int64
	framesSent     atomic.Int64
	invalidFrames  atomic.Int64
	authFailures   atomic.Int64
}

// NewManager creates a Manager. The API key is read from creds once, here.
func NewManager(cfg ManagerConfig, creds auth.Provider, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "stream")

	m := &Manager{
		cfg:      cfg,
		registry: router.NewRegistry(logger),
		logger:   logger,
		state:    StateDisconnected,
	}
	if creds != nil {
		m.apiKey = creds.APIKey()
	}
	m.newClient = func() Client {
		return NewClient(cfg.Client, logger)
	}

	for _, opt := range opts {
		opt(m)
	}

	m.metrics.SetState(string(StateDisconnected), statesAsStrings())
	return m
}

// Start begins connecting in the background.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrAlreadyClosed
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.run()

	m.logger.Info("stream manager started",
		"url", m.cfg.Client.URL,
		"max_reconnect_attempts", m.cfg.MaxReconnectAttempts,
		"reconnect_base_wait", m.cfg.ReconnectBaseWait,
	)
	return nil
}

// Stop closes the connection without reconnecting and waits for the
// lifecycle goroutine to exit or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	started := m.started
	client := m.client
	m.mu.Unlock()

	m.logger.Info("stopping stream manager")

	if m.cancel != nil {
		m.cancel()
	}
	if client != nil {
		client.Close()
	}

	if started {
		select {
		case <-m.done:
		case <-ctx.Done():
			m.logger.Warn("stream manager stop timed out")
			return ctx.Err()
		}
	}

	m.setState(StateDisconnected)
	m.logger.Info("stream manager stopped")
	return nil
}

// Subscribe adds sub to the desired set. The subscribe frame goes out now
// if authenticated, otherwise at the next authentication.
func (m *Manager) Subscribe(sub model.Subscription) {
	m.registry.Add(sub)
	m.publishSubscriptions()
	m.sendIfAuthenticated(router.ActionSubscribe, sub)
}

// Unsubscribe removes sub from the desired set, sending an unsubscribe
// frame only if authenticated.
func (m *Manager) Unsubscribe(sub model.Subscription) {
	m.registry.Remove(sub)
	m.publishSubscriptions()
	m.sendIfAuthenticated(router.ActionUnsubscribe, sub)
}

// AddMessageHandler attaches h to sub, which becomes desired. The returned
// handle removes it again.
func (m *Manager) AddMessageHandler(sub model.Subscription, h router.MessageHandler) uuid.UUID {
	id, added := m.registry.AddListener(sub, h)
	if added {
		m.publishSubscriptions()
		m.sendIfAuthenticated(router.ActionSubscribe, sub)
	}
	return id
}

// RemoveMessageHandler detaches a listener. It takes effect immediately.
// Removing the last listener of sub unsubscribes it.
func (m *Manager) RemoveMessageHandler(sub model.Subscription, id uuid.UUID) {
	_, last := m.registry.RemoveListener(sub, id)
	if last {
		m.publishSubscriptions()
		m.sendIfAuthenticated(router.ActionUnsubscribe, sub)
	}
}

// AddConnectionStateHandler registers h and calls it synchronously with the
// current state before returning. Later transitions are delivered on the
// lifecycle goroutine; h must not call Stop or AddConnectionStateHandler.
func (m *Manager) AddConnectionStateHandler(h StateHandler) uuid.UUID {
	id := uuid.New()

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	m.stateHandlers = append(m.stateHandlers, stateHandlerEntry{id: id, fn: h})
	current := m.state
	m.mu.Unlock()

	m.invokeStateHandler(h, current)
	return id
}

// RemoveConnectionStateHandler unregisters a state handler.
func (m *Manager) RemoveConnectionStateHandler(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.stateHandlers {
		if e.id == id {
			m.stateHandlers = append(m.stateHandlers[:i:i], m.stateHandlers[i+1:]...)
			return
		}
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Desired returns the desired subscriptions in insertion order.
func (m *Manager) Desired() []model.Subscription {
	return m.registry.Desired()
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	stats := ManagerStats{
		State:             m.state,
		ReconnectAttempts: m.attempts,
		LastStatus:        m.lastStatus,
	}
	m.mu.Unlock()

	stats.Reconnects = m.reconnects.Load()
	stats.FramesReceived = m.framesReceived.Load()
	stats.FramesSent = m.framesSent.Load()
	stats.InvalidFrames = m.invalidFrames.Load()
	stats.AuthFailures = m.authFailures.Load()
	stats.Registry = m.registry.Stats()
	return stats
}

// run is the lifecycle goroutine: connect, read until the socket dies,
// back off, repeat.
func (m *Manager) run() {
	defer close(m.done)

	for {
		client := m.newClient()

		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		m.client = client
		m.mu.Unlock()

		m.setState(StateConnecting)

		err := client.Connect(m.ctx)
		if err == nil {
			m.handleOpen(client)
			err = m.readLoop(client)
		}
		m.handleClose(client, err)

		delay, ok := m.nextBackoff()
		if !ok {
			return
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (m *Manager) handleOpen(client Client) {
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()

	m.setState(StateConnected)
	m.send(client, router.ActionAuth, m.apiKey)

	if m.cfg.ResubscribeOnOpen {
		m.replay(client)
	}
}

func (m *Manager) handleClose(client Client, cause error) {
	client.Close()

	m.mu.Lock()
	if m.client == client {
		m.client = nil
	}
	stopping := m.stopped
	m.mu.Unlock()

	m.setState(StateDisconnected)

	if !stopping && m.ctx.Err() == nil {
		m.logger.Warn("connection closed", "error", cause)
	}
}

// nextBackoff reports the wait before the next attempt, or false once the
// attempt budget is spent or the manager is stopping.
func (m *Manager) nextBackoff() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.ctx.Err() != nil {
		return 0, false
	}
	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.logger.Error("giving up on reconnecting",
			"attempts", m.attempts,
		)
		return 0, false
	}

	m.attempts++
	delay := m.cfg.ReconnectBaseWait * time.Duration(m.attempts)
	m.reconnects.Add(1)
	m.metrics.Reconnect()

	m.logger.Info("scheduling reconnect",
		"attempt", m.attempts,
		"delay", delay,
	)
	return delay, true
}

// readLoop consumes frames until the client reports an error or the
// manager stops. Returns the cause.
func (m *Manager) readLoop(client Client) error {
	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()

		case err := <-client.Errors():
			m.drain(client)
			return err

		case msg, ok := <-client.Messages():
			if !ok {
				return ErrConnectionClosed
			}
			m.handleFrame(msg)
		}
	}
}

// drain handles frames that were buffered before the connection died.
func (m *Manager) drain(client Client) {
	for {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			m.handleFrame(msg)
		default:
			return
		}
	}
}

func (m *Manager) handleFrame(frame TimestampedMessage) {
	m.framesReceived.Add(1)
	m.metrics.FrameReceived()

	msgs, err := router.Decode(frame.Data)
	if err != nil {
		m.invalidFrames.Add(1)
		m.metrics.InvalidFrame()
		m.logger.Warn("dropping invalid frame",
			"error", err,
			"bytes", len(frame.Data),
		)
		return
	}

	// Status first: an auth_success in this frame unlocks its data.
	for _, msg := range msgs {
		if msg.Event == model.EventStatus && msg.Status != nil {
			m.handleStatus(*msg.Status)
		}
	}

	if m.State() != StateAuthenticated {
		return
	}
	m.metrics.Delivered(m.registry.Dispatch(msgs))
}

func (m *Manager) handleStatus(s model.Status) {
	m.mu.Lock()
	m.lastStatus = s
	client := m.client
	m.mu.Unlock()

	switch s.Status {
	case model.StatusAuthSuccess:
		// State must flip before the replay snapshot so a concurrent
		// Subscribe is either replayed or sends its own frame.
		m.setState(StateAuthenticated)
		n := m.replay(client)
		m.logger.Info("authenticated", "subscriptions", n)

	case model.StatusError, model.StatusMaxConnections:
		m.authFailures.Add(1)
		m.metrics.AuthFailure()
		m.logger.Warn("vendor rejected connection",
			"status", s.Status,
			"message", s.Message,
		)

	default:
		m.logger.Debug("status message",
			"status", s.Status,
			"message", s.Message,
		)
	}
}

// replay sends a subscribe frame for every desired subscription. A
// subscription dropped from the registry mid-replay is skipped; its
// unsubscribe waits on wireMu and goes out after.
func (m *Manager) replay(client Client) int {
	m.wireMu.Lock()
	defer m.wireMu.Unlock()

	n := 0
	for _, sub := range m.registry.Desired() {
		if !m.registry.Has(sub) {
			continue
		}
		m.send(client, router.ActionSubscribe, string(sub))
		n++
	}
	return n
}

// sendIfAuthenticated sends a subscribe or unsubscribe frame for sub. The
// registry is consulted again under wireMu: a subscribe for a sub no longer
// desired, or an unsubscribe for one desired again, is stale and dropped.
func (m *Manager) sendIfAuthenticated(action string, sub model.Subscription) {
	m.wireMu.Lock()
	defer m.wireMu.Unlock()

	m.mu.Lock()
	client := m.client
	authed := m.state == StateAuthenticated
	m.mu.Unlock()
	if !authed {
		return
	}

	desired := m.registry.Has(sub)
	if (action == router.ActionSubscribe) != desired {
		return
	}
	m.send(client, action, string(sub))
}

// send is fire-and-forget; reconnect-and-replay repairs anything lost.
func (m *Manager) send(client Client, action, params string) {
	if client == nil {
		return
	}
	frame, err := router.EncodeAction(action, params)
	if err != nil {
		m.logger.Error("encode frame", "action", action, "error", err)
		return
	}
	if err := client.Send(frame); err != nil {
		m.logger.Debug("send failed", "action", action, "error", err)
		return
	}
	m.framesSent.Add(1)

	if action == router.ActionAuth {
		m.logger.Debug("sent auth frame", "key", auth.Mask(params))
	} else {
		m.logger.Debug("sent frame", "action", action, "params", params)
	}
}

func (m *Manager) setState(s State) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = s
	handlers := make([]StateHandler, len(m.stateHandlers))
	for i, e := range m.stateHandlers {
		handlers[i] = e.fn
	}
	m.mu.Unlock()

	m.metrics.SetState(string(s), statesAsStrings())
	m.logger.Debug("connection state changed", "from", prev, "to", s)

	for _, h := range handlers {
		m.invokeStateHandler(h, s)
	}
}

func (m *Manager) invokeStateHandler(h StateHandler, s State) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("state handler panicked", "state", s, "panic", rec)
		}
	}()
	h(s)
}

func (m *Manager) publishSubscriptions() {
	m.metrics.SetSubscriptions(len(m.registry.Desired()))
}

func statesAsStrings() []string {
	out := make([]string, len(AllStates))
	for i, s := range AllStates {
		out[i] = string(s)
	}
	return out
}
