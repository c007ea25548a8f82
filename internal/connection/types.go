package connection

import (
	"errors"
	"time"

	"github.com/rickgao/stockstream/internal/model"
	"github.com/rickgao/stockstream/internal/router"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no ping or data)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrAlreadyStarted   = errors.New("already started")
	ErrConnectionClosed = errors.New("connection closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes
	ReceivedAt time.Time // Local time when ReadMessage returned
}

// State is the lifecycle state of the shared vendor connection.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateConnecting    State = "connecting"
	StateConnected     State = "connected"
	StateAuthenticated State = "authenticated"
)

// AllStates lists every State in lifecycle order.
var AllStates = []State{StateDisconnected, StateConnecting, StateConnected, StateAuthenticated}

// Label is the user-facing name of the state. A connected but not yet
// authenticated socket is shown as connected.
func (s State) Label() string {
	switch s {
	case StateConnected, StateAuthenticated:
		return "Connected"
	case StateConnecting:
		return "Connecting"
	default:
		return "Disconnected"
	}
}

// StateHandler observes connection state.
type StateHandler func(State)

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Vendor socket URL (e.g., wss://socket.polygon.io/stocks)
	HandshakeTimeout time.Duration // Dial handshake deadline
	PingInterval     time.Duration // How often we ping the server
	PingTimeout      time.Duration // Max silence (no pong, ping or data) before the connection is stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:              "wss://socket.polygon.io/stocks",
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// ManagerConfig configures the connection Manager.
type ManagerConfig struct {
	Client               ClientConfig
	ReconnectBaseWait    time.Duration // Reconnect n waits n × base
	MaxReconnectAttempts int           // Reconnects scheduled before giving up
	ResubscribeOnOpen    bool          // Also replay subscriptions before auth completes
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:               DefaultClientConfig(),
		ReconnectBaseWait:    1 * time.Second,
		MaxReconnectAttempts: 5,
		ResubscribeOnOpen:    true,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State             State
	ReconnectAttempts int   // Consecutive attempts since the last successful open
	Reconnects        int64 // Reconnects scheduled over the manager's lifetime
	FramesReceived    int64
	FramesSent        int64
	InvalidFrames     int64
	AuthFailures      int64
	LastStatus        model.Status
	Registry          router.RegistryStats
}
