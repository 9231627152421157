package host

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectionStatus tracks the desktop link lifecycle.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
)

// Message is one queued host message. Ordering is FIFO; there is no
// coupling to pipeline state.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"message_type"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	Priority  int       `json:"priority"`
}

// defaultCapabilities advertises what the engine offers a desktop host.
var defaultCapabilities = []string{
	"cognitive_processing",
	"personality_adaptation",
	"memory_management",
	"emotional_modeling",
}

// Link is the boundary to an external desktop process: connection-status
// bookkeeping and an in-memory FIFO message queue.
type Link struct {
	desktopID    string
	status       ConnectionStatus
	queue        []Message
	capabilities []string
	mu           sync.Mutex
	logger       *zap.Logger
}

// NewLink creates a disconnected link with the standard capability set.
func NewLink(logger *zap.Logger) *Link {
	return &Link{
		status:       StatusDisconnected,
		capabilities: defaultCapabilities,
		logger:       logger,
	}
}

// Connect binds the link to a desktop and queues the capability
// advertisement as the first outbound message.
func (l *Link) Connect(desktopID string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.desktopID = desktopID
	l.status = StatusConnected

	payload, _ := json.Marshal(l.capabilities)
	msg := Message{
		ID:        uuid.New().String(),
		Type:      "capabilities",
		Payload:   string(payload),
		Timestamp: time.Now(),
		Priority:  1,
	}
	l.queue = append(l.queue, msg)

	l.logger.Info("host link connected", zap.String("desktop", desktopID))
	return msg
}

// Enqueue appends a message and returns its generated ID.
func (l *Link) Enqueue(msgType, payload string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
		Priority:  2,
	}
	l.queue = append(l.queue, msg)

	l.logger.Debug("queued host message",
		zap.String("type", msgType),
		zap.String("id", msg.ID))
	return msg.ID
}

// Drain returns all pending messages in FIFO order and empties the queue.
func (l *Link) Drain() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.queue
	l.queue = nil
	if out == nil {
		out = []Message{}
	}
	return out
}

// Pending returns the queue length without draining.
func (l *Link) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Status returns the current connection status.
func (l *Link) Status() ConnectionStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// DesktopID returns the bound desktop identifier, empty when disconnected.
func (l *Link) DesktopID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.desktopID
}

// Capabilities returns the advertised capability names.
func (l *Link) Capabilities() []string {
	out := make([]string, len(l.capabilities))
	copy(out, l.capabilities)
	return out
}
