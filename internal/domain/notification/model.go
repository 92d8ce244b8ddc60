package notification

import (
	"time"

	"notigram/internal/common"
)

// Defaults applied by DefaultDispatchConfig.
const (
	DefaultMaxMessageSize = 1024
	DefaultMinInterval    = 5 * time.Second
	DefaultTimeout        = 5 * time.Second
)

// Timeouts bounds a single transport call. A zero value means no limit.
type Timeouts struct {
	// Connect bounds establishing the TCP/TLS connection.
	Connect time.Duration

	// ConnectionRequest bounds acquiring a connection for the request.
	ConnectionRequest time.Duration

	// Socket bounds waiting for response data once the request is written.
	Socket time.Duration
}

// DispatchConfig is the immutable delivery configuration of a Gateway.
type DispatchConfig struct {
	BotToken  string
	ChatID    string
	ParseMode string

	// MaxMessageSize is the maximum number of characters per chunk.
	MaxMessageSize int

	// SplitMessage sends every chunk when true; only the first chunk otherwise.
	SplitMessage bool

	// NonBlocking hands dispatch to a background Executor instead of running it inline.
	NonBlocking bool

	// MinInterval is the minimum time between two accepted sends.
	MinInterval time.Duration

	Timeouts Timeouts
}

// DefaultDispatchConfig returns a config populated with the documented defaults.
// BotToken and ChatID are left empty and must be supplied by the host.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		MaxMessageSize: DefaultMaxMessageSize,
		SplitMessage:   true,
		NonBlocking:    true,
		MinInterval:    DefaultMinInterval,
		Timeouts: Timeouts{
			Connect:           DefaultTimeout,
			ConnectionRequest: DefaultTimeout,
			Socket:            DefaultTimeout,
		},
	}
}

// Validate reports every missing or out-of-range setting as a *common.ConfigurationError.
func (c DispatchConfig) Validate() error {
	cerr := &common.ConfigurationError{}

	if c.BotToken == "" {
		cerr.Add("no bot token set")
	}
	if c.ChatID == "" {
		cerr.Add("no chat id set")
	}
	if c.MaxMessageSize <= 0 {
		cerr.Add("bad max message size %d: must be positive", c.MaxMessageSize)
	}
	if c.MinInterval < 0 {
		cerr.Add("bad min interval %s: must not be negative", c.MinInterval)
	}
	if c.Timeouts.Connect < 0 {
		cerr.Add("bad connect timeout %s", c.Timeouts.Connect)
	}
	if c.Timeouts.ConnectionRequest < 0 {
		cerr.Add("bad connection request timeout %s", c.Timeouts.ConnectionRequest)
	}
	if c.Timeouts.Socket < 0 {
		cerr.Add("bad socket timeout %s", c.Timeouts.Socket)
	}

	return cerr.ErrOrNil()
}

// DispatchTask is the snapshot a background executor needs to deliver one message.
// It never references Gateway state.
type DispatchTask struct {
	Config  DispatchConfig
	Message string
}

// Event is a host-side occurrence to be formatted and forwarded, e.g. a log record.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Source  string         `json:"source,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}
