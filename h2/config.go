package http2

import "time"

// Config tunes a connection's engine. The zero value is not ready to
// use; call NewConfig or fill in every field yourself and call
// (*Config).normalize.
type Config struct {
	// MaxConcurrentStreams bounds peer-initiated open streams
	// (SETTINGS_MAX_CONCURRENT_STREAMS advertised to the peer).
	MaxConcurrentStreams uint32

	// MaxFrameSize bounds the payload size this connection accepts
	// (SETTINGS_MAX_FRAME_SIZE advertised to the peer). Must be within
	// [2^14, 2^24-1].
	MaxFrameSize uint32

	// InitialWindowSize is the starting per-stream flow-control window
	// this connection advertises (SETTINGS_INITIAL_WINDOW_SIZE).
	InitialWindowSize uint32

	// HeaderTableSize bounds this connection's HPACK dynamic table for
	// decoding the peer's header blocks (SETTINGS_HEADER_TABLE_SIZE).
	HeaderTableSize uint32

	// IdleTimeout closes the connection if no frame is received for
	// this long; zero disables the check. Mirrors the teacher's PING
	// keepalive / idle-close behavior.
	IdleTimeout time.Duration

	// HandshakeTimeout closes the connection if the client's SETTINGS
	// frame does not arrive within this long of Serve starting to read
	// the preface.
	HandshakeTimeout time.Duration

	// PingInterval, if non-zero, causes the engine to send a PING on an
	// otherwise-idle connection (no frame received for a full interval)
	// to detect a dead peer proactively, closing the connection if that
	// PING is still unacknowledged at the next interval.
	PingInterval time.Duration

	// ExposeStreamID controls whether the ASGI scope built for each
	// request carries a "stream_id" entry. Off by default since it is
	// a deliberate, non-standard ASGI extension.
	ExposeStreamID bool

	// Logger receives diagnostic output; defaults to a no-op logger.
	Logger Logger

	// Debug enables diagnostic logging through Logger, mirroring the
	// teacher's ServerConfig.Debug flag. The engine's one such log line
	// reports a GOAWAY received from the peer.
	Debug bool
}

// NewConfig returns a Config with every RFC-mandated default filled in.
func NewConfig() *Config {
	cfg := &Config{
		MaxConcurrentStreams: 250,
		MaxFrameSize:         DefaultMaxFrameSize,
		InitialWindowSize:    DefaultInitialWindowSize,
		HeaderTableSize:      DefaultDynamicTableSizeAlias,
		IdleTimeout:          5 * time.Minute,
		HandshakeTimeout:     10 * time.Second,
		PingInterval:         30 * time.Second,
	}
	cfg.normalize()
	return cfg
}

// DefaultDynamicTableSizeAlias mirrors hpack.DefaultDynamicTableSize
// without importing the hpack package from this file, since config.go is
// meant to stay a plain value-holder other packages can read fields off
// of without pulling in the codec.
const DefaultDynamicTableSizeAlias = 4096

func (c *Config) normalize() {
	if c.MaxFrameSize < minMaxFrameSize {
		c.MaxFrameSize = minMaxFrameSize
	}
	if c.MaxFrameSize > maxMaxFrameSize {
		c.MaxFrameSize = maxMaxFrameSize
	}
	if c.InitialWindowSize > maxWindowSize {
		c.InitialWindowSize = maxWindowSize
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}
