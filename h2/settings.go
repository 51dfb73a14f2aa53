package http2

import "github.com/bimmerbailey/ladybug/h2/http2utils"

// SettingID identifies a SETTINGS parameter
// (https://httpwg.org/specs/rfc7540.html#SettingsParameters).
type SettingID uint16

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
	SettingMaxFrameSize         SettingID = 0x5
	SettingMaxHeaderListSize    SettingID = 0x6
)

// Default values per §6.5.2, used both to initialize a connection's view
// of its peer's settings and to validate incoming values.
const (
	DefaultHeaderTableSize      = 4096
	DefaultEnablePush           = 1
	DefaultMaxConcurrentStreams = 0xffffffff // unbounded unless set
	DefaultInitialWindowSize    = 65535
	DefaultMaxHeaderListSize    = 0xffffffff // unbounded unless set

	maxWindowSize  = 1<<31 - 1
	minMaxFrameSize = 1 << 14
	maxMaxFrameSize = 1<<24 - 1
)

// settingPair is one 6-byte (id, value) entry in a SETTINGS frame's
// payload.
type settingPair struct {
	id    SettingID
	value uint32
}

// Settings is the SETTINGS frame. A zero-length, non-ACK Settings is a
// valid "no changes" frame; the ACK flag marks acknowledgement of a
// peer's SETTINGS rather than carrying any parameters itself.
type Settings struct {
	ack     bool
	entries []settingPair
}

func (s *Settings) Type() FrameType { return FrameSettings }

func (s *Settings) Reset() {
	s.ack = false
	s.entries = s.entries[:0]
}

func (s *Settings) IsAck() bool    { return s.ack }
func (s *Settings) SetAck(v bool) { s.ack = v }

// Add appends a parameter to write; it does not deduplicate; repeated
// ids should follow "last one wins" per §6.5, mirrored by Each
// visiting entries in wire order and callers keeping the last value seen.
func (s *Settings) Add(id SettingID, value uint32) {
	s.entries = append(s.entries, settingPair{id, value})
}

// Each calls fn once per (id, value) pair in wire order.
func (s *Settings) Each(fn func(id SettingID, value uint32)) {
	for _, e := range s.entries {
		fn(e.id, e.value)
	}
}

// Len reports how many parameters this frame carries.
func (s *Settings) Len() int { return len(s.entries) }

func (s *Settings) Deserialize(fh *FrameHeader) error {
	s.ack = fh.Flags().Has(FlagAck)

	if s.ack {
		if len(fh.payload) != 0 {
			return NewConnError(FrameSizeError, "SETTINGS: ACK frame must be empty")
		}
		return nil
	}

	if len(fh.payload)%6 != 0 {
		return NewConnError(FrameSizeError, "SETTINGS: payload must be a multiple of 6 bytes")
	}
	if fh.Stream() != 0 {
		return NewConnError(ProtocolError, "SETTINGS: must be sent on stream 0")
	}

	for i := 0; i+6 <= len(fh.payload); i += 6 {
		id := SettingID(fh.payload[i])<<8 | SettingID(fh.payload[i+1])
		value := http2utils.BytesToUint32(fh.payload[i+2 : i+6])

		if err := validateSetting(id, value); err != nil {
			return err
		}

		s.entries = append(s.entries, settingPair{id, value})
	}
	return nil
}

func validateSetting(id SettingID, value uint32) error {
	switch id {
	case SettingEnablePush:
		if value > 1 {
			return NewConnError(ProtocolError, "SETTINGS_ENABLE_PUSH must be 0 or 1")
		}
	case SettingInitialWindowSize:
		if value > maxWindowSize {
			return NewConnError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE exceeds maximum")
		}
	case SettingMaxFrameSize:
		if value < minMaxFrameSize || value > maxMaxFrameSize {
			return NewConnError(ProtocolError, "SETTINGS_MAX_FRAME_SIZE out of range")
		}
	}
	return nil
}

func (s *Settings) Serialize(fh *FrameHeader) {
	if s.ack {
		fh.flags = fh.flags.Add(FlagAck)
		fh.payload = fh.payload[:0]
		return
	}

	fh.payload = http2utils.Resize(fh.payload[:0], len(s.entries)*6)
	for i, e := range s.entries {
		off := i * 6
		fh.payload[off] = byte(e.id >> 8)
		fh.payload[off+1] = byte(e.id)
		http2utils.Uint32ToBytes(fh.payload[off+2:off+6], e.value)
	}
}
