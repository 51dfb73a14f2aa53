package asgi

import (
	"strings"

	http2 "github.com/bimmerbailey/ladybug/h2"
)

// Addr is a minimal (host, port) pair; the bridge fills this in from the
// connection's net.Conn so scope.go doesn't need to import net itself.
type Addr struct {
	Host string
	Port int
}

// Scope is the ASGI "http" connection scope built once per stream, from
// its first completed header block (spec §4.5).
type Scope struct {
	Type         string
	HTTPVersion  string
	Method       string
	Scheme       string
	Path         string
	QueryString  string
	Authority    string
	HasAuthority bool
	Headers      []Header
	Client       Addr
	Server       Addr

	// StreamID is a deliberate, non-standard extension; only populated
	// when Config.ExposeStreamID is on.
	StreamID    uint32
	HasStreamID bool
}

// BuildScope validates and converts a decoded header block into a Scope.
// Returns an error (always a stream-level PROTOCOL_ERROR per spec §4.5)
// on any pseudo-header violation.
func BuildScope(fields []http2.HeaderField, client, server Addr, streamID uint32, exposeStreamID bool) (Scope, error) {
	var ps pseudoHeaders
	seenRegular := false
	headers := make([]Header, 0, len(fields))

	for _, f := range fields {
		name := f.Name
		if len(name) > 0 && name[0] == ':' {
			if seenRegular {
				return Scope{}, http2.NewStreamError(http2.ProtocolError, "pseudo-header after regular header")
			}
			switch name {
			case ":method":
				if ps.haveMethod {
					return Scope{}, http2.NewStreamError(http2.ProtocolError, "duplicate :method")
				}
				ps.method, ps.haveMethod = f.Value, true
			case ":scheme":
				if ps.haveScheme {
					return Scope{}, http2.NewStreamError(http2.ProtocolError, "duplicate :scheme")
				}
				ps.scheme, ps.haveScheme = f.Value, true
			case ":path":
				if ps.havePath {
					return Scope{}, http2.NewStreamError(http2.ProtocolError, "duplicate :path")
				}
				ps.path, ps.havePath = f.Value, true
			case ":authority":
				if ps.haveAuthority {
					return Scope{}, http2.NewStreamError(http2.ProtocolError, "duplicate :authority")
				}
				ps.authority, ps.haveAuthority = f.Value, true
			default:
				return Scope{}, http2.NewStreamError(http2.ProtocolError, "unknown pseudo-header "+name)
			}
			continue
		}

		seenRegular = true
		headers = append(headers, Header{Name: strings.ToLower(name), Value: f.Value})
	}

	if !ps.isValid() {
		return Scope{}, http2.NewStreamError(http2.ProtocolError, "missing or empty required pseudo-header")
	}

	path, query := splitPath(ps.path)

	sc := Scope{
		Type:         "http",
		HTTPVersion:  "2",
		Method:       ps.method,
		Scheme:       ps.scheme,
		Path:         path,
		QueryString:  query,
		Authority:    ps.authority,
		HasAuthority: ps.haveAuthority,
		Headers:      headers,
		Client:       client,
		Server:       server,
	}
	if exposeStreamID {
		sc.StreamID, sc.HasStreamID = streamID, true
	}
	return sc, nil
}

// splitPath divides a :path pseudo-header value on its first '?', per
// spec §4.5 step 2.
func splitPath(raw string) (path, query string) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}
