package asgi

// pseudoHeaders tracks the four HTTP/2 request pseudo-headers as they are
// collected off the decoded header block, in the order RFC 7540 §8.1.2.3
// names them.
type pseudoHeaders struct {
	method    string
	scheme    string
	path      string
	authority string

	haveMethod    bool
	haveScheme    bool
	havePath      bool
	haveAuthority bool
}

// isValid reports whether {method, scheme, path} are all present and none
// of the four carry an empty value (authority may legitimately be
// absent).
func (p pseudoHeaders) isValid() bool {
	if !p.haveMethod || p.method == "" {
		return false
	}
	if !p.haveScheme || p.scheme == "" {
		return false
	}
	if !p.havePath || p.path == "" {
		return false
	}
	if p.haveAuthority && p.authority == "" {
		return false
	}
	return true
}
