package hpack

// staticTable is the fixed 61-entry table defined by RFC 7541 Appendix A.
// Index 0 is unused; wire indices are 1-based.
var staticTable = [62]HeaderField{
	1:  {Key: ":authority"},
	2:  {Key: ":method", Value: "GET"},
	3:  {Key: ":method", Value: "POST"},
	4:  {Key: ":path", Value: "/"},
	5:  {Key: ":path", Value: "/index.html"},
	6:  {Key: ":scheme", Value: "http"},
	7:  {Key: ":scheme", Value: "https"},
	8:  {Key: ":status", Value: "200"},
	9:  {Key: ":status", Value: "204"},
	10: {Key: ":status", Value: "206"},
	11: {Key: ":status", Value: "304"},
	12: {Key: ":status", Value: "400"},
	13: {Key: ":status", Value: "404"},
	14: {Key: ":status", Value: "500"},
	15: {Key: "accept-charset"},
	16: {Key: "accept-encoding", Value: "gzip, deflate"},
	17: {Key: "accept-language"},
	18: {Key: "accept-ranges"},
	19: {Key: "accept"},
	20: {Key: "access-control-allow-origin"},
	21: {Key: "age"},
	22: {Key: "allow"},
	23: {Key: "authorization"},
	24: {Key: "cache-control"},
	25: {Key: "content-disposition"},
	26: {Key: "content-encoding"},
	27: {Key: "content-language"},
	28: {Key: "content-length"},
	29: {Key: "content-location"},
	30: {Key: "content-range"},
	31: {Key: "content-type"},
	32: {Key: "cookie"},
	33: {Key: "date"},
	34: {Key: "etag"},
	35: {Key: "expect"},
	36: {Key: "expires"},
	37: {Key: "from"},
	38: {Key: "host"},
	39: {Key: "if-match"},
	40: {Key: "if-modified-since"},
	41: {Key: "if-none-match"},
	42: {Key: "if-range"},
	43: {Key: "if-unmodified-since"},
	44: {Key: "last-modified"},
	45: {Key: "link"},
	46: {Key: "location"},
	47: {Key: "max-forwards"},
	48: {Key: "proxy-authenticate"},
	49: {Key: "proxy-authorization"},
	50: {Key: "range"},
	51: {Key: "referer"},
	52: {Key: "refresh"},
	53: {Key: "retry-after"},
	54: {Key: "server"},
	55: {Key: "set-cookie"},
	56: {Key: "strict-transport-security"},
	57: {Key: "transfer-encoding"},
	58: {Key: "user-agent"},
	59: {Key: "vary"},
	60: {Key: "via"},
	61: {Key: "www-authenticate"},
}

const staticTableLen = 61

// staticNameIndex maps a header name to the lowest static-table index
// that carries it, for encoding choices when no value match exists.
var staticNameIndex = func() map[string]int {
	m := make(map[string]int, staticTableLen)
	for i := 1; i <= staticTableLen; i++ {
		if _, ok := m[staticTable[i].Key]; !ok {
			m[staticTable[i].Key] = i
		}
	}
	return m
}()

// staticFullIndex maps "name\x00value" to its exact static-table index,
// for encoding choices that can use the stronger indexed representation.
var staticFullIndex = func() map[string]int {
	m := make(map[string]int, staticTableLen)
	for i := 1; i <= staticTableLen; i++ {
		m[staticTable[i].Key+"\x00"+staticTable[i].Value] = i
	}
	return m
}()
