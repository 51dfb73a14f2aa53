package asgi

import (
	"testing"

	http2 "github.com/bimmerbailey/ladybug/h2"
	"github.com/stretchr/testify/require"
)

func TestBuildScopeSplitsPathAndQuery(t *testing.T) {
	fields := []http2.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: "/widgets?color=red&limit=10"},
		{Name: ":authority", Value: "api.example.test"},
		{Name: "accept", Value: "application/json"},
	}

	sc, err := BuildScope(fields, Addr{Host: "10.0.0.1", Port: 51000}, Addr{Host: "10.0.0.2", Port: 443}, 1, false)
	require.NoError(t, err)

	require.Equal(t, "http", sc.Type)
	require.Equal(t, "2", sc.HTTPVersion)
	require.Equal(t, "GET", sc.Method)
	require.Equal(t, "https", sc.Scheme)
	require.Equal(t, "/widgets", sc.Path)
	require.Equal(t, "color=red&limit=10", sc.QueryString)
	require.True(t, sc.HasAuthority)
	require.Equal(t, "api.example.test", sc.Authority)
	require.False(t, sc.HasStreamID)
	require.Len(t, sc.Headers, 1)
	require.Equal(t, "accept", sc.Headers[0].Name)
}

func TestBuildScopeExposesStreamIDWhenEnabled(t *testing.T) {
	fields := []http2.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: "/"},
	}
	sc, err := BuildScope(fields, Addr{}, Addr{}, 7, true)
	require.NoError(t, err)
	require.True(t, sc.HasStreamID)
	require.Equal(t, uint32(7), sc.StreamID)
}

func TestBuildScopeRejectsMissingMethod(t *testing.T) {
	fields := []http2.HeaderField{
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: "/"},
	}
	_, err := BuildScope(fields, Addr{}, Addr{}, 1, false)
	require.Error(t, err)
}

func TestBuildScopeRejectsUnknownPseudoHeader(t *testing.T) {
	fields := []http2.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: "/"},
		{Name: ":bogus", Value: "x"},
	}
	_, err := BuildScope(fields, Addr{}, Addr{}, 1, false)
	require.Error(t, err)
}

func TestBuildScopeRejectsPseudoAfterRegular(t *testing.T) {
	fields := []http2.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: "accept", Value: "*/*"},
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: "/"},
	}
	_, err := BuildScope(fields, Addr{}, Addr{}, 1, false)
	require.Error(t, err)
}

func TestBuildScopeRejectsDuplicatePseudoHeader(t *testing.T) {
	fields := []http2.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":method", Value: "POST"},
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: "/"},
	}
	_, err := BuildScope(fields, Addr{}, Addr{}, 1, false)
	require.Error(t, err)
}
