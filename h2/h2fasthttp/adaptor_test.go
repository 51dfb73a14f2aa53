package h2fasthttp

import (
	"context"
	"testing"

	"github.com/bimmerbailey/ladybug/h2/asgi"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestAdaptorDispatchesToFasthttpHandler(t *testing.T) {
	var sawMethod, sawPath string
	var sawBody []byte

	handler := func(rctx *fasthttp.RequestCtx) {
		sawMethod = string(rctx.Method())
		sawPath = string(rctx.Path())
		sawBody = append([]byte(nil), rctx.PostBody()...)
		rctx.SetStatusCode(fasthttp.StatusCreated)
		rctx.SetContentType("text/plain")
		rctx.SetBodyString("ok")
	}

	a := New(handler)

	scope := asgi.Scope{
		Type:        "http",
		HTTPVersion: "2",
		Method:      "POST",
		Scheme:      "https",
		Path:        "/items",
		QueryString: "x=1",
	}

	inbound := asgi.NewQueue(4)
	outbound := asgi.NewQueue(4)
	ctx := context.Background()

	require.NoError(t, inbound.Push(ctx, asgi.Message{Type: asgi.TypeHTTPRequest, Body: []byte("payload"), MoreBody: false}))
	inbound.Close()

	a.Dispatch(ctx, scope, inbound, outbound)

	require.Equal(t, "POST", sawMethod)
	require.Equal(t, "/items", sawPath)
	require.Equal(t, "payload", string(sawBody))

	start, err := outbound.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, asgi.TypeHTTPResponseStart, start.Type)
	require.Equal(t, fasthttp.StatusCreated, start.Status)

	body, err := outbound.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, asgi.TypeHTTPResponseBody, body.Type)
	require.Equal(t, "ok", string(body.Body))
	require.False(t, body.MoreBody)
}
