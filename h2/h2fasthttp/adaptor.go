// Package h2fasthttp is the reference Application Host adaptor (spec
// §4.6): it lets an existing fasthttp.RequestHandler stand in as the
// external application the core bridges to, the same way the teacher's
// adaptor.go translates between its own Ctx and a fasthttp.RequestCtx,
// just retargeted from direct frame writes onto ASGI messages.
package h2fasthttp

import (
	"context"
	"strconv"

	"github.com/bimmerbailey/ladybug/h2/asgi"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

// Adaptor implements asgi.Host by running scope/body pairs through a
// plain fasthttp.RequestHandler.
type Adaptor struct {
	Handler fasthttp.RequestHandler
}

// New wraps h as an asgi.Host.
func New(h fasthttp.RequestHandler) *Adaptor {
	return &Adaptor{Handler: h}
}

// Dispatch implements asgi.Host.
func (a *Adaptor) Dispatch(ctx context.Context, scope asgi.Scope, inbound, outbound *asgi.Queue) {
	var body bytebufferpool.ByteBuffer
	for {
		msg, err := inbound.Pop(ctx)
		if err != nil {
			return
		}
		if msg.Type == asgi.TypeHTTPDisconnect {
			return
		}
		body.Write(msg.Body)
		if !msg.MoreBody {
			break
		}
	}

	rctx := new(fasthttp.RequestCtx)
	requestFromScope(scope, body.Bytes(), &rctx.Request)

	a.Handler(rctx)

	responseToOutbound(ctx, &rctx.Response, outbound)
}

// requestFromScope fills req the way the teacher's translateFromCtx
// builds a fasthttp.RequestCtx out of its own decoded Request/Header.
func requestFromScope(scope asgi.Scope, body []byte, req *fasthttp.Request) {
	req.Header.SetMethod(scope.Method)

	uri := scope.Path
	if scope.QueryString != "" {
		uri += "?" + scope.QueryString
	}
	req.SetRequestURI(uri)
	req.URI().SetScheme(scope.Scheme)
	if scope.HasAuthority {
		req.URI().SetHost(scope.Authority)
		req.Header.SetHost(scope.Authority)
	}

	for _, h := range scope.Headers {
		req.Header.Add(h.Name, h.Value)
	}

	if len(body) > 0 {
		req.SetBody(body)
	}
}

// responseToOutbound turns a fasthttp.Response into the http.response.*
// messages the bridge expects (spec §4.5): exactly one
// http.response.start, one http.response.body with more_body=false.
func responseToOutbound(ctx context.Context, res *fasthttp.Response, outbound *asgi.Queue) {
	status := res.StatusCode()
	if status == 0 {
		status = fasthttp.StatusOK
	}

	var headers []asgi.Header
	res.Header.VisitAll(func(k, v []byte) {
		headers = append(headers, asgi.Header{Name: string(k), Value: string(v)})
	})
	if cl := res.Header.ContentLength(); cl > 0 {
		headers = append(headers, asgi.Header{Name: "content-length", Value: strconv.Itoa(cl)})
	}

	_ = outbound.Push(ctx, asgi.Message{
		Type:    asgi.TypeHTTPResponseStart,
		Status:  status,
		Headers: headers,
	})
	_ = outbound.Push(ctx, asgi.Message{
		Type:     asgi.TypeHTTPResponseBody,
		Body:     res.Body(),
		MoreBody: false,
	})
}
