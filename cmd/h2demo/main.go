// Command h2demo wires the h2 engine, the h2fasthttp host adaptor, and
// fasthttp/router into a small HTTPS server, the same shape the
// teacher's examples/simple demonstrates for its own http2 package.
package main

import (
	"crypto/tls"
	"flag"
	"log"
	"net"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	http2 "github.com/bimmerbailey/ladybug/h2"
	"github.com/bimmerbailey/ladybug/h2/asgi"
	"github.com/bimmerbailey/ladybug/h2/h2fasthttp"
)

func main() {
	addr := flag.String("addr", "localhost:8443", "address to listen on")
	debug := flag.Bool("debug", false, "enable engine debug logging (peer GOAWAY)")
	flag.Parse()

	cert, err := generateSelfSignedCertificate(*addr)
	if err != nil {
		log.Fatalf("h2demo: generating certificate: %v", err)
	}

	r := router.New()
	r.GET("/", rootHandler)
	r.GET("/hello/{name}", helloHandler)
	r.POST("/echo", echoHandler)

	adaptor := h2fasthttp.New(r.Handler)

	tlsCfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2"},
	}

	ln, err := tls.Listen("tcp", *addr, tlsCfg)
	if err != nil {
		log.Fatalf("h2demo: listening on %s: %v", *addr, err)
	}
	log.Printf("h2demo: listening on https://%s", *addr)

	cfg := http2.NewConfig()
	cfg.Debug = *debug

	for {
		c, err := ln.Accept()
		if err != nil {
			log.Printf("h2demo: accept: %v", err)
			continue
		}
		go serveConn(c, adaptor, cfg)
	}
}

func serveConn(c net.Conn, adaptor *h2fasthttp.Adaptor, cfg *http2.Config) {
	defer c.Close()

	client := addrOf(c.RemoteAddr())
	server := addrOf(c.LocalAddr())

	bridge := asgi.NewBridge(adaptor, cfg, client, server)
	conn := http2.NewConn(c, cfg, bridge)

	if err := conn.Serve(); err != nil {
		log.Printf("h2demo: connection from %s ended: %v", client.Host, err)
	}
}

func addrOf(a net.Addr) asgi.Addr {
	host, portStr, err := net.SplitHostPort(a.String())
	if err != nil {
		return asgi.Addr{Host: a.String()}
	}
	port, _ := strconv.Atoi(portStr)
	return asgi.Addr{Host: host, Port: port}
}

func rootHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain")
	ctx.SetBodyString("h2demo: hello over HTTP/2\n")
}

func helloHandler(ctx *fasthttp.RequestCtx) {
	name := ctx.UserValue("name")
	ctx.SetContentType("text/plain")
	ctx.SetBodyString("hello, " + name.(string) + "\n")
}

func echoHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType(string(ctx.Request.Header.ContentType()))
	ctx.SetBody(ctx.PostBody())
}
