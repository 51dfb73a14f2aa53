package http2

// Logger is the minimal structured-logging surface the engine needs,
// matching fasthttp's Logger interface so a Config can be handed an
// existing fasthttp.Server's logger directly.
type Logger interface {
	Printf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...interface{}) {}
