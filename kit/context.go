package kit

import "context"

// Transports reported by GetTransport.
const (
	TransportCLI  = "cli"
	TransportHTTP = "http"
	TransportMCP  = "mcp"
)

type callInfoKey struct{}

// callInfo describes how the current call reached an endpoint.
type callInfo struct {
	transport string
	requestID string
}

func infoFrom(ctx context.Context) callInfo {
	ci, _ := ctx.Value(callInfoKey{}).(callInfo)
	return ci
}

// WithTransport records the transport of the current call.
func WithTransport(ctx context.Context, t string) context.Context {
	ci := infoFrom(ctx)
	ci.transport = t
	return context.WithValue(ctx, callInfoKey{}, ci)
}

// GetTransport returns the recorded transport, TransportCLI by default.
func GetTransport(ctx context.Context) string {
	if t := infoFrom(ctx).transport; t != "" {
		return t
	}
	return TransportCLI
}

// WithRequestID records the request ID of the current call.
func WithRequestID(ctx context.Context, id string) context.Context {
	ci := infoFrom(ctx)
	ci.requestID = id
	return context.WithValue(ctx, callInfoKey{}, ci)
}

// GetRequestID returns the recorded request ID, or "".
func GetRequestID(ctx context.Context) string {
	return infoFrom(ctx).requestID
}
