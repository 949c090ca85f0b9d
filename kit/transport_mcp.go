package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/xmlprofile/idgen"
)

// MCPDecodeResult holds the decoded request and an optional context enrichment.
type MCPDecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// MCPDecoder turns raw tool arguments into an endpoint request.
type MCPDecoder func(*mcp.CallToolRequest) (*MCPDecodeResult, error)

// DecodeJSON returns a decoder that unmarshals the arguments into a fresh *T.
// Absent arguments leave T at its zero value.
func DecodeJSON[T any]() MCPDecoder {
	return func(req *mcp.CallToolRequest) (*MCPDecodeResult, error) {
		v := new(T)
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
		}
		return &MCPDecodeResult{Request: v}, nil
	}
}

// mcpRequestID tags every tool call so its log lines can be correlated.
var mcpRequestID = idgen.Prefixed("mcp_", idgen.Default)

// RegisterMCPTool exposes endpoint as an MCP tool. Decode failures and
// endpoint errors come back as tool errors (IsError), never as protocol
// errors; a successful response is JSON in a single text content.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode MCPDecoder) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		ctx = WithRequestID(WithTransport(ctx, TransportMCP), mcpRequestID())
		if decoded.EnrichCtx != nil {
			ctx = decoded.EnrichCtx(ctx)
		}
		return toolResult(endpoint(ctx, decoded.Request)), nil
	})
}

func toolResult(resp any, err error) *mcp.CallToolResult {
	if err != nil {
		return toolError(err)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return toolError(fmt.Errorf("marshal: %w", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

func toolError(err error) *mcp.CallToolResult {
	res := &mcp.CallToolResult{}
	res.SetError(err)
	return res
}
