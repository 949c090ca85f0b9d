// CLAUDE:SUMMARY Registers the xmlprofile_* MCP tools — learn, check, diff, queries, cascade delete, unlink, stats.
package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/xmlprofile/doctree"
	"github.com/hazyhaar/xmlprofile/kit"
)

// RegisterMCP registers the profile tools on an MCP server.
func (p *Profile) RegisterMCP(srv *mcp.Server) {
	addTool(p, srv, "xmlprofile_learn",
		"Learn an XML document into the profile: elements, children, attribute names and values.",
		inputSchema(map[string]any{
			"xml":    map[string]any{"type": "string", "description": "XML document text"},
			"source": map[string]any{"type": "string", "description": "Label recorded in the ingestion log"},
		}, []string{"xml"}),
		func(ctx context.Context, r *learnRequest) (any, error) {
			doc, err := parseXML(r.XML)
			if err != nil {
				return nil, err
			}
			return p.Learn(ctx, doc, LearnOptions{Source: r.Source})
		})

	addTool(p, srv, "xmlprofile_check",
		"Check whether an XML document only uses known elements, edges and attribute names.",
		inputSchema(map[string]any{
			"xml": map[string]any{"type": "string", "description": "XML document text"},
		}, []string{"xml"}),
		func(ctx context.Context, r *xmlRequest) (any, error) {
			doc, err := parseXML(r.XML)
			if err != nil {
				return nil, err
			}
			ok, err := p.Check(ctx, doc)
			if err != nil {
				return nil, err
			}
			return map[string]bool{"compatible": ok}, nil
		})

	addTool(p, srv, "xmlprofile_diff",
		"List every unknown element, parent/child edge and attribute name used by an XML document.",
		inputSchema(map[string]any{
			"xml": map[string]any{"type": "string", "description": "XML document text"},
		}, []string{"xml"}),
		func(ctx context.Context, r *xmlRequest) (any, error) {
			doc, err := parseXML(r.XML)
			if err != nil {
				return nil, err
			}
			return p.Diff(ctx, doc)
		})

	addTool(p, srv, "xmlprofile_elements", "List known element names.",
		inputSchema(map[string]any{}, nil),
		func(ctx context.Context, _ *struct{}) (any, error) {
			return p.KnownElements(ctx)
		})

	addTool(p, srv, "xmlprofile_children", "List the known children of an element.",
		inputSchema(map[string]any{
			"element": map[string]any{"type": "string"},
		}, []string{"element"}),
		func(ctx context.Context, r *elementRequest) (any, error) {
			return p.ChildrenOf(ctx, r.Element)
		})

	addTool(p, srv, "xmlprofile_attributes", "List the known attribute names of an element.",
		inputSchema(map[string]any{
			"element": map[string]any{"type": "string"},
		}, []string{"element"}),
		func(ctx context.Context, r *elementRequest) (any, error) {
			return p.AttributesOf(ctx, r.Element)
		})

	addTool(p, srv, "xmlprofile_values", "List the known values of an attribute on an element.",
		inputSchema(map[string]any{
			"element":   map[string]any{"type": "string"},
			"attribute": map[string]any{"type": "string"},
		}, []string{"element", "attribute"}),
		func(ctx context.Context, r *valuesRequest) (any, error) {
			return p.ValuesOf(ctx, r.Element, r.Attribute)
		})

	addTool(p, srv, "xmlprofile_roots", "List element names seen as document roots.",
		inputSchema(map[string]any{}, nil),
		func(ctx context.Context, _ *struct{}) (any, error) {
			return p.KnownRoots(ctx)
		})

	addTool(p, srv, "xmlprofile_delete_element",
		"Delete an element and everything only it references (cascade).",
		inputSchema(map[string]any{
			"element": map[string]any{"type": "string"},
		}, []string{"element"}),
		func(ctx context.Context, r *elementRequest) (any, error) {
			if r.Element == "" {
				return nil, errors.New("element is required")
			}
			return p.CascadeDelete(ctx, r.Element)
		})

	addTool(p, srv, "xmlprofile_unlink_child",
		"Remove a parent/child edge; the child is deleted only if nothing else references it.",
		inputSchema(map[string]any{
			"parent": map[string]any{"type": "string"},
			"child":  map[string]any{"type": "string"},
		}, []string{"parent", "child"}),
		func(ctx context.Context, r *unlinkRequest) (any, error) {
			if r.Parent == "" || r.Child == "" {
				return nil, errors.New("parent and child are required")
			}
			return p.UnlinkChild(ctx, r.Parent, r.Child)
		})

	addTool(p, srv, "xmlprofile_stats", "Count elements, attribute records, roots and ingestions.",
		inputSchema(map[string]any{}, nil),
		func(ctx context.Context, _ *struct{}) (any, error) {
			return p.Stats(ctx)
		})
}

type learnRequest struct {
	XML    string `json:"xml"`
	Source string `json:"source,omitempty"`
}

type xmlRequest struct {
	XML string `json:"xml"`
}

type elementRequest struct {
	Element string `json:"element"`
}

type valuesRequest struct {
	Element   string `json:"element"`
	Attribute string `json:"attribute"`
}

type unlinkRequest struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// addTool wires fn as an MCP tool behind the logging middleware.
func addTool[T any](p *Profile, srv *mcp.Server, name, desc string, schema map[string]any, fn func(context.Context, *T) (any, error)) {
	endpoint := kit.Chain(kit.Logging(p.logger, name))(func(ctx context.Context, req any) (any, error) {
		return fn(ctx, req.(*T))
	})
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        name,
		Description: desc,
		InputSchema: schema,
	}, endpoint, kit.DecodeJSON[T]())
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func parseXML(text string) (*doctree.Element, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("xml is required")
	}
	return doctree.ParseString(text)
}
