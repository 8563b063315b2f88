package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/underworlds/internal/assistant"
	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/imageurl"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Catalog *catalog.Catalog
	Images  *imageurl.Resolver
	Version string
}

// NewMCPServer creates an MCP server exposing the portfolio read-only.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"underworlds",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("underworlds: underwater photography portfolio. Read prints, journal stories and image URLs."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_prints",
			mcp.WithDescription("List the photographs in the portfolio, optionally filtered by category."),
			mcp.WithString("category", mcp.Description("One of: Limited Edition, Fine Art, Wildlife, Landscapes")),
		),
		mcpListPrints(deps),
	)

	s.AddTool(
		mcp.NewTool("get_print",
			mcp.WithDescription("Return one photograph with its full story and print details."),
			mcp.WithString("id", mcp.Description("Print id, e.g. p1"), mcp.Required()),
		),
		mcpGetPrint(deps),
	)

	s.AddTool(
		mcp.NewTool("list_stories",
			mcp.WithDescription("List journal stories with their excerpts."),
		),
		mcpListStories(deps),
	)

	s.AddTool(
		mcp.NewTool("image_url",
			mcp.WithDescription("Resolve an image identifier to a fetchable URL with optional resize hints."),
			mcp.WithString("id", mcp.Description("Image identifier"), mcp.Required()),
			mcp.WithNumber("width", mcp.Description("Target width in pixels")),
			mcp.WithNumber("height", mcp.Description("Target height in pixels")),
			mcp.WithNumber("quality", mcp.Description("Quality 1-100")),
			mcp.WithString("format", mcp.Description("auto, webp, avif, jpeg or png")),
		),
		mcpImageURL(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"catalog://prints",
			"Prints",
			mcp.WithResourceDescription("All prints in the portfolio as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePrints(deps),
	)

	return s
}

type printSummary struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Tagline  string           `json:"tagline"`
	Category catalog.Category `json:"category"`
	Price    string           `json:"price"`
	ImageURL string           `json:"image_url"`
}

func summarize(deps MCPDeps, p catalog.Product) printSummary {
	return printSummary{
		ID:       p.ID,
		Name:     p.Name,
		Tagline:  p.Tagline,
		Category: p.Category,
		Price:    assistant.FormatPrice(p.Price),
		ImageURL: deps.Images.URL(p.Image),
	}
}

func mcpListPrints(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		products := deps.Catalog.Products()
		if c := req.GetString("category", ""); c != "" {
			cat := catalog.Category(c)
			if !cat.Valid() {
				return mcpError(fmt.Sprintf("unknown category %q", c)), nil
			}
			products = deps.Catalog.ProductsByCategory(cat)
		}

		out := make([]printSummary, len(products))
		for i, p := range products {
			out[i] = summarize(deps, p)
		}
		return mcpJSON(out)
	}
}

func mcpGetPrint(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		p, ok := deps.Catalog.Product(id)
		if !ok {
			return mcpError(fmt.Sprintf("print %q not found", id)), nil
		}
		return mcpJSON(productView{Product: p, ImageURL: deps.Images.URL(p.Image)})
	}
}

func mcpListStories(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type story struct {
			ID      int    `json:"id"`
			Title   string `json:"title"`
			Date    string `json:"date"`
			Excerpt string `json:"excerpt"`
		}
		articles := deps.Catalog.Articles()
		out := make([]story, len(articles))
		for i, a := range articles {
			out[i] = story{ID: a.ID, Title: a.Title, Date: a.Date, Excerpt: a.Excerpt}
		}
		return mcpJSON(out)
	}
}

func mcpImageURL(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		opts := imageurl.Options{
			Width:   req.GetInt("width", 0),
			Height:  req.GetInt("height", 0),
			Quality: req.GetInt("quality", 0),
			Format:  req.GetString("format", ""),
		}
		if err := opts.Validate(); err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(deps.Images.Resolve(id, opts)), nil
	}
}

func mcpResourcePrints(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Catalog.Products())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal prints: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
