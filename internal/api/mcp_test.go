package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/imageurl"
)

// --- helpers ---

func newTestMCPDeps() MCPDeps {
	return MCPDeps{
		Catalog: catalog.Default(),
		Images:  imageurl.New("https://media.example.com"),
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_ListPrints(t *testing.T) {
	handler := mcpListPrints(newTestMCPDeps())

	result, err := handler(context.Background(), makeCallToolRequest("list_prints", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var prints []printSummary
	if err := json.Unmarshal([]byte(toolText(t, result)), &prints); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(prints) != 6 {
		t.Fatalf("expected 6 prints, got %d", len(prints))
	}
	if prints[0].ID != "p1" {
		t.Errorf("first print = %s, want p1", prints[0].ID)
	}
	if !strings.HasPrefix(prints[0].ImageURL, "https://media.example.com/") {
		t.Errorf("image_url = %s, want CDN URL", prints[0].ImageURL)
	}
	if prints[0].Price != "$0" {
		t.Errorf("price = %s, want $0", prints[0].Price)
	}
}

func TestMCPTool_ListPrints_Category(t *testing.T) {
	handler := mcpListPrints(newTestMCPDeps())

	result, err := handler(context.Background(), makeCallToolRequest("list_prints", map[string]interface{}{
		"category": "Fine Art",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var prints []printSummary
	if err := json.Unmarshal([]byte(toolText(t, result)), &prints); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(prints) != 1 {
		t.Fatalf("expected 1 Fine Art print, got %d", len(prints))
	}
	if prints[0].Category != catalog.FineArt {
		t.Errorf("category = %s", prints[0].Category)
	}
}

func TestMCPTool_ListPrints_UnknownCategory(t *testing.T) {
	handler := mcpListPrints(newTestMCPDeps())

	result, err := handler(context.Background(), makeCallToolRequest("list_prints", map[string]interface{}{
		"category": "Portraits",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for unknown category")
	}
}

func TestMCPTool_GetPrint(t *testing.T) {
	handler := mcpGetPrint(newTestMCPDeps())

	result, err := handler(context.Background(), makeCallToolRequest("get_print", map[string]interface{}{
		"id": "p2",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var p productView
	if err := json.Unmarshal([]byte(toolText(t, result)), &p); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if p.ID != "p2" || p.LongDescription == "" || len(p.Features) == 0 {
		t.Errorf("unexpected print: %+v", p)
	}
}

func TestMCPTool_GetPrint_Missing(t *testing.T) {
	handler := mcpGetPrint(newTestMCPDeps())

	result, _ := handler(context.Background(), makeCallToolRequest("get_print", map[string]interface{}{
		"id": "p99",
	}))
	if !result.IsError {
		t.Fatal("expected error result for unknown id")
	}

	result, _ = handler(context.Background(), makeCallToolRequest("get_print", nil))
	if !result.IsError {
		t.Fatal("expected error result for missing id")
	}
}

func TestMCPTool_ListStories(t *testing.T) {
	handler := mcpListStories(newTestMCPDeps())

	result, err := handler(context.Background(), makeCallToolRequest("list_stories", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stories []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &stories); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(stories) != 3 {
		t.Fatalf("expected 3 stories, got %d", len(stories))
	}
	for _, s := range stories {
		if s.Title == "" {
			t.Errorf("story %d has no title", s.ID)
		}
	}
}

func TestMCPTool_ImageURL(t *testing.T) {
	handler := mcpImageURL(newTestMCPDeps())

	result, err := handler(context.Background(), makeCallToolRequest("image_url", map[string]interface{}{
		"id":     "DSC00670.JPG",
		"width":  800,
		"format": "webp",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://media.example.com/cdn-cgi/image/width=800,format=webp/DSC00670.JPG"
	if got := toolText(t, result); got != want {
		t.Errorf("url = %s, want %s", got, want)
	}
}

func TestMCPTool_ImageURL_Invalid(t *testing.T) {
	handler := mcpImageURL(newTestMCPDeps())

	result, _ := handler(context.Background(), makeCallToolRequest("image_url", map[string]interface{}{
		"id":      "DSC00670.JPG",
		"quality": 150,
	}))
	if !result.IsError {
		t.Fatal("expected error result for quality out of range")
	}
}

func TestMCPResource_Prints(t *testing.T) {
	handler := mcpResourcePrints(newTestMCPDeps())

	contents, err := handler(context.Background(), makeReadResourceRequest("catalog://prints"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "catalog://prints" {
		t.Errorf("URI = %s", tc.URI)
	}

	var products []catalog.Product
	if err := json.Unmarshal([]byte(tc.Text), &products); err != nil {
		t.Fatalf("failed to parse prints JSON: %v", err)
	}
	if len(products) != 6 {
		t.Fatalf("expected 6 prints, got %d", len(products))
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps := newTestMCPDeps()
	listHandler := mcpListPrints(deps)
	getHandler := mcpGetPrint(deps)

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = listHandler(context.Background(), makeCallToolRequest("list_prints", nil))
			} else {
				_, err = getHandler(context.Background(), makeCallToolRequest("get_print", map[string]interface{}{"id": "p1"}))
			}
			if err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
}

func TestNewMCPServer(t *testing.T) {
	if s := NewMCPServer(newTestMCPDeps()); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
