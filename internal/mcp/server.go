// Package mcp exposes the lookup pipeline over the Model Context
// Protocol so agents can identify and browse Pokémon through the same
// client the interactive shell uses.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/rotomdex/internal/api"
	"github.com/kalambet/rotomdex/internal/capture"
	"github.com/kalambet/rotomdex/internal/history"
	"github.com/kalambet/rotomdex/internal/pokedex"
)

// Backend abstracts the lookup API for the MCP layer.
type Backend interface {
	Analyze(ctx context.Context, img api.Image, topN int) (pokedex.AnalysisResult, error)
	FetchPokemon(ctx context.Context, id int) (pokedex.Pokemon, error)
	FetchAllPokemon(ctx context.Context) ([]pokedex.Pokemon, error)
}

// Deps holds dependencies for the MCP server.
type Deps struct {
	Backend Backend
	History *history.Store // optional; if nil, identifications are not recorded
}

// NewServer creates an MCP server with all rotomdex tools and resources
// registered.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"rotomdex",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("rotomdex — identify Pokémon from images and browse the Pokédex."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("identify_pokemon",
			mcp.WithDescription("Identify the Pokémon in an image file and return ranked matches with similarity percentages."),
			mcp.WithString("path", mcp.Description("Path to a JPEG, PNG, or WebP image"), mcp.Required()),
			mcp.WithNumber("top_n", mcp.Description("Number of matches to return (1-10, default 3)")),
		),
		mcpIdentify(deps),
	)

	s.AddTool(
		mcp.NewTool("get_pokemon",
			mcp.WithDescription("Fetch the full Pokédex record for a Pokémon by its National Dex number."),
			mcp.WithNumber("id", mcp.Description("National Dex number"), mcp.Required()),
		),
		mcpGetPokemon(deps),
	)

	s.AddTool(
		mcp.NewTool("search_pokedex",
			mcp.WithDescription("Search the Pokédex by name or type substring."),
			mcp.WithString("query", mcp.Description("Case-insensitive name or type fragment"), mcp.Required()),
		),
		mcpSearchPokedex(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"rotomdex://history",
			"Identification History",
			mcp.WithResourceDescription("Recent identifications, newest first, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	return s
}

func mcpIdentify(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}

		topN := req.GetInt("top_n", 3)

		img, err := capture.FromFile(path)
		if err != nil {
			return mcpError(fmt.Sprintf("cannot use %s: %v", path, err)), nil
		}

		result, err := deps.Backend.Analyze(ctx, img.APIImage(), topN)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		views := pokedex.ViewsFromResult(result)

		if deps.History != nil && len(views) > 0 {
			entry := history.Entry{
				ID:          uuid.New().String(),
				PokemonName: views[0].Name,
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
				PreviewPath: img.PreviewPath,
				Matches:     views,
			}
			// Recording is best effort; the identification already succeeded.
			_ = deps.History.Add(entry)
		}

		b, err := json.Marshal(views)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal matches: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetPokemon(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetInt("id", 0)
		if id <= 0 {
			return mcpError("id must be a positive National Dex number"), nil
		}

		p, err := deps.Backend.FetchPokemon(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}

		b, err := json.Marshal(p)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal pokemon: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchPokedex(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		query = strings.ToLower(strings.TrimSpace(query))
		if query == "" {
			return mcpError("query is required"), nil
		}

		list, err := deps.Backend.FetchAllPokemon(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing failed: %v", err)), nil
		}

		var hits []pokedex.Pokemon
		for _, p := range list {
			if matchesQuery(p, query) {
				hits = append(hits, p)
			}
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })

		if len(hits) == 0 {
			return mcpText("[]"), nil
		}
		b, err := json.Marshal(hits)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func matchesQuery(p pokedex.Pokemon, query string) bool {
	if strings.Contains(strings.ToLower(p.Name), query) {
		return true
	}
	for _, t := range p.Types {
		if strings.Contains(strings.ToLower(t), query) {
			return true
		}
	}
	return false
}

func mcpResourceHistory(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var entries []history.Entry
		if deps.History != nil {
			entries = deps.History.Entries()
		}
		if entries == nil {
			entries = []history.Entry{}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
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
