// Package tools resolves an assistant's enabled tool names into a uniform
// name -> {definition, executor} set. Every entry is treated identically by
// the completion orchestrator regardless of origin (MCP tool, web-search
// tool, provider built-in).
package tools

import (
	"context"
	"converse-backend/config"
	"converse-backend/utils"
	"fmt"
	"net/http"

	mcpadapter "github.com/i2y/langchaingo-mcp-adapter"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tmc/langchaingo/llms"
)

// WebSearchToolName is the registry entry forced when agent web search is
// requested.
const WebSearchToolName = "web_search"

var mcpHTTPClient *http.Client = utils.DefaultHTTPClient()

type Executor func(ctx context.Context, input string) (string, error)

// Set is the resolved tool set for one completion.
type Set struct {
	defs []llms.Tool
	exec map[string]Executor
}

func NewSet() *Set {
	return &Set{exec: make(map[string]Executor)}
}

func (s *Set) Add(def llms.Tool, exec Executor) {
	s.defs = append(s.defs, def)
	s.exec[def.Function.Name] = exec
}

func (s *Set) Defs() []llms.Tool {
	return s.defs
}

func (s *Set) Len() int {
	return len(s.defs)
}

func (s *Set) Has(name string) bool {
	_, ok := s.exec[name]
	return ok
}

func (s *Set) Execute(ctx context.Context, name, input string) (string, error) {
	exec, ok := s.exec[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return exec(ctx, input)
}

// Registry holds one MCP connection for the duration of a completion.
type Registry struct {
	mcpClient *client.Client
}

func NewRegistry(ctx context.Context, authorization string) (*Registry, error) {
	mcpServerPath := fmt.Sprintf("http://%s:%s/mcp", config.Cfg.MCP.Host, config.Cfg.MCP.Port)
	mcpClient, err := client.NewStreamableHttpClient(mcpServerPath,
		transport.WithHTTPBasicClient(mcpHTTPClient),
		transport.WithHTTPHeaders(map[string]string{
			"Authorization": authorization,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp client: %v", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to init connection to the mcp server: %v", err)
	}

	return &Registry{mcpClient: mcpClient}, nil
}

// Resolve returns the subset of server tools the assistant has enabled.
// Definitions come from the server's listing (name, description, input
// schema); execution goes through the langchaingo adapter so content
// conversion matches what the server emits.
func (r *Registry) Resolve(ctx context.Context, toolNames []string) (*Set, error) {
	set := NewSet()
	if len(toolNames) == 0 {
		return set, nil
	}

	enabled := make(map[string]bool)
	for _, name := range toolNames {
		enabled[name] = true
	}

	listing, err := r.mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list mcp tools: %v", err)
	}

	adapter, err := mcpadapter.New(r.mcpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp adapter: %v", err)
	}

	adapterTools, err := adapter.Tools()
	if err != nil {
		return nil, fmt.Errorf("failed to get mcp tools: %v", err)
	}

	executors := make(map[string]Executor)
	for _, tool := range adapterTools {
		tool := tool
		executors[tool.Name()] = tool.Call
	}

	for _, tool := range listing.Tools {
		if !enabled[tool.Name] {
			continue
		}
		exec, ok := executors[tool.Name]
		if !ok {
			continue
		}

		set.Add(llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		}, exec)
	}

	return set, nil
}

func (r *Registry) Close() error {
	if r.mcpClient != nil {
		return r.mcpClient.Close()
	}
	return nil
}
