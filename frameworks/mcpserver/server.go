// Package mcpserver exposes an adapter's chat and embedding operations as
// MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/omnillm/omnillm/frameworks"
	"github.com/omnillm/omnillm/llm"
	"github.com/rs/zerolog"
)

const integrationName = "mcpserver"

// Server serves one adapter over the Model Context Protocol.
type Server struct {
	adapter llm.LLM
	enabled bool
	version string
	logger  zerolog.Logger
}

// New builds the integration. The adapter is treated as an opaque llm.LLM;
// enabled comes from the frameworks configuration.
func New(adapter llm.LLM, enabled bool, version string, logger zerolog.Logger) *Server {
	return &Server{
		adapter: adapter,
		enabled: enabled,
		version: version,
		logger:  logger.With().Str("framework", integrationName).Logger(),
	}
}

// Name implements frameworks.Integration.
func (s *Server) Name() string { return integrationName }

// Available implements frameworks.Integration.
func (s *Server) Available() bool { return s.enabled }

// Serve starts the MCP server on stdio and blocks until the client
// disconnects.
func (s *Server) Serve() error {
	if !s.Available() {
		return frameworks.ErrUnavailable(integrationName)
	}

	srv := mcpserver.NewMCPServer(
		"omnillm",
		s.version,
		mcpserver.WithRecovery(),
		mcpserver.WithToolCapabilities(false),
	)
	s.registerTools(srv)

	s.logger.Info().Str("provider", s.adapter.ProviderName()).Msg("serving MCP on stdio")
	return mcpserver.ServeStdio(srv)
}

func (s *Server) registerTools(srv *mcpserver.MCPServer) {
	srv.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Send a prompt to the configured LLM provider and return the reply"),
			mcp.WithString("prompt",
				mcp.Description("The user prompt"),
				mcp.Required(),
			),
			mcp.WithString("model",
				mcp.Description("Model override for this call"),
			),
			mcp.WithNumber("temperature",
				mcp.Description("Sampling temperature override for this call"),
			),
		),
		s.handleChat,
	)

	srv.AddTool(
		mcp.NewTool("embedding",
			mcp.WithDescription("Compute an embedding vector for a text"),
			mcp.WithString("text",
				mcp.Description("The text to embed"),
				mcp.Required(),
			),
			mcp.WithString("model",
				mcp.Description("Embedding model override for this call"),
			),
		),
		s.handleEmbedding,
	)
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: prompt"), nil
	}

	var opts []llm.CallOption
	if model := request.GetString("model", ""); model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	if temp := request.GetFloat("temperature", -1); temp >= 0 {
		opts = append(opts, llm.WithTemperature(temp))
	}

	resp, err := s.adapter.Chat(ctx, llm.Text(prompt), opts...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}
	return mcp.NewToolResultText(resp.Content), nil
}

func (s *Server) handleEmbedding(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: text"), nil
	}

	var opts []llm.CallOption
	if model := request.GetString("model", ""); model != "" {
		opts = append(opts, llm.WithModel(model))
	}

	vectors, err := s.adapter.Embedding(ctx, []string{text}, opts...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("embedding failed: %v", err)), nil
	}

	data, err := json.Marshal(vectors[0])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding embedding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

var _ frameworks.Integration = (*Server)(nil)
