// Package dispatch exposes the engine over MCP. Every named resource, tool
// and prompt maps to one engine call; failures come back as a JSON object
// with a single "error" field.
package dispatch

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/core"
	"github.com/agenthands/lila/internal/core/apperror"
	"github.com/agenthands/lila/internal/prompts"
)

const ServerName = "lila-mcp-server"

const instructions = "Lila relationship intelligence. Read personas, relationships and " +
	"emotional climate through lila:// resources, change relationship state with the " +
	"tools, and use the prompts to build psychological assessments."

type Dispatcher struct {
	engine  *core.Engine
	prompts *prompts.Renderer
	log     *zap.Logger
}

func New(e *core.Engine, r *prompts.Renderer, log *zap.Logger) *Dispatcher {
	if r == nil {
		r = prompts.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{engine: e, prompts: r, log: log}
}

// NewServer builds an MCP server with every Lila resource, tool and prompt
// registered.
func (d *Dispatcher) NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	d.Register(s)
	return s
}

func (d *Dispatcher) Register(s *server.MCPServer) {
	for _, r := range d.resources() {
		s.AddResource(r.def, r.handle)
	}
	for _, t := range d.templates() {
		s.AddResourceTemplate(t.def, t.handle)
	}
	for _, t := range d.tools() {
		s.AddTool(t.def, t.handle)
	}
	for _, p := range d.promptList() {
		s.AddPrompt(p.def, p.handle)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// failure renders err in the uniform failure shape. Internal details stay
// in the log.
func (d *Dispatcher) failure(name string, err error) string {
	msg := err.Error()
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		d.log.Error("unclassified failure", zap.String("operation", name), zap.Error(err))
	}
	b, _ := json.Marshal(errorBody{Error: msg})
	return string(b)
}

func marshal(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *Dispatcher) toolResult(name string, v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(d.failure(name, err)), nil
	}
	text, err := marshal(v)
	if err != nil {
		return mcp.NewToolResultError(d.failure(name, err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (d *Dispatcher) resourceResult(uri string, v any, err error) ([]mcp.ResourceContents, error) {
	text := ""
	if err != nil {
		text = d.failure(uri, err)
	} else if text, err = marshal(v); err != nil {
		text = d.failure(uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}
