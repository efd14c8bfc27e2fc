// Package mcp exposes flows to AI agents over the Model Context Protocol:
// session lifecycle and turn processing as tools, flow definitions as
// resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/parleyflow/parley/pkg/domain"
)

// FlowRunner is the engine surface the MCP tools drive. The root
// package's Flow satisfies it.
type FlowRunner interface {
	Definition() *domain.FlowDefinition
	StartSession(ctx context.Context, sessionID string) (*domain.TurnResult, error)
	ProcessTurn(ctx context.Context, sessionID, turnID, input string) (*domain.TurnResult, error)
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	EndSession(ctx context.Context, sessionID string) error
}

// TurnResponse is the structured output of the session tools.
type TurnResponse struct {
	SessionID string   `json:"session_id" jsonschema_description:"The session the turn ran against"`
	Messages  []string `json:"messages" jsonschema_description:"Messages to relay to the user"`
	NodeID    string   `json:"node_id" jsonschema_description:"The node the session is parked on"`
	Completed bool     `json:"completed" jsonschema_description:"Whether the conversation reached a terminal node"`
}

// Server exposes registered flows as an MCP server.
type Server struct {
	mu        sync.RWMutex
	runners   map[string]FlowRunner
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server over the given runners.
func NewServer(version string, runners map[string]FlowRunner) *Server {
	s := &Server{
		runners:   make(map[string]FlowRunner, len(runners)),
		mcpServer: server.NewMCPServer("parley-mcp", strings.TrimSpace(version)),
	}
	for id, r := range runners {
		s.runners[id] = r
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Register adds or replaces a runner.
func (s *Server) Register(flowID string, runner FlowRunner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[flowID] = runner
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) runner(flowID string) (FlowRunner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runners[flowID]
	if !ok {
		return nil, fmt.Errorf("flow not found: %s", flowID)
	}
	return r, nil
}

func (s *Server) flowIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runners))
	for id := range s.runners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List the IDs of the flows this server can run."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.flowIDs())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a conversation session on a flow and return its opening messages."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("The flow to run")),
		mcp.WithString("session_id", mcp.Description("Session ID to use; omitted means a generated one")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	turnTool := mcp.NewTool("process_turn",
		mcp.WithDescription("Send one user input to a session and return the flow's reply."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("The flow the session runs on")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to advance")),
		mcp.WithString("input", mcp.Required(), mcp.Description("The user's input for this turn")),
		mcp.WithString("turn_id", mcp.Description("Idempotency key; retries with the same id replay the recorded result")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(turnTool, mcp.NewStructuredToolHandler(s.handleProcessTurn))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Fetch the stored state of a session: position, context and history."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("The flow the session runs on")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to fetch")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		flowID, _ := request.GetArguments()["flow_id"].(string)
		sessionID, _ := request.GetArguments()["session_id"].(string)
		runner, err := s.runner(flowID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sess, err := runner.Session(ctx, sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get session failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(sess)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("Delete a session and its state."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("The flow the session runs on")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to delete")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		flowID, _ := request.GetArguments()["flow_id"].(string)
		sessionID, _ := request.GetArguments()["session_id"].(string)
		runner, err := s.runner(flowID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := runner.EndSession(ctx, sessionID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("end session failed: %v", err)), nil
		}
		return mcp.NewToolResultText(`{"status":"deleted"}`), nil
	})
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	flowID, _ := args["flow_id"].(string)
	sessionID, _ := args["session_id"].(string)

	runner, err := s.runner(flowID)
	if err != nil {
		return TurnResponse{}, err
	}
	res, err := runner.StartSession(ctx, sessionID)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("start session failed: %w", err)
	}
	return toTurnResponse(res), nil
}

func (s *Server) handleProcessTurn(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	flowID, _ := args["flow_id"].(string)
	sessionID, _ := args["session_id"].(string)
	input, _ := args["input"].(string)
	turnID, _ := args["turn_id"].(string)

	runner, err := s.runner(flowID)
	if err != nil {
		return TurnResponse{}, err
	}
	res, err := runner.ProcessTurn(ctx, sessionID, turnID, input)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}
	return toTurnResponse(res), nil
}

func toTurnResponse(res *domain.TurnResult) TurnResponse {
	return TurnResponse{
		SessionID: res.SessionID,
		Messages:  res.Messages,
		NodeID:    res.NodeID,
		Completed: res.Completed,
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("parley://flows", "Registered Flow Definitions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		s.mu.RLock()
		defs := make(map[string]*domain.FlowDefinition, len(s.runners))
		for id, r := range s.runners {
			defs[id] = r.Definition()
		}
		s.mu.RUnlock()

		jsonBytes, err := json.Marshal(defs)
		if err != nil {
			return nil, fmt.Errorf("marshal flows: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "parley://flows",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
