// Package mcp serves pipewatch's analysis over the Model Context Protocol
// on stdio, so coding agents can ask for workflow optimizations directly.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const protocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
)

// Server reads JSON-RPC requests line by line and dispatches tools/call
// requests to registered tools.
type Server struct {
	name    string
	version string
	tools   []tool
	logger  *slog.Logger
}

// Handler runs a tool with its already validated arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

type tool struct {
	name        string
	description string
	rawSchema   json.RawMessage
	schema      *jsonschema.Schema
	handler     Handler
}

type request struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Result  any              `json:"result,omitempty"`
	Error   *rpcError        `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type callResult struct {
	Content []content `json:"content"`
	IsError bool      `json:"isError"`
}

type content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type listedTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// NewServer creates a Server with no tools. version is reported in the
// initialize handshake.
func NewServer(version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{name: "pipewatch", version: version, logger: logger}
}

// Register adds a tool. The input schema is compiled up front so a broken
// schema fails at startup rather than on first call.
func (s *Server) Register(name, description, inputSchema string, h Handler) error {
	schema, err := jsonschema.CompileString("pipewatch://mcp/"+name+".json", inputSchema)
	if err != nil {
		return fmt.Errorf("compiling schema for tool %s: %w", name, err)
	}
	s.tools = append(s.tools, tool{
		name:        name,
		description: description,
		rawSchema:   json.RawMessage(inputSchema),
		schema:      schema,
		handler:     h,
	})
	return nil
}

// Run serves requests from r until ctx is cancelled or r reaches EOF.
// A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			scanErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if line == "" {
				continue
			}
			resp, reply := s.handle(ctx, line)
			if !reply {
				continue
			}
			if err := writeLine(bw, resp); err != nil {
				return err
			}
		}
	}
}

// handle decodes one request line. Notifications get no reply.
func (s *Server) handle(ctx context.Context, line string) (response, bool) {
	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		// The id is unknown, so it must be sent as null.
		id := json.RawMessage("null")
		return response{JSONRPC: "2.0", ID: &id, Error: &rpcError{Code: codeParseError, Message: "Parse error"}}, true
	}
	if req.ID == nil {
		return response{}, false
	}

	resp := response{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": s.name, "version": s.version},
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		resp.Result = map[string]any{"tools": s.list()}
	case "tools/call":
		var p callParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Name == "" {
			resp.Error = &rpcError{Code: codeInvalidParams, Message: "Invalid params"}
			break
		}
		resp.Result = s.call(ctx, p)
	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: "Method not found"}
	}
	return resp, true
}

func (s *Server) list() []listedTool {
	out := make([]listedTool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, listedTool{Name: t.name, Description: t.description, InputSchema: t.rawSchema})
	}
	return out
}

// call runs a tool. Tool failures are reported inside the result with
// isError set, not as JSON-RPC errors.
func (s *Server) call(ctx context.Context, p callParams) callResult {
	var t *tool
	for i := range s.tools {
		if s.tools[i].name == p.Name {
			t = &s.tools[i]
			break
		}
	}
	if t == nil {
		return errorResult(fmt.Sprintf("unknown tool: %s", p.Name))
	}

	args := p.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := t.schema.Validate(decoded); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err))
	}

	s.logger.Debug("mcp tool call", "tool", t.name)
	result, err := t.handler(ctx, args)
	if err != nil {
		s.logger.Warn("mcp tool failed", "tool", t.name, "error", err)
		return errorResult(err.Error())
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorResult(err.Error())
	}
	return callResult{Content: []content{{Type: "text", Text: string(data)}}}
}

func errorResult(msg string) callResult {
	return callResult{Content: []content{{Type: "text", Text: msg}}, IsError: true}
}

func writeLine(bw *bufio.Writer, resp response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := bw.Write(data); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}
