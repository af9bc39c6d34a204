package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/facade"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/session"
)

// rpcRequest and rpcResponse mirror the teacher's internal/mcp.Request and
// Response JSON-RPC 2.0 envelope.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// HTTPServer exposes the façade over HTTP+chi, grounded on
// internal/api/router.go's middleware chain plus internal/mcp/handler.go's
// JSON-RPC/SSE dispatch.
type HTTPServer struct {
	f      *facade.Facade
	apiKey string
	router chi.Router
}

// NewHTTPServer builds the chi router wiring the health check, the JSON-RPC
// endpoint, and the SSE endpoint against f.
func NewHTTPServer(f *facade.Facade, apiKey string) *HTTPServer {
	s := &HTTPServer{f: f, apiKey: apiKey}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if apiKey != "" {
		r.Use(s.apiKeyAuth)
	}
	r.Get("/health", s.handleHealth)
	r.Post("/mcp", s.handleJSONRPC)
	r.Get("/mcp/sse", s.handleSSEConnect)
	r.Post("/mcp/sse", s.handleSSEMessage)
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *HTTPServer) Handler() http.Handler { return s.router }

func (s *HTTPServer) apiKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != s.apiKey {
			http.Error(w, "Invalid or missing API key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *HTTPServer) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	req, err := readRPCRequest(r)
	if err != nil {
		writeRPCError(w, nil, -32700, "Parse error")
		return
	}
	resp := s.dispatch(r, req)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *HTTPServer) handleSSEConnect(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	endpoint := fmt.Sprintf("%s://%s/mcp/sse", scheme, r.Host)
	fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", endpoint)
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func (s *HTTPServer) handleSSEMessage(w http.ResponseWriter, r *http.Request) {
	req, err := readRPCRequest(r)
	if err != nil {
		writeRPCError(w, nil, -32700, "Parse error")
		return
	}
	resp := s.dispatch(r, req)
	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
}

func readRPCRequest(r *http.Request) (*rpcRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func writeRPCError(w http.ResponseWriter, id interface{}, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}})
}

func (s *HTTPServer) dispatch(r *http.Request, req *rpcRequest) *rpcResponse {
	switch req.Method {
	case "ping":
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]string{"status": "ok"}}
	case "tools/call":
		return s.dispatchToolCall(r, req)
	default:
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "Method not found"}}
	}
}

func (s *HTTPServer) dispatchToolCall(r *http.Request, req *rpcRequest) *rpcResponse {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "Invalid params"}}
	}
	owner, _ := params.Arguments["owner"].(string)
	sessionID, _ := params.Arguments["session_id"].(string)
	ctx := r.Context()

	var result string
	var err error
	switch params.Name {
	case "session_create":
		sess, serr := s.f.CreateSession(ctx, owner)
		err = serr
		if err == nil {
			result = sess.ID
		}
	case "session_list":
		sessions, serr := s.f.ListSessions(ctx, owner)
		err = serr
		if err == nil {
			result = jsonText(sessionIDs(sessions))
		}
	case "session_close":
		err = s.f.CloseSession(ctx, owner, sessionID)
		if err == nil {
			result = "closed"
		}
	case "session_restore":
		sess, serr := s.f.RestoreSession(ctx, owner, sessionID)
		err = serr
		if err == nil {
			result = sess.ID
		}
	case "debugger_info":
		info, serr := s.f.DebuggerInfo(ctx, owner, sessionID)
		err = serr
		if err == nil {
			result = jsonText(info)
		}
	case "dump_open":
		dumpID, _ := params.Arguments["dump_id"].(string)
		exePath, _ := params.Arguments["executable_path"].(string)
		err = s.f.OpenDump(ctx, owner, sessionID, dumpID, exePath)
		if err == nil {
			result = "dump open"
		}
	case "dump_close":
		err = s.f.CloseDump(ctx, owner, sessionID)
		if err == nil {
			result = "dump closed"
		}
	case "analyze":
		variant, _ := params.Arguments["variant"].(string)
		format, _ := params.Arguments["format"].(string)
		includeWatches, _ := params.Arguments["include_watches"].(bool)
		result, err = s.runAnalyze(ctx, owner, sessionID, variant, format, includeWatches)
	case "watch_add":
		expr, _ := params.Arguments["expression"].(string)
		result, err = s.f.AddWatch(ctx, owner, sessionID, expr)
	case "watch_list":
		watches, serr := s.f.ListWatches(ctx, owner, sessionID)
		err = serr
		if err == nil {
			result = jsonText(watches)
		}
	case "watch_evaluate":
		expr, _ := params.Arguments["expression"].(string)
		wr, serr := s.f.EvaluateWatch(ctx, owner, sessionID, expr)
		err = serr
		if err == nil {
			result = jsonText(wr)
		}
	case "watch_evaluate_all":
		results, serr := s.f.EvaluateAllWatches(ctx, owner, sessionID)
		err = serr
		if err == nil {
			result = jsonText(results)
		}
	case "watch_remove":
		watchID, _ := params.Arguments["watch_id"].(string)
		err = s.f.RemoveWatch(ctx, owner, sessionID, watchID)
		if err == nil {
			result = "removed"
		}
	case "watch_clear":
		err = s.f.ClearWatches(ctx, owner, sessionID)
		if err == nil {
			result = "cleared"
		}
	case "inspect_object":
		address, _ := params.Arguments["address"].(string)
		methodTable, _ := params.Arguments["method_table"].(string)
		maxDepth := intArg(params.Arguments, "max_depth", 4)
		maxArrayElems := intArg(params.Arguments, "max_array_elements", 32)
		maxStringLen := intArg(params.Arguments, "max_string_length", 256)
		result, err = s.f.InspectObject(ctx, owner, sessionID, address, methodTable, maxDepth, maxArrayElems, maxStringLen)
	case "inspect_load_managed_extension":
		err = s.f.LoadManagedExtension(ctx, owner, sessionID)
		if err == nil {
			result = "extension loaded"
		}
	case "symbols_configure_additional":
		paths := stringSliceArgMap(params.Arguments, "paths")
		err = s.f.ConfigureAdditionalSymbolPaths(ctx, owner, sessionID, paths)
		if err == nil {
			result = "configured"
		}
	case "symbols_clear_cache":
		err = s.f.ClearSymbolCache(ctx, owner, sessionID)
		if err == nil {
			result = "cleared"
		}
	case "symbols_reload":
		err = s.f.ReloadSymbols(ctx, owner, sessionID)
		if err == nil {
			result = "reloaded"
		}
	case "source_link_resolve":
		modulePath, _ := params.Arguments["module_path"].(string)
		methodToken, _ := params.Arguments["method_token"].(string)
		ilOffset := intArg(params.Arguments, "il_offset", 0)
		loc, ok, serr := s.f.ResolveSourceLink(ctx, owner, sessionID, modulePath, methodToken, ilOffset)
		err = serr
		if err == nil {
			if !ok {
				result = "no source location found"
			} else {
				result = jsonText(loc)
			}
		}
	case "compare":
		baseID, _ := params.Arguments["base_session_id"].(string)
		otherID, _ := params.Arguments["other_session_id"].(string)
		mode, _ := params.Arguments["mode"].(string)
		cmp, serr := s.f.Compare(ctx, owner, baseID, otherID, facade.CompareMode(mode), facade.AnalyzeOptions{Variant: variantFromString("")})
		err = serr
		if err == nil {
			result = jsonText(cmp)
		}
	case "exec":
		command, _ := params.Arguments["command"].(string)
		result, err = s.f.Exec(ctx, owner, sessionID, command)
	default:
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "Unknown tool " + params.Name}}
	}
	if err != nil {
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32000, Message: err.Error()}}
	}
	return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]string{"text": result}}
}

func sessionIDs(sessions []*session.Session) []string {
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	return ids
}

func jsonText(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return def
}

func stringSliceArgMap(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (s *HTTPServer) runAnalyze(ctx context.Context, owner, sessionID, variant, format string, includeWatches bool) (string, error) {
	doc, err := s.f.Analyze(ctx, owner, sessionID, facade.AnalyzeOptions{
		Variant:        variantFromString(variant),
		IncludeWatches: includeWatches,
	})
	if err != nil {
		return "", err
	}
	rendered, _, err := s.f.Report(doc, format, false)
	return rendered, err
}
