// Package mcpserver exposes the façade's operations as MCP tools over two
// transports: stdio (for a locally spawned assistant subprocess) and
// HTTP+SSE (for a remote assistant). Tool registration follows the
// teacher's index/mcp_server.go — one mcp.NewTool + mcpServer.AddTool call
// per operation, a thin handler that extracts string/number arguments and
// delegates to the façade.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/facade"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/pipeline"
)

func stringSliceArg(request mcp.CallToolRequest, key string) []string {
	raw, ok := request.GetArguments()[key].([]any)
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

// StdioServer wraps a Facade to serve MCP tool calls over stdio.
type StdioServer struct {
	f      *facade.Facade
	server *server.MCPServer
}

// NewStdioServer constructs a StdioServer and registers every tool.
func NewStdioServer(f *facade.Facade, version string) *StdioServer {
	s := &StdioServer{f: f}
	mcpServer := server.NewMCPServer("debugger-mcp", version, server.WithToolCapabilities(true))
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

// ServeStdio blocks, serving tool calls read from stdin until EOF or error.
func (s *StdioServer) ServeStdio() error {
	return server.ServeStdio(s.server)
}

func ownerFrom(request mcp.CallToolRequest) string {
	return request.GetString("owner", "")
}

func (s *StdioServer) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("session_create",
			mcp.WithDescription("Create a new debugging session."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
		),
		s.handleSessionCreate,
	)

	mcpServer.AddTool(
		mcp.NewTool("session_list",
			mcp.WithDescription("List the caller's debugging sessions."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
		),
		s.handleSessionList,
	)

	mcpServer.AddTool(
		mcp.NewTool("session_close",
			mcp.WithDescription("Close a debugging session."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleSessionClose,
	)

	mcpServer.AddTool(
		mcp.NewTool("dump_open",
			mcp.WithDescription("Open a crash dump on an existing session."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("dump_id", mcp.Required(), mcp.Description("Dump id, relative to the owner's dump storage")),
			mcp.WithString("executable_path", mcp.Description("Optional path to the dumped executable, for symbol resolution")),
		),
		s.handleDumpOpen,
	)

	mcpServer.AddTool(
		mcp.NewTool("dump_close",
			mcp.WithDescription("Close the currently open dump on a session."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleDumpClose,
	)

	mcpServer.AddTool(
		mcp.NewTool("analyze",
			mcp.WithDescription("Run crash analysis on the currently open dump, returning a full report."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("variant", mcp.Description("crash (default), dotnet_crash (deprecated alias of crash), performance, security, or ai")),
			mcp.WithString("format", mcp.Description("json (default), markdown, or html")),
			mcp.WithBoolean("include_watches", mcp.Description("Evaluate and include persisted watches")),
		),
		s.handleAnalyze,
	)

	mcpServer.AddTool(
		mcp.NewTool("watch_add",
			mcp.WithDescription("Persist a watch expression for the session's current dump."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("expression", mcp.Required(), mcp.Description("Expression to watch")),
		),
		s.handleWatchAdd,
	)

	mcpServer.AddTool(
		mcp.NewTool("watch_list",
			mcp.WithDescription("List persisted watch expressions for the session's current dump."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleWatchList,
	)

	mcpServer.AddTool(
		mcp.NewTool("exec",
			mcp.WithDescription("Execute a raw debugger command against the session's driver."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("command", mcp.Required(), mcp.Description("Raw debugger command")),
		),
		s.handleExec,
	)

	mcpServer.AddTool(
		mcp.NewTool("session_restore",
			mcp.WithDescription("Re-attach a session to its previously opened dump after a server restart."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleSessionRestore,
	)

	mcpServer.AddTool(
		mcp.NewTool("debugger_info",
			mcp.WithDescription("Report the detected debugger backend family and runtime for a session."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleDebuggerInfo,
	)

	mcpServer.AddTool(
		mcp.NewTool("watch_evaluate",
			mcp.WithDescription("Evaluate a single ad-hoc expression without persisting it."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("expression", mcp.Required(), mcp.Description("Expression to evaluate")),
		),
		s.handleWatchEvaluate,
	)

	mcpServer.AddTool(
		mcp.NewTool("watch_evaluate_all",
			mcp.WithDescription("Evaluate every persisted watch expression for the session's current dump."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleWatchEvaluateAll,
	)

	mcpServer.AddTool(
		mcp.NewTool("watch_remove",
			mcp.WithDescription("Delete one persisted watch expression by id."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("watch_id", mcp.Required(), mcp.Description("Watch id")),
		),
		s.handleWatchRemove,
	)

	mcpServer.AddTool(
		mcp.NewTool("watch_clear",
			mcp.WithDescription("Remove every persisted watch expression for the session's current dump."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleWatchClear,
	)

	mcpServer.AddTool(
		mcp.NewTool("inspect_object",
			mcp.WithDescription("Inspect a managed-runtime object via the walker (requires the managed extension)."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("address", mcp.Required(), mcp.Description("Object address")),
			mcp.WithString("method_table", mcp.Description("Optional method table address")),
			mcp.WithNumber("max_depth", mcp.Description("Maximum field-expansion depth")),
			mcp.WithNumber("max_array_elements", mcp.Description("Maximum array elements to print")),
			mcp.WithNumber("max_string_length", mcp.Description("Maximum string length to print")),
		),
		s.handleInspectObject,
	)

	mcpServer.AddTool(
		mcp.NewTool("inspect_load_managed_extension",
			mcp.WithDescription("Load the managed-runtime debugger extension, a precondition for inspect/clr_stack operations."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleLoadManagedExtension,
	)

	mcpServer.AddTool(
		mcp.NewTool("symbols_configure_additional",
			mcp.WithDescription("Set the session driver's symbol search path to the given paths, replacing its previous path."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithArray("paths", mcp.Required(), mcp.Description("Symbol search paths to add"),
				mcp.Items(map[string]any{"type": "string"})),
		),
		s.handleConfigureSymbolPaths,
	)

	mcpServer.AddTool(
		mcp.NewTool("symbols_clear_cache",
			mcp.WithDescription("Drop the session's resolved-symbol cache."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleClearSymbolCache,
	)

	mcpServer.AddTool(
		mcp.NewTool("symbols_reload",
			mcp.WithDescription("Drop the session's resolved-symbol cache, as symbols_clear_cache does, without restarting the driver."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleReloadSymbols,
	)

	mcpServer.AddTool(
		mcp.NewTool("source_link_resolve",
			mcp.WithDescription("Resolve a (module, method token, IL offset) triple to a source file and line."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("module_path", mcp.Required(), mcp.Description("Module path")),
			mcp.WithString("method_token", mcp.Required(), mcp.Description("Method token")),
			mcp.WithNumber("il_offset", mcp.Description("IL offset within the method")),
		),
		s.handleResolveSourceLink,
	)

	mcpServer.AddTool(
		mcp.NewTool("compare",
			mcp.WithDescription("Diff two already-analyzed sessions' dumps: dumps, heaps, threads, or modules."),
			mcp.WithString("owner", mcp.Required(), mcp.Description("Caller's owner id")),
			mcp.WithString("base_session_id", mcp.Required(), mcp.Description("Baseline session id")),
			mcp.WithString("other_session_id", mcp.Required(), mcp.Description("Session id to compare against the baseline")),
			mcp.WithString("mode", mcp.Required(), mcp.Description("dumps, heaps, threads, or modules")),
		),
		s.handleCompare,
	)
}

func errResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *StdioServer) handleSessionCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.f.CreateSession(ctx, ownerFrom(request))
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(sess.ID), nil
}

func (s *StdioServer) handleSessionList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.f.ListSessions(ctx, ownerFrom(request))
	if err != nil {
		return errResult(err)
	}
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	b, _ := json.Marshal(ids)
	return mcp.NewToolResultText(string(b)), nil
}

func (s *StdioServer) handleSessionClose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.f.CloseSession(ctx, ownerFrom(request), request.GetString("session_id", "")); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("closed"), nil
}

func (s *StdioServer) handleDumpOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	err := s.f.OpenDump(ctx, ownerFrom(request), request.GetString("session_id", ""),
		request.GetString("dump_id", ""), request.GetString("executable_path", ""))
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("dump open"), nil
}

func (s *StdioServer) handleDumpClose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.f.CloseDump(ctx, ownerFrom(request), request.GetString("session_id", "")); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("dump closed"), nil
}

func variantFromString(v string) pipeline.Variant {
	switch v {
	case "dotnet_crash":
		return pipeline.VariantDotnetCrash
	case "performance":
		return pipeline.VariantPerformance
	case "security":
		return pipeline.VariantSecurity
	case "ai":
		return pipeline.VariantAI
	default:
		return pipeline.VariantCrash
	}
}

func (s *StdioServer) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := facade.AnalyzeOptions{
		Variant:        variantFromString(request.GetString("variant", "")),
		IncludeWatches: request.GetBool("include_watches", false),
	}
	doc, err := s.f.Analyze(ctx, ownerFrom(request), request.GetString("session_id", ""), opts)
	if err != nil {
		return errResult(err)
	}
	rendered, _, err := s.f.Report(doc, request.GetString("format", ""), false)
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(rendered), nil
}

func (s *StdioServer) handleWatchAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.f.AddWatch(ctx, ownerFrom(request), request.GetString("session_id", ""), request.GetString("expression", ""))
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(id), nil
}

func (s *StdioServer) handleWatchList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	watches, err := s.f.ListWatches(ctx, ownerFrom(request), request.GetString("session_id", ""))
	if err != nil {
		return errResult(err)
	}
	b, _ := json.Marshal(watches)
	return mcp.NewToolResultText(string(b)), nil
}

func (s *StdioServer) handleExec(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.f.Exec(ctx, ownerFrom(request), request.GetString("session_id", ""), request.GetString("command", ""))
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(out), nil
}

func (s *StdioServer) handleSessionRestore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.f.RestoreSession(ctx, ownerFrom(request), request.GetString("session_id", ""))
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(sess.ID), nil
}

func (s *StdioServer) handleDebuggerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.f.DebuggerInfo(ctx, ownerFrom(request), request.GetString("session_id", ""))
	if err != nil {
		return errResult(err)
	}
	b, _ := json.Marshal(info)
	return mcp.NewToolResultText(string(b)), nil
}

func (s *StdioServer) handleWatchEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.f.EvaluateWatch(ctx, ownerFrom(request), request.GetString("session_id", ""), request.GetString("expression", ""))
	if err != nil {
		return errResult(err)
	}
	b, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(b)), nil
}

func (s *StdioServer) handleWatchEvaluateAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.f.EvaluateAllWatches(ctx, ownerFrom(request), request.GetString("session_id", ""))
	if err != nil {
		return errResult(err)
	}
	b, _ := json.Marshal(results)
	return mcp.NewToolResultText(string(b)), nil
}

func (s *StdioServer) handleWatchRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.f.RemoveWatch(ctx, ownerFrom(request), request.GetString("session_id", ""), request.GetString("watch_id", "")); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("removed"), nil
}

func (s *StdioServer) handleWatchClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.f.ClearWatches(ctx, ownerFrom(request), request.GetString("session_id", "")); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("cleared"), nil
}

func (s *StdioServer) handleInspectObject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.f.InspectObject(ctx, ownerFrom(request), request.GetString("session_id", ""),
		request.GetString("address", ""), request.GetString("method_table", ""),
		request.GetInt("max_depth", 4), request.GetInt("max_array_elements", 32), request.GetInt("max_string_length", 256))
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(out), nil
}

func (s *StdioServer) handleLoadManagedExtension(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.f.LoadManagedExtension(ctx, ownerFrom(request), request.GetString("session_id", "")); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("extension loaded"), nil
}

func (s *StdioServer) handleConfigureSymbolPaths(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths := stringSliceArg(request, "paths")
	if err := s.f.ConfigureAdditionalSymbolPaths(ctx, ownerFrom(request), request.GetString("session_id", ""), paths); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("configured"), nil
}

func (s *StdioServer) handleClearSymbolCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.f.ClearSymbolCache(ctx, ownerFrom(request), request.GetString("session_id", "")); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("cleared"), nil
}

func (s *StdioServer) handleReloadSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.f.ReloadSymbols(ctx, ownerFrom(request), request.GetString("session_id", "")); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("reloaded"), nil
}

func (s *StdioServer) handleResolveSourceLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc, ok, err := s.f.ResolveSourceLink(ctx, ownerFrom(request), request.GetString("session_id", ""),
		request.GetString("module_path", ""), request.GetString("method_token", ""), request.GetInt("il_offset", 0))
	if err != nil {
		return errResult(err)
	}
	if !ok {
		return mcp.NewToolResultText("no source location found"), nil
	}
	b, _ := json.Marshal(loc)
	return mcp.NewToolResultText(string(b)), nil
}

func (s *StdioServer) handleCompare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmp, err := s.f.Compare(ctx, ownerFrom(request),
		request.GetString("base_session_id", ""), request.GetString("other_session_id", ""),
		facade.CompareMode(request.GetString("mode", "")), facade.AnalyzeOptions{Variant: pipeline.VariantCrash})
	if err != nil {
		return errResult(err)
	}
	b, _ := json.Marshal(cmp)
	return mcp.NewToolResultText(string(b)), nil
}
