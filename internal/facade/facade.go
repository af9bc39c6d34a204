// Package facade exposes every analysis-service operation as a single Go
// method, transport-agnostic per §4.10: both the stdio and HTTP+SSE MCP
// transports call into the same Facade rather than each re-implementing
// session lookup, sanitization, and error mapping. Shape generalized from
// the teacher's internal/mcp.Handler (cfg/registry/manager fields, one
// method per RPC method) to a ten-operation surface.
package facade

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/aianalysis"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/config"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/crashindex"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/debuginfo"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/fileutil"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/pipeline"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/reportcache"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/session"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/symbols"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/walker"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/watchstore"
)

// Logger is the minimal structured-logging surface the façade needs; the
// arbor-backed implementation is wired in from cmd/debugger-mcp.
type Logger interface {
	Info(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// DriverFactory constructs the right driver.Driver for a dump, given the
// configured backend preference. Production wiring supplies the real
// windbg/lldb constructors; tests supply a fake.
type DriverFactory func(cfg config.DriverConfig, dumpPath string) (driver.Driver, error)

// Facade holds the unexported, immutable collaborators every operation
// needs, per §9's composition-over-inheritance guidance: no base class,
// one small struct passed by receiver to plain methods.
type Facade struct {
	cfg      *config.Config
	sessions *session.Manager
	watches  *watchstore.Store
	log      Logger
	newDrv   DriverFactory

	mu        sync.Mutex
	resolvers map[string]*debuginfo.Resolver // keyed by session id
	caches    map[string]*reportcache.Cache   // keyed by session id
	watchers  map[string]*symbols.CacheWatcher

	ai         *aianalysis.Analyzer
	crashIndex *crashindex.Index
}

// SetAI wires the optional AI-assisted analysis variant in. Both ai and
// index may be nil, in which case analyze(ai) degrades to a diagnostic
// instead of a pipeline error (§7 UnsupportedOperation policy).
func (f *Facade) SetAI(ai *aianalysis.Analyzer, index *crashindex.Index) {
	f.ai = ai
	f.crashIndex = index
}

// New constructs a Facade. watches may be nil only in tests that never
// exercise the watch operation group.
func New(cfg *config.Config, sessions *session.Manager, watches *watchstore.Store, log Logger, newDrv DriverFactory) *Facade {
	return &Facade{
		cfg:       cfg,
		sessions:  sessions,
		watches:   watches,
		log:       log,
		newDrv:    newDrv,
		resolvers: make(map[string]*debuginfo.Resolver),
		caches:    make(map[string]*reportcache.Cache),
		watchers:  make(map[string]*symbols.CacheWatcher),
	}
}

// validOwnerChar reports whether r is allowed in an owner id: ASCII letters,
// digits, underscore, hyphen. Per §4.10 this is a cross-cutting check every
// operation performs before touching the session manager or filesystem.
func validOwnerChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}

func sanitizeOwner(owner string) error {
	if owner == "" {
		return errkind.Invalidf("owner id is required")
	}
	for _, r := range owner {
		if !validOwnerChar(r) {
			return errkind.Invalidf("owner id contains an unsupported character %q", r)
		}
	}
	return nil
}

// sanitizeDumpID rejects traversal and path separators, then resolves the
// candidate path inside <dump_storage>/<owner>/ so a later os.Open cannot
// escape the owner's directory.
func (f *Facade) sanitizeDumpID(owner, dumpID string) (string, error) {
	if dumpID == "" {
		return "", errkind.Invalidf("dump id is required")
	}
	if strings.Contains(dumpID, "..") || strings.ContainsAny(dumpID, "/\\") {
		return "", errkind.Invalidf("dump id %q must not contain path separators or '..'", dumpID)
	}
	base := filepath.Join(f.cfg.Service.DumpStorageDir, owner)
	full := filepath.Join(base, dumpID)
	if !strings.HasPrefix(full, filepath.Clean(base)+string(filepath.Separator)) && full != filepath.Clean(base) {
		return "", errkind.Invalidf("dump id %q escapes owner storage", dumpID)
	}
	return full, nil
}

// --- session operation group -------------------------------------------

// CreateSession opens a new debugging session for owner.
func (f *Facade) CreateSession(ctx context.Context, owner string) (*session.Session, error) {
	if err := sanitizeOwner(owner); err != nil {
		return nil, err
	}
	return f.sessions.Create(owner)
}

// ListSessions returns every session belonging to owner.
func (f *Facade) ListSessions(ctx context.Context, owner string) ([]*session.Session, error) {
	if err := sanitizeOwner(owner); err != nil {
		return nil, err
	}
	return f.sessions.List(owner), nil
}

// DebuggerInfo reports the configured backend and, once a driver exists,
// the detected backend family, driver state, and detected runtime family
// for sessionID, without requiring a dump to be open.
func (f *Facade) DebuggerInfo(ctx context.Context, owner, sessionID string) (map[string]string, error) {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return nil, err
	}
	info := map[string]string{"backend": string(f.cfg.Driver.Backend)}
	if d := s.Driver(); d != nil {
		info["family"] = string(d.BackendFamily())
		info["state"] = d.State().String()
		info["runtime"] = d.RuntimeFamilyDetected()
	}
	return info, nil
}

// RestoreSession re-attaches sessionID to its previously opened dump,
// replaying dump-open against a freshly spawned driver (the driver
// subprocess itself never survives process restart).
func (f *Facade) RestoreSession(ctx context.Context, owner, sessionID string) (*session.Session, error) {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return nil, err
	}
	dumpID := s.DumpID()
	if dumpID == "" {
		return nil, errkind.Preconditionf("session %s has no prior dump to restore", sessionID)
	}
	dumpPath, err := f.sanitizeDumpID(owner, dumpID)
	if err != nil {
		return nil, err
	}
	if !fileutil.Exists(dumpPath) {
		return nil, errkind.NotFoundf("dump %q no longer present", dumpID)
	}
	drv, err := f.newDrv(f.cfg.Driver, dumpPath)
	if err != nil {
		return nil, errkind.Wrap(errkind.KindBackendUnavailable, "spawn driver", err)
	}
	if err := drv.Initialize(ctx); err != nil {
		return nil, errkind.Wrap(errkind.KindBackendUnavailable, "initialize driver", err)
	}
	if err := drv.OpenDump(ctx, dumpPath, ""); err != nil {
		return nil, errkind.Wrap(errkind.KindInvalidArgument, "reopen dump", err)
	}
	s.SetDriver(drv)
	s.Touch()
	return s, nil
}

// CloseSession disposes sessionID's driver and removes it from the manager.
func (f *Facade) CloseSession(ctx context.Context, owner, sessionID string) error {
	f.mu.Lock()
	delete(f.resolvers, sessionID)
	delete(f.caches, sessionID)
	if w, ok := f.watchers[sessionID]; ok {
		_ = w.Stop()
		delete(f.watchers, sessionID)
	}
	f.mu.Unlock()
	return f.sessions.Close(owner, sessionID)
}

// --- dump operation group -----------------------------------------------

// OpenDump spawns a driver for sessionID and opens dumpID, detecting the
// backend family unless cfg.Driver.Backend pins one.
func (f *Facade) OpenDump(ctx context.Context, owner, sessionID, dumpID, executablePath string) error {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return err
	}
	dumpPath, err := f.sanitizeDumpID(owner, dumpID)
	if err != nil {
		return err
	}
	if !fileutil.Exists(dumpPath) {
		return errkind.NotFoundf("dump %q not found", dumpID)
	}
	drv, err := f.newDrv(f.cfg.Driver, dumpPath)
	if err != nil {
		return errkind.Wrap(errkind.KindBackendUnavailable, "spawn driver", err)
	}
	if err := drv.Initialize(ctx); err != nil {
		return errkind.Wrap(errkind.KindBackendUnavailable, "initialize driver", err)
	}
	if err := drv.OpenDump(ctx, dumpPath, executablePath); err != nil {
		return errkind.Wrap(errkind.KindInvalidArgument, "open dump", err)
	}
	s.SetDriver(drv)
	s.SetDumpID(dumpID)
	return nil
}

// CloseDump closes the currently open dump on sessionID's driver, leaving
// the session itself alive for a subsequent OpenDump.
func (f *Facade) CloseDump(ctx context.Context, owner, sessionID string) error {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return err
	}
	d := s.Driver()
	if d == nil || !d.IsDumpOpen() {
		return errkind.Preconditionf("no dump open on session %s", sessionID)
	}
	if err := d.CloseDump(ctx); err != nil {
		return errkind.Wrap(errkind.KindInternal, "close dump", err)
	}
	s.SetDumpID("")
	return nil
}

// --- analyze / report operation group ------------------------------------

// AnalyzeOptions selects which report sections a caller wants, per §4.9's
// cache key: every field here contributes to the cache key.
type AnalyzeOptions struct {
	Variant         pipeline.Variant
	IncludeWatches  bool
	IncludeSecurity bool
	IncludeAI       bool
	MaxStackFrames  int
}

func (f *Facade) resolverFor(sessionID string) *debuginfo.Resolver {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resolvers[sessionID]
	if !ok {
		r = debuginfo.New(nil)
		f.resolvers[sessionID] = r
	}
	return r
}

func (f *Facade) cacheFor(sessionID string) *reportcache.Cache {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.caches[sessionID]
	if !ok {
		c = reportcache.New()
		f.caches[sessionID] = c
	}
	return c
}

// Analyze runs the analysis pipeline (or returns a cached report) for
// sessionID's currently open dump, per §4.7/§4.9.
func (f *Facade) Analyze(ctx context.Context, owner, sessionID string, opts AnalyzeOptions) (*report.Report, error) {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return nil, err
	}
	d := s.Driver()
	if d == nil || !d.IsDumpOpen() {
		return nil, errkind.Preconditionf("no dump open on session %s", sessionID)
	}

	key := reportcache.Key{
		DumpID:          s.DumpID(),
		IncludeWatches:  opts.IncludeWatches,
		IncludeSecurity: opts.IncludeSecurity,
		IncludeAI:       opts.IncludeAI,
		MaxStackFrames:  opts.MaxStackFrames,
		MutationEpoch:   s.Epoch(),
	}
	cache := f.cacheFor(sessionID)
	return cache.GetOrProduce(key, func() (*report.Report, error) {
		var w *walker.Walker
		if d.IsExtensionLoaded() {
			opened, ok, werr := walker.Open(ctx, walker.Options{}, d.CurrentDumpPath())
			if werr == nil && ok {
				w = opened
				defer w.Close()
			}
		}
		p := pipeline.New()
		doc, err := p.Run(ctx, pipeline.Inputs{
			Drv:            d,
			DebuggerFamily: string(d.BackendFamily()),
			Walker:         w,
			Resolver:       f.resolverFor(sessionID),
			ServerVersion:  f.cfg.Service.Host,
			DumpID:         s.DumpID(),
			UserID:         owner,
		}, opts.Variant)
		if err != nil {
			return nil, errkind.Wrap(errkind.KindInternal, "run analysis pipeline", err)
		}
		if opts.IncludeWatches && f.watches != nil {
			results, werr := f.evaluateAllWatches(ctx, d, owner, s.DumpID())
			if werr == nil {
				doc.Analysis.Watches = &report.Watches{TotalWatches: len(results), Results: results}
			}
		}
		if opts.Variant == pipeline.VariantAI {
			f.runAIAnalysis(ctx, owner, d, doc)
		}
		return doc, nil
	})
}

// runAIAnalysis implements step 9's analyze(ai) variant: retrieve similar
// prior crashes from the owner's crash index, run the bounded tool-calling
// loop against the session's driver, populate analysis.aiAnalysis, then
// index this crash's own summary for future retrieval. Soft no-op when no
// Analyzer is configured (§7 UnsupportedOperation policy).
func (f *Facade) runAIAnalysis(ctx context.Context, owner string, d driver.Driver, doc *report.Report) {
	if f.ai == nil {
		doc.Analysis.Diagnostics = append(doc.Analysis.Diagnostics, report.Diagnostic{
			Step: "analyze_ai", Message: "AI-assisted analysis is not configured",
		})
		return
	}
	var similar []aianalysis.SimilarCrash
	if f.crashIndex != nil {
		if entries, err := f.crashIndex.SimilarTo(ctx, owner, doc.Metadata.DumpID, doc.Analysis.Summary.Description, 3); err == nil {
			for _, e := range entries {
				similar = append(similar, aianalysis.SimilarCrash{
					DumpID: e.DumpID, CrashType: e.CrashType, TopFunction: e.TopFunction, Summary: e.Summary,
				})
			}
		}
	}
	result, err := f.ai.Run(ctx, d, doc, similar)
	if err != nil {
		doc.Analysis.Diagnostics = append(doc.Analysis.Diagnostics, report.Diagnostic{
			Step: "analyze_ai", Message: err.Error(),
		})
		return
	}
	doc.Analysis.AIAnalysis = result
	if f.crashIndex != nil {
		_ = f.crashIndex.Add(ctx, owner, crashindex.Entry{
			DumpID:      doc.Metadata.DumpID,
			CrashType:   doc.Analysis.Summary.CrashType,
			TopFunction: firstTopFunction(doc.Analysis.Threads.All),
			Summary:     doc.Analysis.Summary.Description,
		})
	}
}

func firstTopFunction(all []report.ThreadInfo) string {
	for _, t := range all {
		if t.IsFaulting {
			return t.TopFunction
		}
	}
	if len(all) > 0 {
		return all[0].TopFunction
	}
	return ""
}

// Report renders doc in the requested format: "json", "markdown", or
// "html". Summary-only trims everything but Metadata/Summary.
func (f *Facade) Report(doc *report.Report, format string, summaryOnly bool) (string, string, error) {
	if summaryOnly {
		trimmed := &report.Report{Metadata: doc.Metadata}
		trimmed.Analysis.Summary = doc.Analysis.Summary
		doc = trimmed
	}
	switch format {
	case "", "json":
		b, err := report.RenderJSON(doc)
		return b, "application/json", err
	case "markdown", "md":
		s, err := report.RenderMarkdown(doc)
		return s, "text/markdown", err
	case "html":
		s, err := report.RenderHTML(doc)
		return s, "text/html", err
	default:
		return "", "", errkind.Invalidf("unsupported report format %q", format)
	}
}

// --- watch operation group -----------------------------------------------

// AddWatch appends a watch expression for (owner, dump_id) and bumps the
// session's mutation epoch.
func (f *Facade) AddWatch(ctx context.Context, owner, sessionID, expression string) (string, error) {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return "", err
	}
	if f.watches == nil {
		return "", errkind.Preconditionf("watch store unavailable")
	}
	id, err := f.watches.Add(owner, s.DumpID(), expression)
	if err != nil {
		return "", err
	}
	s.BumpEpoch()
	return id, nil
}

// ListWatches returns every persisted watch for sessionID's dump.
func (f *Facade) ListWatches(ctx context.Context, owner, sessionID string) ([]watchstore.Watch, error) {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return nil, err
	}
	return f.watches.List(owner, s.DumpID())
}

// RemoveWatch deletes one watch by id and bumps the mutation epoch.
func (f *Facade) RemoveWatch(ctx context.Context, owner, sessionID, watchID string) error {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return err
	}
	if err := f.watches.Remove(owner, s.DumpID(), watchID); err != nil {
		return err
	}
	s.BumpEpoch()
	return nil
}

// ClearWatches removes every watch for sessionID's dump and bumps the
// mutation epoch.
func (f *Facade) ClearWatches(ctx context.Context, owner, sessionID string) error {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return err
	}
	if err := f.watches.Clear(owner, s.DumpID()); err != nil {
		return err
	}
	s.BumpEpoch()
	return nil
}

// EvaluateWatch evaluates a single ad-hoc expression without persisting it.
func (f *Facade) EvaluateWatch(ctx context.Context, owner, sessionID, expression string) (report.WatchResult, error) {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return report.WatchResult{}, err
	}
	d := s.Driver()
	if d == nil || !d.IsDumpOpen() {
		return report.WatchResult{}, errkind.Preconditionf("no dump open on session %s", sessionID)
	}
	return f.evaluateOne(ctx, d, expression), nil
}

// EvaluateAllWatches evaluates every persisted watch for sessionID's dump.
func (f *Facade) EvaluateAllWatches(ctx context.Context, owner, sessionID string) ([]report.WatchResult, error) {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return nil, err
	}
	d := s.Driver()
	if d == nil || !d.IsDumpOpen() {
		return nil, errkind.Preconditionf("no dump open on session %s", sessionID)
	}
	return f.evaluateAllWatches(ctx, d, owner, s.DumpID())
}

func (f *Facade) evaluateAllWatches(ctx context.Context, d driver.Driver, owner, dumpID string) ([]report.WatchResult, error) {
	watches, err := f.watches.List(owner, dumpID)
	if err != nil {
		return nil, err
	}
	results := make([]report.WatchResult, 0, len(watches))
	for _, w := range watches {
		results = append(results, f.evaluateOne(ctx, d, w.Expression))
	}
	return results, nil
}

func (f *Facade) evaluateOne(ctx context.Context, d driver.Driver, expression string) report.WatchResult {
	out, err := d.Execute(ctx, "print "+expression)
	if err != nil {
		return report.WatchResult{Expression: expression, Error: err.Error()}
	}
	return report.WatchResult{Expression: expression, Value: strings.TrimSpace(out)}
}

// --- inspect operation group ----------------------------------------------

// InspectObject evaluates the managed-runtime walker's object inspection
// for sessionID's currently open dump.
func (f *Facade) InspectObject(ctx context.Context, owner, sessionID, address, methodTable string, maxDepth, maxArrayElems, maxStringLen int) (string, error) {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return "", err
	}
	d := s.Driver()
	if d == nil || !d.IsDumpOpen() {
		return "", errkind.Preconditionf("no dump open on session %s", sessionID)
	}
	if !d.IsExtensionLoaded() {
		return "", errkind.Preconditionf("managed-runtime extension not loaded on session %s", sessionID)
	}
	w, ok, err := walker.Open(ctx, walker.Options{}, d.CurrentDumpPath())
	if err != nil || !ok {
		return "", errkind.Wrap(errkind.KindBackendUnavailable, "open walker", err)
	}
	defer w.Close()
	return w.InspectObject(ctx, address, methodTable, maxDepth, maxArrayElems, maxStringLen)
}

// LoadManagedExtension loads the managed-runtime debugger extension on
// sessionID's driver, a precondition for clr_stack/inspect operations, and
// bumps the mutation epoch.
func (f *Facade) LoadManagedExtension(ctx context.Context, owner, sessionID string) error {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return err
	}
	d := s.Driver()
	if d == nil || !d.IsDumpOpen() {
		return errkind.Preconditionf("no dump open on session %s", sessionID)
	}
	if err := d.LoadExtension(ctx); err != nil {
		return errkind.Wrap(errkind.KindBackendUnavailable, "load managed extension", err)
	}
	s.BumpEpoch()
	return nil
}

// --- symbols operation group ----------------------------------------------

// ConfigureAdditionalSymbolPaths sets sessionID's driver symbol path to
// paths, registers each path with the session's debug-info resolver, and
// bumps the mutation epoch (§8 scenario S4). The driver's previous symbol
// path is replaced, not extended: paths from an earlier call are not kept
// on the driver side.
func (f *Facade) ConfigureAdditionalSymbolPaths(ctx context.Context, owner, sessionID string, paths []string) error {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return err
	}
	d := s.Driver()
	if d == nil {
		return errkind.Preconditionf("session %s has no active driver", sessionID)
	}
	spec := strings.Join(paths, string(os.PathListSeparator))
	if err := d.ConfigureSymbolPath(ctx, spec); err != nil {
		return errkind.Wrap(errkind.KindInternal, "configure symbol path", err)
	}
	r := f.resolverFor(sessionID)
	for _, p := range paths {
		r.RegisterSearchPath(p)
	}
	s.BumpEpoch()
	return nil
}

// ClearSymbolCache drops the session's resolver cache and bumps the
// mutation epoch.
func (f *Facade) ClearSymbolCache(ctx context.Context, owner, sessionID string) error {
	if _, err := f.sessions.Get(owner, sessionID); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.resolvers, sessionID)
	f.mu.Unlock()
	s, _ := f.sessions.Get(owner, sessionID)
	s.BumpEpoch()
	return nil
}

// ReloadSymbols does the same as ClearSymbolCache: it drops the session's
// resolver cache and bumps the mutation epoch. The driver subprocess is not
// restarted and its symbol path is left as it is.
func (f *Facade) ReloadSymbols(ctx context.Context, owner, sessionID string) error {
	return f.ClearSymbolCache(ctx, owner, sessionID)
}

// --- source_link operation group ------------------------------------------

// ResolveSourceLink resolves a (module, token, IL offset) triple to a
// source location via the session's debug-info resolver.
func (f *Facade) ResolveSourceLink(ctx context.Context, owner, sessionID, modulePath, methodToken string, ilOffset int) (debuginfo.Location, bool, error) {
	if _, err := f.sessions.Get(owner, sessionID); err != nil {
		return debuginfo.Location{}, false, err
	}
	loc, ok := f.resolverFor(sessionID).Resolve(modulePath, methodToken, ilOffset)
	return loc, ok, nil
}

// --- exec operation group -------------------------------------------------

// Exec runs a raw debugger command against sessionID's driver, bypassing
// the structured operation groups above; used for commands the façade has
// no dedicated method for.
func (f *Facade) Exec(ctx context.Context, owner, sessionID, command string) (string, error) {
	s, err := f.sessions.Get(owner, sessionID)
	if err != nil {
		return "", err
	}
	d := s.Driver()
	if d == nil {
		return "", errkind.Preconditionf("session %s has no active driver", sessionID)
	}
	out, err := d.Execute(ctx, command)
	if err != nil {
		return "", errkind.Wrap(errkind.KindBackendUnavailable, "execute command", err)
	}
	return out, nil
}
