package driver

import (
	"context"
	"strings"
)

// Vocabulary supplies the backend-specific command strings and output
// post-processing that distinguish windbgdriver from lldbdriver; Runner
// implements every other mechanic (state machine, sentinel framing,
// subprocess lifecycle) once.
type Vocabulary interface {
	// Family identifies the backend family.
	Family() Family
	// Argv builds the subprocess command line.
	Argv(opts Options) []string
	// SentinelTemplate is the echo/print command shape for the channel's
	// sentinel framing (must contain exactly one "%s").
	SentinelTemplate() string
	// StartupProbe is sent once after spawn; its response (or lack of one
	// within the startup deadline) tells Initialize whether the prompt was
	// reached.
	StartupProbe() string
	// OpenDumpCommand builds the command to open dumpPath, optionally
	// pointing at executablePath for symbol resolution.
	OpenDumpCommand(dumpPath, executablePath string) string
	// CloseDumpCommand builds the command to close the current dump.
	CloseDumpCommand() string
	// LoadExtensionCommand builds the command to load the managed-runtime
	// extension.
	LoadExtensionCommand() string
	// ConfigureSymbolPathCommand builds the command to set the symbol
	// search path.
	ConfigureSymbolPathCommand(pathSpec string) string
	// NormalizeCommand adjusts a pipeline-issued command string for this
	// backend's syntax (e.g. stripping a leading "!" the other family
	// expects), per §4.1's platform-parity requirement.
	NormalizeCommand(command string) string
}

// Runner is the shared mechanics behind both backend-family drivers.
type Runner struct {
	base
	vocab Vocabulary
	opts  Options
}

// NewRunner constructs a Runner for the given vocabulary and options. The
// subprocess is not started until Initialize is called.
func NewRunner(vocab Vocabulary, opts Options) *Runner {
	r := &Runner{vocab: vocab, opts: opts}
	r.base.family = vocab.Family()
	r.base.state = StateSpawned
	return r
}

// Initialize starts the subprocess and waits for it to reach its command
// prompt. Idempotent from Spawned.
func (r *Runner) Initialize(ctx context.Context) error {
	if r.IsInitialized() {
		return nil
	}
	if err := r.requireState(ErrInitializationFailed, StateSpawned); err != nil {
		return err
	}

	startCtx := ctx
	var cancel context.CancelFunc
	if r.opts.StartupTimeout > 0 {
		startCtx, cancel = context.WithTimeout(ctx, r.opts.StartupTimeout)
		defer cancel()
	}

	ch, err := newChannel(ctx, r.vocab.Argv(r.opts), r.vocab.SentinelTemplate())
	if err != nil {
		return errWrap(ErrInitializationFailed, err)
	}

	if _, err := ch.send(startCtx, r.vocab.StartupProbe()); err != nil {
		ch.dispose()
		return errWrap(ErrInitializationFailed, err)
	}

	r.mu.Lock()
	r.ch = ch
	r.mu.Unlock()
	r.setState(StateInitialized)
	return nil
}

// OpenDump opens dumpPath, valid only from Initialized.
func (r *Runner) OpenDump(ctx context.Context, dumpPath, executablePath string) error {
	if err := r.requireState(ErrNotInitialized, StateInitialized); err != nil {
		return err
	}
	cmdCtx, cancel := r.withDefaultTimeout(ctx)
	defer cancel()
	if _, err := r.send(cmdCtx, r.vocab.OpenDumpCommand(dumpPath, executablePath)); err != nil {
		return errWrap(ErrDumpOpenFailed, err)
	}
	r.mu.Lock()
	r.dumpPath = dumpPath
	r.executablePath = executablePath
	r.mu.Unlock()
	r.setState(StateDumpOpen)
	return nil
}

// CloseDump closes the current dump, from DumpOpen back to Initialized.
func (r *Runner) CloseDump(ctx context.Context) error {
	if err := r.requireState(ErrNoDumpOpen, StateDumpOpen); err != nil {
		return err
	}
	cmdCtx, cancel := r.withDefaultTimeout(ctx)
	defer cancel()
	if _, err := r.send(cmdCtx, r.vocab.CloseDumpCommand()); err != nil {
		return err
	}
	r.mu.Lock()
	r.dumpPath = ""
	r.extensionLoaded = false
	r.runtimeFamily = ""
	r.mu.Unlock()
	r.setState(StateInitialized)
	return nil
}

// Execute runs command through the vocabulary's normalization and returns
// its output text.
func (r *Runner) Execute(ctx context.Context, command string) (string, error) {
	if err := r.requireState(ErrNotInitialized, StateInitialized, StateDumpOpen); err != nil {
		return "", err
	}
	cmdCtx, cancel := r.withDefaultTimeout(ctx)
	defer cancel()
	return r.send(cmdCtx, r.vocab.NormalizeCommand(command))
}

// LoadExtension loads the managed-runtime extension into the session.
func (r *Runner) LoadExtension(ctx context.Context) error {
	if err := r.requireState(ErrNotInitialized, StateInitialized, StateDumpOpen); err != nil {
		return err
	}
	cmdCtx, cancel := r.withDefaultTimeout(ctx)
	defer cancel()
	out, err := r.send(cmdCtx, r.vocab.LoadExtensionCommand())
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.extensionLoaded = true
	if strings.Contains(strings.ToLower(out), "coreclr") || strings.Contains(strings.ToLower(out), "clr") {
		r.runtimeFamily = "dotnet"
	}
	r.mu.Unlock()
	return nil
}

// ConfigureSymbolPath sets the symbol search path.
func (r *Runner) ConfigureSymbolPath(ctx context.Context, pathSpec string) error {
	if err := r.requireState(ErrNotInitialized, StateInitialized, StateDumpOpen); err != nil {
		return err
	}
	cmdCtx, cancel := r.withDefaultTimeout(ctx)
	defer cancel()
	_, err := r.send(cmdCtx, r.vocab.ConfigureSymbolPathCommand(pathSpec))
	return err
}

// Dispose terminates the subprocess. Valid from any state; terminal.
func (r *Runner) Dispose(ctx context.Context) error {
	return r.base.dispose(ctx)
}

func (r *Runner) send(ctx context.Context, command string) (string, error) {
	r.mu.RLock()
	ch := r.ch
	r.mu.RUnlock()
	if ch == nil {
		return "", ErrNotInitialized
	}
	return ch.send(ctx, command)
}

func (r *Runner) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	if r.opts.DefaultCommandTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opts.DefaultCommandTimeout)
}
