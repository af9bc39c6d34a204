package driver

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
)

// channel is the sentinel-framed command/response mechanics shared by every
// subprocess-backed driver (windbgdriver, lldbdriver) and reused by the
// managed-runtime walker. It is single-writer cooperative: Send holds a
// mutex for its whole round trip, so callers never need their own
// synchronization around a channel instance.
//
// Framing protocol: write the command, a newline, then an echo command that
// prints a pseudo-random sentinel token back to stdout. Read lines until the
// sentinel line is seen, returning everything before it. Stderr is drained
// on its own goroutine and merged into the result behind a stable marker so
// a command that writes only to stderr is never silently lost.
type channel struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner

	sentinelTemplate string // contains a single %s for the per-call token

	// lines is fed by the single persistent stdout-reading goroutine started
	// in newChannel. send() never starts its own reader: a timed-out send
	// just stops consuming from lines, leaving the one reader goroutine
	// running so a later send() never races it with a second Scan() call.
	lines chan string

	mu       sync.Mutex
	crashed  bool
	waitErr  error
	waitDone chan struct{}

	stderrMu  sync.Mutex
	stderrBuf strings.Builder
}

// newChannel starts argv[0] with argv[1:], wiring stdin/stdout/stderr for
// sentinel-framed request/response. sentinelTemplate must contain exactly
// one "%s" verb where the per-call random token is substituted, shaped as
// the backend's echo/print command (e.g. ".echo SENTINEL-%s" or
// "print \"SENTINEL-%s\"").
func newChannel(ctx context.Context, argv []string, sentinelTemplate string) (*channel, error) {
	if len(argv) == 0 {
		return nil, ErrInitializationFailed
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errWrap(ErrInitializationFailed, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errWrap(ErrInitializationFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errWrap(ErrInitializationFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errWrap(ErrInitializationFailed, err)
	}

	c := &channel{
		cmd:              cmd,
		stdin:            stdin,
		stdout:           bufio.NewScanner(stdout),
		sentinelTemplate: sentinelTemplate,
		lines:            make(chan string, 64),
		waitDone:         make(chan struct{}),
	}
	c.stdout.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	go c.readStdout()
	go c.drainStderr(stderr)
	go c.watchExit()

	return c, nil
}

// readStdout is the channel's one and only stdout reader, running for the
// whole process lifetime so that a send() which gives up on ctx.Done()
// never leaves a second goroutine to start scanning concurrently.
func (c *channel) readStdout() {
	for c.stdout.Scan() {
		c.lines <- c.stdout.Text()
	}
	close(c.lines)
}

func (c *channel) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		c.stderrMu.Lock()
		c.stderrBuf.WriteString(scanner.Text())
		c.stderrBuf.WriteByte('\n')
		c.stderrMu.Unlock()
	}
}

func (c *channel) watchExit() {
	err := c.cmd.Wait()
	c.mu.Lock()
	c.crashed = true
	c.waitErr = err
	c.mu.Unlock()
	close(c.waitDone)
}

// send writes command and reads back everything up to the sentinel,
// blocking until the sentinel is observed, ctx is done, or the subprocess
// exits. It is safe to call concurrently; calls are serialized.
func (c *channel) send(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.crashed {
		return "", ErrDebuggerGone
	}

	token := randomToken()
	sentinel := fmt.Sprintf(c.sentinelTemplate, token)
	marker := sentinelMarker(token)

	if _, err := io.WriteString(c.stdin, command+"\n"); err != nil {
		return "", errWrap(ErrDebuggerGone, err)
	}
	if _, err := io.WriteString(c.stdin, sentinel+"\n"); err != nil {
		return "", errWrap(ErrDebuggerGone, err)
	}

	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ErrCommandTimedOut
		case <-c.waitDone:
			return "", ErrDebuggerGone
		case line, ok := <-c.lines:
			if !ok {
				return "", errWrap(ErrDebuggerGone, c.stdout.Err())
			}
			if strings.Contains(line, marker) {
				return c.mergeStderr(sb.String()), nil
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
}

// mergeStderr appends any stderr captured since the last call, separated by
// a stable marker, so error output is never silently dropped.
func (c *channel) mergeStderr(stdoutText string) string {
	c.stderrMu.Lock()
	defer c.stderrMu.Unlock()
	if c.stderrBuf.Len() == 0 {
		return stdoutText
	}
	merged := stdoutText + "--- stderr ---\n" + c.stderrBuf.String()
	c.stderrBuf.Reset()
	return merged
}

// dispose terminates the subprocess. Safe to call more than once.
func (c *channel) dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
}

// isCrashed reports whether the subprocess has exited.
func (c *channel) isCrashed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.crashed
}

func sentinelMarker(token string) string {
	return "SENTINEL-" + token
}

func randomToken() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// errWrap re-wraps a package-level *errkind.Error sentinel with a
// call-specific cause, preserving its Kind and base message.
func errWrap(sentinel error, cause error) error {
	e, ok := sentinel.(*errkind.Error)
	if !ok {
		return sentinel
	}
	return errkind.Wrap(e.Kind, e.Message, cause)
}
