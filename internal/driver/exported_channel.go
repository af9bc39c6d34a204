package driver

import "context"

// Channel is the exported face of the sentinel-framed command channel, for
// reuse outside this package by the managed-runtime walker (C4), which
// talks to its own companion helper process rather than a debugger backend.
type Channel struct {
	inner *channel
}

// NewChannel starts argv as a subprocess and wires it for sentinel-framed
// request/response, per the same protocol windbgdriver/lldbdriver use: see
// channel.go's newChannel for the framing contract sentinelTemplate must
// satisfy.
func NewChannel(ctx context.Context, argv []string, sentinelTemplate string) (*Channel, error) {
	inner, err := newChannel(ctx, argv, sentinelTemplate)
	if err != nil {
		return nil, err
	}
	return &Channel{inner: inner}, nil
}

// Send writes command and returns everything output before the sentinel.
func (c *Channel) Send(ctx context.Context, command string) (string, error) {
	return c.inner.send(ctx, command)
}

// Dispose terminates the subprocess.
func (c *Channel) Dispose() {
	c.inner.dispose()
}

// IsCrashed reports whether the subprocess has exited.
func (c *Channel) IsCrashed() bool {
	return c.inner.isCrashed()
}
