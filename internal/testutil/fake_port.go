// fake_port.go - In-memory serial link for transport tests
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/plotter-studio/backend/internal/transport"
)

// ErrPortClosed is returned by writes after Close.
var ErrPortClosed = errors.New("port closed")

// FakePort records every line written to it.
type FakePort struct {
	mu      sync.Mutex
	lines   []string
	closed  bool
	failAt  int
	failErr error

	// OnWrite, if set, runs after each successful write with the line written.
	OnWrite func(line string)
}

// NewFakePort creates an open port that never fails.
func NewFakePort() *FakePort {
	return &FakePort{failAt: -1}
}

// FailOnWrite makes the n-th write (zero-based) and later writes return err.
func (p *FakePort) FailOnWrite(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAt = n
	p.failErr = err
}

func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if p.failAt >= 0 && len(p.lines) >= p.failAt {
		err := p.failErr
		p.mu.Unlock()
		return 0, err
	}
	line := strings.TrimSuffix(string(b), "\r")
	p.lines = append(p.lines, line)
	hook := p.OnWrite
	p.mu.Unlock()

	if hook != nil {
		hook(line)
	}
	return len(b), nil
}

func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	return nil
}

// Lines returns a copy of the lines written so far, without terminators.
func (p *FakePort) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

// Closed reports whether Close was called.
func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// FakeOpener hands out a fixed port.
type FakeOpener struct {
	Port        *FakePort
	Unavailable bool
	OpenErr     error

	mu    sync.Mutex
	opens int
}

func (o *FakeOpener) Available() bool {
	return !o.Unavailable
}

func (o *FakeOpener) Open(ctx context.Context) (transport.Port, error) {
	o.mu.Lock()
	o.opens++
	o.mu.Unlock()

	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.Port, nil
}

// Opens returns how many times Open was called.
func (o *FakeOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}
