// Package transport streams EBB packets to a plotter over a serial link with
// pause, resume and cancel control.
package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/plotter-studio/backend/internal/models"
)

const (
	DefaultPacketDelay  = 4 * time.Millisecond
	DefaultPollInterval = 120 * time.Millisecond
)

// Status messages surfaced to operators.
const (
	MsgNotConnected  = "Not connected"
	MsgUnsupported   = "Serial is not supported in this environment."
	MsgConnecting    = "Connecting to plotter..."
	MsgConnected     = "Connected"
	MsgConnectFailed = "Connection failed"
	MsgNoConnection  = "No plotter connection found."
	MsgPlotting      = "Plotting in progress"
	MsgResumedLayer  = "Resumed plotting"
	MsgComplete      = "Plot complete"
	MsgCanceled      = "Plot canceled"
	MsgWriteFailed   = "Plot command failed"
	MsgPaused        = "Paused"
	MsgResumed       = "Resumed"
	MsgCancelSent    = "Cancel request sent"
	MsgDisconnected  = "Disconnected"
)

// Port is an open, writable device link.
type Port interface {
	io.WriteCloser
}

// Opener acquires a Port. Available reports whether the host can open one at all.
type Opener interface {
	Available() bool
	Open(ctx context.Context) (Port, error)
}

// StatusFunc receives a copy of the status after every transition.
type StatusFunc = func(models.PlotterStatus)

// Options tunes pacing. Zero values take the defaults.
type Options struct {
	PacketDelay  time.Duration
	PollInterval time.Duration
}

// Session owns one plotter link and at most one in-flight send.
type Session struct {
	opener       Opener
	packetDelay  time.Duration
	pollInterval time.Duration

	mu       sync.Mutex
	port     Port
	status   models.PlotterStatus
	sending  bool
	paused   bool
	canceled bool
	wake     chan struct{}

	// writeMu serializes line writes so an emergency stop never interleaves
	// with a command in flight.
	writeMu sync.Mutex

	notifyMu  sync.Mutex
	observers map[int]StatusFunc
	nextObs   int
}

// NewSession creates an idle session.
func NewSession(opener Opener, opts Options) *Session {
	if opts.PacketDelay <= 0 {
		opts.PacketDelay = DefaultPacketDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Session{
		opener:       opener,
		packetDelay:  opts.PacketDelay,
		pollInterval: opts.PollInterval,
		status:       models.PlotterStatus{State: models.PlotterStateIdle, Message: MsgNotConnected},
		wake:         make(chan struct{}, 1),
		observers:    make(map[int]StatusFunc),
	}
}

// Subscribe registers fn for status updates. Observers must not call methods
// that change the session status. The returned func unregisters fn.
func (s *Session) Subscribe(fn StatusFunc) func() {
	s.notifyMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.observers, id)
		s.notifyMu.Unlock()
	}
}

// Supported reports whether the host exposes a serial capability.
func (s *Session) Supported() bool {
	return s.opener != nil && s.opener.Available()
}

// Status returns a snapshot of the current status.
func (s *Session) Status() models.PlotterStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Clone()
}

// IsConnected reports whether a link is open and usable.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status.State {
	case models.PlotterStateConnected, models.PlotterStatePlotting, models.PlotterStatePaused:
		return true
	}
	return false
}

// IsSending reports whether a send loop is active.
func (s *Session) IsSending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// setStatus replaces the status via mutate, which runs with mu held, and
// notifies observers in order.
func (s *Session) setStatus(mutate func(cur models.PlotterStatus) models.PlotterStatus) models.PlotterStatus {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.status = mutate(s.status.Clone())
	snapshot := s.status.Clone()
	s.mu.Unlock()

	s.notifyLocked(snapshot)
	return snapshot
}

// notifyLocked must be called with notifyMu held.
func (s *Session) notifyLocked(snapshot models.PlotterStatus) {
	for _, fn := range s.observers {
		fn(snapshot.Clone())
	}
}

func (s *Session) replaceStatus(state models.PlotterState, message string) models.PlotterStatus {
	return s.setStatus(func(models.PlotterStatus) models.PlotterStatus {
		return models.PlotterStatus{State: state, Message: message}
	})
}

// Connect opens the link. Failures become an error status, never a returned error.
func (s *Session) Connect(ctx context.Context) models.PlotterStatus {
	if !s.Supported() {
		return s.replaceStatus(models.PlotterStateError, MsgUnsupported)
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return s.Status()
	}
	stale := s.port
	s.port = nil
	s.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}

	s.replaceStatus(models.PlotterStateConnecting, MsgConnecting)

	port, err := s.opener.Open(ctx)
	if err != nil {
		fmt.Printf("[Transport] Connect failed: %v\n", err)
		return s.replaceStatus(models.PlotterStateError, errorMessage(err, MsgConnectFailed))
	}

	s.mu.Lock()
	s.port = port
	s.mu.Unlock()

	fmt.Printf("[Transport] Connected\n")
	return s.replaceStatus(models.PlotterStateConnected, MsgConnected)
}

// Disconnect clears pause and cancel flags, closes the link and resets to idle.
func (s *Session) Disconnect() models.PlotterStatus {
	s.mu.Lock()
	s.paused = false
	s.canceled = false
	port := s.port
	s.port = nil
	s.mu.Unlock()
	s.signalWake()

	if port != nil {
		// The link may already be gone.
		_ = port.Close()
	}

	fmt.Printf("[Transport] Disconnected\n")
	return s.replaceStatus(models.PlotterStateIdle, MsgDisconnected)
}

// Pause halts streaming before the next packet. It is a no-op unless plotting.
func (s *Session) Pause() models.PlotterStatus {
	return s.toggle(models.PlotterStatePlotting, models.PlotterStatePaused, MsgPaused, true)
}

// Resume continues a paused send. It is a no-op unless paused.
func (s *Session) Resume() models.PlotterStatus {
	return s.toggle(models.PlotterStatePaused, models.PlotterStatePlotting, MsgResumed, false)
}

func (s *Session) toggle(from, to models.PlotterState, message string, paused bool) models.PlotterStatus {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.status.State != from {
		snapshot := s.status.Clone()
		s.mu.Unlock()
		return snapshot
	}
	s.paused = paused
	s.status.State = to
	s.status.Message = message
	snapshot := s.status.Clone()
	s.mu.Unlock()
	s.signalWake()

	s.notifyLocked(snapshot)
	return snapshot
}

// Cancel stops the active send at its next checkpoint and sends a best-effort
// emergency stop. Packet counts are kept.
func (s *Session) Cancel() models.PlotterStatus {
	s.mu.Lock()
	s.canceled = true
	s.paused = false
	port := s.port
	s.mu.Unlock()
	s.signalWake()

	if port != nil {
		s.writeMu.Lock()
		_, err := port.Write(line("ES"))
		s.writeMu.Unlock()
		if err != nil {
			fmt.Printf("[Transport] Emergency stop not delivered: %v\n", err)
		}
	}

	return s.setStatus(func(cur models.PlotterStatus) models.PlotterStatus {
		cur.State = models.PlotterStateCanceled
		cur.Message = MsgCancelSent
		return cur
	})
}

// Send streams packets in order and blocks until they are all written, the
// send is canceled, ctx is done, or a write fails. A second Send while one is
// in flight returns immediately without effect.
func (s *Session) Send(ctx context.Context, packets []models.Packet) models.PlotterStatus {
	s.mu.Lock()
	port := s.port
	if port == nil {
		s.mu.Unlock()
		return s.replaceStatus(models.PlotterStateError, MsgNoConnection)
	}
	if s.sending {
		snapshot := s.status.Clone()
		s.mu.Unlock()
		return snapshot
	}
	s.sending = true
	s.paused = false
	s.canceled = false
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	total := len(packets)
	sent := 0
	progress := func(state models.PlotterState, message string) (models.PlotterStatus, bool) {
		return s.sendStatus(port, func(models.PlotterStatus) models.PlotterStatus {
			return models.PlotterStatus{State: state, Message: message}.WithProgress(total, sent)
		})
	}
	canceled := func() models.PlotterStatus {
		st, _ := s.sendStatus(port, func(models.PlotterStatus) models.PlotterStatus {
			return models.PlotterStatus{State: models.PlotterStateCanceled, Message: MsgCanceled}
		})
		return st
	}

	if st, ok := progress(models.PlotterStatePlotting, MsgPlotting); !ok {
		return st
	}
	fmt.Printf("[Transport] Sending %d packets\n", total)

	for _, packet := range packets {
		if s.stopRequested(ctx) {
			return canceled()
		}

		if !s.waitWhilePaused(ctx) {
			return canceled()
		}
		if s.detached(port) {
			return s.Status()
		}

		switch p := packet.(type) {
		case models.PauseMarker:
			s.mu.Lock()
			s.paused = true
			s.mu.Unlock()
			if st, ok := progress(models.PlotterStatePaused, "Paused before layer "+p.LayerName); !ok {
				return st
			}

			if !s.waitWhilePaused(ctx) {
				return canceled()
			}
			if st, ok := progress(models.PlotterStatePlotting, MsgResumedLayer); !ok {
				return st
			}

		case models.CommandPacket:
			s.writeMu.Lock()
			_, err := port.Write(line(p.Command))
			s.writeMu.Unlock()
			if err != nil {
				if s.detached(port) {
					return s.Status()
				}
				fmt.Printf("[Transport] Write failed after %d/%d packets: %v\n", sent, total, err)
				st, _ := progress(models.PlotterStateError, errorMessage(err, MsgWriteFailed))
				return st
			}
			sent++
			st, ok := s.sendStatus(port, func(cur models.PlotterStatus) models.PlotterStatus {
				// An explicit pause during the write keeps its state.
				if s.paused && cur.State == models.PlotterStatePaused {
					return cur.WithProgress(total, sent)
				}
				return models.PlotterStatus{State: models.PlotterStatePlotting, Message: MsgPlotting}.WithProgress(total, sent)
			})
			if !ok {
				return st
			}

			if !sleepContext(ctx, s.packetDelay) {
				return canceled()
			}
		}
	}

	if s.stopRequested(ctx) || s.detached(port) {
		return s.Status()
	}

	fmt.Printf("[Transport] Plot complete: %d/%d packets\n", sent, total)
	st, _ := progress(models.PlotterStateConnected, MsgComplete)
	return st
}

// sendStatus is setStatus for a send loop streaming to port. Once Disconnect
// or Connect has detached port the loop no longer owns the status: the update
// is dropped and ok is false.
func (s *Session) sendStatus(port Port, mutate func(cur models.PlotterStatus) models.PlotterStatus) (st models.PlotterStatus, ok bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.port != port {
		snapshot := s.status.Clone()
		s.mu.Unlock()
		return snapshot, false
	}
	s.status = mutate(s.status.Clone())
	snapshot := s.status.Clone()
	s.mu.Unlock()

	s.notifyLocked(snapshot)
	return snapshot, true
}

func (s *Session) stopRequested(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled || ctx.Err() != nil
}

// signalWake nudges a sender blocked in waitWhilePaused.
func (s *Session) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// waitWhilePaused blocks until the session is resumed. Control calls wake it
// early; otherwise it re-checks every poll interval.
// It returns false if the send was canceled while waiting.
func (s *Session) waitWhilePaused(ctx context.Context) bool {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		paused, canceled := s.paused, s.canceled
		s.mu.Unlock()

		if canceled || ctx.Err() != nil {
			return false
		}
		if !paused {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-s.wake:
		case <-ticker.C:
		}
	}
}

// detached reports whether port was closed by Disconnect or replaced by Connect.
func (s *Session) detached(port Port) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != port
}

func line(command string) []byte {
	return []byte(command + "\r")
}

func errorMessage(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
