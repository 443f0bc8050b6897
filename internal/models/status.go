package models

// PlotterState is the transport session's state.
type PlotterState string

const (
	PlotterStateIdle       PlotterState = "idle"
	PlotterStateConnecting PlotterState = "connecting"
	PlotterStateConnected  PlotterState = "connected"
	PlotterStatePlotting   PlotterState = "plotting"
	PlotterStatePaused     PlotterState = "paused"
	PlotterStateCanceled   PlotterState = "canceled"
	PlotterStateError      PlotterState = "error"
)

// PlotterStatus is a snapshot of a transport session. It is a value type:
// every observer receives its own copy.
type PlotterStatus struct {
	State        PlotterState `json:"state"`
	Message      string       `json:"message,omitempty"`
	TotalPackets *int         `json:"totalPackets,omitempty"`
	SentPackets  *int         `json:"sentPackets,omitempty"`
}

// WithProgress returns a copy of s carrying packet counts.
func (s PlotterStatus) WithProgress(total, sent int) PlotterStatus {
	s.TotalPackets = &total
	s.SentPackets = &sent
	return s
}

// Clone returns a copy that does not share the counter pointers.
func (s PlotterStatus) Clone() PlotterStatus {
	if s.TotalPackets != nil {
		v := *s.TotalPackets
		s.TotalPackets = &v
	}
	if s.SentPackets != nil {
		v := *s.SentPackets
		s.SentPackets = &v
	}
	return s
}

// Sent returns the sent packet count, or zero.
func (s PlotterStatus) Sent() int {
	if s.SentPackets == nil {
		return 0
	}
	return *s.SentPackets
}

// Total returns the total packet count, or zero.
func (s PlotterStatus) Total() int {
	if s.TotalPackets == nil {
		return 0
	}
	return *s.TotalPackets
}
