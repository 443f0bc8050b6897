package models

import "time"

// PlotRun is one streamed job as recorded in history.
type PlotRun struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"sessionId"`
	Mode         LayerMode    `json:"mode"`
	Model        PlotterModel `json:"model"`
	Stats        PlotJobStats `json:"stats"`
	TotalPackets int          `json:"totalPackets"`
	SentPackets  int          `json:"sentPackets"`
	State        PlotterState `json:"state"`
	Message      string       `json:"message,omitempty"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   *time.Time   `json:"finishedAt,omitempty"`
}
