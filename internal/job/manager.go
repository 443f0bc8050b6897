// Package job runs plot streams in the background and records them to history.
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plotter-studio/backend/internal/models"
)

// Status represents the plot job status.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusCanceled Status = "canceled"
	StatusError    Status = "error"
)

var (
	// ErrNotConnected is returned when no plotter link is open.
	ErrNotConnected = errors.New("plotter is not connected")
	// ErrBusy is returned while another job is streaming.
	ErrBusy = errors.New("a plot is already in progress")
)

// Job represents an async plot stream.
type Job struct {
	ID           string              `json:"id"`
	SessionID    string              `json:"sessionId"`
	Mode         models.LayerMode    `json:"mode"`
	Model        models.PlotterModel `json:"model"`
	Stats        models.PlotJobStats `json:"stats"`
	Status       Status              `json:"status"`
	Stage        string              `json:"stage"`
	Progress     float64             `json:"progress"`
	TotalPackets int                 `json:"totalPackets"`
	SentPackets  int                 `json:"sentPackets"`
	Error        string              `json:"error,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	CompletedAt  *time.Time          `json:"completedAt,omitempty"`
}

// Sender streams packets to the plotter.
type Sender interface {
	Send(ctx context.Context, packets []models.Packet) models.PlotterStatus
	Subscribe(fn func(models.PlotterStatus)) func()
	IsConnected() bool
	IsSending() bool
}

// Planner compiles a render session into packets.
type Planner interface {
	Packets(sessionID string, mode models.LayerMode, cfg models.PlotterConfig) ([]models.Packet, models.PlotJobPlan, error)
}

// Recorder stores run snapshots.
type Recorder interface {
	Record(ctx context.Context, run models.PlotRun) error
}

// Manager handles async plot jobs. At most one job streams at a time.
type Manager struct {
	jobs     map[string]*Job
	mu       sync.RWMutex
	sender   Sender
	planner  Planner
	recorder Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	active string
}

// NewManager creates a job manager. recorder may be nil.
func NewManager(sender Sender, planner Planner, recorder Recorder) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:     make(map[string]*Job),
		sender:   sender,
		planner:  planner,
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// StartJob plans a session and begins streaming it.
func (m *Manager) StartJob(sessionID string, mode models.LayerMode, cfg models.PlotterConfig) (Job, error) {
	if !m.sender.IsConnected() {
		return Job{}, ErrNotConnected
	}

	packets, plan, err := m.planner.Packets(sessionID, mode, cfg)
	if err != nil {
		return Job{}, err
	}

	m.mu.Lock()
	if m.active != "" || m.sender.IsSending() {
		m.mu.Unlock()
		return Job{}, ErrBusy
	}
	job := &Job{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		Mode:         mode,
		Model:        cfg.Model,
		Stats:        plan.Stats,
		Status:       StatusRunning,
		Stage:        "starting",
		TotalPackets: len(packets),
		CreatedAt:    time.Now(),
	}
	m.jobs[job.ID] = job
	m.active = job.ID
	snapshot := *job
	m.mu.Unlock()

	m.record(job, models.PlotterStatePlotting, "")

	m.wg.Add(1)
	go m.runJob(job, packets)

	return snapshot, nil
}

// runJob handles the actual streaming.
func (m *Manager) runJob(job *Job, packets []models.Packet) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.finish(job, models.PlotterStatus{State: models.PlotterStateError, Message: fmt.Sprintf("plot job panicked: %v", r)})
		}
	}()

	fmt.Printf("[PlotJob %s] Starting: %d packets, %d strokes\n", job.ID[:8], len(packets), job.Stats.StrokeCount)

	unsubscribe := m.sender.Subscribe(func(st models.PlotterStatus) {
		m.updateJobStatus(job, st)
	})
	final := m.sender.Send(m.ctx, packets)
	unsubscribe()

	m.finish(job, final)
}

// updateJobStatus mirrors transport progress onto the job (thread-safe).
func (m *Manager) updateJobStatus(job *Job, st models.PlotterStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job.Status != StatusRunning {
		return
	}
	job.Stage = st.Message
	if st.SentPackets != nil {
		job.SentPackets = st.Sent()
	}
	if job.TotalPackets > 0 {
		job.Progress = float64(job.SentPackets) * 100 / float64(job.TotalPackets)
	}
}

// finish stores the terminal status and records the run.
func (m *Manager) finish(job *Job, final models.PlotterStatus) {
	m.mu.Lock()
	if job.Status != StatusRunning {
		m.mu.Unlock()
		return
	}

	switch final.State {
	case models.PlotterStateConnected:
		job.Status = StatusComplete
		job.Progress = 100
	case models.PlotterStateCanceled:
		job.Status = StatusCanceled
	default:
		job.Status = StatusError
		job.Error = final.Message
	}
	if final.SentPackets != nil {
		job.SentPackets = final.Sent()
	}
	job.Stage = final.Message
	now := time.Now()
	job.CompletedAt = &now
	if m.active == job.ID {
		m.active = ""
	}
	m.mu.Unlock()

	fmt.Printf("[PlotJob %s] Finished: %s (%d/%d packets)\n", job.ID[:8], job.Status, job.SentPackets, job.TotalPackets)
	m.record(job, final.State, final.Message)
}

func (m *Manager) record(job *Job, state models.PlotterState, message string) {
	if m.recorder == nil {
		return
	}

	m.mu.RLock()
	run := models.PlotRun{
		ID:           job.ID,
		SessionID:    job.SessionID,
		Mode:         job.Mode,
		Model:        job.Model,
		Stats:        job.Stats,
		TotalPackets: job.TotalPackets,
		SentPackets:  job.SentPackets,
		State:        state,
		Message:      message,
		StartedAt:    job.CreatedAt,
		FinishedAt:   job.CompletedAt,
	}
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.recorder.Record(ctx, run); err != nil {
		fmt.Printf("[PlotJob %s] Warning: failed to record run: %v\n", job.ID[:8], err)
	}
}

// GetJob returns a snapshot of a job by ID.
func (m *Manager) GetJob(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// ActiveJob returns the job currently streaming, if any.
func (m *Manager) ActiveJob() (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == "" {
		return Job{}, false
	}
	return *m.jobs[m.active], true
}

// CleanupOldJobs removes finished jobs older than the specified duration.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Status != StatusRunning && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

// Shutdown stops any running job and waits for it to finish recording.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}
