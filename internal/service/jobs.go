package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/flybeeper/radarsim/internal/models"
)

// JobStatus состояние задачи анализа
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job задача пакетного анализа
type Job struct {
	mu sync.RWMutex

	id       string
	days     int
	status   JobStatus
	progress int
	err      string
	started  time.Time
	finished time.Time
	result   *models.SimulationResult
	cancel   context.CancelFunc
}

// JobInfo снимок состояния задачи для ответа API
type JobInfo struct {
	ID         string                   `json:"id"`
	Days       int                      `json:"days"`
	Status     JobStatus                `json:"status"`
	Progress   int                      `json:"progress"`
	Error      string                   `json:"error,omitempty"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt *time.Time               `json:"finished_at,omitempty"`
	Result     *models.SimulationResult `json:"result,omitempty"`
}

func newJob(id string, days int, cancel context.CancelFunc) *Job {
	return &Job{
		id:      id,
		days:    days,
		status:  JobRunning,
		started: time.Now(),
		cancel:  cancel,
	}
}

// ID идентификатор задачи
func (j *Job) ID() string {
	return j.id
}

// Info возвращает копию состояния задачи
func (j *Job) Info() JobInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()

	info := JobInfo{
		ID:        j.id,
		Days:      j.days,
		Status:    j.status,
		Progress:  j.progress,
		Error:     j.err,
		StartedAt: j.started,
		Result:    j.result,
	}
	if !j.finished.IsZero() {
		finished := j.finished
		info.FinishedAt = &finished
	}
	return info
}

// Done сообщает, завершена ли задача
func (j *Job) Done() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status != JobRunning
}

func (j *Job) setProgress(p int) {
	j.mu.Lock()
	j.progress = p
	j.mu.Unlock()
}

func (j *Job) finish(result *models.SimulationResult, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.finished = time.Now()
	switch {
	case err == nil:
		j.status = JobCompleted
		j.progress = 100
		j.result = result
	case errors.Is(err, context.Canceled):
		j.status = JobCancelled
		j.err = err.Error()
	default:
		j.status = JobFailed
		j.err = err.Error()
	}
}
