package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/skyduel/dogfight/internal/episode"
	"github.com/skyduel/dogfight/internal/model"
	"github.com/skyduel/dogfight/internal/storage"
)

// Runner is the view of an episode runner the monitor samples.
type Runner interface {
	Name() string
	Context() *episode.Context
	Completed() int
	TicksDone() int
	Backend() storage.Backend
}

// Dependencies holds all dependencies for the monitor service. DB is
// optional; when set every sample is also stored as RunnerPerformance rows.
type Dependencies struct {
	Logger     *slog.Logger
	Runners    []Runner
	Stats      *episode.Stats
	DB         *gorm.DB
	StatusPath string
	Interval   time.Duration
}

// RunnerStatus is the sampled state of one runner.
type RunnerStatus struct {
	Name                string  `json:"name"`
	Episode             string  `json:"episode"`
	Tick                uint    `json:"tick"`
	SimTime             float64 `json:"simTime"`
	EpisodesDone        int     `json:"episodesDone"`
	TicksPerSecond      float64 `json:"ticksPerSecond"`
	WriteQueueLength    int     `json:"writeQueueLength"`
	LastWriteDurationMs float64 `json:"lastWriteDurationMs"`
}

// Status is what the monitor writes to the status file.
type Status struct {
	Time    time.Time       `json:"time"`
	Summary episode.Summary `json:"summary"`
	Runners []RunnerStatus  `json:"runners"`
}

type sample struct {
	at    time.Time
	ticks int
}

// Service periodically samples the runners.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	last map[string]sample
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
		last:     make(map[string]sample),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus samples every runner. Ticks per second is measured against
// the previous call.
func (s *Service) GetStatus(now time.Time) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Time: now, Runners: make([]RunnerStatus, 0, len(s.deps.Runners))}
	if s.deps.Stats != nil {
		st.Summary = s.deps.Stats.Snapshot()
	}
	for _, r := range s.deps.Runners {
		tick, simTime := r.Context().Progress()
		rs := RunnerStatus{
			Name:         r.Name(),
			Episode:      r.Context().GetEpisode().Name,
			Tick:         tick,
			SimTime:      simTime,
			EpisodesDone: r.Completed(),
		}

		ticks := r.TicksDone()
		if prev, ok := s.last[rs.Name]; ok {
			if dt := now.Sub(prev.at).Seconds(); dt > 0 && ticks >= prev.ticks {
				rs.TicksPerSecond = float64(ticks-prev.ticks) / dt
			}
		}
		s.last[rs.Name] = sample{at: now, ticks: ticks}

		if b := r.Backend(); b != nil {
			rs.WriteQueueLength = storage.QueueLength(b)
			rs.LastWriteDurationMs = float64(storage.LastWriteDuration(b).Microseconds()) / 1000
		}
		st.Runners = append(st.Runners, rs)
	}
	return st
}

// Performance converts a status into database rows.
func Performance(st Status) []model.RunnerPerformance {
	out := make([]model.RunnerPerformance, 0, len(st.Runners))
	for _, rs := range st.Runners {
		out = append(out, model.RunnerPerformance{
			Time:                st.Time,
			RunnerName:          rs.Name,
			EpisodesDone:        uint(rs.EpisodesDone),
			TicksPerSecond:      float32(rs.TicksPerSecond),
			WriteQueueLength:    uint32(rs.WriteQueueLength),
			LastWriteDurationMs: float32(rs.LastWriteDurationMs),
		})
	}
	return out
}

// WriteStatusFile replaces the contents of path with st as indented JSON.
func WriteStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func (s *Service) report() {
	st := s.GetStatus(time.Now().UTC())
	logger := s.deps.Logger

	if s.deps.StatusPath != "" {
		if err := WriteStatusFile(s.deps.StatusPath, st); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}
	if s.deps.DB != nil && len(st.Runners) > 0 {
		rows := Performance(st)
		if err := s.deps.DB.Create(&rows).Error; err != nil {
			logger.Error("Error writing runner performance", "error", err)
		}
	}
	logger.Debug("Run status",
		"rounds", st.Summary.Rounds,
		"redWins", st.Summary.RedWins,
		"blueWins", st.Summary.BlueWins,
		"draws", st.Summary.Draws,
	)
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				s.report()
				return
			case <-ticker.C:
				s.report()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor after a final report.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
