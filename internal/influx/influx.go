package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/episode"
	"github.com/skyduel/dogfight/pkg/core"
)

// Measurement names.
const (
	MeasurementOutcome = "episode_outcome"
	MeasurementSummary = "run_summary"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// Manager handles InfluxDB connections and writes. When the server cannot
// be reached, points are written as gzip line protocol to BackupPath.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig, backupPath string) *Manager {
	return &Manager{
		Logger:     log,
		BackupPath: backupPath,
		cfg:        cfg,
	}
}

// Connect establishes a connection to InfluxDB, falling back to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	running, err := m.Client.Ping(pingCtx)
	cancel()

	if err != nil || !running {
		m.IsValid = false
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to reach InfluxDB, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.Writer.Errors())

	m.IsValid = true
	m.Logger.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.BackupPath), 0755); err != nil {
		return fmt.Errorf("error creating backup dir: %w", err)
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	org, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		org, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

	rule := domain.RetentionRuleTypeExpire
	_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * 30,
	})
	if err != nil {
		m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
		return err
	}
	return nil
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := strings.TrimRight(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteOutcome records one finished episode.
func (m *Manager) WriteOutcome(_ context.Context, ep *core.Episode, out *core.Outcome) error {
	return m.WritePoint(OutcomePoint(ep, out))
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// OutcomePoint converts an episode result into a point.
func OutcomePoint(ep *core.Episode, out *core.Outcome) *influxdb2_write.Point {
	winner := string(out.Winner)
	if winner == "" {
		winner = "undecided"
	}
	p := influxdb2_write.NewPointWithMeasurement(MeasurementOutcome).
		AddTag("runner", ep.RunnerName).
		AddTag("winner", winner).
		AddTag("truncated", strconv.FormatBool(out.Truncated)).
		AddField("episode", ep.Name).
		AddField("seed", ep.Seed).
		AddField("elapsed", out.Elapsed).
		AddField("ticks", out.Ticks).
		AddField("reward_red", out.Reward[core.Red]).
		AddField("reward_blue", out.Reward[core.Blue]).
		AddField("aircraft_red", out.Remaining.Aircraft[core.Red]).
		AddField("aircraft_blue", out.Remaining.Aircraft[core.Blue])
	if !out.EndTime.IsZero() {
		p.SetTime(out.EndTime)
	}
	return p
}

// SummaryPoint converts the aggregate of a run into a point.
func SummaryPoint(tag string, s episode.Summary, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementSummary).
		AddTag("tag", tag).
		AddField("rounds", s.Rounds).
		AddField("red_wins", s.RedWins).
		AddField("blue_wins", s.BlueWins).
		AddField("draws", s.Draws).
		AddField("truncated", s.Truncated).
		AddField("reward_red", s.Reward[core.Red]).
		AddField("reward_blue", s.Reward[core.Blue]).
		SetTime(at)
}

// ParsePoint builds a point from textual arguments:
//
//	0 = measurement name
//	n with "tag::" prefix = tag::name::value
//	n with "field::" prefix = field::type::name::value, type is string, int or float
func ParsePoint(args []string) (*influxdb2_write.Point, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, errors.New("missing measurement name")
	}
	point := influxdb2_write.NewPointWithMeasurement(args[0])

	fields := 0
	for _, arg := range args[1:] {
		parts := strings.Split(arg, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])
		case parts[0] == "field" && len(parts) >= 4:
			fieldType, fieldName, fieldValue := parts[1], parts[2], parts[3]
			switch fieldType {
			case "string":
				point.AddField(fieldName, fieldValue)
			case "int":
				v, err := strconv.Atoi(fieldValue)
				if err != nil {
					return nil, fmt.Errorf("error converting field value '%s' to int: %w", fieldValue, err)
				}
				point.AddField(fieldName, v)
			case "float":
				v, err := strconv.ParseFloat(fieldValue, 64)
				if err != nil {
					return nil, fmt.Errorf("error converting field value '%s' to float: %w", fieldValue, err)
				}
				point.AddField(fieldName, v)
			default:
				return nil, fmt.Errorf("unknown field type %q", fieldType)
			}
			fields++
		default:
			return nil, fmt.Errorf("malformed metric argument %q", arg)
		}
	}
	if fields == 0 {
		return nil, fmt.Errorf("measurement %q has no fields", args[0])
	}
	return point, nil
}
