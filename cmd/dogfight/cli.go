package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gorm.io/gorm"

	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/database"
	"github.com/skyduel/dogfight/internal/model"
	"github.com/skyduel/dogfight/internal/model/convert"
	"github.com/skyduel/dogfight/pkg/core"
)

// episodeRow is one line of the episodes listing.
type episodeRow struct {
	Episode  core.Episode
	Outcome  *core.Outcome
	Aircraft [2]int // indexed by core.Color
	Missiles int
}

// listEpisodes reads the most recent episodes with their outcome and roster.
func listEpisodes(db *gorm.DB, limit int) ([]episodeRow, error) {
	functionName := "listEpisodes"
	txStart := time.Now()

	var episodes []model.Episode
	if err := db.Model(&model.Episode{}).Order("id DESC").Limit(limit).Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("error getting episodes: %w", err)
	}
	if len(episodes) == 0 {
		return nil, nil
	}
	ids := make([]uint, len(episodes))
	for i, ep := range episodes {
		ids[i] = ep.ID
	}

	var outcomes []model.Outcome
	if err := db.Model(&model.Outcome{}).Where("episode_id IN ?", ids).Find(&outcomes).Error; err != nil {
		return nil, fmt.Errorf("error getting outcomes: %w", err)
	}
	outcomeByEpisode := make(map[uint]core.Outcome, len(outcomes))
	for _, o := range outcomes {
		outcomeByEpisode[o.EpisodeID] = convert.OutcomeToCore(o)
	}

	var entities []model.Entity
	if err := db.Model(&model.Entity{}).Where("episode_id IN ?", ids).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("error getting entities: %w", err)
	}

	rows := make([]episodeRow, len(episodes))
	index := make(map[uint]int, len(episodes))
	for i, m := range episodes {
		rows[i].Episode = convert.EpisodeToCore(m)
		if out, ok := outcomeByEpisode[m.ID]; ok {
			rows[i].Outcome = &out
		}
		index[m.ID] = i
	}
	for _, m := range entities {
		row := &rows[index[m.EpisodeID]]
		info := convert.EntityToCore(m)
		switch info.Kind {
		case core.KindAircraft:
			row.Aircraft[info.Color]++
		case core.KindMissile:
			row.Missiles++
		}
	}

	SlogManager.WriteLog(functionName, fmt.Sprintf("Read %d episodes in %s", len(rows), time.Since(txStart)), "DEBUG")
	return rows, nil
}

func printEpisodes(w io.Writer, rows []episodeRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSEED\tWINNER\tELAPSED\tRED\tBLUE\tMISSILES\tREWARD")
	for _, r := range rows {
		winner, elapsed, reward := "-", "-", "-"
		if r.Outcome != nil {
			winner = string(r.Outcome.Winner)
			if winner == "" {
				winner = "undecided"
			}
			elapsed = fmt.Sprintf("%.1fs", r.Outcome.Elapsed)
			reward = fmt.Sprintf("%.3f/%.3f", r.Outcome.Reward[core.Red], r.Outcome.Reward[core.Blue])
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.Episode.ID, r.Episode.Name, r.Episode.Seed, winner, elapsed,
			r.Aircraft[core.Red], r.Aircraft[core.Blue], r.Missiles, reward)
	}
	return tw.Flush()
}

// showEpisodes lists the episodes stored in postgres.
func showEpisodes(w io.Writer, limit int) error {
	m := database.NewManager(ZLogger.With().Str("component", "database").Logger())
	if err := m.Connect(config.GetDBConfig()); err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	if m.ShouldSaveLocal {
		return fmt.Errorf("postgres is unreachable")
	}

	rows, err := listEpisodes(m.DB, limit)
	if err != nil {
		return err
	}
	return printEpisodes(w, rows)
}

// showBackups lists the episodes of every sqlite dump in the sqlite
// output directory.
func showBackups(w io.Writer, limit int) error {
	dir := config.GetStorageConfig().SQLite.OutputDir
	paths, err := database.GetBackupDBPaths(dir)
	if err != nil {
		return fmt.Errorf("error listing backups in %s: %w", dir, err)
	}
	if len(paths) == 0 {
		fmt.Fprintln(w, "No backups found in", dir)
		return nil
	}

	for _, path := range paths {
		db, err := database.OpenSQLite(path)
		if err != nil {
			Logger.Error("Failed to open backup", "path", path, "error", err)
			continue
		}
		rows, err := listEpisodes(db, limit)
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		if err != nil {
			Logger.Error("Failed to read backup", "path", path, "error", err)
			continue
		}

		fmt.Fprintln(w, path)
		fmt.Fprintln(w, strings.Repeat("-", len(path)))
		if err := printEpisodes(w, rows); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}
