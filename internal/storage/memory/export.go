package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"

	"github.com/skyduel/dogfight/internal/logging"
	v1 "github.com/skyduel/dogfight/internal/storage/memory/export/v1"
)

// exportJSON writes the episode data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := v1.Build(b.episodeData())

	ext := ".json"
	if b.cfg.CompressOutput {
		ext += ".gz"
	}
	outputPath := logging.ArtifactPath(b.cfg.OutputDir, ext, b.episode.StartTime, b.episode.Name)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
