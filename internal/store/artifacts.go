// internal/store/artifacts.go
package store

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Artifacts writes the latest page map and snapshot to a directory. Each
// cycle overwrites the previous dump.
type Artifacts struct {
	dir          string
	pageMapFile  string
	snapshotFile string
	log          *zap.Logger
}

// NewArtifacts prepares the output directory. A leading ~ in the configured
// directory is expanded.
func NewArtifacts(cfg config.ArtifactsConfig, logger *zap.Logger) (*Artifacts, error) {
	dir, err := homedir.Expand(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand artifacts dir %q: %w", cfg.Dir, err)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts dir: %w", err)
	}

	a := &Artifacts{
		dir:          dir,
		pageMapFile:  cfg.PageMapFile,
		snapshotFile: cfg.SnapshotFile,
		log:          logger.Named("artifacts"),
	}
	if a.pageMapFile == "" {
		a.pageMapFile = "page_map.json"
	}
	if a.snapshotFile == "" {
		a.snapshotFile = "agent_view.png"
	}
	return a, nil
}

// PageMapPath is where WritePageMap writes.
func (a *Artifacts) PageMapPath() string { return filepath.Join(a.dir, a.pageMapFile) }

// SnapshotPath is where WriteSnapshot writes.
func (a *Artifacts) SnapshotPath() string { return filepath.Join(a.dir, a.snapshotFile) }

// WritePageMap dumps the element map as indented JSON.
func (a *Artifacts) WritePageMap(elements []schemas.Element) error {
	if elements == nil {
		elements = []schemas.Element{}
	}
	data, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode page map: %w", err)
	}
	return a.write(a.PageMapPath(), data)
}

// WriteSnapshot stores the PNG bytes as captured.
func (a *Artifacts) WriteSnapshot(png []byte) error {
	return a.write(a.SnapshotPath(), png)
}

// write replaces path atomically so a reader never sees a half-written file.
func (a *Artifacts) write(path string, data []byte) error {
	tmp, err := os.CreateTemp(a.dir, ".pathfinder-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	a.log.Debug("Artifact written.", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}
