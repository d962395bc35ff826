// internal/store/artifacts_test.go
package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/config"
)

func TestArtifacts_WritePageMap(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	a, err := NewArtifacts(config.ArtifactsConfig{Dir: dir, PageMapFile: "page_map.json", SnapshotFile: "agent_view.png"}, zap.NewNop())
	require.NoError(t, err)

	elements := []schemas.Element{{
		ID: 0, Label: "Email [INPUT]", TypeHint: schemas.HintInput, TagName: "INPUT",
		Rect: schemas.Rect{X: 10, Y: 10, W: 200, H: 30}, Center: schemas.Point{X: 110, Y: 25}, Visible: true,
	}}
	require.NoError(t, a.WritePageMap(elements))

	data, err := os.ReadFile(filepath.Join(dir, "page_map.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {", "output is indented")

	var got []schemas.Element
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, elements, got)
}

func TestArtifacts_EmptyMapIsArray(t *testing.T) {
	a, err := NewArtifacts(config.ArtifactsConfig{Dir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, a.WritePageMap(nil))

	data, err := os.ReadFile(a.PageMapPath())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestArtifacts_WriteSnapshotOverwrites(t *testing.T) {
	a, err := NewArtifacts(config.ArtifactsConfig{Dir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, a.WriteSnapshot([]byte("first")))
	require.NoError(t, a.WriteSnapshot([]byte("second")))

	data, err := os.ReadFile(a.SnapshotPath())
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(a.SnapshotPath()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}
