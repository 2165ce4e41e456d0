package configpaths_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Alia5/matrixkb/internal/configpaths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCandidatePathsUserFirst(t *testing.T) {
	tests := []struct {
		user  string
		which int
	}{
		{"kb.json", 0},
		{"kb", 0},
		{"kb.yml", 1},
		{"kb.yaml", 1},
		{"kb.toml", 2},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			j, y, tm := configpaths.ConfigCandidatePaths(tt.user)
			lists := [][]string{j, y, tm}
			assert.Equal(t, tt.user, lists[tt.which][0])
			for i, l := range lists {
				if i != tt.which {
					assert.NotContains(t, l, tt.user)
				}
			}
		})
	}
}

func TestDefaultConfigDirXDG(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG only")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := configpaths.DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "matrixkb"), got)

	p, err := configpaths.DefaultNamedConfigPath("run", "yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "matrixkb", "run.yaml"), p)

	_, y, _ := configpaths.ConfigCandidatePaths("")
	assert.Contains(t, y, filepath.Join(dir, "matrixkb", "config.yaml"))
	assert.Contains(t, y, "/etc/matrixkb/run.yml")
}

func TestEnsureDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "run.toml")
	require.NoError(t, configpaths.EnsureDir(p))
	assert.DirExists(t, filepath.Dir(p))
}
