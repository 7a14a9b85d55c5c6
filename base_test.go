// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package dieselpath

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseMode(t *testing.T) {
	var m BaseMode
	assert.Equal(t, "string", m.Type())

	require.NoError(t, m.Set("executable"))
	assert.Equal(t, BaseModeExecutable, m)
	assert.Equal(t, "executable", m.String())

	require.NoError(t, m.Set("cwd"))
	assert.Equal(t, BaseModeWorkingDir, m)

	require.EqualError(t, m.Set("home"), "invalid base mode: home")
	assert.Equal(t, BaseModeWorkingDir, m)

	assert.Equal(t, []string{"cwd", "executable"}, AvailableBaseModes())
}

func TestMigrationsPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}

	testCases := []struct {
		name     string
		base     string
		subpath  string
		expected string
	}{
		{
			name:     "working directory variant",
			base:     "/home/user/project",
			subpath:  "migrations",
			expected: "/home/user/project/migrations",
		},
		{
			name:     "default subpath",
			base:     "/home/user/project",
			subpath:  DefaultSubpath,
			expected: "/home/user/project/src-tauri/migrations",
		},
		{
			name:     "cleaned",
			base:     "/home/user/project/",
			subpath:  "./src-tauri/../src-tauri/migrations/",
			expected: "/home/user/project/src-tauri/migrations",
		},
		{
			name:     "absolute subpath",
			base:     "/home/user/project",
			subpath:  "/srv/migrations",
			expected: "/srv/migrations",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MigrationsPath(tc.base, tc.subpath))
		})
	}
}

func TestResolver(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/home/user/project/src-tauri/diesel.toml", []byte("dir = \"\"\n"), 0o644))
	require.NoError(t, fsys.MkdirAll("/home/user/project/tools", 0o755))

	wd := func(dir string) func() (string, error) {
		return func() (string, error) { return dir, nil }
	}

	t.Run("working directory", func(t *testing.T) {
		r := &Resolver{Fs: fsys, Getwd: wd("/home/user/project")}

		base, err := r.Base(BaseModeWorkingDir, DefaultFile)
		require.NoError(t, err)
		assert.Equal(t, "/home/user/project", base)
		assert.Equal(t, "/home/user/project/migrations", MigrationsPath(base, "migrations"))
	})

	t.Run("working directory error", func(t *testing.T) {
		r := &Resolver{Fs: fsys, Getwd: func() (string, error) { return "", errors.New("gone") }}

		_, err := r.Base(BaseModeWorkingDir, DefaultFile)
		require.EqualError(t, err, "failed to get working directory: gone")
	})

	t.Run("executable below project root", func(t *testing.T) {
		r := &Resolver{Fs: fsys, Executable: wd("/home/user/project/tools/set_diesel_toml")}

		base, err := r.Base(BaseModeExecutable, DefaultFile)
		require.NoError(t, err)
		assert.Equal(t, "/home/user/project", base)
		assert.Equal(t, "/home/user/project/src-tauri/migrations", MigrationsPath(base, DefaultSubpath))
		assert.Equal(t, filepath.Join("/home/user/project", "src-tauri", "diesel.toml"), FilePath(base, DefaultFile))
	})

	t.Run("executable in project root", func(t *testing.T) {
		r := &Resolver{Fs: fsys, Executable: wd("/home/user/project/set_diesel_toml")}

		base, err := r.Base(BaseModeExecutable, DefaultFile)
		require.NoError(t, err)
		assert.Equal(t, "/home/user/project", base)
	})

	t.Run("executable outside any project", func(t *testing.T) {
		r := &Resolver{Fs: fsys, Executable: wd("/opt/bin/set_diesel_toml")}

		base, err := r.Base(BaseModeExecutable, DefaultFile)
		require.NoError(t, err)
		assert.Equal(t, "/opt/bin", base)
	})

	t.Run("absolute file", func(t *testing.T) {
		r := &Resolver{Fs: fsys, Executable: wd("/home/user/project/tools/set_diesel_toml")}

		base, err := r.Base(BaseModeExecutable, "/home/user/project/src-tauri/diesel.toml")
		require.NoError(t, err)
		assert.Equal(t, "/home/user/project/tools", base)
		assert.Equal(t, "/home/user/project/src-tauri/diesel.toml", FilePath(base, "/home/user/project/src-tauri/diesel.toml"))
	})

	t.Run("executable error", func(t *testing.T) {
		r := &Resolver{Fs: fsys, Executable: func() (string, error) { return "", errors.New("unsupported") }}

		_, err := r.Base(BaseModeExecutable, DefaultFile)
		require.EqualError(t, err, "failed to locate executable: unsupported")
	})

	t.Run("running executable", func(t *testing.T) {
		exe, err := os.Executable()
		require.NoError(t, err)
		exe, err = filepath.EvalSymlinks(exe)
		require.NoError(t, err)

		base, err := NewResolver(afero.NewOsFs()).Base(BaseModeExecutable, "no/such/diesel.toml")
		require.NoError(t, err)
		assert.Equal(t, filepath.Dir(exe), base)
	})

	t.Run("running working directory", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)

		base, err := NewResolver(afero.NewOsFs()).Base(BaseModeWorkingDir, DefaultFile)
		require.NoError(t, err)
		assert.Equal(t, filepath.Clean(wd), base)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := NewResolver(fsys).Base(BaseMode("home"), DefaultFile)
		require.EqualError(t, err, "invalid base mode: home")
	})
}
