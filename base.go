// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package dieselpath

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is the diesel config, relative to the base directory
	DefaultFile = "src-tauri/diesel.toml"
	// DefaultSubpath is joined with the base directory to form the migrations directory
	DefaultSubpath = "src-tauri/migrations"
)

// BaseMode selects where the base directory comes from
type BaseMode string

var _ pflag.Value = (*BaseMode)(nil)

const (
	// BaseModeWorkingDir uses the process working directory
	BaseModeWorkingDir BaseMode = "cwd"
	// BaseModeExecutable uses the project root found above the running executable
	BaseModeExecutable BaseMode = "executable"
	// DefaultBaseMode is the base mode used when none is specified
	DefaultBaseMode BaseMode = BaseModeWorkingDir
)

// AvailableBaseModes returns a list of available base modes
func AvailableBaseModes() []string {
	return []string{
		string(BaseModeWorkingDir),
		string(BaseModeExecutable),
	}
}

// String implements the pflag.Value and fmt.Stringer interfaces
func (m *BaseMode) String() string {
	return string(*m)
}

// Set implements the pflag.Value interface
func (m *BaseMode) Set(value string) error {
	switch value {
	case string(BaseModeWorkingDir):
		*m = BaseModeWorkingDir
	case string(BaseModeExecutable):
		*m = BaseModeExecutable
	default:
		return fmt.Errorf("invalid base mode: %s", value)
	}
	return nil
}

// Type implements the pflag.Value interface
func (m *BaseMode) Type() string {
	return "string"
}

// JSONSchemaExtend extends the JSON schema for BaseMode
func (BaseMode) JSONSchemaExtend(schema *jsonschema.Schema) {
	schema.Type = "string"
	all := []any{}
	for _, m := range AvailableBaseModes() {
		all = append(all, m)
	}
	schema.Enum = all
	schema.Description = "Where the base directory is resolved from"
}

// Resolver computes base directories
type Resolver struct {
	Fs         afero.Fs
	Getwd      func() (string, error)
	Executable func() (string, error)
}

// NewResolver creates a resolver backed by the running process
func NewResolver(fsys afero.Fs) *Resolver {
	return &Resolver{
		Fs:         fsys,
		Getwd:      os.Getwd,
		Executable: os.Executable,
	}
}

// Base returns the base directory for mode
//
// In executable mode the executable's directory and its ancestors are searched
// for the first one containing file; if none does, the executable's directory is used.
func (r *Resolver) Base(mode BaseMode, file string) (string, error) {
	switch mode {
	case BaseModeWorkingDir:
		wd, err := r.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return filepath.Clean(wd), nil
	case BaseModeExecutable:
		exe, err := r.Executable()
		if err != nil {
			return "", fmt.Errorf("failed to locate executable: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return r.projectRoot(filepath.Dir(exe), file), nil
	default:
		return "", fmt.Errorf("invalid base mode: %s", mode)
	}
}

func (r *Resolver) projectRoot(start, file string) string {
	if filepath.IsAbs(file) {
		return start
	}

	dir := start
	for {
		if fi, err := r.Fs.Stat(filepath.Join(dir, file)); err == nil && fi.Mode().IsRegular() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// FilePath resolves file against base, absolute files are returned as is
func FilePath(base, file string) string {
	file = filepath.FromSlash(file)
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(base, file)
}

// MigrationsPath joins base and subpath, rendered with forward slashes
func MigrationsPath(base, subpath string) string {
	return filepath.ToSlash(FilePath(base, subpath))
}
