// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package cmd_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
	"github.com/stretchr/testify/assert"

	"github.com/defenseunicorns/dieselpath"
	"github.com/defenseunicorns/dieselpath/cmd"
)

func TestE2E(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("..", "testdata"),
		Setup: func(env *testscript.Env) error {
			env.Setenv("NO_COLOR", "true")
			env.Setenv("HOME", filepath.Join(env.WorkDir, "home"))
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			// installbin dir copies the dieselpath executable into dir
			"installbin": func(ts *testscript.TestScript, neg bool, args []string) {
				if neg || len(args) != 1 {
					ts.Fatalf("usage: installbin dir")
				}
				exe, err := os.Executable()
				ts.Check(err)
				b, err := os.ReadFile(exe)
				ts.Check(err)
				dir := ts.MkAbs(args[0])
				ts.Check(os.MkdirAll(dir, 0o755))
				ts.Check(os.WriteFile(filepath.Join(dir, "dieselpath"), b, 0o755))
			},
		},
		RequireUniqueNames: true,
		// UpdateScripts:      true,
	})
}

func TestParseExitCode(t *testing.T) {
	assert.Equal(t, 0, cmd.ParseExitCode(nil))
	assert.Equal(t, 1, cmd.ParseExitCode(errors.New("open src-tauri/diesel.toml: no such file or directory")))
	assert.Equal(t, 2, cmd.ParseExitCode(dieselpath.ErrNoMatch))
	assert.Equal(t, 2, cmd.ParseExitCode(fmt.Errorf("diesel.toml: %w", dieselpath.ErrNoMatch)))
}
