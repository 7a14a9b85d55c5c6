// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package cmd provides the root command for the dieselpath CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/defenseunicorns/dieselpath"
	"github.com/defenseunicorns/dieselpath/config"
	configv0 "github.com/defenseunicorns/dieselpath/config/v0"
)

// NewRootCmd creates the root command for the dieselpath CLI.
func NewRootCmd() *cobra.Command {
	var (
		level      string
		ver        bool
		base       = dieselpath.DefaultBaseMode // VarP does not allow you to set a default value
		subpath    string
		file       string
		backup     bool
		atomic     bool
		strict     bool
		dry        bool
		explain    bool
		quiet      bool
		logFile    string
		dir        string
		configPath string
	)

	// closure initializer
	loadConfig := func(cmd *cobra.Command, fsys afero.Fs) error {
		var cfg *configv0.Config

		open := func(p string) error {
			f, err := fsys.Open(p)
			if err != nil {
				return fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()
			cfg, err = configv0.LoadConfig(f)
			if err != nil {
				return fmt.Errorf("failed to load config file: %w", err)
			}
			return nil
		}

		switch {
		case cmd.Flags().Changed("config"):
			if err := open(configPath); err != nil {
				return err
			}
		case os.Getenv(config.EnvVar) != "":
			if err := open(os.Getenv(config.EnvVar)); err != nil {
				return err
			}
		default:
			var err error
			cfg, err = configv0.LoadDefaultConfig(fsys)
			if err != nil {
				return err
			}
		}

		// default < cfg < flags
		if !cmd.Flags().Changed("base") && cfg.Base != base {
			if err := base.Set(cfg.Base.String()); err != nil {
				return err
			}
		}
		if !cmd.Flags().Changed("subpath") {
			subpath = cfg.Subpath
		}
		if !cmd.Flags().Changed("file") {
			file = cfg.File
		}
		if !cmd.Flags().Changed("backup") {
			backup = cfg.Backup
		}
		if !cmd.Flags().Changed("atomic") {
			atomic = cfg.Atomic
		}
		if !cmd.Flags().Changed("strict") {
			strict = cfg.Strict
		}
		if !cmd.Flags().Changed("log-file") {
			logFile = cfg.LogFile
		}

		return nil
	}

	// journalf appends a single entry to the log file, when one is set
	journalf := func(ctx context.Context, fn func(*log.Logger)) {
		if logFile == "" {
			return
		}
		j, closeJournal, err := dieselpath.NewJournal(afero.NewOsFs(), logFile)
		if err != nil {
			log.FromContext(ctx).Warn("journal unavailable", "err", err)
			return
		}
		defer closeJournal()
		fn(j)
	}

	root := &cobra.Command{
		Use:   "dieselpath",
		Short: "Point diesel.toml at an absolute migrations directory",
		Long: `Rewrite the "dir =" line of a diesel.toml so that it holds the absolute
path of the migrations directory, computed from the working directory or
from the project containing the dieselpath executable.`,
		Example: `
dieselpath

dieselpath --base executable

dieselpath -C ../app --subpath migrations --backup

dieselpath --dry-run --explain
`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			defer func() {
				if err != nil {
					journalf(cmd.Context(), func(j *log.Logger) { j.Error(err) })
				}
			}()

			if dir != "" {
				if err := os.Chdir(dir); err != nil {
					return err
				}
			}

			if err := loadConfig(cmd, afero.NewOsFs()); err != nil {
				return err
			}

			if strings.TrimSpace(file) == "" {
				return fmt.Errorf("file must not be empty")
			}
			if strings.TrimSpace(subpath) == "" {
				return fmt.Errorf("subpath must not be empty")
			}

			return nil
		},
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			l, err := log.ParseLevel(level)
			if err != nil {
				return err
			}
			logger := log.FromContext(cmd.Context())
			logger.SetLevel(l)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			logger := log.FromContext(ctx)
			out := cmd.OutOrStdout()

			if ver {
				bi, ok := debug.ReadBuildInfo()
				if !ok {
					return fmt.Errorf("version information not available")
				}
				switch bi.Main.Path {
				case "github.com/defenseunicorns/dieselpath":
					fmt.Fprintln(out, bi.Main.Version)
				default:
					for _, dep := range bi.Deps {
						if dep.Path == "github.com/defenseunicorns/dieselpath" {
							fmt.Fprintln(out, dep.Version)
							break
						}
					}
				}
				return nil
			}

			fsys := afero.NewOsFs()

			defer func() {
				if err != nil {
					journalf(ctx, func(j *log.Logger) { j.Error(err) })
				}
			}()

			resolver := dieselpath.NewResolver(fsys)
			baseDir, err := resolver.Base(base, file)
			if err != nil {
				return err
			}

			p := dieselpath.FilePath(baseDir, file)
			value := dieselpath.MigrationsPath(baseDir, subpath)
			logger.Debug("resolved", "base", baseDir, "file", p, "dir", value)

			// shown before anything is written
			show := func(res dieselpath.Result) error {
				journalf(ctx, func(j *log.Logger) {
					j.Info("modified content", "path", p, "content", string(res.Content))
				})

				switch {
				case explain:
					return dieselpath.RenderExplain(out, res)
				case quiet:
					return nil
				default:
					return dieselpath.PrintContent(out, string(res.Content))
				}
			}

			res, err := dieselpath.RewriteFile(ctx, fsys, p, value, dieselpath.WriteOptions{
				DryRun:    dry,
				Backup:    backup,
				Atomic:    atomic,
				Strict:    strict,
				OnRewrite: show,
			})
			if err != nil {
				return err
			}

			if dry {
				return nil
			}

			journalf(ctx, func(j *log.Logger) { j.Info("file updated", "path", p) })
			if res.Changed {
				logger.Info("updated", "path", p, "dir", value)
			} else {
				logger.Debug("already up to date", "path", p)
			}

			return nil
		},
	}

	root.Flags().StringVarP(&level, "log-level", "l", "info", "Set log level")
	_ = root.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{log.DebugLevel.String(), log.InfoLevel.String(), log.WarnLevel.String(), log.ErrorLevel.String(), log.FatalLevel.String()}, cobra.ShellCompDirectiveNoFileComp
	})
	root.Flags().BoolVarP(&ver, "version", "V", false, "Print version number and exit")
	root.Flags().VarP(&base, "base", "b", fmt.Sprintf(`Set where the base directory comes from ("%s")`, strings.Join(dieselpath.AvailableBaseModes(), `", "`)))
	_ = root.RegisterFlagCompletionFunc("base", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dieselpath.AvailableBaseModes(), cobra.ShellCompDirectiveNoFileComp
	})
	root.Flags().StringVar(&subpath, "subpath", dieselpath.DefaultSubpath, "Path joined with the base directory to form the migrations directory")
	root.Flags().StringVarP(&file, "file", "f", dieselpath.DefaultFile, "Path to diesel.toml, relative to the base directory")
	_ = root.MarkFlagFilename("file", "toml")
	root.Flags().BoolVar(&backup, "backup", false, "Keep the previous content at <file>.bak")
	root.Flags().BoolVar(&atomic, "atomic", false, "Write to <file>.tmp and rename it over <file>")
	root.Flags().BoolVar(&strict, "strict", false, `Fail when no line starts with "dir ="`)
	root.Flags().BoolVar(&dry, "dry-run", false, "Don't write anything; just print")
	root.Flags().BoolVar(&explain, "explain", false, "Print a summary of the change instead of the file")
	root.Flags().BoolVarP(&quiet, "quiet", "q", false, "Don't print the rewritten file")
	root.Flags().StringVar(&logFile, "log-file", "", "Append timestamped entries to this file")
	root.Flags().StringVarP(&dir, "directory", "C", "", "Change to directory before doing anything")
	_ = root.MarkFlagDirname("directory")
	root.Flags().StringVar(&configPath, "config", config.DefaultFileName, "Path to dieselpath config file")
	_ = root.MarkFlagFilename("config", "yaml", "yml")

	return root
}

// Main executes the root command for the dieselpath CLI.
//
// It returns the exit code from ParseExitCode and logs any errors.
func Main() int {
	cli := NewRootCmd()

	ctx := context.Background()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})

	logger.SetStyles(DefaultStyles())

	ctx = log.WithContext(ctx, logger)
	_, err := cli.ExecuteContextC(ctx)
	if err != nil {
		logger.Error(err)
	}
	return ParseExitCode(err)
}

// ParseExitCode calculates the exit code from a given error
//
// 0 - the error was nil
// 2 - strict mode found no line to rewrite
// 1 - there was some other error
func ParseExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, dieselpath.ErrNoMatch):
		return 2
	default:
		return 1
	}
}
