// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package dieselpath points the migrations directory of a diesel.toml at an absolute path
package dieselpath

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// Prefix marks the line holding the migrations directory
const Prefix = "dir ="

// ErrNoMatch is returned in strict mode when no line starts with Prefix
var ErrNoMatch = errors.New(`no line starts with "dir ="`)

// FormatLine renders the replacement line, trailing newline included
func FormatLine(p string) string {
	return fmt.Sprintf(`%s "%s"`+"\n", Prefix, p)
}

// Result describes a single rewrite
type Result struct {
	// Path is the file that was rewritten, empty for in-memory rewrites
	Path string
	// Value is the migrations directory written into the target line
	Value string
	// Previous is the target line before the rewrite, without its terminator
	Previous string
	// Matched reports whether a line started with Prefix
	Matched bool
	// Changed reports whether Content differs from the input
	Changed bool
	// Content is the full rewritten file
	Content []byte
}

// Rewrite replaces the first line starting with Prefix with FormatLine(value)
//
// Every other line, terminators included, is kept verbatim and in order.
// When nothing matches, Content is the unmodified input.
func Rewrite(content []byte, value string) Result {
	res := Result{
		Value:   value,
		Content: content,
	}

	lines := bytes.SplitAfter(content, []byte("\n"))
	for i, line := range lines {
		if !bytes.HasPrefix(line, []byte(Prefix)) {
			continue
		}

		replacement := []byte(FormatLine(value))

		res.Matched = true
		res.Previous = string(bytes.TrimRight(line, "\r\n"))
		res.Changed = !bytes.Equal(line, replacement)

		lines[i] = replacement
		res.Content = bytes.Join(lines, nil)
		break
	}

	return res
}

// WriteOptions controls how RewriteFile persists its result
type WriteOptions struct {
	// DryRun skips writing entirely
	DryRun bool
	// Backup keeps the previous content at <path>.bak
	Backup bool
	// Atomic writes to <path>.tmp then renames it over <path>
	Atomic bool
	// Strict fails with ErrNoMatch instead of rewriting an unmatched file unchanged
	Strict bool
	// OnRewrite sees the result before anything is written, an error aborts the write
	OnRewrite func(Result) error
}

// RewriteFile reads the file at p, rewrites its target line to value and writes it back in place
func RewriteFile(ctx context.Context, fsys afero.Fs, p, value string, opts WriteOptions) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	logger := log.FromContext(ctx)

	info, err := fsys.Stat(p)
	if err != nil {
		return Result{}, err
	}

	if !info.Mode().IsRegular() {
		return Result{}, fmt.Errorf("%s must be a path to a regular file", p)
	}

	b, err := afero.ReadFile(fsys, p)
	if err != nil {
		return Result{}, err
	}

	res := Rewrite(b, value)
	res.Path = p

	if !res.Matched {
		if opts.Strict {
			return res, fmt.Errorf("%s: %w", p, ErrNoMatch)
		}
		logger.Warn("no line matched, contents left as is", "prefix", Prefix, "path", p)
	}

	if opts.OnRewrite != nil {
		if err := opts.OnRewrite(res); err != nil {
			return res, err
		}
	}

	if opts.DryRun {
		logger.Debug("dry run, not writing", "path", p)
		return res, nil
	}

	perm := info.Mode().Perm()

	if opts.Backup {
		if err := afero.WriteFile(fsys, p+".bak", b, perm); err != nil {
			return res, fmt.Errorf("failed to back up %s: %w", p, err)
		}
		logger.Debug("backed up", "path", p+".bak")
	}

	if opts.Atomic {
		return res, atomicWrite(fsys, p, res.Content, perm)
	}

	return res, afero.WriteFile(fsys, p, res.Content, perm)
}

func atomicWrite(fsys afero.Fs, p string, b []byte, perm fs.FileMode) error {
	target, err := resolveLink(fsys, p)
	if err != nil {
		return err
	}

	tmp := target + ".tmp"

	if err := afero.WriteFile(fsys, tmp, b, perm); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}

	// the umask applies on create
	if err := fsys.Chmod(tmp, perm); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}

	// a successful rename consumes the temp file
	if err := fsys.Rename(tmp, target); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed renaming %s to %s: %w", tmp, target, err)
	}
	return nil
}

// resolveLink follows p through symlinks, so renames replace the link target and keep the link
func resolveLink(fsys afero.Fs, p string) (string, error) {
	lstater, ok := fsys.(afero.Lstater)
	if !ok {
		return p, nil
	}
	reader, ok := fsys.(afero.LinkReader)
	if !ok {
		return p, nil
	}

	for range maxLinkHops {
		fi, lstatCalled, err := lstater.LstatIfPossible(p)
		if err != nil {
			return "", err
		}
		if !lstatCalled || fi.Mode()&fs.ModeSymlink == 0 {
			return p, nil
		}

		next, err := reader.ReadlinkIfPossible(p)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(next) {
			next = filepath.Join(filepath.Dir(p), next)
		}
		p = next
	}

	return "", fmt.Errorf("%s: too many levels of symbolic links", p)
}

const maxLinkHops = 40
