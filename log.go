// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package dieselpath

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

func colorEnabled(w io.Writer) bool {
	if termenv.EnvNoColor() {
		return false
	}

	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// PrintContent writes the rewritten file to w
//
// Terminals get TOML highlighting, everything else the content byte for byte.
func PrintContent(w io.Writer, content string) error {
	if !colorEnabled(w) {
		_, err := io.WriteString(w, content)
		return err
	}

	style := "tokyonight-day"
	if lipgloss.HasDarkBackground() {
		style = "tokyonight-moon"
	}

	var buf strings.Builder
	if err := quick.Highlight(&buf, content, "toml", "terminal256", style); err != nil {
		_, err := io.WriteString(w, content)
		return err
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// Explain renders a markdown summary of res
func Explain(res Result) string {
	var sb strings.Builder

	sb.WriteString("# dieselpath\n\n")

	if !res.Matched {
		fmt.Fprintf(&sb, "> no line starting with `%s` in `%s`, file left unchanged\n", Prefix, res.Path)
		return sb.String()
	}

	changed := "no"
	if res.Changed {
		changed = "yes"
	}

	sb.WriteString("| | |\n")
	sb.WriteString("|---|---|\n")
	fmt.Fprintf(&sb, "| file | `%s` |\n", res.Path)
	fmt.Fprintf(&sb, "| previous | `%s` |\n", res.Previous)
	fmt.Fprintf(&sb, "| new | `%s` |\n", strings.TrimSuffix(FormatLine(res.Value), "\n"))
	fmt.Fprintf(&sb, "| changed | %s |\n", changed)

	return sb.String()
}

// RenderExplain writes Explain(res) to w, styled by glamour on terminals
func RenderExplain(w io.Writer, res Result) error {
	md := Explain(res)

	if !colorEnabled(w) {
		_, err := io.WriteString(w, md)
		return err
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
	if err != nil {
		return err
	}

	out, err := r.Render(md)
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, out)
	return err
}

// NewJournal opens p for appending and returns a logger that timestamps every entry
//
// Callers must call the returned close function once done.
func NewJournal(fsys afero.Fs, p string) (*log.Logger, func() error, error) {
	f, err := fsys.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           log.DebugLevel,
	})

	return logger, f.Close, nil
}
