// Package main provides UI utilities for the ARIA CLI.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// UI provides user-friendly output utilities.
type UI struct {
	out      io.Writer
	errOut   io.Writer
	jsonMode bool
}

// NewUI creates a new UI instance. In JSON mode only JSON documents are printed.
func NewUI(out, errOut io.Writer, jsonMode bool) *UI {
	return &UI{out: out, errOut: errOut, jsonMode: jsonMode}
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgGreen).Fprintf(ui.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgYellow).Fprintf(ui.errOut, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgCyan).Fprintf(ui.out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Section prints a bold heading.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	color.New(color.Bold).Fprintf(ui.out, "\n%s\n%s\n", title, strings.Repeat("=", len([]rune(title))))
}

// Text prints a plain paragraph.
func (ui *UI) Text(s string) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintln(ui.out, s)
}

// JSON prints v indented. It prints in every mode.
func (ui *UI) JSON(v interface{}) error {
	enc := json.NewEncoder(ui.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// KeyValues prints aligned key/value rows.
func (ui *UI) KeyValues(rows [][2]string) {
	if ui.jsonMode {
		return
	}
	width := 0
	for _, r := range rows {
		if n := len([]rune(r[0])); n > width {
			width = n
		}
	}
	key := color.New(color.FgCyan)
	for _, r := range rows {
		pad := strings.Repeat(" ", width-len([]rune(r[0])))
		key.Fprintf(ui.out, "  %s%s  ", r[0], pad)
		fmt.Fprintln(ui.out, r[1])
	}
}

// ProgressBar creates a progress bar on stderr, or nil in JSON mode.
func (ui *UI) ProgressBar(total int, description string) *progressbar.ProgressBar {
	if ui.jsonMode {
		return nil
	}
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(ui.errOut),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("clients"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(ui.errOut, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Spinner starts a spinner on stderr and returns its stop function.
func (ui *UI) Spinner(message string) func() {
	if ui.jsonMode {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = ui.errOut
	s.Start()
	return s.Stop
}

func defaultUI() *UI {
	return NewUI(os.Stdout, os.Stderr, outputJSON)
}
