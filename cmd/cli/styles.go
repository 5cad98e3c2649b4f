package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

// Palette
var (
	accentTeal = lipgloss.Color("#00897B")
	warnAmber  = lipgloss.Color("#FFB300")
	errorRed   = lipgloss.Color("#F44336")
	mutedGray  = lipgloss.Color("#9E9E9E")
)

var (
	// Result titles
	titleStyle = lipgloss.NewStyle().
			Foreground(accentTeal).
			Bold(true)

	// Section headers such as "Similar titles"
	sectionStyle = lipgloss.NewStyle().
			Foreground(accentTeal).
			Underline(true)

	// Fallback notice
	noticeStyle = lipgloss.NewStyle().
			Foreground(warnAmber).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorRed).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedGray)
)

// printRecords writes one line per record: its title and its kind/id reference
func printRecords(w io.Writer, items []record.Value) {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("no results"))
		return
	}
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(item.GetString("title")), mutedStyle.Render(refOf(item)))
	}
}

func refOf(item record.Value) string {
	kind, id := item.GetString("kind"), item.GetString("id")
	if kind == "" {
		return id
	}
	return kind + "/" + id
}

// printFallback announces that results came from a shortened query
func printFallback(w io.Writer, query, used string) {
	_, _ = fmt.Fprintln(w, noticeStyle.Render(fmt.Sprintf("no matches for %q, showing results for %q", query, used)))
}

func printSection(w io.Writer, name string) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, sectionStyle.Render(name))
}
