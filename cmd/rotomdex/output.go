package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kalambet/rotomdex/internal/capture"
	"github.com/kalambet/rotomdex/internal/history"
	"github.com/kalambet/rotomdex/internal/pokedex"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

func formatTypes(types []string) string {
	return strings.Join(types, "/")
}

// renderMatches prints the ranked result list, best match first.
func renderMatches(w io.Writer, views []pokedex.MatchView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}
	for i, v := range views {
		name := colorize(colorBold, v.Name)
		if i == 0 {
			name = colorize(colorGreen, v.Name)
		}
		fmt.Fprintf(w, "%2d. #%03d %-24s %3d%%  %s\n", i+1, v.ID, name, v.Similarity, formatTypes(v.Types))
	}
}

// renderDetail prints one Pokémon's full record. Fields missing from a
// partial view print as "?" rather than hiding the row.
func renderDetail(w io.Writer, v pokedex.MatchView) {
	title := fmt.Sprintf("#%03d %s", v.ID, v.Name)
	fmt.Fprintln(w, colorize(colorBold, title))
	if v.Similarity > 0 {
		fmt.Fprintf(w, "  Similarity: %d%%\n", v.Similarity)
	}
	fmt.Fprintf(w, "  Types:      %s\n", formatTypes(v.Types))
	if v.Genus != "" {
		fmt.Fprintf(w, "  Genus:      %s\n", v.Genus)
	}
	if v.Generation > 0 {
		fmt.Fprintf(w, "  Generation: %d\n", v.Generation)
	}
	fmt.Fprintf(w, "  Height:     %s\n", v.Height)
	fmt.Fprintf(w, "  Weight:     %s\n", v.Weight)
	if len(v.Abilities) > 0 {
		fmt.Fprintf(w, "  Abilities:  %s\n", strings.Join(v.Abilities, ", "))
	}
	if v.Descr != "" {
		fmt.Fprintf(w, "  %s\n", v.Descr)
	}
	if v.Stats != (pokedex.Stats{}) {
		fmt.Fprintf(w, "  Stats:      HP %d  Atk %d  Def %d  SpA %d  SpD %d  Spe %d\n",
			v.Stats.HP, v.Stats.Attack, v.Stats.Defense,
			v.Stats.SpecialAttack, v.Stats.SpecialDefense, v.Stats.Speed)
	}
	fmt.Fprintf(w, "  Sprite:     %s\n", v.ImageURL)
}

// renderDevices prints the attached cameras.
func renderDevices(w io.Writer, devices []capture.Device) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No cameras found.")
		return
	}
	for _, d := range devices {
		fmt.Fprintf(w, "  %s  %s\n", colorize(colorBold, d.ID), d.Label)
	}
}

// renderHistory prints stored identifications, newest first.
func renderHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No identifications yet.")
		return
	}
	for i, e := range entries {
		best := "?"
		if len(e.Matches) > 0 {
			best = fmt.Sprintf("%s (%d%%)", e.PokemonName, e.Matches[0].Similarity)
		}
		fmt.Fprintf(w, "%2d. %s  %s\n", i+1, e.Timestamp, colorize(colorBold, best))
	}
}
