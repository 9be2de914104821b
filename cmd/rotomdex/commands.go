package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/rotomdex/internal/capture"
	"github.com/kalambet/rotomdex/internal/config"
	"github.com/kalambet/rotomdex/internal/pokedex"
)

// --- scan ---

var scanCmd = &cobra.Command{
	Use:   "scan <image-file>",
	Short: "Identify the Pokémon in an image file",
	Long: `Identify the Pokémon in an image file.

Examples:
  rotomdex scan ./pikachu.jpg
  rotomdex scan --top 5 ./mystery.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		img, err := capture.FromFile(args[0])
		if err != nil {
			return err
		}

		printStep("Analyzing %s...", args[0])
		if err := a.session.Submit(cmd.Context(), img); err != nil {
			if banner := a.session.Nav().Banner(); banner != "" {
				return fmt.Errorf("%s", banner)
			}
			return err
		}

		renderMatches(os.Stdout, a.session.Matches())
		return nil
	},
}

// --- capture ---

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a still from the camera and identify it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		if list, _ := cmd.Flags().GetBool("list-devices"); list {
			devices, err := a.cameraSource().ListDevices(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing cameras: %w", err)
			}
			renderDevices(os.Stdout, devices)
			return nil
		}

		if device, _ := cmd.Flags().GetString("device"); device != "" {
			a.cfg.Camera.Device = device
		}
		pipeline := a.cameraPipeline()
		defer pipeline.Reset()

		printStep("Enabling camera...")
		if err := pipeline.Enable(cmd.Context()); err != nil {
			return fmt.Errorf("enabling camera: %w", err)
		}

		img, err := pipeline.Capture()
		if err != nil {
			return fmt.Errorf("capturing: %w", err)
		}
		printSuccess("Captured %d bytes", len(img.Data))

		printStep("Analyzing...")
		if err := a.session.Submit(cmd.Context(), img); err != nil {
			if banner := a.session.Nav().Banner(); banner != "" {
				return fmt.Errorf("%s", banner)
			}
			return err
		}

		renderMatches(os.Stdout, a.session.Matches())
		return nil
	},
}

func init() {
	captureCmd.Flags().String("device", "", "camera device to use (overrides config)")
	captureCmd.Flags().Bool("list-devices", false, "list attached cameras and exit")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past identifications",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored identifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		renderHistory(os.Stdout, a.history.Entries())
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <n>",
	Short: "Replay a stored identification's full match list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid history position %q", args[0])
		}

		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		entry, ok := a.history.Get(n - 1)
		if !ok {
			return fmt.Errorf("no history entry at position %d", n)
		}

		// Replay is offline: no network call.
		a.session.SelectHistory(entry)
		fmt.Fprintf(os.Stdout, "%s  %s\n", entry.Timestamp, colorize(colorBold, entry.PokemonName))
		renderMatches(os.Stdout, a.session.Matches())
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored identifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := a.history.Clear(); err != nil {
			return err
		}
		printSuccess("History cleared")
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
}

// --- pokemon ---

var pokemonCmd = &cobra.Command{
	Use:   "pokemon <id>",
	Short: "Show the full Pokédex record for a National Dex number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id < 1 {
			return fmt.Errorf("invalid National Dex number %q", args[0])
		}

		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		p, err := a.client.FetchPokemon(cmd.Context(), id)
		if err != nil {
			return err
		}

		renderDetail(os.Stdout, pokedex.NewPokemonView(p))
		return nil
	},
}

// --- pokedex ---

var pokedexCmd = &cobra.Command{
	Use:   "pokedex",
	Short: "Browse or search the full Pokédex",
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		full, _ := cmd.Flags().GetBool("full")

		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		list, err := a.client.FetchAllPokemon(cmd.Context())
		if err != nil {
			return err
		}
		list = filterPokemon(list, search)
		if len(list) == 0 {
			fmt.Println("No Pokémon found.")
			return nil
		}

		if !full {
			for _, p := range list {
				fmt.Fprintf(os.Stdout, "#%03d %-24s %s\n", p.ID, colorize(colorBold, p.Name), formatTypes(p.Types))
			}
			return nil
		}

		// Warm the detail cache concurrently, then render from it.
		ids := make([]int, len(list))
		for i, p := range list {
			ids[i] = p.ID
		}
		if err := a.resolver.Prefetch(cmd.Context(), ids); err != nil {
			return err
		}
		for i, p := range list {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			if cached, ok := a.resolver.Cached(p.ID); ok {
				p = cached
			}
			renderDetail(os.Stdout, pokedex.NewPokemonView(p))
		}
		return nil
	},
}

func init() {
	pokedexCmd.Flags().String("search", "", "filter by name or type substring")
	pokedexCmd.Flags().Bool("full", false, "show full records instead of the index")
}

func filterPokemon(list []pokedex.Pokemon, query string) []pokedex.Pokemon {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return list
	}
	var hits []pokedex.Pokemon
	for _, p := range list {
		if strings.Contains(strings.ToLower(p.Name), query) {
			hits = append(hits, p)
			continue
		}
		for _, t := range p.Types {
			if strings.Contains(strings.ToLower(t), query) {
				hits = append(hits, p)
				break
			}
		}
	}
	return hits
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value, restoring the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
