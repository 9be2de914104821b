package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/rotomdex/internal/capture"
	"github.com/kalambet/rotomdex/internal/session"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell: scan, browse results, replay history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		sh := &shell{app: a, pipeline: a.cameraPipeline()}
		defer sh.pipeline.Reset()
		return sh.run(cmd.Context())
	},
}

// shell drives a Session from a line-based prompt. All session calls
// happen on this goroutine.
type shell struct {
	app      *app
	pipeline *capture.Pipeline
}

func (sh *shell) run(ctx context.Context) error {
	fmt.Fprintf(os.Stderr, "rotomdex %s — type 'help' for commands\n", version)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if banner := sh.app.session.Nav().Banner(); banner != "" {
			printWarning("%s", banner)
		}
		fmt.Fprintf(os.Stderr, "%s> ", sh.app.session.Nav().Current())

		if !scanner.Scan() {
			fmt.Fprintln(os.Stderr)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		if err := sh.dispatch(ctx, cmd, args); err != nil {
			printError("%v", err)
		}
	}
}

func (sh *shell) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		sh.printHelp()
		return nil
	case "scan":
		if len(args) != 1 {
			return fmt.Errorf("usage: scan <image-file>")
		}
		return sh.scan(ctx, args[0])
	case "camera":
		return sh.camera(ctx)
	case "devices":
		devices, err := sh.app.cameraSource().ListDevices(ctx)
		if err != nil {
			return fmt.Errorf("listing cameras: %w", err)
		}
		renderDevices(os.Stdout, devices)
		return nil
	case "results":
		renderMatches(os.Stdout, sh.app.session.Matches())
		return nil
	case "detail":
		if len(args) != 1 {
			return fmt.Errorf("usage: detail <n>")
		}
		return sh.detail(ctx, args[0])
	case "back":
		sh.app.session.CloseDetail()
		return nil
	case "history":
		renderHistory(os.Stdout, sh.app.history.Entries())
		return nil
	case "replay":
		if len(args) != 1 {
			return fmt.Errorf("usage: replay <n>")
		}
		return sh.replay(args[0])
	case "clear":
		if err := sh.app.history.Clear(); err != nil {
			return err
		}
		printSuccess("History cleared")
		return nil
	case "pokedex":
		return sh.pokedex(ctx, strings.Join(args, " "))
	case "open":
		if len(args) != 1 {
			return fmt.Errorf("usage: open <dex-number>")
		}
		return sh.open(ctx, args[0])
	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
}

func (sh *shell) printHelp() {
	fmt.Fprint(os.Stderr, `Commands:
  scan <file>       identify the Pokémon in an image file
  camera            capture a still from the camera and identify it
  devices           list attached cameras
  results           show the current match list
  detail <n>        open full details for result n
  back              leave the detail view
  history           list stored identifications
  replay <n>        re-show a stored identification (offline)
  clear             delete all stored identifications
  pokedex [query]   browse or search the Pokédex
  open <id>         open a Pokédex record by dex number
  quit              exit
`)
}

func (sh *shell) scan(ctx context.Context, path string) error {
	img, err := capture.FromFile(path)
	if err != nil {
		return err
	}
	return sh.submit(ctx, img)
}

func (sh *shell) camera(ctx context.Context) error {
	printStep("Enabling camera...")
	if err := sh.pipeline.Enable(ctx); err != nil {
		return fmt.Errorf("enabling camera: %w", err)
	}
	img, err := sh.pipeline.Capture()
	if err != nil {
		return fmt.Errorf("capturing: %w", err)
	}
	printSuccess("Captured %d bytes", len(img.Data))
	return sh.submit(ctx, img)
}

func (sh *shell) submit(ctx context.Context, img *capture.CapturedImage) error {
	printStep("Analyzing...")
	if err := sh.app.session.Submit(ctx, img); err != nil {
		// The banner already carries the failure message.
		if sh.app.session.Nav().Banner() != "" {
			return nil
		}
		return err
	}
	renderMatches(os.Stdout, sh.app.session.Matches())
	return nil
}

func (sh *shell) detail(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(sh.app.session.Matches()) {
		return fmt.Errorf("no result at position %q", arg)
	}
	sh.app.session.OpenDetail(ctx, n-1)
	return sh.renderDetailScreen()
}

func (sh *shell) replay(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid history position %q", arg)
	}
	entry, ok := sh.app.history.Get(n - 1)
	if !ok {
		return fmt.Errorf("no history entry at position %d", n)
	}
	sh.app.session.SelectHistory(entry)
	renderMatches(os.Stdout, sh.app.session.Matches())
	return nil
}

func (sh *shell) pokedex(ctx context.Context, query string) error {
	list, err := sh.app.client.FetchAllPokemon(ctx)
	if err != nil {
		return err
	}
	list = filterPokemon(list, query)
	if len(list) == 0 {
		fmt.Println("No Pokémon found.")
		return nil
	}
	sh.app.session.Nav().Go(session.ScreenPokedex)
	for _, p := range list {
		fmt.Fprintf(os.Stdout, "#%03d %-24s %s\n", p.ID, colorize(colorBold, p.Name), formatTypes(p.Types))
	}
	return nil
}

func (sh *shell) open(ctx context.Context, arg string) error {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return fmt.Errorf("invalid National Dex number %q", arg)
	}
	p, err := sh.app.client.FetchPokemon(ctx, id)
	if err != nil {
		return err
	}
	sh.app.session.OpenPokedexEntry(ctx, p)
	return sh.renderDetailScreen()
}

func (sh *shell) renderDetailScreen() error {
	view, _, errMsg := sh.app.session.Detail()
	if view == nil {
		return fmt.Errorf("no detail view open")
	}
	renderDetail(os.Stdout, *view)
	if errMsg != "" {
		printWarning("details unavailable: %s", errMsg)
	}
	return nil
}
