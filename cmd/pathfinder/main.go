// Command pathfinder indexes directory trees and serves interactive path
// autocomplete queries from the terminal.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/pathfinder/internal/config"
	"github.com/standardbeagle/pathfinder/internal/engine"
	"github.com/standardbeagle/pathfinder/internal/indexing"
	"github.com/standardbeagle/pathfinder/internal/logging"
	"github.com/standardbeagle/pathfinder/internal/searchtypes"
)

var Version = "0.3.0"

func main() {
	app := &cli.App{
		Name:                   "pathfinder",
		Usage:                  "Fast fuzzy path search for local filesystems",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file, or directory holding .pathfinder.kdl (defaults to the indexed root)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Additional exclusion patterns (substring or glob)",
			},
			&cli.IntFlag{
				Name:    "max-results",
				Aliases: []string{"n"},
				Usage:   "Override max results per query",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log engine activity to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index a directory tree with live progress",
				ArgsUsage: "<dir>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Keep running and apply filesystem changes",
					},
				},
				Action: indexCommand,
			},
			{
				Name:      "search",
				Usage:     "Index a directory, then run a query against it",
				ArgsUsage: "<dir> <query>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "ext",
						Usage: "Restrict results to these extensions",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Emit results as JSON",
					},
				},
				Action: searchCommand,
			},
			{
				Name:      "status",
				Usage:     "Index a directory and print the engine snapshot as JSON",
				ArgsUsage: "<dir>",
				Action:    statusCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context, root string) (*engine.Engine, *config.Config, error) {
	source := c.String("config")
	if source == "" {
		source = root
	}
	cfg, err := config.Load(source)
	if err != nil {
		return nil, nil, err
	}
	if patterns := c.StringSlice("exclude"); len(patterns) > 0 {
		cfg.ExcludedPatterns = append(cfg.ExcludedPatterns, patterns...)
	}
	if n := c.Int("max-results"); n > 0 {
		cfg.MaxResults = n
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var sink logging.Sink = logging.NopSink{}
	if c.Bool("verbose") {
		sink = logging.NewWriterSink(os.Stderr)
	}
	return engine.New(cfg, logging.New(sink)), cfg, nil
}

func indexCommand(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		return cli.Exit("index requires a directory argument", 2)
	}
	e, cfg, err := setup(c, root)
	if err != nil {
		return err
	}

	if err := e.AddPathsRecursive(root); err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	for e.IndexingRunning() {
		select {
		case <-interrupt:
			fmt.Fprintln(os.Stderr, "\nstopping...")
			e.StopIndexing()
			e.WaitForIndexing()
		case <-ticker.C:
			printProgress(e.GetIndexingProgress())
		}
	}
	e.WaitForIndexing()
	printProgress(e.GetIndexingProgress())
	fmt.Printf("\n%s: %d paths indexed\n", e.GetIndexingStatus(), e.CountTerminals())

	if c.Bool("watch") && e.GetIndexingStatus() == "Completed" {
		return runWatch(e, cfg, root, interrupt)
	}
	return nil
}

func runWatch(e *engine.Engine, cfg *config.Config, root string, interrupt chan os.Signal) error {
	logger := logging.New(logging.NewWriterSink(os.Stderr))
	w, err := indexing.NewWatcher(cfg, e, logger)
	if err != nil {
		return err
	}
	if err := w.Start(root); err != nil {
		return err
	}
	fmt.Println("watching for changes, ctrl-c to exit")
	<-interrupt
	return w.Stop()
}

func printProgress(p engine.IndexingProgress) {
	fmt.Printf("\r%6.2f%%  %d/%d  %s",
		p.PercentageComplete, p.FilesIndexed, p.FilesDiscovered, p.CurrentPath)
}

func searchCommand(c *cli.Context) error {
	root, query := c.Args().Get(0), c.Args().Get(1)
	if root == "" || query == "" {
		return cli.Exit("search requires <dir> and <query> arguments", 2)
	}
	e, _, err := setup(c, root)
	if err != nil {
		return err
	}

	if err := e.AddPathsRecursive(root); err != nil {
		return err
	}
	e.WaitForIndexing()
	e.SetCurrentDirectory(root)

	var results []searchtypes.Result
	if exts := c.StringSlice("ext"); len(exts) > 0 {
		results, err = e.SearchByExtension(query, exts)
	} else {
		results, err = e.Search(query)
	}
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	for _, r := range results {
		fmt.Printf("%8.4f  %s\n", r.Score, r.Path)
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "no matches")
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		return cli.Exit("status requires a directory argument", 2)
	}
	e, _, err := setup(c, root)
	if err != nil {
		return err
	}
	if err := e.AddPathsRecursive(root); err != nil {
		return err
	}
	e.WaitForIndexing()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(e.GetSearchEngineInfo())
}
