package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and maintain the producer output cache",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached producer runs",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfigWithOverrides(c)
					if err != nil {
						return err
					}
					store, err := openStore(cfg)
					if err != nil {
						return err
					}

					digests := store.Digests()
					if len(digests) == 0 {
						fmt.Println("cache is empty")
						return nil
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "COMMAND\tCWD\tLINES\tLAST RUN\tFILE")
					for _, d := range digests {
						fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
							d.Command, d.Cwd, d.TotalLines,
							d.LastRun.Format("2006-01-02 15:04:05"), d.CacheFile)
					}
					return w.Flush()
				},
			},
			{
				Name:  "clear",
				Usage: "Remove stale cache entries (older than the configured max age)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Remove every entry, not just stale ones",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfigWithOverrides(c)
					if err != nil {
						return err
					}
					store, err := openStore(cfg)
					if err != nil {
						return err
					}

					if c.Bool("all") {
						if err := store.Clear(); err != nil {
							return err
						}
						fmt.Println("cache cleared")
						return nil
					}

					removed, err := store.ClearStale()
					if err != nil {
						return err
					}
					fmt.Printf("removed %d stale entries\n", removed)
					return nil
				},
			},
		},
	}
}
