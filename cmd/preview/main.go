package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"bookmark-preview/internal/pkg/logger"
	"bookmark-preview/internal/pkg/urldetector"
	"bookmark-preview/internal/service/preview"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:        "preview",
		Description: "resolve link previews from the command line without a database or cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
				Value: "error",
			},
		},
		Commands: []*cli.Command{{
			Name:        "resolve",
			Aliases:     []string{"get"},
			Description: "fetch a URL and print its preview as JSON",
			ArgsUsage:   "URL",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "timeout",
					Usage: "per-request fetch timeout",
					Value: preview.DefaultFetchTimeout,
				},
				&cli.Int64Flag{
					Name:  "max-bytes",
					Usage: "maximum number of page bytes to read",
					Value: preview.DefaultMaxPageBytes,
				},
				&cli.StringFlag{
					Name:  "user-agent",
					Usage: "User-Agent header for outbound requests",
					Value: preview.DefaultUserAgent,
				},
			},
			Action: withResolver(func(resolver *preview.Resolver, ctx *cli.Context) error {
				result := resolver.Resolve(context.Background(), ctx.Args().First())
				return printJSON(result)
			}),
		}, {
			Name:        "classify",
			Description: "print the oEmbed platform for a URL, or \"generic\"",
			ArgsUsage:   "URL",
			Action: withResolver(func(resolver *preview.Resolver, ctx *cli.Context) error {
				platform := resolver.Registry().Classify(ctx.Args().First())
				if platform == "" {
					platform = "generic"
				}
				_, err := fmt.Println(platform)
				return err
			}),
		}, {
			Name:        "detect",
			Aliases:     []string{"links"},
			Description: "list the links found in a text or markdown file (stdin when no file is given)",
			ArgsUsage:   "[FILE]",
			Action: withResolver(func(resolver *preview.Resolver, ctx *cli.Context) error {
				content, err := readAll(ctx.Args().First())
				if err != nil {
					return err
				}
				detector := urldetector.New(resolver.Registry().Classify)
				return printJSON(detector.DetectURLs(content))
			}),
		}, {
			Name:        "platforms",
			Description: "list the built-in oEmbed platforms",
			Action: withResolver(func(resolver *preview.Resolver, ctx *cli.Context) error {
				return printJSON(resolver.Registry().Platforms())
			}),
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withResolver(f func(*preview.Resolver, *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if ctx.Command.ArgsUsage == "URL" && ctx.Args().Len() != 1 {
			return fmt.Errorf("expected exactly one URL argument")
		}

		opts := preview.Options{
			FetchTimeout: ctx.Duration("timeout"),
			MaxPageBytes: ctx.Int64("max-bytes"),
			UserAgent:    ctx.String("user-agent"),
		}
		return f(preview.New(opts, nil, logger.New(ctx.String("log-level"))), ctx)
	}
}

func readAll(path string) (string, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result to JSON: %w", err)
	}
	if _, err := fmt.Printf("%s\n", data); err != nil {
		return fmt.Errorf("writing JSON to stdout: %w", err)
	}
	return nil
}
