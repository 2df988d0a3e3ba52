// Package main is the console-script surface: it converts platform export
// archives to third-party formats and third-party datasets back, reporting
// the outcome through a response file rather than the exit code.
package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"

	"github.com/labelforge/interchange/converter"
	"github.com/labelforge/interchange/parser"
	"github.com/labelforge/interchange/sdkerr"
)

const (
	// Flags.
	flagSource   = "src"
	flagOutput   = "out"
	flagFormat   = "format"
	flagResponse = "rps"
	flagWithData = "with-unannotated"
)

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:  "interchange",
		Usage: "move annotation data between the platform and third-party formats",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger = golog.NewDebugLogger("interchange")
			} else {
				logger = golog.NewDevelopmentLogger("interchange")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "convert",
				Usage: "convert a platform export archive to a target format",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagSource,
						Required: true,
						Usage:    "platform export zip archive",
					},
					&cli.PathFlag{
						Name:     flagOutput,
						Required: true,
						Usage:    "output directory for the converted documents",
					},
					&cli.StringFlag{
						Name:  flagFormat,
						Value: "json",
						Usage: "target format, one of json, coco, voc, labelme, kitti",
					},
					&cli.PathFlag{
						Name:  flagResponse,
						Usage: "file the {code, message} response json is written to",
					},
					&cli.BoolFlag{
						Name:  flagWithData,
						Usage: "keep data entries that have no annotation result",
					},
				},
				Action: func(c *cli.Context) error {
					err := runConvert(c, logger)
					return writeResponse(c, err)
				},
			},
			{
				Name:  "parse",
				Usage: "parse a third-party dataset into platform upload folders",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagSource,
						Required: true,
						Usage:    "source dataset folder",
					},
					&cli.PathFlag{
						Name:     flagOutput,
						Required: true,
						Usage:    "output directory for the upload folders",
					},
					&cli.StringFlag{
						Name:  flagFormat,
						Value: "coco",
						Usage: "source format, one of coco, xtreme1, kitti",
					},
					&cli.PathFlag{
						Name:  flagResponse,
						Usage: "file the {code, message} response json is written to",
					},
				},
				Action: func(c *cli.Context) error {
					p := parser.NewParser(c.Path(flagSource), logger)
					err := p.Parse(c.String(flagFormat), c.Path(flagOutput))
					return writeResponse(c, err)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runConvert(c *cli.Context, logger golog.Logger) error {
	dropUnmatched := !c.Bool(flagWithData)
	result, err := converter.NewResultFromZip(c.Path(flagSource), dropUnmatched, logger)
	if err != nil {
		return err
	}
	return result.Convert(c.String(flagFormat), c.Path(flagOutput))
}

// writeResponse reports the run's outcome. With a response file the outcome
// goes there and the process exits 0 either way; without one a failure is
// returned as a normal cli error.
func writeResponse(c *cli.Context, runErr error) error {
	path := c.Path(flagResponse)
	if path == "" {
		return runErr
	}
	out, err := json.Marshal(sdkerr.NewResponse(runErr))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
