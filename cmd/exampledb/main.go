package main

import (
	"log"
	"os"
	"slices"

	"github.com/ruteri/exampledb/cmd/flags"
	"github.com/ruteri/exampledb/common"
	"github.com/urfave/cli/v2"
)

var hexKeysFlag = &cli.BoolFlag{
	Name:  "hex",
	Value: false,
	Usage: "interpret key arguments as hex",
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "exampledb",
		Usage:   "Inspect and edit example databases",
		Version: common.Version,
		Flags: slices.Concat(
			[]cli.Flag{hexKeysFlag, flags.LogServiceFlagFn("exampledb")},
			flags.StoreFlags,
			flags.LogFlags,
		),
		Commands: []*cli.Command{
			{
				Name:      "save",
				Usage:     "Save a value under a key",
				ArgsUsage: "KEY [FILE]",
				Action:    withDatabase(saveCommand),
			},
			{
				Name:      "fetch",
				Usage:     "Print every value stored under a key",
				ArgsUsage: "KEY",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out-dir",
						Usage: "write each value to a file named by its content hash instead of printing it",
					},
				},
				Action: withDatabase(fetchCommand),
			},
			{
				Name:      "delete",
				Usage:     "Delete a value from a key",
				ArgsUsage: "KEY [FILE]",
				Action:    withDatabase(deleteCommand),
			},
			{
				Name:      "move",
				Usage:     "Move a value from one key to another",
				ArgsUsage: "SRC DEST [FILE]",
				Action:    withDatabase(moveCommand),
			},
			{
				Name:      "copy",
				Usage:     "Copy every value of a key into another location",
				ArgsUsage: "KEY",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "to",
						Required: true,
						Usage:    "destination location URI",
					},
				},
				Action: withDatabase(copyCommand),
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
