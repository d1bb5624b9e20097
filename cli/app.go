// Package cli contains the navcore command line: registering a tracker to an image from configured
// landmarks, estimating target registration errors, and inspecting coordinate system trees.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	configFlag   = "config"
	debugFlag    = "debug"
	noSearchFlag = "no-search"
	trackerFlag  = "tracker"
	imageFlag    = "image"
	rmsFlag      = "rms"
	pointFlag    = "point"
	fromFlag     = "from"
	toFlag       = "to"
	watchFlag    = "watch"
)

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "navcore",
		Usage:           "register trackers to images and resolve coordinate systems",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     configFlag,
				Aliases:  []string{"c"},
				Usage:    "load configuration from `FILE`",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "compute the tracker to image transform from the configured landmarks",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  noSearchFlag,
						Usage: "accept the configured landmark ordering without searching other orderings",
					},
					&cli.StringFlag{
						Name:  trackerFlag,
						Usage: "coordinate system to attach under the image once registered",
						Value: "tracker",
					},
					&cli.StringFlag{
						Name:  imageFlag,
						Usage: "coordinate system of the image",
						Value: "image",
					},
				},
				Action: RegisterAction,
			},
			{
				Name:  "tre",
				Usage: "estimate the target registration error at the configured targets",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  rmsFlag,
						Usage: "landmark registration error; computed from the landmarks when unset",
					},
					&cli.Float64SliceFlag{
						Name:  pointFlag,
						Usage: "additional target `X,Y,Z` in image coordinates",
					},
				},
				Action: TREAction,
			},
			{
				Name:  "tree",
				Usage: "print the configured coordinate systems",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  fromFlag,
						Usage: "resolve the transform from this coordinate system",
					},
					&cli.StringFlag{
						Name:  toFlag,
						Usage: "resolve the transform to this coordinate system",
					},
					&cli.BoolFlag{
						Name:  watchFlag,
						Usage: "print the tree again whenever the config file changes",
					},
				},
				Action: TreeAction,
			},
		},
	}
}
