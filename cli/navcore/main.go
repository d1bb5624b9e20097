// Package main is the navcore command line entry point.
package main

import (
	"log"
	"os"

	navcli "go.viam.com/navcore/cli"
)

func main() {
	app := navcli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
