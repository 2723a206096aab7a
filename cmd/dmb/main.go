package main

import (
	"fmt"
	"os"

	app "github.com/valter-silva-au/dmb/internal"
	"github.com/valter-silva-au/dmb/internal/cli"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	cli.Initialize = func(configPath string) error {
		_, err := app.NewApp(configPath, os.Stdout)
		return err
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
