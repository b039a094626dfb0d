package main

import (
	"context"
	"errors"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/matzehuels/prunepack/internal/cli"
	"github.com/matzehuels/prunepack/pkg/buildinfo"
)

func main() {
	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	// fang prints the error and overrides root.Version.
	err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(buildinfo.Version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		os.Exit(1)
	}
}
