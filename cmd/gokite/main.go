package main

import (
	"fmt"
	"os"

	"github.com/me/gokite/internal/bridge"
	"github.com/me/gokite/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gokite:", err)
		os.Exit(bridge.ExitCode(err))
	}
}
