package main

import (
	"fmt"
	"os"

	"trade-journal/internal/cli"
)

func main() {
	root := cli.NewRootCmd(cli.NewApp())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
