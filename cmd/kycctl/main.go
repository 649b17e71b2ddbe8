package main

import (
	"fmt"
	"os"

	"kycengine/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kycctl:", err)
		os.Exit(1)
	}
}
