package main

import (
	"fmt"
	"os"

	appcli "invoicer/internal/cli"
)

func main() {
	if err := appcli.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
