// Command keel inspects and exercises a keel worker runtime.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("keel failed to run", "error", err)
		os.Exit(1)
	}
}
