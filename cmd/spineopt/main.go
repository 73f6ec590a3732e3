// Command spineopt is a thin CLI driver over engine/session, demonstrating
// the ingest → analyze → plan → resample → pack pipeline end to end. Apart
// from a plain directory walk (ingest.go), file discovery, progress UI, and
// configuration persistence are external collaborators (spec.md §1's
// explicit non-goals); this binary only wires the core.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
