// bridgectl signs, verifies and inspects proof artifacts locally, keeping
// verified claims in a SQLite cache between runs.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "bridgectl",
		Short:         "Local tooling for cross-chain agent proofs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("data-dir", defaultDataDir(), "directory for the local proof cache")
	root.AddCommand(newKeygenCmd(), newProofCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bridgectl"
	}
	return filepath.Join(home, ".bridgectl")
}
