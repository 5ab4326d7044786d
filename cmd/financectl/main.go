// Command financectl runs finance maintenance tasks against the configured
// database: integrity checks, statement imports and reconciliation.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
