// Command custodyctl is the operator CLI: schema migrations, case counter
// reconciliation, ledger verification, audit spill replay and topic setup.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
