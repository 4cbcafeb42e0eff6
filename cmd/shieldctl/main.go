// Command shieldctl is an operator CLI for the shield-core protocol
// primitives: identity generation, encrypted backups, safety number
// verification, raw packet framing, and a CRDT group demo.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "shieldctl",
		Short: "Operate shield-core identities, backups, and group state",
	}

	root.AddCommand(
		newIdentityCmd(),
		newBackupCmd(),
		newSafetyNumberCmd(),
		newPacketCmd(),
		newGroupCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
