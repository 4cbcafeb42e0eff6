package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/securelegion/shield-core/pkg/crypto/backup"
	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return pw, err
}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create or restore a password-derived encrypted identity backup",
	}

	var identityPath, outPath string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Encrypt an identity file into a backup blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := os.ReadFile(identityPath)
			if err != nil {
				return fmt.Errorf("read identity file: %w", err)
			}

			password, err := readPassword("backup password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			blob, err := backup.Create(secret, password, primitives.DefaultArgon2Params)
			if err != nil {
				return fmt.Errorf("create backup: %w", err)
			}

			if err := os.WriteFile(outPath, blob, 0600); err != nil {
				return fmt.Errorf("write backup blob: %w", err)
			}
			fmt.Printf("wrote %d-byte backup blob to %s\n", len(blob), outPath)
			return nil
		},
	}
	createCmd.Flags().StringVar(&identityPath, "identity", "", "path to the identity file to back up")
	createCmd.Flags().StringVar(&outPath, "out", "backup.blob", "path to write the encrypted blob to")
	createCmd.MarkFlagRequired("identity")

	var blobPath, restoreOut string
	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Decrypt a backup blob back into an identity file",
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(blobPath)
			if err != nil {
				return fmt.Errorf("read backup blob: %w", err)
			}

			password, err := readPassword("backup password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			secret, err := backup.Restore(blob, password, primitives.DefaultArgon2Params)
			if err != nil {
				return fmt.Errorf("restore backup: %w", err)
			}

			if err := os.WriteFile(restoreOut, secret, 0600); err != nil {
				return fmt.Errorf("write restored identity: %w", err)
			}
			fmt.Printf("restored identity to %s\n", restoreOut)
			return nil
		},
	}
	restoreCmd.Flags().StringVar(&blobPath, "blob", "", "path to the encrypted backup blob")
	restoreCmd.Flags().StringVar(&restoreOut, "out", "identity.restored.json", "path to write the restored identity to")
	restoreCmd.MarkFlagRequired("blob")

	cmd.AddCommand(createCmd, restoreCmd)
	return cmd
}
