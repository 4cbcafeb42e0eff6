package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
)

// identityFile is the JSON-on-disk shape of a generated identity. Private
// key material is hex-encoded so the file can be inspected and diffed like
// any other text artifact; the operator is responsible for keeping it off
// of shared media.
type identityFile struct {
	DeviceID          string `json:"device_id"`
	Ed25519PublicKey  string `json:"ed25519_public_key"`
	Ed25519PrivateKey string `json:"ed25519_private_key"`
	X25519PublicKey   string `json:"x25519_public_key"`
	X25519PrivateKey  string `json:"x25519_private_key"`
	MLKEMPublicKey    string `json:"mlkem_public_key"`
	MLKEMPrivateKey   string `json:"mlkem_private_key"`
}

func toIdentityFile(id *hybrid.Identity) identityFile {
	return identityFile{
		DeviceID:          id.DeviceID.String(),
		Ed25519PublicKey:  hexEncode(id.Ed25519PublicKey),
		Ed25519PrivateKey: hexEncode(id.Ed25519PrivateKey),
		X25519PublicKey:   hexEncode(id.X25519PublicKey),
		X25519PrivateKey:  hexEncode(id.X25519PrivateKey),
		MLKEMPublicKey:    hexEncode(id.MLKEMPublicKey),
		MLKEMPrivateKey:   hexEncode(id.MLKEMPrivateKey),
	}
}

func newIdentityCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage device identities",
	}

	genCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a fresh device identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := hybrid.GenerateIdentity()
			if err != nil {
				return fmt.Errorf("generate identity: %w", err)
			}
			defer id.Zeroize()

			data, err := json.MarshalIndent(toIdentityFile(id), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal identity: %w", err)
			}

			if outPath == "" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(outPath, data, 0600); err != nil {
				return fmt.Errorf("write identity file: %w", err)
			}
			fmt.Printf("wrote identity %s to %s\n", id.DeviceID, outPath)
			return nil
		},
	}
	genCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the identity to this file instead of stdout")

	cmd.AddCommand(genCmd)
	return cmd
}
