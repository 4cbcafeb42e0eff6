package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
)

func newSafetyNumberCmd() *cobra.Command {
	var localPubHex, remotePubHex string

	cmd := &cobra.Command{
		Use:   "safety-number",
		Short: "Compute the out-of-band verification code for two identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			localPub, err := hexDecode(localPubHex)
			if err != nil {
				return fmt.Errorf("decode local public key: %w", err)
			}
			remotePub, err := hexDecode(remotePubHex)
			if err != nil {
				return fmt.Errorf("decode remote public key: %w", err)
			}

			sn := hybrid.GenerateSafetyNumber(localPub, remotePub)
			fmt.Println(sn)
			return nil
		},
	}

	cmd.Flags().StringVar(&localPubHex, "local", "", "hex-encoded local Ed25519 public key")
	cmd.Flags().StringVar(&remotePubHex, "remote", "", "hex-encoded remote Ed25519 public key")
	cmd.MarkFlagRequired("local")
	cmd.MarkFlagRequired("remote")

	return cmd
}
