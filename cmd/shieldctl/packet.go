package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/securelegion/shield-core/pkg/transport/packet"
)

func newPacketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packet",
		Short: "Pack and unpack fixed-size authenticated transport frames",
	}

	var keyHex, inPath, outPath string
	packCmd := &cobra.Command{
		Use:   "pack",
		Short: "Wrap a payload into a fixed-size authenticated frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := hexDecode(keyHex)
			if err != nil {
				return fmt.Errorf("decode hmac key: %w", err)
			}
			payload, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			frame, err := packet.Serialize(packet.TypeMessage, payload, key)
			if err != nil {
				return fmt.Errorf("serialize packet: %w", err)
			}

			if err := os.WriteFile(outPath, frame, 0600); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			fmt.Printf("wrote %d-byte frame to %s\n", len(frame), outPath)
			return nil
		},
	}
	packCmd.Flags().StringVar(&keyHex, "key", "", "hex-encoded HMAC key")
	packCmd.Flags().StringVar(&inPath, "in", "", "path to the payload to wrap")
	packCmd.Flags().StringVar(&outPath, "out", "frame.bin", "path to write the frame to")
	packCmd.MarkFlagRequired("key")
	packCmd.MarkFlagRequired("in")

	var unpackKeyHex, framePath string
	unpackCmd := &cobra.Command{
		Use:   "unpack",
		Short: "Verify and unwrap a fixed-size authenticated frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := hexDecode(unpackKeyHex)
			if err != nil {
				return fmt.Errorf("decode hmac key: %w", err)
			}
			frame, err := os.ReadFile(framePath)
			if err != nil {
				return fmt.Errorf("read frame: %w", err)
			}

			typ, payload, err := packet.Deserialize(frame, key)
			if err != nil {
				return fmt.Errorf("deserialize packet: %w", err)
			}

			fmt.Printf("type: %s\npayload (%d bytes): %s\n", typ, len(payload), hexEncode(payload))
			return nil
		},
	}
	unpackCmd.Flags().StringVar(&unpackKeyHex, "key", "", "hex-encoded HMAC key")
	unpackCmd.Flags().StringVar(&framePath, "frame", "", "path to the frame to unwrap")
	unpackCmd.MarkFlagRequired("key")
	unpackCmd.MarkFlagRequired("frame")

	cmd.AddCommand(packCmd, unpackCmd)
	return cmd
}
