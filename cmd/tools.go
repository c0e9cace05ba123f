package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"multiapi/internal/config"
	"multiapi/internal/expander"
	"multiapi/pkg/qrdecode"
)

func qrCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "qr <image>",
		Short: "Decodes the QR code in an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("could not read image: %w", err)
			}
			if int64(len(data)) > cfg.Uploads.MaxImageBytes {
				return fmt.Errorf("image is %d bytes, limit is %d", len(data), cfg.Uploads.MaxImageBytes)
			}

			text, err := qrdecode.Decode(data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)

			return err
		},
	}
}

func expandCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "expand <url>",
		Short: "Follows the redirects of a short URL and prints the final URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			final, err := expander.New(newFetcher(cfg)).Expand(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), final)

			return err
		},
	}
}
