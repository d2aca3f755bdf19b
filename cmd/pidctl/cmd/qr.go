package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prms/internal/pid/qrimage"
)

func NewQRCmd(ctx context.Context, opts *options) *cobra.Command {
	var (
		output   string
		size     int
		exact    bool
		textOnly bool
	)
	cmd := &cobra.Command{
		Use:   "qr PID",
		Short: "render the wristband QR code for an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate := candidateArg(args[0], exact)
			b, err := opts.backend(nil)
			if err != nil {
				return err
			}

			if textOnly {
				payload, err := b.QRPayload(cmd.Context(), candidate)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), payload)
				return nil
			}

			var img []byte
			if client, ok := b.(*apiClient); ok {
				img, err = client.QRImage(cmd.Context(), candidate, size)
			} else {
				var payload string
				payload, err = b.QRPayload(cmd.Context(), candidate)
				if err == nil {
					img, err = qrimage.PNG(payload, size)
				}
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(img)
				return err
			}
			return os.WriteFile(output, img, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG destination; stdout when empty")
	cmd.Flags().IntVar(&size, "size", qrimage.DefaultSize, "edge length in pixels")
	cmd.Flags().BoolVar(&exact, "exact", false, "skip trimming and uppercasing")
	cmd.Flags().BoolVar(&textOnly, "payload", false, "print the encoded text instead of an image")
	return cmd
}
