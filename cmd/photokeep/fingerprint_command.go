package main

import (
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/webp"

	"photokeep/internal/fingerprint"
)

func newFingerprintCommand(ctx *commandContext) *cobra.Command {
	var formatVersion int

	cmd := &cobra.Command{
		Use:         "fingerprint <image-file>",
		Short:       "Print the perceptual fingerprint of an image file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer f.Close()

			img, _, err := image.Decode(f)
			if err != nil {
				return fmt.Errorf("decode image: %w", err)
			}

			bounds := img.Bounds()
			aspect := float64(bounds.Dx()) / float64(bounds.Dy())
			fp, err := fingerprint.ExtractFormat(img, aspect, formatVersion)
			if err != nil {
				return fmt.Errorf("extract fingerprint: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, term := range fp.Terms {
				fmt.Fprintf(out, "v%d:%s\n", fp.FormatVersion, hex.EncodeToString(term))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&formatVersion, "format", fingerprint.FormatCurrent, "Fingerprint format version")
	return cmd
}
