package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidscribe/internal/reference"
)

func newNormalizeCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "normalize <video-url>",
		Short:       "Print the canonical form of a video URL",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := reference.Normalize(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, ref)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ref.CanonicalURL)
			if !ref.Verified {
				fmt.Fprintln(cmd.ErrOrStderr(), "note: host is not a recognized YouTube host; the URL is passed through unchanged")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full reference as JSON")
	return cmd
}
