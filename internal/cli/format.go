package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"devicelink/internal/batch"
	"devicelink/internal/tabular"
)

func newFormatCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format --in <file> --out <file>",
		Short: "Add a device_identifier column to a registry extract",
		Long: `Reads cat_num_cleaned and Manufacturer from the input and writes
cat_num_cleaned, Manufacturer and device_identifier to the output.`,
		Args:              cobra.NoArgs,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, out, err := ioPaths(cmd)
			if err != nil {
				return err
			}
			table, err := tabular.ReadFile(in)
			if err != nil {
				return err
			}
			formatted, err := batch.Format(cmd.Context(), table, a.logger)
			if err != nil {
				return fmt.Errorf("format %s: %w", in, err)
			}
			if err := tabular.WriteFile(out, formatted); err != nil {
				return err
			}
			a.logger.InfoContext(cmd.Context(), "wrote formatted extract", "path", out, "rows", formatted.Len())
			return nil
		},
	}
	registerIOFlags(cmd.Flags())
	return cmd
}

func ioPaths(cmd *cobra.Command) (string, string, error) {
	in, _ := cmd.Flags().GetString(flagIn)
	out, _ := cmd.Flags().GetString(flagOut)
	if in == "" || out == "" {
		return "", "", errors.New("--in and --out are required")
	}
	return in, out, nil
}
