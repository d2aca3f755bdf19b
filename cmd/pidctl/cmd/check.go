package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"prms/internal/pid"
)

func rejection(message string) error {
	return fmt.Errorf("%s: %w", message, errRejected)
}

// candidateArg applies the same cleanup a scanner or form would.
func candidateArg(raw string, exact bool) string {
	if exact {
		return raw
	}
	return pid.Normalize(raw)
}

func NewValidateCmd(ctx context.Context, opts *options) *cobra.Command {
	var strict, exact bool
	cmd := &cobra.Command{
		Use:     "validate PID",
		Short:   "check an identifier",
		Example: "  pidctl validate " + pid.Example,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.backend(nil)
			if err != nil {
				return err
			}
			res, err := b.Validate(cmd.Context(), candidateArg(args[0], exact), strict)
			if err != nil {
				return err
			}
			if !res.Valid {
				return rejection(res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.PID, "valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "also reject months outside 01-12")
	cmd.Flags().BoolVar(&exact, "exact", false, "skip trimming and uppercasing")
	return cmd
}

func NewParseCmd(ctx context.Context, opts *options) *cobra.Command {
	var exact bool
	cmd := &cobra.Command{
		Use:   "parse PID",
		Short: "split an identifier into its components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.backend(nil)
			if err != nil {
				return err
			}
			comps, err := b.Parse(cmd.Context(), candidateArg(args[0], exact))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(comps)
		},
	}
	cmd.Flags().BoolVar(&exact, "exact", false, "skip trimming and uppercasing")
	return cmd
}
