package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/spf13/cobra"

	"prms/internal/pid"
	"prms/internal/platform/logger"
)

// errRejected marks an identifier that failed validation; the message has
// already been printed.
var errRejected = errors.New("identifier rejected")

// ExitCode maps a command error to a process exit status: 1 for a rejected
// identifier, 2 for anything else.
func ExitCode(err error) int {
	if errors.Is(err, errRejected) {
		return 1
	}
	return 2
}

// cliEnv is the slice of the server environment pidctl honours offline.
type cliEnv struct {
	SiteCode string `env:"PRMS_SITE_CODE"`
}

func siteFromEnv() string {
	var e cliEnv
	if err := env.Parse(&e); err != nil || e.SiteCode == "" {
		return pid.DefaultSiteCode
	}
	return e.SiteCode
}

type options struct {
	server   string
	siteCode string
	timeout  time.Duration
}

// backend returns the HTTP client when --server is set, else a local codec
// over alloc. alloc may be nil for commands that never generate.
func (o *options) backend(alloc pid.SequenceAllocator) (backend, error) {
	if o.server != "" {
		return newAPIClient(o.server, o.timeout), nil
	}
	codec, err := pid.New(pid.Config{SiteCode: o.siteCode}, alloc)
	if err != nil {
		return nil, err
	}
	return localBackend{codec: codec}, nil
}

// NewRoot builds the pidctl command tree.
func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "pidctl",
		Short:         "issue, check and parse patient identifiers",
		Long:          "pidctl works on identifiers of the form " + pid.FormatHint + " (e.g. " + pid.Example + "), locally or against a running server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel, _ := cmd.Flags().GetString("log-level")
			level, err := logger.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger.NewWithWriter(cmd.ErrOrStderr(), "text", level))
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewGenerateCmd(ctx, opts),
		NewValidateCmd(ctx, opts),
		NewParseCmd(ctx, opts),
		NewQRCmd(ctx, opts),
	)

	pf := cmd.PersistentFlags()
	pf.String("log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.StringVar(&opts.server, "server", "", "base URL of a prms server; empty works offline")
	pf.StringVar(&opts.siteCode, "site", siteFromEnv(), "site code for offline use")
	pf.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout in server mode")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
}
