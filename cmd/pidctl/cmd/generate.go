package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"prms/internal/pid"
	"prms/internal/pid/export"
	"prms/internal/pid/handler"
	"prms/internal/pid/sequence"
)

func NewGenerateCmd(ctx context.Context, opts *options) *cobra.Command {
	var (
		count       int
		store       string
		boltPath    string
		xlsxPath    string
		concurrency int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "issue new identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("--count must be at least 1")
			}
			if concurrency < 1 {
				concurrency = 1
			}

			var alloc pid.SequenceAllocator
			if opts.server == "" {
				a, closeFn, err := openLocalAllocator(store, boltPath)
				if err != nil {
					return err
				}
				defer closeFn()
				alloc = a
			}
			b, err := opts.backend(alloc)
			if err != nil {
				return err
			}

			rows, err := issueMany(cmd.Context(), b, count, concurrency)
			if err != nil {
				return err
			}
			slog.DebugContext(cmd.Context(), "identifiers issued", "count", len(rows))

			if xlsxPath != "" {
				if err := writeWorkbook(xlsxPath, rows); err != nil {
					return err
				}
			}
			return printRows(cmd.OutOrStdout(), rows, asJSON)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of identifiers to issue")
	cmd.Flags().StringVar(&store, "store", sequence.StoreMemory, "offline sequence store: memory, random or bolt")
	cmd.Flags().StringVar(&boltPath, "bolt-path", "prms-sequences.db", "bolt file used with --store bolt")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the identifiers to this workbook")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel issue requests")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per identifier")
	return cmd
}

func openLocalAllocator(store, boltPath string) (pid.SequenceAllocator, func(), error) {
	switch strings.ToLower(store) {
	case sequence.StoreMemory:
		return sequence.NewInMemory(), func() {}, nil
	case sequence.StoreRandom:
		return sequence.NewRandom(), func() {}, nil
	case sequence.StoreBolt:
		b, err := sequence.OpenBolt(boltPath)
		if err != nil {
			return nil, nil, err
		}
		return b, func() {
			if err := b.Close(); err != nil {
				slog.Warn("failed to close bolt store", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", store)
	}
}

// issueMany issues count identifiers with at most concurrency in flight and
// returns them in identifier order.
func issueMany(ctx context.Context, b backend, count, concurrency int) ([]export.Row, error) {
	rows := make([]export.Row, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range count {
		g.Go(func() error {
			row, err := b.Issue(gctx)
			if err != nil {
				return fmt.Errorf("issue %d of %d: %w", i+1, count, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(rows, func(a, b export.Row) int {
		return strings.Compare(a.PID, b.PID)
	})
	return rows, nil
}

func writeWorkbook(path string, rows []export.Row) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteXLSX(f, rows)
}

func printRows(w io.Writer, rows []export.Row, asJSON bool) error {
	if !asJSON {
		for _, row := range rows {
			if _, err := fmt.Fprintln(w, row.PID); err != nil {
				return err
			}
		}
		return nil
	}
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(handler.IssueResponse{
			PID:        row.PID,
			Components: row.Components,
			QRPayload:  row.QRPayload,
		}); err != nil {
			return err
		}
	}
	return nil
}
