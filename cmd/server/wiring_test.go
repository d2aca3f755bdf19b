package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prms/internal/pid/sequence"
	"prms/internal/platform/config"
)

// Metrics register with the default registry, so the wiring is exercised
// exactly once per test binary.
func TestWiringIssuesIdentifiers(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		SiteCode:      "KTH",
		SequenceStore: config.StoreBolt,
		BoltPath:      filepath.Join(t.TempDir(), "seq.db"),
		AuditStore:    config.AuditMemory,
	}

	deps, err := buildDependencies(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	_, ok := deps.allocator.(*sequence.Bolt)
	assert.True(t, ok)
	assert.Nil(t, deps.printer)

	svc, err := newService(cfg, deps, log, nil)
	require.NoError(t, err)

	first, err := svc.Issue(context.Background())
	require.NoError(t, err)
	second, err := svc.Issue(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.PID, second.PID)
	assert.Equal(t, "00001", first.Components.Sequence)
}

func TestOpenAllocatorUnknownStore(t *testing.T) {
	d := &dependencies{}
	_, err := openAllocator(context.Background(), config.Config{SequenceStore: "etcd"}, nil, d,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
