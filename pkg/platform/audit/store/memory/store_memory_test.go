package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "prms/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	for _, subject := range []string{"KTH-2508-00073-2", "KTH-2601-00001-7", "KTH-2508-00073-2"} {
		require.NoError(t, s.Append(ctx, audit.Event{Action: string(audit.EventPIDIssued), Subject: subject}))
	}

	bySubject, err := s.ListBySubject(ctx, "KTH-2508-00073-2")
	require.NoError(t, err)
	assert.Len(t, bySubject, 2)

	recent, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "KTH-2601-00001-7", recent[0].Subject)

	all, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	s.Clear()
	all, err = s.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}
