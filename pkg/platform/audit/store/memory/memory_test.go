package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "verichain/pkg/platform/audit"
)

func TestListByIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Append(ctx, audit.Event{Action: "a", Actor: "0xA", Subject: "0xB"}))
	require.NoError(t, s.Append(ctx, audit.Event{Action: "b", Actor: "0xC"}))
	require.NoError(t, s.Append(ctx, audit.Event{Action: "c", Subject: "0xA"}))

	got, err := s.ListByIdentity(ctx, "0xA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Action)
	assert.Equal(t, "c", got[1].Action)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	s.Clear()
	all, _ = s.ListAll(ctx)
	assert.Empty(t, all)
}
