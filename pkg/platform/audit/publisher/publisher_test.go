package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "verichain/pkg/platform/audit"
	"verichain/pkg/platform/audit/metrics"
	"verichain/pkg/platform/audit/store/memory"
)

const issuer = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

type failingStore struct {
	err error
}

func (s *failingStore) Append(_ context.Context, _ audit.Event) error {
	return s.err
}

func (s *failingStore) ListByIdentity(_ context.Context, _ string) ([]audit.Event, error) {
	return nil, nil
}

type failingSink struct{ calls int }

func (s *failingSink) Append(_ context.Context, _ audit.Event) error {
	s.calls++
	return errors.New("broker down")
}

func TestPublisher_EmitStoresEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	err := pub.Emit(context.Background(), audit.Event{
		Actor:  issuer,
		Action: string(audit.EventCredentialIssued),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), issuer)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCredentialIssued), events[0].Action)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	before := time.Now()
	err := pub.Emit(context.Background(), audit.Event{
		Actor:  issuer,
		Action: string(audit.EventCredentialIssued),
	})
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.List(context.Background(), issuer)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.Event{
		Actor:     issuer,
		Action:    string(audit.EventCredentialIssued),
		Timestamp: customTime,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), issuer)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_EmitReturnsError(t *testing.T) {
	storeErr := errors.New("append failed")
	pub := NewPublisher(&failingStore{err: storeErr})

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventCredentialIssued)})
	require.ErrorIs(t, err, storeErr)
}

func TestPublisher_SinkFailureIsNotReturned(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	sink := &failingSink{}
	pub := NewPublisher(memory.NewInMemoryStore(), WithSink(sink), WithMetrics(m))

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventCredentialRevoked)})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SinkFailures))
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(8))

	for range 3 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			Actor:  issuer,
			Action: string(audit.EventCredentialVerified),
		}))
	}
	pub.Close()

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
