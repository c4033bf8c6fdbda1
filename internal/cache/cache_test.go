package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-crawl/internal/cleaner"
	"github.com/albapepper/scoracle-crawl/internal/provider"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) LatestHashes(ctx context.Context) ([]Record, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]Record)
	return records, args.Error(1)
}

func hashOf(t *testing.T, v any) string {
	t.Helper()
	_, h, err := Hash(v)
	require.NoError(t, err)
	return h
}

func TestCreateLogEntryDetectsChanges(t *testing.T) {
	countries := []provider.Country{{ID: 11, Name: "Germany"}, {ID: 17, Name: "Spain"}}

	src := &mockSource{}
	src.On("LatestHashes", mock.Anything).Return([]Record{
		{ID: "all-countries", Type: TypeAllCountries, Hash: hashOf(t, countries)},
	}, nil)

	c := New(src, "1.0.0")
	require.NoError(t, c.Reload(context.Background()))

	same, err := c.CreateLogEntry(TypeAllCountries, countries, "all-countries")
	require.NoError(t, err)
	assert.True(t, same.IsSameAsPrevious)
	assert.Equal(t, "automatic update from scanner 1.0.0", same.Log)
	assert.Equal(t, TypeAllCountries, same.Type)
	assert.Len(t, same.Hash, 64)

	changed := append([]provider.Country(nil), countries...)
	changed[1].Name = "España"
	entry, err := c.CreateLogEntry(TypeAllCountries, changed, "all-countries")
	require.NoError(t, err)
	assert.False(t, entry.IsSameAsPrevious)

	unknown, err := c.CreateLogEntry(TypeAllCountries, countries, "other-id")
	require.NoError(t, err)
	assert.False(t, unknown.IsSameAsPrevious)
	src.AssertExpectations(t)
}

func TestCreateLogEntryIgnoresCleanedFields(t *testing.T) {
	venue, referee := 338, 14
	fixture := provider.Fixture{ID: 1, LocalTeamID: 503, VisitorTeamID: 683}
	fixture.Time.Status = "NS"

	c := New(nil, "test")
	base, err := c.CreateLogEntry(TypeLive, cleaner.CleanFixture(fixture), "1")
	require.NoError(t, err)
	c.Remember(base)

	noisy := fixture
	noisy.VenueID = &venue
	noisy.RefereeID = &referee
	entry, err := c.CreateLogEntry(TypeLive, cleaner.CleanFixture(noisy), "1")
	require.NoError(t, err)
	assert.True(t, entry.IsSameAsPrevious, "stripped fields must not change the hash")

	scored := fixture
	scored.Scores.LocalTeamScore = 1
	entry, err = c.CreateLogEntry(TypeLive, cleaner.CleanFixture(scored), "1")
	require.NoError(t, err)
	assert.False(t, entry.IsSameAsPrevious)
}

func TestReloadFailureKeepsPreviousState(t *testing.T) {
	src := &mockSource{}
	src.On("LatestHashes", mock.Anything).Return([]Record{{ID: "17361", Type: TypeSeason, Hash: "abc"}}, nil).Once()
	src.On("LatestHashes", mock.Anything).Return(nil, errors.New("connection reset")).Once()

	c := New(src, "test")
	require.NoError(t, c.Reload(context.Background()))

	err := c.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	r, ok := c.Lookup("17361")
	require.True(t, ok)
	assert.Equal(t, "abc", r.Hash)
}

func TestReloadReplacesWholeMap(t *testing.T) {
	src := &mockSource{}
	src.On("LatestHashes", mock.Anything).Return([]Record{{ID: "a", Hash: "1"}, {ID: "b", Hash: "2"}}, nil).Once()
	src.On("LatestHashes", mock.Anything).Return([]Record{{ID: "b", Hash: "3"}}, nil).Once()

	c := New(src, "test")
	require.NoError(t, c.Reload(context.Background()))
	require.NoError(t, c.Reload(context.Background()))

	_, ok := c.Lookup("a")
	assert.False(t, ok)
	r, ok := c.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "3", r.Hash)
}

type slowSource struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *slowSource) LatestHashes(ctx context.Context) ([]Record, error) {
	s.calls.Add(1)
	<-s.release
	return []Record{{ID: "x", Hash: "h"}}, nil
}

func TestConcurrentReloadsShareOneQuery(t *testing.T) {
	src := &slowSource{release: make(chan struct{})}
	c := New(src, "test")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Reload(context.Background()))
		}()
	}
	// Give the goroutines time to join the in-flight reload.
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	_, ok := c.Lookup("x")
	assert.True(t, ok)
}

func TestReloadWithoutSource(t *testing.T) {
	c := New(nil, "test")
	c.Remember(Entry{ID: "all-leagues", Type: TypeAllLeagues, Hash: "h"})
	require.NoError(t, c.Reload(context.Background()))

	_, ok := c.Lookup("all-leagues")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Stats()["total_keys"])
}

func TestHashIsDeterministic(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1}
	b := map[string]any{"a": 1, "b": 2}
	payloadA, hashA, err := Hash(a)
	require.NoError(t, err)
	_, hashB, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
	assert.Equal(t, `{"a":1,"b":2}`, payloadA)
}
