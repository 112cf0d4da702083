// internal/navgraph/store_test.go
package navgraph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
)

type scriptedLLM struct {
	reply string
	err   error
	calls int
	last  schemas.GenerationRequest
}

func (s *scriptedLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	s.calls++
	s.last = req
	return s.reply, s.err
}

func newTestStore(t *testing.T, llm schemas.LLMClient, fuzzy bool) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), llm, fuzzy, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestDomainKey(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.booking.com/searchresults.html", "booking"},
		{"https://admin.microsoft.com/", "admin_microsoft"},
		{"https://shop.amazon.co.uk/basket", "shop_amazon"},
		{"http://example.org", "example"},
		{"booking.com/no-scheme", "booking"},
		{"https://localhost:8080/path", "localhost"},
		{"not a url", ""},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			assert.Equal(t, tc.want, DomainKey(tc.url))
		})
	}
}

func TestSaveFirstSeenWritesVerbatim(t *testing.T) {
	llm := &scriptedLLM{}
	store := newTestStore(t, llm, true)

	graph := `{"Home Page": {"url": "https://booking.com/", "layout": "search", "elements": [], "outgoing_links": []}}`
	require.NoError(t, store.Save(context.Background(), graph, "https://www.booking.com/"))

	data, err := os.ReadFile(filepath.Join(store.dir, "booking_graph.json"))
	require.NoError(t, err)
	assert.Equal(t, graph, string(data))
	assert.Zero(t, llm.calls, "first sighting must not invoke the LLM")
}

func TestSaveMergesExistingGraph(t *testing.T) {
	merged := `{"Home Page": {"url": "https://booking.com/"}, "Search Results Page": {"url": "https://booking.com/searchresults.html"}}`
	llm := &scriptedLLM{reply: "Here is the unified graph:\n```json\n" + merged + "\n```"}
	store := newTestStore(t, llm, true)

	first := `{"Home Page": {"url": "https://booking.com/"}}`
	second := `{"Search Results Page": {"url": "https://booking.com/searchresults.html"}}`
	require.NoError(t, store.Save(context.Background(), first, "https://booking.com/"))
	require.NoError(t, store.Save(context.Background(), second, "https://booking.com/"))

	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, schemas.TierFast, llm.last.Tier)
	assert.Contains(t, llm.last.Messages[0].Text, first)
	assert.Contains(t, llm.last.Messages[0].Text, second)

	data, err := os.ReadFile(filepath.Join(store.dir, "booking_graph.json"))
	require.NoError(t, err)
	assert.JSONEq(t, merged, string(data))
}

func TestSaveMergeExtractsLooseJSON(t *testing.T) {
	merged := `{"Home Page": {"url": "https://x.com/"}}`
	llm := &scriptedLLM{reply: "No fences here, sorry. " + merged + " Done."}
	store := newTestStore(t, llm, true)

	require.NoError(t, store.Save(context.Background(), `{"A": {}}`, "https://x.com/"))
	require.NoError(t, store.Save(context.Background(), `{"B": {}}`, "https://x.com/"))

	data, err := os.ReadFile(filepath.Join(store.dir, "x_graph.json"))
	require.NoError(t, err)
	assert.JSONEq(t, merged, string(data))
}

func TestSaveFallsBackWhenMergeFails(t *testing.T) {
	t.Run("llm error", func(t *testing.T) {
		llm := &scriptedLLM{err: errors.New("quota exceeded")}
		store := newTestStore(t, llm, true)

		newGraph := `{"B": {"url": "https://x.com/b"}}`
		require.NoError(t, store.Save(context.Background(), `{"A": {}}`, "https://x.com/"))
		require.NoError(t, store.Save(context.Background(), newGraph, "https://x.com/"))

		data, err := os.ReadFile(filepath.Join(store.dir, "x_graph.json"))
		require.NoError(t, err)
		assert.Equal(t, newGraph, string(data), "new graph overwrites on merge failure")
	})

	t.Run("no llm configured", func(t *testing.T) {
		store := newTestStore(t, nil, true)

		newGraph := `{"B": {}}`
		require.NoError(t, store.Save(context.Background(), `{"A": {}}`, "https://x.com/"))
		require.NoError(t, store.Save(context.Background(), newGraph, "https://x.com/"))

		data, err := os.ReadFile(filepath.Join(store.dir, "x_graph.json"))
		require.NoError(t, err)
		assert.Equal(t, newGraph, string(data))
	})

	t.Run("completion without json", func(t *testing.T) {
		llm := &scriptedLLM{reply: "I could not merge these graphs."}
		store := newTestStore(t, llm, true)

		newGraph := `{"B": {}}`
		require.NoError(t, store.Save(context.Background(), `{"A": {}}`, "https://x.com/"))
		require.NoError(t, store.Save(context.Background(), newGraph, "https://x.com/"))

		data, err := os.ReadFile(filepath.Join(store.dir, "x_graph.json"))
		require.NoError(t, err)
		assert.Equal(t, newGraph, string(data))
	})
}

func TestSaveRejectsInvalidJSON(t *testing.T) {
	store := newTestStore(t, nil, true)
	err := store.Save(context.Background(), "{not json", "https://x.com/")
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	store := newTestStore(t, nil, true)
	graph := `{"Home Page": {}}`
	require.NoError(t, store.Save(context.Background(), graph, "https://www.airbnb.com/"))

	t.Run("exact match", func(t *testing.T) {
		rec, found, err := store.Find("https://airbnb.com/rooms/42", 30*24*time.Hour)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, graph, rec.Content)
	})

	t.Run("fuzzy substring match", func(t *testing.T) {
		// Subdomain key "host_airbnb" contains the stored stem "airbnb".
		rec, found, err := store.Find("https://host.airbnb.com/", 30*24*time.Hour)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, graph, rec.Content)
	})

	t.Run("unknown domain", func(t *testing.T) {
		_, found, err := store.Find("https://expedia.com/", 30*24*time.Hour)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("stale graph treated as missing", func(t *testing.T) {
		path := filepath.Join(store.dir, "airbnb_graph.json")
		old := time.Now().Add(-60 * 24 * time.Hour)
		require.NoError(t, os.Chtimes(path, old, old))

		_, found, err := store.Find("https://airbnb.com/", 30*24*time.Hour)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestFindFuzzyDisabled(t *testing.T) {
	store := newTestStore(t, nil, false)
	require.NoError(t, store.Save(context.Background(), `{}`, "https://airbnb.com/"))

	_, found, err := store.Find("https://host.airbnb.com/", time.Hour)
	require.NoError(t, err)
	assert.False(t, found, "fuzzy lookup is opt-in")
}

func TestBuildContext(t *testing.T) {
	store := newTestStore(t, nil, true)

	t.Run("empty yields placeholder", func(t *testing.T) {
		assert.Equal(t, EmptyContextPlaceholder, store.BuildContext(nil, 3))
	})

	t.Run("caps record size", func(t *testing.T) {
		big := strings.Repeat("x", maxContextChars+500)
		ctx := store.BuildContext([]*Record{{Content: big}}, 3)
		assert.Contains(t, ctx, "## Navigation graph of this website:")
		assert.Contains(t, ctx, truncationMarker)
		assert.Less(t, len(ctx), maxContextChars+200)
	})

	t.Run("limits graph count", func(t *testing.T) {
		records := []*Record{{Content: "g1"}, {Content: "g2"}, {Content: "g3"}}
		ctx := store.BuildContext(records, 2)
		assert.Contains(t, ctx, "g1")
		assert.Contains(t, ctx, "g2")
		assert.NotContains(t, ctx, "g3")
	})
}
