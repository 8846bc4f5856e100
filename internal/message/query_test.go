package message

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, msgs ...Message) {
	t.Helper()
	for _, m := range msgs {
		res, err := s.InsertIfAbsent(context.Background(), m)
		require.NoError(t, err)
		require.Equal(t, InsertResultInserted, res)
	}
}

func seededStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore(openTestDB(t))
	seed(t, s,
		Message{MessageID: "m3", From: "+100", To: "+900", TS: "2025-01-03T00:00:00Z", Text: "third ping"},
		Message{MessageID: "m1", From: "+100", To: "+900", TS: "2025-01-01T00:00:00Z", Text: "Hello World"},
		Message{MessageID: "m2", From: "+200", To: "+900", TS: "2025-01-02T00:00:00Z", Text: "50% off_today"},
		Message{MessageID: "m0", From: "+200", To: "+900", TS: "2025-01-02T00:00:00Z", Text: "same ts, lower id"},
	)
	return s
}

func ids(page Page) []string {
	out := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, m.MessageID)
	}
	return out
}

func TestListOrderingAndPagination(t *testing.T) {
	t.Parallel()

	s := seededStore(t)
	ctx := context.Background()

	page, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m0", "m2", "m3"}, ids(page))
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, DefaultLimit, page.Limit)

	page, err = s.List(ctx, Filter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"m0", "m2"}, ids(page))
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 1, page.Offset)

	page, err = s.List(ctx, Filter{Limit: 10, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
	assert.Equal(t, 4, page.Total)
}

func TestListFilters(t *testing.T) {
	t.Parallel()

	s := seededStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "from", filter: Filter{From: "+200"}, want: []string{"m0", "m2"}},
		{name: "since inclusive", filter: Filter{Since: "2025-01-02T00:00:00Z"}, want: []string{"m0", "m2", "m3"}},
		{name: "q case-insensitive", filter: Filter{Q: "hello"}, want: []string{"m1"}},
		{name: "q escapes percent", filter: Filter{Q: "50%"}, want: []string{"m2"}},
		{name: "q escapes underscore", filter: Filter{Q: "f_t"}, want: []string{"m2"}},
		{name: "combined", filter: Filter{From: "+100", Since: "2025-01-02T00:00:00Z", Q: "PING"}, want: []string{"m3"}},
		{name: "no match", filter: Filter{From: "+999"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	s := seededStore(t)
	st, err := s.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, st.TotalMessages)
	assert.Equal(t, 2, st.SendersCount)
	assert.Equal(t, []SenderCount{{From: "+100", Count: 2}, {From: "+200", Count: 2}}, st.MessagesPerSender)
	require.NotNil(t, st.FirstMessageTS)
	require.NotNil(t, st.LastMessageTS)
	assert.Equal(t, "2025-01-01T00:00:00Z", *st.FirstMessageTS)
	assert.Equal(t, "2025-01-03T00:00:00Z", *st.LastMessageTS)
}

func TestStatsEmpty(t *testing.T) {
	t.Parallel()

	s := NewStore(openTestDB(t))
	st, err := s.Stats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, st.TotalMessages)
	assert.Zero(t, st.SendersCount)
	assert.Empty(t, st.MessagesPerSender)
	assert.Nil(t, st.FirstMessageTS)
	assert.Nil(t, st.LastMessageTS)
}
