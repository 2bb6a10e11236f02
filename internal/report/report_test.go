package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-insights-go/internal/aggregate"
	"chat-insights-go/internal/bizclock"
	"chat-insights-go/internal/config"
	"chat-insights-go/internal/examples"
	"chat-insights-go/internal/types"
)

var msk = time.FixedZone("MSK", 3*60*60)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	win, err := bizclock.ParseWindow("10:00-23:00")
	require.NoError(t, err)
	return &config.Config{
		Timezone:             "MSK",
		Location:             msk,
		Window:               win,
		SlowReplySec:         600,
		BaselineLookbackDays: 6,
		ExamplesPerCategory:  3,
	}
}

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", value, msk)
	require.NoError(t, err)
	return &parsed
}

func msg(chatID, dir, sentAt, text, managerID string, t *testing.T) types.Message {
	role := types.RoleCustomer
	if dir == types.DirOut {
		role = types.RoleUser
	}
	m := types.Message{ChatID: chatID, Direction: dir, Text: text, ManagerID: managerID, AuthorRole: role}
	if sentAt != "" {
		m.SentAt = ts(t, sentAt)
	}
	return m
}

func testInput(t *testing.T) Input {
	t.Helper()
	return Input{
		Chats: []types.Chat{
			{ID: "c2", Channel: "telegram"},
			{ID: "c1", Channel: "whatsapp", ManagerID: "5"},
		},
		Messages: []types.Message{
			msg("c1", types.DirIn, "2025-03-10 11:00:00", "Сколько стоит плед?", "", t),
			msg("c1", types.DirOut, "2025-03-10 11:05:00", "Добрый день! Какой размер нужен?", "5", t),
			msg("c2", types.DirIn, "2025-03-10 12:00:00", "Здравствуйте", "", t),
			// A chat only the messages know about.
			msg("c3", types.DirIn, "2025-03-10 13:00:00", "Хочу заказать", "", t),
		},
		Users: map[string]string{"5": "Аня"},
	}
}

func TestRunProducesAllTables(t *testing.T) {
	cfg := testConfig(t)
	runTS := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	out := Run(cfg, testInput(t), nil, runTS)

	assert.Equal(t, runTS, out.RunTS)

	// One row per chat in id order, including the synthesized c3.
	require.Len(t, out.ChatMetrics, 3)
	assert.Equal(t, "c1", out.ChatMetrics[0].ChatID)
	assert.Equal(t, "c2", out.ChatMetrics[1].ChatID)
	assert.Equal(t, "c3", out.ChatMetrics[2].ChatID)

	c1 := out.ChatMetrics[0]
	assert.Equal(t, "Аня", c1.ManagerName)
	require.NotNil(t, c1.FirstResponseSec)
	assert.Equal(t, 300, *c1.FirstResponseSec)

	require.Len(t, out.SpinMetrics, 3)
	assert.Equal(t, "Аня", out.SpinMetrics[0].ManagerName)
	assert.True(t, out.SpinMetrics[0].HasSituation)

	assert.NotEmpty(t, out.ManagerSummary)
	assert.NotEmpty(t, out.ChannelSummary)
	require.NotEmpty(t, out.Snapshots)

	// No history, so every delta stays undefined.
	require.Len(t, out.Deltas, len(out.Snapshots))
	for _, d := range out.Deltas {
		assert.Nil(t, d.DResponseRate)
		assert.Nil(t, d.DMedianFirstReplySec)
	}

	// c2 and c3 went unanswered.
	var noReply []examples.Example
	for _, e := range out.Examples {
		if e.Category == examples.CategoryNoReply {
			noReply = append(noReply, e)
		}
	}
	assert.Len(t, noReply, 2)
}

func TestRunIdempotent(t *testing.T) {
	cfg := testConfig(t)
	runTS := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	first := Run(cfg, testInput(t), nil, runTS)
	second := Run(cfg, testInput(t), nil, runTS)

	assert.Equal(t, first, second)
}

func TestRunTruncatesRunTS(t *testing.T) {
	cfg := testConfig(t)
	runTS := time.Date(2025, 3, 10, 15, 0, 0, 987654321, time.UTC)

	out := Run(cfg, testInput(t), nil, runTS)

	assert.Equal(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), out.RunTS)
}

func TestRunBaselineCutoff(t *testing.T) {
	cfg := testConfig(t)
	runTS := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	in := testInput(t)

	rateAt := func(days int, v float64) aggregate.Snapshot {
		return aggregate.Snapshot{
			RunTS:        runTS.AddDate(0, 0, -days),
			ManagerID:    "5",
			ManagerName:  "Аня",
			Chats:        1,
			ResponseRate: &v,
		}
	}
	history := []aggregate.Snapshot{
		rateAt(10, 0.2),
		rateAt(7, 0.5),
		rateAt(3, 0.9),
		rateAt(1, 0.95),
	}

	out := Run(cfg, in, history, runTS)

	var found bool
	for _, d := range out.Deltas {
		if d.ManagerID != "5" {
			continue
		}
		found = true
		require.NotNil(t, d.ResponseRate)
		require.NotNil(t, d.DResponseRate)
		// Baseline is the 7-day-old snapshot, not the fresher ones.
		assert.InDelta(t, *d.ResponseRate-0.5, *d.DResponseRate, 1e-9)
	}
	assert.True(t, found)
}

func TestRunUnorderedMessagesSorted(t *testing.T) {
	cfg := testConfig(t)
	runTS := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	in := Input{
		Chats: []types.Chat{{ID: "c1"}},
		Messages: []types.Message{
			msg("c1", types.DirOut, "2025-03-10 11:30:00", "Здравствуйте!", "5", t),
			msg("c1", types.DirIn, "2025-03-10 11:00:00", "Добрый день", "", t),
		},
	}

	out := Run(cfg, in, nil, runTS)

	require.Len(t, out.ChatMetrics, 1)
	// The reply is recognized even though the rows arrived out of order.
	require.NotNil(t, out.ChatMetrics[0].FirstResponseSec)
	assert.Equal(t, 1800, *out.ChatMetrics[0].FirstResponseSec)
	assert.Zero(t, out.ChatMetrics[0].UnansweredInbound)
}
