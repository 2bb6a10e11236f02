package sheet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"chat-insights-go/internal/aggregate"
	"chat-insights-go/internal/examples"
	"chat-insights-go/internal/types"
)

var msk = time.FixedZone("MSK", 3*60*60)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func writeFixture(t *testing.T, path string, sheets map[string][][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.xlsx")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	chats, err := s.ReadChats(msk)
	require.NoError(t, err)
	assert.Empty(t, chats)

	hist, err := s.ReadHistory()
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestReadRawTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")
	writeFixture(t, path, map[string][][]interface{}{
		SheetChatsRaw: {
			{"Chat_ID", "Channel", "manager_id", "manager_name"},
			{"c1", "whatsapp", "5", "Аня"},
			{"c2", "telegram", "", ""},
		},
		SheetMessagesRaw: {
			{"message_id", "chat_id", "direction", "sent_at", "text", "manager_id", "message_type", "author_type"},
			{"m1", "c1", "incoming", "2025-03-10 11:00:00", "Здравствуйте", "", "TEXT", "Customer"},
			{"m2", "c1", "outgoing", "2025-03-10T11:05:00+03:00", "Добрый день!", "5", "TEXT", "User"},
			{"m3", "c2", "sideways", "not a date", "???", "", "", ""},
		},
		SheetUsers: {
			{"manager_id", "manager_name"},
			{"5", "Аня"},
			{"", "призрак"},
		},
	})

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	chats, err := s.ReadChats(msk)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	// Mixed-case headers fold to lower case.
	assert.Equal(t, "c1", chats[0].ID)
	assert.Equal(t, "whatsapp", chats[0].Channel)
	assert.Equal(t, "Аня", chats[0].ManagerName)

	msgs, err := s.ReadMessages(msk)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, types.DirIn, msgs[0].Direction)
	assert.Equal(t, types.DirOut, msgs[1].Direction)
	// Naive timestamps are tagged with the configured zone, not shifted.
	require.NotNil(t, msgs[0].SentAt)
	assert.Equal(t, 11, msgs[0].SentAt.Hour())
	assert.Equal(t, "MSK", msgs[0].SentAt.Location().String())
	// Unknown direction and bad timestamp degrade, row survives.
	assert.Empty(t, msgs[2].Direction)
	assert.Nil(t, msgs[2].SentAt)

	users, err := s.ReadUsers()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"5": "Аня"}, users)
}

func TestWriteChatMetricsOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	rows := []types.ChatMetrics{
		{
			ChatID: "c1", Channel: "whatsapp", ManagerID: "5", ManagerName: "Аня",
			InboundCount: 2, OutboundCount: 1,
			FirstResponseSec:  intp(300),
			UnansweredInbound: 1,
			Advice:            []string{"a1", "a2"},
		},
		{ChatID: "c2"},
	}
	require.NoError(t, s.WriteChatMetrics(rows))
	// Second write replaces, never appends.
	require.NoError(t, s.WriteChatMetrics(rows[:1]))

	got, err := s.f.GetRows(SheetChatMetrics)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "chat_id", got[0][0])
	assert.Equal(t, "c1", got[1][0])
	assert.Equal(t, "300", got[1][8])
	assert.Equal(t, "a1; a2", got[1][12])
}

func TestWriteSummaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sum.xlsx")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	managers := []aggregate.ManagerSummary{{
		ManagerID: "5", ManagerName: "Аня",
		Chats: 3, Inbound: 7, Outbound: 5,
		RespondedChats:      2,
		MedianFirstReplySec: intp(240),
		ResponseRate:        floatp(0.6667),
	}}
	channels := []aggregate.ChannelSummary{{
		Channel: "whatsapp", Chats: 3, NoReplyChats: 1,
	}}
	require.NoError(t, s.WriteManagerSummary(managers))
	require.NoError(t, s.WriteChannelSummary(channels))

	got, err := s.f.GetRows(SheetManagers)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Аня", got[1][1])
	assert.Equal(t, "240", got[1][9])
	assert.Equal(t, "0.6667", got[1][11])

	got, err = s.f.GetRows(SheetChannels)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "whatsapp", got[1][0])
	assert.Equal(t, "1", got[1][4])
	// Undefined latency and rate render as empty cells.
	if len(got[1]) == len(channelSummaryHeader) {
		assert.Empty(t, got[1][9])
	}
}

func historyRow(manager string, runTS time.Time) aggregate.Snapshot {
	return aggregate.Snapshot{
		RunTS:               runTS,
		ManagerID:           manager,
		ManagerName:         "m" + manager,
		Chats:               3,
		RespondedChats:      2,
		ResponseRate:        floatp(0.6667),
		NoReplyChats:        1,
		NoReplyRate:         floatp(0.3333),
		MedianFirstReplySec: intp(240),
		AvgQuestionsPerChat: 1.5,
		NextStepRate:        floatp(0.5),
		HighIntentChats:     2,
	}
}

func TestHistoryAppendAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.xlsx")
	s, err := Open(path)
	require.NoError(t, err)

	run1 := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	run2 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendHistory([]aggregate.Snapshot{historyRow("1", run1)}))
	require.NoError(t, s.AppendHistory([]aggregate.Snapshot{historyRow("1", run2), historyRow("2", run2)}))
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	hist, err := s.ReadHistory()
	require.NoError(t, err)
	require.Len(t, hist, 3)

	first := hist[0]
	assert.Equal(t, run1, first.RunTS)
	assert.Equal(t, "1", first.ManagerID)
	assert.Equal(t, 3, first.Chats)
	require.NotNil(t, first.ResponseRate)
	assert.Equal(t, 0.6667, *first.ResponseRate)
	require.NotNil(t, first.MedianFirstReplySec)
	assert.Equal(t, 240, *first.MedianFirstReplySec)
	assert.Equal(t, 1.5, first.AvgQuestionsPerChat)
	// Empty cells come back undefined, not zero.
	assert.Nil(t, first.P90FirstReplySec)
	assert.Nil(t, first.SpinRate)
	assert.Equal(t, 2, first.HighIntentChats)
}

func TestHistoryHeaderDriftClears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drift.xlsx")
	writeFixture(t, path, map[string][][]interface{}{
		SheetHistory: {
			{"run_ts", "legacy_col"},
			{"2025-03-01T00:00:00Z", "x"},
		},
	})

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	run := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendHistory([]aggregate.Snapshot{historyRow("1", run)}))

	hist, err := s.ReadHistory()
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, run, hist[0].RunTS)
}

func TestReadHistorySkipsBadRunTS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	writeFixture(t, path, map[string][][]interface{}{
		SheetHistory: {
			toCells(snapshotHeader),
			{"not a date", "1", "m1", "2"},
			{"2025-03-10T12:00:00Z", "2", "m2", "4"},
		},
	})

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	hist, err := s.ReadHistory()
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "2", hist[0].ManagerID)
	assert.Equal(t, 4, hist[0].Chats)
}

func TestWriteExamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ex.xlsx")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	run := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := []examples.Example{{
		RunTS:       run,
		ManagerID:   "5",
		ManagerName: "Аня",
		Category:    examples.CategoryNoReply,
		ChatID:      "c1",
		SnippetIn:   "Здравствуйте",
		Note:        "n",
	}}
	require.NoError(t, s.WriteExamples(rows))

	got, err := s.f.GetRows(SheetExamples)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-03-10T12:00:00Z", got[1][0])
	assert.Equal(t, "no_reply", got[1][3])
}
