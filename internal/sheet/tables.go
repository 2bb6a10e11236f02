package sheet

import (
	"strconv"
	"strings"
	"time"

	"chat-insights-go/internal/aggregate"
	"chat-insights-go/internal/examples"
	"chat-insights-go/internal/timeutil"
	"chat-insights-go/internal/types"
)

var chatMetricsHeader = []string{
	"chat_id", "channel", "manager_id", "manager_name",
	"inbound_count", "outbound_count",
	"first_inbound_at", "first_outbound_at", "first_response_sec",
	"last_inbound_at", "last_outbound_at",
	"unanswered_inbound", "advice",
}

var spinMetricsHeader = []string{
	"chat_id", "manager_id", "manager_name",
	"total_messages", "total_questions",
	"open_questions", "closed_questions",
	"spin_s_count", "spin_p_count", "spin_i_count", "spin_n_count",
	"has_situation", "has_problem", "has_implication", "has_need_payoff",
	"spin_completeness", "stage_flow",
}

var managerSummaryHeader = []string{
	"manager_id", "manager_name",
	"chats", "inbound", "outbound", "unanswered_inbound",
	"no_reply_chats", "slow_first_reply_chats", "responded_chats",
	"median_first_reply_sec", "p90_first_reply_sec", "response_rate",
}

var channelSummaryHeader = []string{
	"channel",
	"chats", "inbound", "outbound",
	"no_reply_chats", "slow_first_reply_chats", "responded_chats",
	"median_first_reply_sec", "p90_first_reply_sec", "response_rate",
}

var snapshotHeader = []string{
	"run_ts", "manager_id", "manager_name",
	"chats", "responded_chats", "response_rate",
	"no_reply_chats", "no_reply_rate",
	"median_first_reply_sec", "p90_first_reply_sec",
	"avg_questions_per_chat",
	"next_step_rate", "spin_rate", "upsell_rate", "follow_up_gap_rate",
	"high_intent_chats",
}

var deltaHeader = append(append([]string{}, snapshotHeader...),
	"delta_response_rate", "delta_no_reply_rate",
	"delta_avg_questions_per_chat",
	"delta_next_step_rate", "delta_spin_rate", "delta_upsell_rate",
	"delta_follow_up_gap_rate",
	"delta_median_first_reply_sec", "delta_p90_first_reply_sec",
)

var examplesHeader = []string{
	"run_ts", "manager_id", "manager_name", "category",
	"chat_id", "snippet_in", "snippet_out", "note",
}

// ReadChats loads the chats_raw table. Unset cells read as empty
// strings.
func (s *Store) ReadChats(loc *time.Location) ([]types.Chat, error) {
	recs, err := s.readTable(SheetChatsRaw)
	if err != nil {
		return nil, err
	}
	out := make([]types.Chat, 0, len(recs))
	for _, r := range recs {
		out = append(out, types.Chat{
			ID:          pick(r, "chat_id", "id"),
			Channel:     r["channel"],
			ManagerID:   r["manager_id"],
			ManagerName: r["manager_name"],
			ClientID:    r["client_id"],
			OrderID:     r["order_id"],
			Status:      r["status"],
			CreatedAt:   timeutil.Parse(r["created_at"], loc),
			UpdatedAt:   timeutil.Parse(r["updated_at"], loc),
		})
	}
	return out, nil
}

// ReadMessages loads messages_raw. Directions are normalized and bad
// timestamps become nil.
func (s *Store) ReadMessages(loc *time.Location) ([]types.Message, error) {
	recs, err := s.readTable(SheetMessagesRaw)
	if err != nil {
		return nil, err
	}
	out := make([]types.Message, 0, len(recs))
	for _, r := range recs {
		out = append(out, types.Message{
			ID:         pick(r, "message_id", "id"),
			ChatID:     r["chat_id"],
			Direction:  types.NormalizeDirection(r["direction"]),
			SentAt:     timeutil.Parse(r["sent_at"], loc),
			Text:       r["text"],
			ManagerID:  r["manager_id"],
			Type:       pick(r, "message_type", "type"),
			AuthorRole: pick(r, "author_type", "author_role"),
		})
	}
	return out, nil
}

// ReadUsers returns manager id -> display name.
func (s *Store) ReadUsers() (map[string]string, error) {
	recs, err := s.readTable(SheetUsers)
	if err != nil {
		return nil, err
	}
	users := map[string]string{}
	for _, r := range recs {
		id := pick(r, "manager_id", "id")
		name := pick(r, "manager_name", "name", "first_name")
		if id != "" && name != "" {
			users[id] = name
		}
	}
	return users, nil
}

func (s *Store) WriteChatMetrics(rows []types.ChatMetrics) error {
	cells := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []interface{}{
			r.ChatID, r.Channel, r.ManagerID, r.ManagerName,
			strconv.Itoa(r.InboundCount), strconv.Itoa(r.OutboundCount),
			fmtTime(r.FirstInboundAt), fmtTime(r.FirstOutboundAt), fmtIntPtr(r.FirstResponseSec),
			fmtTime(r.LastInboundAt), fmtTime(r.LastOutboundAt),
			strconv.Itoa(r.UnansweredInbound),
			strings.Join(r.Advice, "; "),
		})
	}
	return s.overwrite(SheetChatMetrics, chatMetricsHeader, cells)
}

func (s *Store) WriteSpinMetrics(rows []types.StageMetrics) error {
	cells := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []interface{}{
			r.ChatID, r.ManagerID, r.ManagerName,
			strconv.Itoa(r.TotalMessages), strconv.Itoa(r.TotalQuestions),
			strconv.Itoa(r.OpenQuestions), strconv.Itoa(r.ClosedQuestions),
			strconv.Itoa(r.SituationCount), strconv.Itoa(r.ProblemCount),
			strconv.Itoa(r.ImplicationCount), strconv.Itoa(r.NeedPayoffCount),
			fmtBool(r.HasSituation), fmtBool(r.HasProblem),
			fmtBool(r.HasImplication), fmtBool(r.HasNeedPayoff),
			fmtFloat(r.Completeness), r.StageFlow,
		})
	}
	return s.overwrite(SheetSpinMetrics, spinMetricsHeader, cells)
}

func (s *Store) WriteManagerSummary(rows []aggregate.ManagerSummary) error {
	cells := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []interface{}{
			r.ManagerID, r.ManagerName,
			strconv.Itoa(r.Chats), strconv.Itoa(r.Inbound), strconv.Itoa(r.Outbound),
			strconv.Itoa(r.UnansweredInbound),
			strconv.Itoa(r.NoReplyChats), strconv.Itoa(r.SlowFirstReplyChats),
			strconv.Itoa(r.RespondedChats),
			fmtIntPtr(r.MedianFirstReplySec), fmtIntPtr(r.P90FirstReplySec),
			fmtFloatPtr(r.ResponseRate),
		})
	}
	return s.overwrite(SheetManagers, managerSummaryHeader, cells)
}

func (s *Store) WriteChannelSummary(rows []aggregate.ChannelSummary) error {
	cells := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []interface{}{
			r.Channel,
			strconv.Itoa(r.Chats), strconv.Itoa(r.Inbound), strconv.Itoa(r.Outbound),
			strconv.Itoa(r.NoReplyChats), strconv.Itoa(r.SlowFirstReplyChats),
			strconv.Itoa(r.RespondedChats),
			fmtIntPtr(r.MedianFirstReplySec), fmtIntPtr(r.P90FirstReplySec),
			fmtFloatPtr(r.ResponseRate),
		})
	}
	return s.overwrite(SheetChannels, channelSummaryHeader, cells)
}

func snapshotCells(r aggregate.Snapshot) []interface{} {
	return []interface{}{
		r.RunTS.UTC().Format(time.RFC3339),
		r.ManagerID, r.ManagerName,
		strconv.Itoa(r.Chats), strconv.Itoa(r.RespondedChats), fmtFloatPtr(r.ResponseRate),
		strconv.Itoa(r.NoReplyChats), fmtFloatPtr(r.NoReplyRate),
		fmtIntPtr(r.MedianFirstReplySec), fmtIntPtr(r.P90FirstReplySec),
		fmtFloat(r.AvgQuestionsPerChat),
		fmtFloatPtr(r.NextStepRate), fmtFloatPtr(r.SpinRate),
		fmtFloatPtr(r.UpsellRate), fmtFloatPtr(r.FollowUpGapRate),
		strconv.Itoa(r.HighIntentChats),
	}
}

// WriteSnapshots replaces the current-snapshot sheet.
func (s *Store) WriteSnapshots(rows []aggregate.Snapshot) error {
	cells := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, snapshotCells(r))
	}
	return s.overwrite(SheetSnapshot, snapshotHeader, cells)
}

// AppendHistory appends the run's snapshots to the append-only history
// sheet.
func (s *Store) AppendHistory(rows []aggregate.Snapshot) error {
	cells := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, snapshotCells(r))
	}
	return s.appendRows(SheetHistory, snapshotHeader, cells)
}

// ReadHistory loads all historical snapshots for baseline selection.
// Rows with an unparseable run_ts are skipped: without a timestamp a
// snapshot cannot participate in the recency rule.
func (s *Store) ReadHistory() ([]aggregate.Snapshot, error) {
	recs, err := s.readTable(SheetHistory)
	if err != nil {
		return nil, err
	}
	var out []aggregate.Snapshot
	for _, r := range recs {
		ts := timeutil.Parse(r["run_ts"], time.UTC)
		if ts == nil {
			continue
		}
		out = append(out, aggregate.Snapshot{
			RunTS:               *ts,
			ManagerID:           r["manager_id"],
			ManagerName:         r["manager_name"],
			Chats:               parseInt(r["chats"]),
			RespondedChats:      parseInt(r["responded_chats"]),
			ResponseRate:        parseFloatPtr(r["response_rate"]),
			NoReplyChats:        parseInt(r["no_reply_chats"]),
			NoReplyRate:         parseFloatPtr(r["no_reply_rate"]),
			MedianFirstReplySec: parseIntPtr(r["median_first_reply_sec"]),
			P90FirstReplySec:    parseIntPtr(r["p90_first_reply_sec"]),
			AvgQuestionsPerChat: parseFloat(r["avg_questions_per_chat"]),
			NextStepRate:        parseFloatPtr(r["next_step_rate"]),
			SpinRate:            parseFloatPtr(r["spin_rate"]),
			UpsellRate:          parseFloatPtr(r["upsell_rate"]),
			FollowUpGapRate:     parseFloatPtr(r["follow_up_gap_rate"]),
			HighIntentChats:     parseInt(r["high_intent_chats"]),
		})
	}
	return out, nil
}

func (s *Store) WriteDeltas(rows []aggregate.Delta) error {
	cells := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		row := snapshotCells(r.Snapshot)
		row = append(row,
			fmtFloatPtr(r.DResponseRate), fmtFloatPtr(r.DNoReplyRate),
			fmtFloatPtr(r.DAvgQuestionsPerChat),
			fmtFloatPtr(r.DNextStepRate), fmtFloatPtr(r.DSpinRate),
			fmtFloatPtr(r.DUpsellRate), fmtFloatPtr(r.DFollowUpGapRate),
			fmtFloatPtr(r.DMedianFirstReplySec), fmtFloatPtr(r.DP90FirstReplySec),
		)
		cells = append(cells, row)
	}
	return s.overwrite(SheetDelta, deltaHeader, cells)
}

func (s *Store) WriteExamples(rows []examples.Example) error {
	cells := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []interface{}{
			r.RunTS.UTC().Format(time.RFC3339),
			r.ManagerID, r.ManagerName, string(r.Category),
			r.ChatID, r.SnippetIn, r.SnippetOut, r.Note,
		})
	}
	return s.overwrite(SheetExamples, examplesHeader, cells)
}

func pick(rec map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := rec[k]; v != "" {
			return v
		}
	}
	return ""
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func fmtFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func parseIntPtr(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseFloatPtr(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
