// Package examples picks, per agent and category, the most
// representative chats by a category-specific severity score and
// attaches redacted text snippets.
package examples

import (
	"sort"
	"time"

	"chat-insights-go/internal/stageprof"
	"chat-insights-go/internal/textsig"
	"chat-insights-go/internal/types"
)

type Category string

const (
	CategoryNoReply    Category = "no_reply"
	CategorySlowReply  Category = "slow_reply"
	CategoryNoNextStep Category = "no_next_step_high_intent"
	CategoryGood       Category = "good"
)

// categoryOrder fixes the output ordering across runs.
var categoryOrder = []Category{CategoryNoReply, CategorySlowReply, CategoryNoNextStep, CategoryGood}

var categoryNotes = map[Category]string{
	CategoryNoReply:    "Клиент написал — нет ответа менеджера (потеря).",
	CategorySlowReply:  "Очень долгий первый ответ (хвост p90).",
	CategoryNoNextStep: "Есть горячий запрос, но менеджер не закрывает в следующий шаг.",
	CategoryGood:       "Быстро + вопрос/следующий шаг (хороший паттерн).",
}

// Severity floors and gates.
const (
	noReplySeverity    = 100
	noNextStepSeverity = 50
	slowFloorSec       = 30 * 60
	goodCeilingSec     = 10 * 60
)

type Example struct {
	RunTS       time.Time
	ManagerID   string
	ManagerName string
	Category    Category
	ChatID      string
	SnippetIn   string
	SnippetOut  string
	Note        string
}

type candidate struct {
	chatID string
	score  int
	snIn   string
	snOut  string
}

// Selector accumulates candidates chat by chat and emits the ranked
// examples at the end of the run. Encounter order breaks score ties, so
// feeding chats in a deterministic order keeps the output stable.
type Selector struct {
	runTS time.Time
	topK  int

	byCategory map[Category]map[string][]candidate
	names      map[string]string
}

func NewSelector(runTS time.Time, topK int) *Selector {
	if topK <= 0 {
		topK = 3
	}
	byCat := map[Category]map[string][]candidate{}
	for _, c := range categoryOrder {
		byCat[c] = map[string][]candidate{}
	}
	return &Selector{runTS: runTS, topK: topK, byCategory: byCat, names: map[string]string{}}
}

// Consider registers one chat. Categories are judged independently; a
// chat may qualify for several.
func (s *Selector) Consider(m types.ChatMetrics, b stageprof.ChatBehavior, msgs []types.Message) {
	if m.ManagerName != "" {
		if _, ok := s.names[m.ManagerID]; !ok {
			s.names[m.ManagerID] = m.ManagerName
		}
	}
	snIn, snOut := snippets(msgs)

	noReply := m.InboundCount > 0 && m.OutboundCount == 0
	if noReply {
		s.add(CategoryNoReply, m.ManagerID, candidate{m.ChatID, noReplySeverity, snIn, snOut})
	}

	fr := 0
	if m.FirstResponseSec != nil {
		fr = *m.FirstResponseSec
	}
	if fr >= slowFloorSec {
		s.add(CategorySlowReply, m.ManagerID, candidate{m.ChatID, fr, snIn, snOut})
	}

	if b.HighIntent && b.Responded && !b.NextStep {
		s.add(CategoryNoNextStep, m.ManagerID, candidate{m.ChatID, noNextStepSeverity, snIn, snOut})
	}

	// Good: fast first response while still meeting every quality gate;
	// closer to instantaneous ranks higher.
	if b.Responded && b.NextStep && b.Questions >= 1 && fr > 0 && fr <= goodCeilingSec {
		s.add(CategoryGood, m.ManagerID, candidate{m.ChatID, goodCeilingSec - fr, snIn, snOut})
	}
}

func (s *Selector) add(cat Category, managerID string, c candidate) {
	s.byCategory[cat][managerID] = append(s.byCategory[cat][managerID], c)
}

// Examples returns the top-k rows per manager per category, category by
// category, managers in id order.
func (s *Selector) Examples() []Example {
	var out []Example
	for _, cat := range categoryOrder {
		byManager := s.byCategory[cat]
		mids := make([]string, 0, len(byManager))
		for mid := range byManager {
			mids = append(mids, mid)
		}
		sort.Strings(mids)
		for _, mid := range mids {
			cands := byManager[mid]
			sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
			if len(cands) > s.topK {
				cands = cands[:s.topK]
			}
			for _, c := range cands {
				out = append(out, Example{
					RunTS:       s.runTS,
					ManagerID:   mid,
					ManagerName: s.names[mid],
					Category:    cat,
					ChatID:      c.chatID,
					SnippetIn:   c.snIn,
					SnippetOut:  c.snOut,
					Note:        categoryNotes[cat],
				})
			}
		}
	}
	return out
}

// snippets returns the first qualifying customer and manager texts,
// redacted. Redaction happens here, before any text can reach a sink.
func snippets(msgs []types.Message) (string, string) {
	in, out := "", ""
	for _, m := range msgs {
		if in == "" && m.FromCustomer() && m.Textish() && m.Text != "" {
			in = textsig.Redact(m.Text)
		}
		if out == "" && m.FromManager() && m.Textish() && m.Text != "" {
			out = textsig.Redact(m.Text)
		}
		if in != "" && out != "" {
			break
		}
	}
	return in, out
}
