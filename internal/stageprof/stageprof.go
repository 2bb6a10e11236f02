// Package stageprof profiles sales-methodology coverage per chat and
// extracts the behavioral features that feed per-agent digests.
package stageprof

import (
	"strings"
	"time"

	"chat-insights-go/internal/textsig"
	"chat-insights-go/internal/types"
)

// ProfileChat runs the four SPIN detectors over the concatenation of
// all outbound texts. Stage presence is a property of the whole
// conversation; counts are additive across messages.
func ProfileChat(chat types.Chat, msgs []types.Message) types.StageMetrics {
	var texts []string
	questions, open, closed := 0, 0, 0
	outCount := 0
	for _, m := range msgs {
		if !m.FromManager() || !m.Textish() {
			continue
		}
		outCount++
		if m.Text == "" {
			continue
		}
		texts = append(texts, m.Text)
		if strings.Contains(m.Text, "?") {
			questions++
			switch {
			case textsig.IsOpenQuestion(m.Text):
				open++
			case textsig.IsClosedQuestion(m.Text):
				closed++
			}
		}
	}
	all := strings.Join(texts, " ")
	s, p, i, n := textsig.SpinCounts(all)
	flow := stageFlow(texts)

	sm := types.StageMetrics{
		ChatID:           chat.ID,
		ManagerID:        chat.ManagerID,
		ManagerName:      chat.ManagerName,
		TotalMessages:    outCount,
		TotalQuestions:   questions,
		OpenQuestions:    open,
		ClosedQuestions:  closed,
		SituationCount:   s,
		ProblemCount:     p,
		ImplicationCount: i,
		NeedPayoffCount:  n,
		HasSituation:     s > 0,
		HasProblem:       p > 0,
		HasImplication:   i > 0,
		HasNeedPayoff:    n > 0,
		StageFlow:        flow,
	}
	sm.Completeness = float64(sm.StagesPresent()) / 4.0
	return sm
}

// stageFlow labels each outbound message with its single flow stage and
// renders the path, collapsing consecutive repeats and dropping unknown
// labels.
func stageFlow(texts []string) string {
	var path []string
	for pos, text := range texts {
		stage := textsig.ClassifyStage(textsig.StageContext{
			Text:     text,
			Position: pos,
			Total:    len(texts),
		})
		if stage == textsig.StageUnknown {
			continue
		}
		if len(path) > 0 && path[len(path)-1] == string(stage) {
			continue
		}
		path = append(path, string(stage))
	}
	return strings.Join(path, " > ")
}

// ChatBehavior holds the per-chat behavior flags later rolled up into
// per-agent rates.
type ChatBehavior struct {
	ChatID      string
	Questions   int
	Responded   bool
	NextStep    bool
	Spin        bool
	Upsell      bool
	FollowUpGap bool
	HighIntent  bool
}

// BehaviorForChat inspects one chat's messages. msgs should be sorted
// by sent time; unparseable timestamps simply drop a message out of the
// follow-up check.
func BehaviorForChat(msgs []types.Message) ChatBehavior {
	var b ChatBehavior

	var managerTexts []string
	lastOut := ""
	for _, m := range msgs {
		if m.FromManager() && m.Textish() {
			b.Responded = true
			if m.Text != "" {
				managerTexts = append(managerTexts, m.Text)
				lastOut = m.Text
			}
		}
		if m.FromCustomer() && m.Textish() && m.Text != "" && textsig.HasHighIntent(m.Text) {
			b.HighIntent = true
		}
	}

	for _, t := range managerTexts {
		b.Questions += textsig.CountQuestions(t)
	}

	// Only the final outbound message decides the next-step flag: the
	// dialog either ends on a forward move or it does not.
	b.NextStep = lastOut != "" && textsig.HasNextStepWide(lastOut)

	if b.Questions >= 2 {
		for _, t := range managerTexts {
			if textsig.HasSituationCue(t) {
				b.Spin = true
				break
			}
		}
	}

	for _, t := range managerTexts {
		if textsig.HasUpsell(t) {
			b.Upsell = true
			break
		}
	}

	// Follow-up gap: the customer had the last word and the agent never
	// came back, regardless of how much time passed.
	var lastCustomer *time.Time
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.FromCustomer() && m.SentAt != nil {
			lastCustomer = m.SentAt
			break
		}
	}
	if lastCustomer != nil {
		returned := false
		for _, m := range msgs {
			if m.FromManager() && m.SentAt != nil && m.SentAt.After(*lastCustomer) {
				returned = true
				break
			}
		}
		b.FollowUpGap = !returned
	}
	return b
}
