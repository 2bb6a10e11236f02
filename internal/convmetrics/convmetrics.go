// Package convmetrics derives the per-chat quality row from a chat and
// its messages. Compute is pure: identical input yields an identical
// row, and data problems degrade to nil fields instead of errors.
package convmetrics

import (
	"sort"
	"strings"
	"time"

	"chat-insights-go/internal/bizclock"
	"chat-insights-go/internal/textsig"
	"chat-insights-go/internal/types"
)

// UnassignedName labels chats whose manager cannot be resolved.
const UnassignedName = "(unassigned)"

// Params carries the run-level knobs every chat shares.
type Params struct {
	Location     *time.Location
	Window       bizclock.Window
	SlowReplySec int
}

// Advice texts. Emitted in rule order with stable de-duplication.
const (
	AdviceNoReply     = "Нет ответа менеджера на входящие сообщения — проверьте распределение/уведомления и дайте быстрый первый ответ."
	AdviceSlowReply   = "Долгий первый ответ — сократите время реакции (цель: ≤10 минут) и используйте быстрый шаблон приветствия+уточнение."
	AdviceUnanswered  = "Есть неотвеченные входящие — сделайте follow-up и зафиксируйте следующий шаг (ссылка/оформление/варианты)."
	AdviceNoQuestions = "Мало уточняющих вопросов — добавьте 1–2 вопроса по потребности/параметрам, прежде чем давать финальный оффер."
	AdviceNoNextStep  = "Клиент проявляет интерес (цена/наличие/хочу), но нет явного next step — предложите вариант и завершите действием: ссылка/оформление/доставка/оплата."
)

// adviceInput is what the advice rules look at.
type adviceInput struct {
	inboundCount      int
	outboundCount     int
	firstResponseSec  *int
	slowReplySec      int
	unansweredInbound int
	inboundText       string
	outboundText      string
}

type adviceRule struct {
	when func(adviceInput) bool
	text string
}

// adviceRules is an ordered list; each rule checks a distinct condition
// and rules do not shadow each other.
var adviceRules = []adviceRule{
	{func(in adviceInput) bool {
		return in.inboundCount > 0 && in.outboundCount == 0
	}, AdviceNoReply},
	{func(in adviceInput) bool {
		return in.firstResponseSec != nil && *in.firstResponseSec > in.slowReplySec
	}, AdviceSlowReply},
	{func(in adviceInput) bool {
		return in.unansweredInbound > 0
	}, AdviceUnanswered},
	{func(in adviceInput) bool {
		return in.inboundCount > 0 && in.outboundCount > 0 && !textsig.HasQuestion(in.outboundText)
	}, AdviceNoQuestions},
	{func(in adviceInput) bool {
		if in.inboundCount == 0 || in.outboundCount == 0 {
			return false
		}
		return textsig.HasPurchaseIntent(in.inboundText) && !textsig.HasNextStep(in.outboundText)
	}, AdviceNoNextStep},
}

// Compute derives ChatMetrics for one chat. users maps manager id to a
// display name; missing entries fall back to the raw id.
func Compute(chat types.Chat, msgs []types.Message, users map[string]string, p Params) types.ChatMetrics {
	managerID, managerName := resolveManager(chat, msgs, users)

	var inbound, outbound []types.Message
	for _, m := range msgs {
		switch m.Direction {
		case types.DirIn:
			inbound = append(inbound, m)
		case types.DirOut:
			outbound = append(outbound, m)
		}
	}

	inTimes := sentTimes(inbound)
	outTimes := sentTimes(outbound)

	var firstInbound, lastInbound, lastOutbound *time.Time
	if len(inTimes) > 0 {
		firstInbound = &inTimes[0]
		lastInbound = &inTimes[len(inTimes)-1]
	}
	if len(outTimes) > 0 {
		lastOutbound = &outTimes[len(outTimes)-1]
	}

	// First response is the earliest outbound at or after the first
	// inbound. Proactive outreach sent before the customer wrote does
	// not count as a response.
	var firstOutbound *time.Time
	if firstInbound != nil {
		for i := range outTimes {
			if !outTimes[i].Before(*firstInbound) {
				firstOutbound = &outTimes[i]
				break
			}
		}
	}

	var firstResponseSec *int
	if firstInbound != nil && firstOutbound != nil {
		if sec, ok := p.Window.Seconds(*firstInbound, *firstOutbound, p.Location); ok {
			firstResponseSec = &sec
		}
	}

	// Inbound strictly after the last outbound; all inbound when the
	// agent never wrote at all.
	unanswered := 0
	for _, t := range inTimes {
		if lastOutbound == nil || t.After(*lastOutbound) {
			unanswered++
		}
	}

	in := adviceInput{
		inboundCount:      len(inbound),
		outboundCount:     len(outbound),
		firstResponseSec:  firstResponseSec,
		slowReplySec:      p.SlowReplySec,
		unansweredInbound: unanswered,
		inboundText:       joinTexts(inbound, 6),
		outboundText:      joinTexts(outbound, 6),
	}
	var advice []string
	for _, r := range adviceRules {
		if r.when(in) {
			advice = append(advice, r.text)
		}
	}
	advice = dedupe(advice)

	return types.ChatMetrics{
		ChatID:            chat.ID,
		Channel:           chat.Channel,
		ManagerID:         managerID,
		ManagerName:       managerName,
		InboundCount:      len(inbound),
		OutboundCount:     len(outbound),
		FirstInboundAt:    firstInbound,
		FirstOutboundAt:   firstOutbound,
		FirstResponseSec:  firstResponseSec,
		LastInboundAt:     lastInbound,
		LastOutboundAt:    lastOutbound,
		UnansweredInbound: unanswered,
		Advice:            advice,
	}
}

// resolveManager applies the precedence chat field -> first outbound
// author -> unassigned sentinel.
func resolveManager(chat types.Chat, msgs []types.Message, users map[string]string) (string, string) {
	id := chat.ManagerID
	if id == "" {
		for _, m := range msgs {
			if m.FromManager() && m.ManagerID != "" {
				id = m.ManagerID
				break
			}
		}
	}
	name := chat.ManagerName
	if name == "" && id != "" {
		if n, ok := users[id]; ok && n != "" {
			name = n
		} else {
			name = id
		}
	}
	if id == "" && name == "" {
		name = UnassignedName
	}
	return id, name
}

// sentTimes collects parseable timestamps in ascending order. Messages
// without a timestamp stay in the counts but never in ordered math.
func sentTimes(msgs []types.Message) []time.Time {
	var ts []time.Time
	for _, m := range msgs {
		if m.SentAt != nil {
			ts = append(ts, *m.SentAt)
		}
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	return ts
}

// dedupe removes repeated advice strings keeping first-seen order.
func dedupe(advice []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, a := range advice {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

func joinTexts(msgs []types.Message, limit int) string {
	var parts []string
	for _, m := range msgs {
		if len(parts) >= limit {
			break
		}
		if m.Text != "" {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, " \n")
}
