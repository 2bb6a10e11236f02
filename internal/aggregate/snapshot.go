package aggregate

import (
	"sort"
	"time"

	"chat-insights-go/internal/stageprof"
	"chat-insights-go/internal/types"
)

// ChatProfile pairs one chat's metrics row with its behavior flags.
type ChatProfile struct {
	Metrics  types.ChatMetrics
	Behavior stageprof.ChatBehavior
}

// Snapshot is the per-manager behavior roll-up for one run. Snapshots
// accumulate append-only in the history table, each tagged with the run
// timestamp.
type Snapshot struct {
	RunTS               time.Time
	ManagerID           string
	ManagerName         string
	Chats               int
	RespondedChats      int
	ResponseRate        *float64
	NoReplyChats        int
	NoReplyRate         *float64
	MedianFirstReplySec *int
	P90FirstReplySec    *int
	AvgQuestionsPerChat float64
	NextStepRate        *float64
	SpinRate            *float64
	UpsellRate          *float64
	FollowUpGapRate     *float64
	HighIntentChats     int
}

type behaviorAcc struct {
	snap         Snapshot
	firstReplies []int
	questionsSum int
	nextStepHits int
	spinHits     int
	upsellHits   int
	followHits   int
}

// BuildSnapshots folds chat profiles into per-manager behavior
// snapshots for one run.
func BuildSnapshots(runTS time.Time, profiles []ChatProfile) []Snapshot {
	accs := map[string]*behaviorAcc{}
	var order []string
	for _, p := range profiles {
		mid := p.Metrics.ManagerID
		acc, ok := accs[mid]
		if !ok {
			acc = &behaviorAcc{snap: Snapshot{
				RunTS:       runTS,
				ManagerID:   mid,
				ManagerName: p.Metrics.ManagerName,
			}}
			accs[mid] = acc
			order = append(order, mid)
		}
		s := &acc.snap
		if s.ManagerName == "" {
			s.ManagerName = p.Metrics.ManagerName
		}
		s.Chats++
		if p.Behavior.Responded {
			s.RespondedChats++
		}
		if p.Metrics.InboundCount > 0 && p.Metrics.OutboundCount == 0 {
			s.NoReplyChats++
		}
		if p.Metrics.FirstResponseSec != nil && *p.Metrics.FirstResponseSec > 0 {
			acc.firstReplies = append(acc.firstReplies, *p.Metrics.FirstResponseSec)
		}
		acc.questionsSum += p.Behavior.Questions
		if p.Behavior.NextStep {
			acc.nextStepHits++
		}
		if p.Behavior.Spin {
			acc.spinHits++
		}
		if p.Behavior.Upsell {
			acc.upsellHits++
		}
		if p.Behavior.FollowUpGap {
			acc.followHits++
		}
		if p.Behavior.HighIntent {
			s.HighIntentChats++
		}
	}

	out := make([]Snapshot, 0, len(order))
	for _, mid := range order {
		acc := accs[mid]
		s := acc.snap
		s.ResponseRate = rate(s.RespondedChats, s.Chats)
		s.NoReplyRate = rate(s.NoReplyChats, s.Chats)
		s.MedianFirstReplySec = Percentile(acc.firstReplies, 0.5)
		s.P90FirstReplySec = Percentile(acc.firstReplies, 0.9)
		if s.Chats > 0 {
			s.AvgQuestionsPerChat = round3(float64(acc.questionsSum) / float64(s.Chats))
		}
		s.NextStepRate = rate(acc.nextStepHits, s.Chats)
		s.SpinRate = rate(acc.spinHits, s.Chats)
		s.UpsellRate = rate(acc.upsellHits, s.Chats)
		s.FollowUpGapRate = rate(acc.followHits, s.Chats)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Chats != out[j].Chats {
			return out[i].Chats > out[j].Chats
		}
		if out[i].ManagerName != out[j].ManagerName {
			return out[i].ManagerName < out[j].ManagerName
		}
		return out[i].ManagerID < out[j].ManagerID
	})
	return out
}

// SelectBaseline picks, per manager, the most recent historical
// snapshot whose run timestamp is at or before now minus the lookback.
// Managers with no qualifying snapshot are absent from the result, so
// their deltas stay undefined.
func SelectBaseline(history []Snapshot, now time.Time, lookbackDays int) map[string]Snapshot {
	cutoff := now.AddDate(0, 0, -lookbackDays)
	best := map[string]Snapshot{}
	for _, h := range history {
		if h.RunTS.After(cutoff) {
			continue
		}
		if b, ok := best[h.ManagerID]; !ok || h.RunTS.After(b.RunTS) {
			best[h.ManagerID] = h
		}
	}
	return best
}

// Delta is a snapshot plus current-minus-baseline differences. Signs
// are raw for every metric, including latency; direction interpretation
// belongs to the report consumer.
type Delta struct {
	Snapshot
	DResponseRate        *float64
	DNoReplyRate         *float64
	DAvgQuestionsPerChat *float64
	DNextStepRate        *float64
	DSpinRate            *float64
	DUpsellRate          *float64
	DFollowUpGapRate     *float64
	DMedianFirstReplySec *float64
	DP90FirstReplySec    *float64
}

// ComputeDeltas joins current snapshots against the baseline map. A
// missing baseline or a missing value on either side leaves the delta
// undefined, never "change from zero".
func ComputeDeltas(current []Snapshot, baseline map[string]Snapshot) []Delta {
	out := make([]Delta, 0, len(current))
	for _, cur := range current {
		d := Delta{Snapshot: cur}
		if b, ok := baseline[cur.ManagerID]; ok {
			d.DResponseRate = diffRate(cur.ResponseRate, b.ResponseRate)
			d.DNoReplyRate = diffRate(cur.NoReplyRate, b.NoReplyRate)
			avg := round4(cur.AvgQuestionsPerChat - b.AvgQuestionsPerChat)
			d.DAvgQuestionsPerChat = &avg
			d.DNextStepRate = diffRate(cur.NextStepRate, b.NextStepRate)
			d.DSpinRate = diffRate(cur.SpinRate, b.SpinRate)
			d.DUpsellRate = diffRate(cur.UpsellRate, b.UpsellRate)
			d.DFollowUpGapRate = diffRate(cur.FollowUpGapRate, b.FollowUpGapRate)
			d.DMedianFirstReplySec = diffSec(cur.MedianFirstReplySec, b.MedianFirstReplySec)
			d.DP90FirstReplySec = diffSec(cur.P90FirstReplySec, b.P90FirstReplySec)
		}
		out = append(out, d)
	}
	return out
}

func diffRate(cur, base *float64) *float64 {
	if cur == nil || base == nil {
		return nil
	}
	v := round4(*cur - *base)
	return &v
}

func diffSec(cur, base *int) *float64 {
	if cur == nil || base == nil {
		return nil
	}
	v := float64(*cur - *base)
	return &v
}
