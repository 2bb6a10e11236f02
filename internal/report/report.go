// Package report runs one batch: per-chat metrics, roll-ups, snapshot
// history, deltas and example selection. Run is deterministic for a
// given input and run timestamp, so a rerun reproduces the same rows.
package report

import (
	"sort"
	"time"

	"chat-insights-go/internal/aggregate"
	"chat-insights-go/internal/config"
	"chat-insights-go/internal/convmetrics"
	"chat-insights-go/internal/examples"
	"chat-insights-go/internal/stageprof"
	"chat-insights-go/internal/types"
)

// Input is the closed dataset one run evaluates.
type Input struct {
	Chats    []types.Chat
	Messages []types.Message
	Users    map[string]string
}

// Output carries every table the run produces.
type Output struct {
	RunTS          time.Time
	ChatMetrics    []types.ChatMetrics
	SpinMetrics    []types.StageMetrics
	ManagerSummary []aggregate.ManagerSummary
	ChannelSummary []aggregate.ChannelSummary
	Snapshots      []aggregate.Snapshot
	Deltas         []aggregate.Delta
	Examples       []examples.Example
}

// Run evaluates the dataset. history is the accumulated snapshot table
// used for baseline selection; runTS tags every produced row.
func Run(cfg *config.Config, in Input, history []aggregate.Snapshot, runTS time.Time) Output {
	runTS = runTS.UTC().Truncate(time.Second)

	byChat := groupMessages(in.Messages)

	// Chats referenced only by messages still get a row; chats with no
	// messages at all keep their row with null metrics.
	chats := make([]types.Chat, len(in.Chats))
	copy(chats, in.Chats)
	known := map[string]bool{}
	for _, c := range chats {
		known[c.ID] = true
	}
	for id := range byChat {
		if !known[id] {
			chats = append(chats, types.Chat{ID: id})
		}
	}
	sort.SliceStable(chats, func(i, j int) bool { return chats[i].ID < chats[j].ID })

	params := convmetrics.Params{
		Location:     cfg.Location,
		Window:       cfg.Window,
		SlowReplySec: cfg.SlowReplySec,
	}

	out := Output{RunTS: runTS}
	selector := examples.NewSelector(runTS, cfg.ExamplesPerCategory)
	var profiles []aggregate.ChatProfile

	for _, chat := range chats {
		msgs := byChat[chat.ID]

		cm := convmetrics.Compute(chat, msgs, in.Users, params)
		out.ChatMetrics = append(out.ChatMetrics, cm)

		// Stage metrics carry the resolved manager, not the raw chat
		// field.
		resolved := chat
		resolved.ManagerID = cm.ManagerID
		resolved.ManagerName = cm.ManagerName
		out.SpinMetrics = append(out.SpinMetrics, stageprof.ProfileChat(resolved, msgs))

		behavior := stageprof.BehaviorForChat(msgs)
		profiles = append(profiles, aggregate.ChatProfile{Metrics: cm, Behavior: behavior})
		selector.Consider(cm, behavior, msgs)
	}

	out.ManagerSummary = aggregate.SummarizeManagers(out.ChatMetrics, cfg.SlowReplySec)
	out.ChannelSummary = aggregate.SummarizeChannels(out.ChatMetrics, cfg.SlowReplySec)
	out.Snapshots = aggregate.BuildSnapshots(runTS, profiles)

	baseline := aggregate.SelectBaseline(history, runTS, cfg.BaselineLookbackDays)
	out.Deltas = aggregate.ComputeDeltas(out.Snapshots, baseline)

	out.Examples = selector.Examples()
	return out
}

// groupMessages buckets messages per chat and orders each bucket by
// sent time, unparseable timestamps first so their relative input order
// is preserved.
func groupMessages(msgs []types.Message) map[string][]types.Message {
	byChat := map[string][]types.Message{}
	for _, m := range msgs {
		if m.ChatID == "" {
			continue
		}
		byChat[m.ChatID] = append(byChat[m.ChatID], m)
	}
	for id, ms := range byChat {
		sort.SliceStable(ms, func(i, j int) bool {
			a, b := ms[i].SentAt, ms[j].SentAt
			if a == nil {
				return b != nil
			}
			if b == nil {
				return false
			}
			return a.Before(*b)
		})
		byChat[id] = ms
	}
	return byChat
}
