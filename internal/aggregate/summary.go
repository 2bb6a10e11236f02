// Package aggregate rolls per-chat metrics up to managers and channels,
// computes nearest-rank percentiles, and produces snapshot and delta
// rows against a historical baseline.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"chat-insights-go/internal/types"
)

// ManagerSummary is the cross-chat roll-up for one agent. Pointer
// fields are undefined (not zero) when the group has no usable sample.
type ManagerSummary struct {
	ManagerID           string
	ManagerName         string
	Chats               int
	Inbound             int
	Outbound            int
	UnansweredInbound   int
	NoReplyChats        int
	SlowFirstReplyChats int
	RespondedChats      int
	MedianFirstReplySec *int
	P90FirstReplySec    *int
	ResponseRate        *float64
}

type ChannelSummary struct {
	Channel             string
	Chats               int
	Inbound             int
	Outbound            int
	NoReplyChats        int
	SlowFirstReplyChats int
	RespondedChats      int
	MedianFirstReplySec *int
	P90FirstReplySec    *int
	ResponseRate        *float64
}

// managerAcc is the running accumulator for one manager. Named fields
// on purpose: the group schema is closed and must not leak ad hoc keys.
type managerAcc struct {
	summary      ManagerSummary
	firstReplies []int
}

// SummarizeManagers folds chat metrics into per-manager summaries.
// Grouping is stable; the output is ordered by chat count descending,
// then manager name.
func SummarizeManagers(rows []types.ChatMetrics, slowReplySec int) []ManagerSummary {
	accs := map[[2]string]*managerAcc{}
	var order [][2]string
	for _, r := range rows {
		key := [2]string{r.ManagerID, r.ManagerName}
		acc, ok := accs[key]
		if !ok {
			acc = &managerAcc{summary: ManagerSummary{ManagerID: r.ManagerID, ManagerName: r.ManagerName}}
			accs[key] = acc
			order = append(order, key)
		}
		s := &acc.summary
		s.Chats++
		s.Inbound += r.InboundCount
		s.Outbound += r.OutboundCount
		s.UnansweredInbound += r.UnansweredInbound
		if r.InboundCount > 0 && r.OutboundCount == 0 {
			s.NoReplyChats++
		}
		if r.FirstResponseSec != nil {
			s.RespondedChats++
			acc.firstReplies = append(acc.firstReplies, *r.FirstResponseSec)
			if *r.FirstResponseSec > slowReplySec {
				s.SlowFirstReplyChats++
			}
		}
	}

	out := make([]ManagerSummary, 0, len(order))
	for _, key := range order {
		acc := accs[key]
		s := acc.summary
		s.MedianFirstReplySec = Percentile(acc.firstReplies, 0.5)
		s.P90FirstReplySec = Percentile(acc.firstReplies, 0.9)
		s.ResponseRate = rate(s.RespondedChats, s.Chats)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Chats != out[j].Chats {
			return out[i].Chats > out[j].Chats
		}
		return out[i].ManagerName < out[j].ManagerName
	})
	return out
}

// SummarizeChannels is the channel-keyed variant; unknown channels land
// in the "unknown" bucket.
func SummarizeChannels(rows []types.ChatMetrics, slowReplySec int) []ChannelSummary {
	type channelAcc struct {
		summary      ChannelSummary
		firstReplies []int
	}
	accs := map[string]*channelAcc{}
	var order []string
	for _, r := range rows {
		ch := normalizeChannel(r.Channel)
		acc, ok := accs[ch]
		if !ok {
			acc = &channelAcc{summary: ChannelSummary{Channel: ch}}
			accs[ch] = acc
			order = append(order, ch)
		}
		s := &acc.summary
		s.Chats++
		s.Inbound += r.InboundCount
		s.Outbound += r.OutboundCount
		if r.InboundCount > 0 && r.OutboundCount == 0 {
			s.NoReplyChats++
		}
		if r.FirstResponseSec != nil {
			s.RespondedChats++
			acc.firstReplies = append(acc.firstReplies, *r.FirstResponseSec)
			if *r.FirstResponseSec > slowReplySec {
				s.SlowFirstReplyChats++
			}
		}
	}

	out := make([]ChannelSummary, 0, len(order))
	for _, ch := range order {
		acc := accs[ch]
		s := acc.summary
		s.MedianFirstReplySec = Percentile(acc.firstReplies, 0.5)
		s.P90FirstReplySec = Percentile(acc.firstReplies, 0.9)
		s.ResponseRate = rate(s.RespondedChats, s.Chats)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Chats != out[j].Chats {
			return out[i].Chats > out[j].Chats
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

func normalizeChannel(ch string) string {
	ch = strings.ToLower(ch)
	if ch == "" {
		return "unknown"
	}
	return ch
}

// rate divides num by den, undefined (nil) on a zero denominator. A
// group with zero chats has an unknown rate, never 0%.
func rate(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := round4(float64(num) / float64(den))
	return &v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
