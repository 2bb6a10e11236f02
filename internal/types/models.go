package types

import "time"

// Message directions after normalization. Source systems use several
// vocabularies ("incoming", "inbound", ...); internal/crm maps them all
// to these two values. An empty direction means the source gave us
// nothing usable.
const (
	DirIn  = "in"
	DirOut = "out"
)

// Author roles as reported by the message source.
const (
	RoleCustomer = "Customer"
	RoleUser     = "User"
	RoleBot      = "Bot"
	RoleChannel  = "Channel"
)

// NormalizeDirection folds the source vocabularies onto DirIn/DirOut.
// Anything unrecognized comes back empty.
func NormalizeDirection(s string) string {
	switch s {
	case "in", "incoming", "inbound":
		return DirIn
	case "out", "outgoing", "outbound":
		return DirOut
	}
	return ""
}

type Message struct {
	ID         string     `json:"id"`
	ChatID     string     `json:"chat_id"`
	Direction  string     `json:"direction"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	Text       string     `json:"text"`
	ManagerID  string     `json:"manager_id,omitempty"`
	Type       string     `json:"type,omitempty"`
	AuthorRole string     `json:"author_role,omitempty"`
}

// FromManager reports whether the message was sent by the agent side.
func (m Message) FromManager() bool {
	return m.Direction == DirOut
}

// FromCustomer reports whether the message was sent by the customer side.
// Bot and channel notices arrive tagged "in" in some sources, so the
// author role is checked as well.
func (m Message) FromCustomer() bool {
	if m.Direction != DirIn {
		return false
	}
	return m.AuthorRole == "" || m.AuthorRole == RoleCustomer
}

// Textish reports whether the message type carries analyzable text.
// System/service message types are excluded from snippets and behavior
// heuristics but still participate in counts.
func (m Message) Textish() bool {
	switch m.Type {
	case "", "TEXT", "COMMAND", "ORDER", "PRODUCT", "FILE", "AUDIO", "IMAGE":
		return true
	}
	return false
}

type Chat struct {
	ID          string     `json:"id"`
	Channel     string     `json:"channel"`
	ManagerID   string     `json:"manager_id,omitempty"`
	ManagerName string     `json:"manager_name,omitempty"`
	ClientID    string     `json:"client_id,omitempty"`
	OrderID     string     `json:"order_id,omitempty"`
	Status      string     `json:"status,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ChatMetrics is the per-chat quality row. Computed once per run and
// never mutated afterwards; nil pointer fields mean "unknown", which the
// sink renders as an empty cell, distinct from zero.
type ChatMetrics struct {
	ChatID            string     `json:"chat_id"`
	Channel           string     `json:"channel"`
	ManagerID         string     `json:"manager_id"`
	ManagerName       string     `json:"manager_name"`
	InboundCount      int        `json:"inbound_count"`
	OutboundCount     int        `json:"outbound_count"`
	FirstInboundAt    *time.Time `json:"first_inbound_at,omitempty"`
	FirstOutboundAt   *time.Time `json:"first_outbound_at,omitempty"`
	FirstResponseSec  *int       `json:"first_response_sec,omitempty"`
	LastInboundAt     *time.Time `json:"last_inbound_at,omitempty"`
	LastOutboundAt    *time.Time `json:"last_outbound_at,omitempty"`
	UnansweredInbound int        `json:"unanswered_inbound"`
	Advice            []string   `json:"advice,omitempty"`
}

// StageMetrics is the per-chat SPIN coverage row. The stage set is
// closed (four stages), so presence and counts are named fields rather
// than a keyed map.
type StageMetrics struct {
	ChatID           string  `json:"chat_id"`
	ManagerID        string  `json:"manager_id"`
	ManagerName      string  `json:"manager_name"`
	TotalMessages    int     `json:"total_messages"`
	TotalQuestions   int     `json:"total_questions"`
	OpenQuestions    int     `json:"open_questions"`
	ClosedQuestions  int     `json:"closed_questions"`
	SituationCount   int     `json:"spin_s_count"`
	ProblemCount     int     `json:"spin_p_count"`
	ImplicationCount int     `json:"spin_i_count"`
	NeedPayoffCount  int     `json:"spin_n_count"`
	HasSituation     bool    `json:"has_situation"`
	HasProblem       bool    `json:"has_problem"`
	HasImplication   bool    `json:"has_implication"`
	HasNeedPayoff    bool    `json:"has_need_payoff"`
	Completeness     float64 `json:"spin_completeness"`
	StageFlow        string  `json:"stage_flow,omitempty"`
}

// StagesPresent counts how many of the four SPIN stages the chat
// touched.
func (s StageMetrics) StagesPresent() int {
	n := 0
	for _, ok := range []bool{s.HasSituation, s.HasProblem, s.HasImplication, s.HasNeedPayoff} {
		if ok {
			n++
		}
	}
	return n
}

// Full reports a complete SPIN cycle. Partial coverage never counts.
func (s StageMetrics) Full() bool {
	return s.Completeness == 1.0
}
