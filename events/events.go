// Package events implements the recursive event tree of spec §3/§4.4:
// a top-level TxEvents wrapping per-phase CommitmentStatus/EventStatus
// pairs, flattenable into ordered FlatEventInfo for indexing.
//
// No direct teacher analogue; built fresh per spec, using the same
// snake_case-string-enum convention as the rest of the wire format
// (SPEC_FULL.md §10/§6).
package events

import "encoding/json"

// CommitmentStatus records what the execution pipeline decided to
// keep for a phase.
type CommitmentStatus string

const (
	Committed CommitmentStatus = "committed"
	Failed    CommitmentStatus = "failed"
	Reverted  CommitmentStatus = "reverted"
	NotReached CommitmentStatus = "not_reached"
)

// EventStatus records what the contract itself returned for a phase.
type EventStatus string

const (
	Ok           EventStatus = "ok"
	NestedFailed EventStatus = "nested_failed"
	EFailed      EventStatus = "failed"
	ENotReached  EventStatus = "not_reached"
)

// Node is one entry in the recursive event tree.
type Node struct {
	Commitment CommitmentStatus `json:"commitment_status"`
	Status     EventStatus      `json:"event_status"`
	Type       string           `json:"type"`
	Data       json.RawMessage  `json:"data,omitempty"`
	SubEvents  []Node           `json:"sub_events,omitempty"`
}

// TxEvents is the top-level per-tx event tree (spec §3).
type TxEvents struct {
	Authenticate Node   `json:"authenticate"`
	Withhold     Node   `json:"withhold"`
	Msgs         []Node `json:"msgs"`
	Backrun      *Node  `json:"backrun,omitempty"`
	Finalize     Node   `json:"finalize"`
}

// FlatEventInfo is a single flattened event, ordered as produced by
// Flatten's depth-first walk.
type FlatEventInfo struct {
	Type       string           `json:"type"`
	Data       json.RawMessage  `json:"data,omitempty"`
	Commitment CommitmentStatus `json:"commitment_status"`
	Status     EventStatus      `json:"event_status"`
}

// Flatten walks the tx event tree depth-first and returns an ordered
// slice suitable for indexing.
func Flatten(tx TxEvents) []FlatEventInfo {
	var out []FlatEventInfo
	flattenNode(tx.Authenticate, &out)
	flattenNode(tx.Withhold, &out)
	for _, m := range tx.Msgs {
		flattenNode(m, &out)
	}
	if tx.Backrun != nil {
		flattenNode(*tx.Backrun, &out)
	}
	flattenNode(tx.Finalize, &out)
	return out
}

func flattenNode(n Node, out *[]FlatEventInfo) {
	*out = append(*out, FlatEventInfo{
		Type:       n.Type,
		Data:       n.Data,
		Commitment: n.Commitment,
		Status:     n.Status,
	})
	for _, sub := range n.SubEvents {
		flattenNode(sub, out)
	}
}

// EvtGuest is the concrete payload for a contract call event.
type EvtGuest struct {
	Contract string `json:"contract"`
	Method   string `json:"method"`
}

// EvtCron is the concrete payload for a cronjob invocation event.
type EvtCron struct {
	Contract string `json:"contract"`
}
