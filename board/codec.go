package board

import (
	"encoding/json"
	"fmt"

	"github.com/ruteri/zkkb/interfaces"
)

const formatVersion = 1

type documentState struct {
	Version int                     `json:"version"`
	Clock   Timestamp               `json:"clock"`
	Name    register[string]        `json:"name"`
	Members map[string]*memberEntry `json:"members"`
	Columns map[string]*columnEntry `json:"columns"`
	Cards   map[string]*cardEntry   `json:"cards"`
}

// Serialize encodes the full replicated state, tombstones included.
// The replica id is not part of the encoding.
func Serialize(d *Document) ([]byte, error) {
	data, err := json.Marshal(documentState{
		Version: formatVersion,
		Clock:   d.clock,
		Name:    d.name,
		Members: d.members,
		Columns: d.columns,
		Cards:   d.cards,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize board: %w", err)
	}
	return data, nil
}

// Deserialize decodes a document. Unless WithReplica is given the result
// gets a fresh replica id.
func Deserialize(data []byte, opts ...Option) (*Document, error) {
	var state documentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: failed to decode board: %v", interfaces.ErrInvalidInput, err)
	}
	if state.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported board format version %d", interfaces.ErrInvalidInput, state.Version)
	}

	d := newEmpty(opts...)
	d.clock = state.Clock
	d.name = state.Name
	for id, m := range state.Members {
		if m != nil {
			d.members[id] = m
		}
	}
	for id, c := range state.Columns {
		if c != nil {
			d.columns[id] = c
		}
	}
	for id, c := range state.Cards {
		if c != nil {
			d.cards[id] = c
		}
	}
	return d, nil
}
