package chart

import (
	"encoding/json"
	"fmt"
)

// StorageKey is the fixed key the chart snapshot is stored under.
const StorageKey = "clinicalRecordsState"

// Encode serializes the full state as a single JSON object.
func Encode(s State) ([]byte, error) {
	data, err := json.Marshal(normalize(s))
	if err != nil {
		return nil, fmt.Errorf("encode chart state: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot produced by Encode. Missing collections decode as
// empty ones.
func Decode(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode chart state: %w", err)
	}
	return normalize(s), nil
}
