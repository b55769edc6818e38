package point

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/vecrag/internal/db"
	dompoint "github.com/kailas-cloud/vecrag/internal/domain/point"
)

// Hash fields of a stored point. The FT index covers __id and __vector only.
const (
	FieldID      = "__id"
	FieldVector  = "__vector"
	FieldPayload = "__payload"
)

// buildHashFields converts a domain Point into a flat map[string]string for HSET.
func buildHashFields(p dompoint.Point) (map[string]string, error) {
	payload, err := EncodePayload(p.Payload())
	if err != nil {
		return nil, err
	}
	return map[string]string{
		FieldID:      strconv.FormatUint(p.ID(), 10),
		FieldVector:  db.EncodeVector(p.Vector()),
		FieldPayload: payload,
	}, nil
}

// parseHashFields converts a flat hash map back into a domain Point.
func parseHashFields(id uint64, m map[string]string) (dompoint.Point, error) {
	payload, err := DecodePayload(m[FieldPayload])
	if err != nil {
		return dompoint.Point{}, err
	}
	return dompoint.Reconstruct(id, db.DecodeVector(m[FieldVector]), payload), nil
}

// EncodePayload serializes a payload for the __payload field.
func EncodePayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// DecodePayload parses a __payload field. Empty input yields a nil payload.
func DecodePayload(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return m, nil
}
