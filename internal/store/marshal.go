package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/outliner/internal/ir"
)

// timeFormat is fixed-width so stored timestamps order lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		// Rows written by hand or by other tools.
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

// marshalData converts a payload to canonical JSON TEXT for storage.
func marshalData(data ir.IRObject) (string, error) {
	if data == nil {
		data = ir.IRObject{}
	}
	b, err := ir.MarshalCanonical(data)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(b), nil
}

// unmarshalData parses canonical JSON TEXT. ir.IRObject decodes numbers via
// json.Number so large integers survive.
func unmarshalData(s string) (ir.IRObject, error) {
	obj, err := ir.UnmarshalObject([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	return obj, nil
}

func marshalEdges(parents []ir.NodeID, order []int64) (string, string, error) {
	if parents == nil {
		parents = []ir.NodeID{}
	}
	if order == nil {
		order = []int64{}
	}
	p, err := json.Marshal(parents)
	if err != nil {
		return "", "", fmt.Errorf("marshal parent ids: %w", err)
	}
	o, err := json.Marshal(order)
	if err != nil {
		return "", "", fmt.Errorf("marshal sort orders: %w", err)
	}
	return string(p), string(o), nil
}

func unmarshalEdges(parents, order string) ([]ir.NodeID, []int64, error) {
	var p []ir.NodeID
	var o []int64
	if err := json.Unmarshal([]byte(parents), &p); err != nil {
		return nil, nil, fmt.Errorf("unmarshal parent ids: %w", err)
	}
	if err := json.Unmarshal([]byte(order), &o); err != nil {
		return nil, nil, fmt.Errorf("unmarshal sort orders: %w", err)
	}
	if len(p) != len(o) {
		return nil, nil, fmt.Errorf("parent ids and sort orders differ in length (%d vs %d)", len(p), len(o))
	}
	if len(p) == 0 {
		p, o = nil, nil
	}
	return p, o, nil
}

// marshalExpanded stores instances in their "node@parent" text form.
func marshalExpanded(in []ir.Instance) (string, error) {
	if in == nil {
		in = []ir.Instance{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("marshal expanded: %w", err)
	}
	return string(b), nil
}

func unmarshalExpanded(s string) ([]ir.Instance, error) {
	var out []ir.Instance
	if s == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("unmarshal expanded: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
