// Package sales holds the hourly record model and the pure filter and
// metrics pipeline that every dashboard surface is derived from.
package sales

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// HourlyRecord is one time bucket of a store day.
type HourlyRecord struct {
	Time       string `json:"time"`
	Sales      Num    `json:"sales"`
	Txns       Num    `json:"txns"`
	Units      Num    `json:"units"`
	HourTarget Num    `json:"hTarget"`
	LastYear   Num    `json:"ly"`
	Traffic    Num    `json:"traffic"`
	// DayTarget is the cumulative day-to-date target at this hour.
	DayTarget Num `json:"tTarget"`
}

// Dataset is the unit that gets loaded, persisted, and saved to the library.
// WTD and Meta are opaque and passed through untouched.
type Dataset struct {
	Hourly []HourlyRecord `json:"hourly"`
	WTD    map[string]any `json:"wtd"`
	Meta   map[string]any `json:"meta"`
}

// Clone returns a deep copy of ds.
func (ds Dataset) Clone() Dataset {
	out := Dataset{
		Hourly: make([]HourlyRecord, len(ds.Hourly)),
		WTD:    cloneMap(ds.WTD),
		Meta:   cloneMap(ds.Meta),
	}

	copy(out.Hourly, ds.Hourly)

	return out
}

// Empty reports whether the dataset has no hourly rows.
func (ds Dataset) Empty() bool { return len(ds.Hourly) == 0 }

// Times returns the time labels in row order.
func (ds Dataset) Times() []string {
	out := make([]string, len(ds.Hourly))
	for i, r := range ds.Hourly {
		out[i] = r.Time
	}

	return out
}

// DecodeDataset parses and validates a dataset at the persistence or
// ingestion boundary. Missing hourly/wtd/meta fields decode to empty values.
func DecodeDataset(raw []byte) (Dataset, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Dataset{}, fmt.Errorf("%w: top-level value is not an object", ErrMalformedDataset)
	}

	var fields map[string]json.RawMessage

	err := json.Unmarshal(trimmed, &fields)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %w", ErrMalformedDataset, err)
	}

	if h, ok := fields["hourly"]; ok {
		h = bytes.TrimSpace(h)
		if !bytes.Equal(h, []byte("null")) && (len(h) == 0 || h[0] != '[') {
			return Dataset{}, fmt.Errorf("%w: hourly is not an array", ErrMalformedDataset)
		}
	}

	var ds Dataset

	err = json.Unmarshal(trimmed, &ds)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %w", ErrMalformedDataset, err)
	}

	return ds.normalize(), nil
}

// EncodeDataset is the canonical JSON form used for persistence.
func EncodeDataset(ds Dataset) ([]byte, error) {
	data, err := json.Marshal(ds.normalize())
	if err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}

	return data, nil
}

func (ds Dataset) normalize() Dataset {
	if ds.Hourly == nil {
		ds.Hourly = []HourlyRecord{}
	}

	if ds.WTD == nil {
		ds.WTD = map[string]any{}
	}

	if ds.Meta == nil {
		ds.Meta = map[string]any{}
	}

	return ds
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}

		return out
	default:
		return v
	}
}
