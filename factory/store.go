/*
Package factory converts between the wire payloads and the engine's types.

PURPOSE:
  The engine works on typed maps (overtime.ReferenceData). Callers that
  cross a serialization boundary (the worker protocol, the HTTP API, files
  on disk) send reference data as association lists instead, because their
  JSON has no ordered map type. This package is the only place that knows
  about that shape: maps are rebuilt on the way in and days are flattened
  to pairs on the way out.

JSON SCHEMA (calculate payload):
  {
    "entries": [ {TimeEntry}, ... ],
    "dateRange": {"start": "2025-03-10", "end": "2025-03-16"},
    "store": {
      "users":     [{"id": "u1", "name": "Ada"}],
      "profiles":  [["u1", {"workCapacityHours": 8, "workingDays": ["MONDAY"]}]],
      "holidays":  [["u1", [["2025-03-10", {"name": "Founders Day"}]]]],
      "timeOff":   [["u1", [["2025-03-11", {"isFullDay": false, "hours": 4}]]]],
      "overrides": {"u1": {"mode": "perDay", "capacity": 6, "perDayOverrides": {}}},
      "config":    {"applyHolidays": true, ...},
      "calcParams": {"dailyThreshold": 8, ...}
    }
  }

LENIENCY:
  Pair lists also accept a plain object ({"u1": {...}}). Pairs that are not
  a two-element array with a string key are skipped. Only a payload that is
  not a JSON object at all is rejected.

USAGE:
  payload, err := factory.ParsePayload(data, defaults)
  results, err := overtime.Analyze(payload.Entries, payload.Reference, payload.DateRange)
  out := factory.EncodeResults(results)

SEE ALSO:
  - results.go: result encoding with days as pairs
  - overtime/types.go: ReferenceData
  - worker/protocol.go: the message envelope that carries these payloads
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// PAIRS - Association lists on the wire
// =============================================================================

// Pair is one [key, value] element.
type Pair[V any] struct {
	Key   string
	Value V
}

func (p Pair[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Key, p.Value})
}

// Pairs is an association list. Order is preserved.
type Pairs[V any] []Pair[V]

// UnmarshalJSON accepts [[key, value], ...] or {key: value, ...}.
// Malformed elements are skipped.
func (ps *Pairs[V]) UnmarshalJSON(data []byte) error {
	*ps = nil
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			var v V
			if err := json.Unmarshal(obj[k], &v); err != nil {
				continue
			}
			*ps = append(*ps, Pair[V]{Key: k, Value: v})
		}
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil
	}
	for _, elem := range elems {
		var kv []json.RawMessage
		if err := json.Unmarshal(elem, &kv); err != nil || len(kv) < 2 {
			continue
		}
		var key string
		if err := json.Unmarshal(kv[0], &key); err != nil {
			continue
		}
		var v V
		if err := json.Unmarshal(kv[1], &v); err != nil {
			continue
		}
		*ps = append(*ps, Pair[V]{Key: key, Value: v})
	}
	return nil
}

// Map rebuilds the map. Later duplicates win.
func (ps Pairs[V]) Map() map[string]V {
	m := make(map[string]V, len(ps))
	for _, p := range ps {
		m[p.Key] = p.Value
	}
	return m
}

// PairsOf flattens a map into a key-sorted association list.
func PairsOf[V any](m map[string]V) Pairs[V] {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(Pairs[V], 0, len(keys))
	for _, k := range keys {
		out = append(out, Pair[V]{Key: k, Value: m[k]})
	}
	return out
}

// =============================================================================
// STORE - Reference data in wire form
// =============================================================================

// StoreJSON is the wire shape of overtime.ReferenceData.
type StoreJSON struct {
	Users      []overtime.User                      `json:"users"`
	Profiles   Pairs[overtime.Profile]              `json:"profiles"`
	Holidays   Pairs[Pairs[overtime.HolidayRecord]] `json:"holidays"`
	TimeOff    Pairs[Pairs[overtime.TimeOffRecord]] `json:"timeOff"`
	Overrides  map[string]overtime.OverrideSpec     `json:"overrides"`
	Config     overtime.Config                      `json:"config"`
	CalcParams overtime.CalcParams                  `json:"calcParams"`
}

// Reference rebuilds the typed maps. Unset or non-finite calcParams fields
// take their value from defaults.
func (s StoreJSON) Reference(defaults overtime.CalcParams) *overtime.ReferenceData {
	ref := &overtime.ReferenceData{
		Users:      s.Users,
		Profiles:   s.Profiles.Map(),
		Holidays:   make(map[string]map[generic.DateKey]overtime.HolidayRecord, len(s.Holidays)),
		TimeOff:    make(map[string]map[generic.DateKey]overtime.TimeOffRecord, len(s.TimeOff)),
		Overrides:  s.Overrides,
		Config:     s.Config,
		CalcParams: WithDefaults(s.CalcParams, defaults),
	}
	for _, p := range s.Holidays {
		ref.Holidays[p.Key] = dateKeyed(p.Value)
	}
	for _, p := range s.TimeOff {
		ref.TimeOff[p.Key] = dateKeyed(p.Value)
	}
	return ref
}

func dateKeyed[V any](ps Pairs[V]) map[generic.DateKey]V {
	m := make(map[generic.DateKey]V, len(ps))
	for _, p := range ps {
		m[generic.DateKey(p.Key)] = p.Value
	}
	return m
}

func stringKeyed[V any](m map[generic.DateKey]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// EncodeStore flattens reference data into the wire shape. Keys are sorted
// so the output is deterministic.
func EncodeStore(ref *overtime.ReferenceData) StoreJSON {
	if ref == nil {
		return StoreJSON{}
	}
	s := StoreJSON{
		Users:      ref.Users,
		Profiles:   PairsOf(ref.Profiles),
		Overrides:  ref.Overrides,
		Config:     ref.Config,
		CalcParams: ref.CalcParams,
	}
	holidays := make(map[string]Pairs[overtime.HolidayRecord], len(ref.Holidays))
	for user, days := range ref.Holidays {
		holidays[user] = PairsOf(stringKeyed(days))
	}
	s.Holidays = PairsOf(holidays)

	timeOff := make(map[string]Pairs[overtime.TimeOffRecord], len(ref.TimeOff))
	for user, days := range ref.TimeOff {
		timeOff[user] = PairsOf(stringKeyed(days))
	}
	s.TimeOff = PairsOf(timeOff)
	return s
}

// WithDefaults fills every unusable field of p from defaults.
func WithDefaults(p, defaults overtime.CalcParams) overtime.CalcParams {
	pick := func(v, d overtime.Number) overtime.Number {
		if _, ok := v.Get(); ok {
			return v
		}
		return d
	}
	return overtime.CalcParams{
		DailyThreshold:     pick(p.DailyThreshold, defaults.DailyThreshold),
		WeeklyThreshold:    pick(p.WeeklyThreshold, defaults.WeeklyThreshold),
		OvertimeMultiplier: pick(p.OvertimeMultiplier, defaults.OvertimeMultiplier),
		Tier2Threshold:     pick(p.Tier2Threshold, defaults.Tier2Threshold),
		Tier2Multiplier:    pick(p.Tier2Multiplier, defaults.Tier2Multiplier),
	}
}

// =============================================================================
// PAYLOAD - One calculate request
// =============================================================================

// PayloadJSON is the wire shape of a calculate request.
type PayloadJSON struct {
	Entries   []*overtime.TimeEntry `json:"entries"`
	DateRange *overtime.DateRange   `json:"dateRange,omitempty"`
	Store     StoreJSON             `json:"store"`
}

// Payload is a decoded calculate request, ready for overtime.Analyze.
type Payload struct {
	Entries   []*overtime.TimeEntry
	DateRange *overtime.DateRange
	Reference *overtime.ReferenceData
}

// ParsePayload decodes a calculate payload. Only a payload that is not an
// object, or whose store is not an object, is an error.
func ParsePayload(data []byte, defaults overtime.CalcParams) (*Payload, error) {
	var raw struct {
		Entries   json.RawMessage     `json:"entries"`
		DateRange *overtime.DateRange `json:"dateRange"`
		Store     *StoreJSON          `json:"store"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", generic.ErrInvalidInput, err)
	}
	if raw.Store == nil {
		return nil, fmt.Errorf("%w: payload has no store", generic.ErrInvalidInput)
	}
	entries, err := decodeEntries(raw.Entries)
	if err != nil {
		return nil, err
	}
	return &Payload{
		Entries:   entries,
		DateRange: raw.DateRange,
		Reference: raw.Store.Reference(defaults),
	}, nil
}

// decodeEntries accepts an array, null or nothing. Elements are decoded
// leniently; only a non-array value is an error.
func decodeEntries(data json.RawMessage) ([]*overtime.TimeEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: entries must be an array", generic.ErrInvalidInput)
	}
	var entries []*overtime.TimeEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: entries: %v", generic.ErrInvalidInput, err)
	}
	return entries, nil
}

// EncodePayload is the inverse of ParsePayload.
func EncodePayload(entries []*overtime.TimeEntry, ref *overtime.ReferenceData, rng *overtime.DateRange) PayloadJSON {
	return PayloadJSON{Entries: entries, DateRange: rng, Store: EncodeStore(ref)}
}
