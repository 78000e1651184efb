package index

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// The JSON form is an array of [key, [displayName, [[anchor, owner], ...]]]
// tuples. The generator's link flag is not part of it and decodes to
// types.DefaultLinkFlag.

// MarshalJSON implements json.Marshaler
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([]interface{}, len(t.entries))
	for i, e := range t.entries {
		occs := make([][2]string, len(e.Occurrences))
		for j, occ := range e.Occurrences {
			occs[j] = [2]string{occ.Anchor, occ.Owner}
		}
		rows[i] = []interface{}{e.Key, []interface{}{e.DisplayName, occs}}
	}
	return json.Marshal(rows)
}

// UnmarshalJSON implements json.Unmarshaler. The decoded entries must
// satisfy the same invariants as New.
func (t *Table) UnmarshalJSON(data []byte) error {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("search table must be an array: %w", err)
	}

	entries := make([]types.SearchEntry, 0, len(rows))
	for i, raw := range rows {
		entry, err := decodeRow(raw)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	decoded, err := New(entries)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

func decodeRow(raw json.RawMessage) (types.SearchEntry, error) {
	var entry types.SearchEntry

	var pair []json.RawMessage
	if err := strictUnmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return entry, fmt.Errorf("expected [key, [displayName, occurrences]]")
	}
	if err := strictUnmarshal(pair[0], &entry.Key); err != nil {
		return entry, fmt.Errorf("key must be a string")
	}

	var body []json.RawMessage
	if err := strictUnmarshal(pair[1], &body); err != nil || len(body) != 2 {
		return entry, fmt.Errorf("%s: expected [displayName, occurrences]", entry.Key)
	}
	if err := strictUnmarshal(body[0], &entry.DisplayName); err != nil {
		return entry, fmt.Errorf("%s: display name must be a string", entry.Key)
	}

	var occs [][]string
	if err := strictUnmarshal(body[1], &occs); err != nil {
		return entry, fmt.Errorf("%s: occurrences must be [anchor, owner] pairs", entry.Key)
	}
	entry.Occurrences = make([]types.Occurrence, 0, len(occs))
	for j, occ := range occs {
		if len(occ) != 2 {
			return entry, fmt.Errorf("%s: occurrence %d must be [anchor, owner]", entry.Key, j)
		}
		entry.Occurrences = append(entry.Occurrences, types.Occurrence{
			Anchor:   occ[0],
			LinkFlag: types.DefaultLinkFlag,
			Owner:    occ[1],
		})
	}

	return entry, nil
}

// strictUnmarshal rejects null where a value is required
func strictUnmarshal(data []byte, v interface{}) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("unexpected null")
	}
	return json.Unmarshal(data, v)
}
