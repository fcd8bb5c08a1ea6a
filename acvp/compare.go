package acvp

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TestRef identifies a test case within a vector set.
type TestRef struct {
	GroupID uint64 `json:"tgId"`
	TestID  uint64 `json:"tcId"`
}

// Mismatch is a test whose answer differs from the expected value.
type Mismatch struct {
	TestRef
	Field string `json:"field"`
}

// Report summarises a comparison against an expected-results document.
type Report struct {
	Passed     int        `json:"passed"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
	Missing    []TestRef  `json:"missing,omitempty"`
}

// OK reports whether every expected test was answered correctly.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0 && len(r.Missing) == 0
}

type genericGroup struct {
	ID    uint64                       `json:"tgId"`
	Tests []map[string]json.RawMessage `json:"tests"`
}

func parseGroups(doc []byte) (map[TestRef]map[string]json.RawMessage, error) {
	_, vectorSet, err := unwrap(doc)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Groups []genericGroup `json:"testGroups"`
	}
	if err := json.Unmarshal(vectorSet, &parsed); err != nil {
		return nil, err
	}

	tests := make(map[TestRef]map[string]json.RawMessage)
	for _, g := range parsed.Groups {
		for _, t := range g.Tests {
			var id uint64
			if err := json.Unmarshal(t["tcId"], &id); err != nil {
				return nil, fmt.Errorf("test group %d: bad tcId: %w", g.ID, err)
			}
			tests[TestRef{GroupID: g.ID, TestID: id}] = t
		}
	}
	return tests, nil
}

// Compare checks response against expected test by test. Every field of an
// expected test other than tcId must be present in the response with the
// same value; hex strings compare case-insensitively.
func Compare(response, expected []byte) (*Report, error) {
	got, err := parseGroups(response)
	if err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	want, err := parseGroups(expected)
	if err != nil {
		return nil, fmt.Errorf("expected: %w", err)
	}

	refs := make([]TestRef, 0, len(want))
	for ref := range want {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].GroupID != refs[j].GroupID {
			return refs[i].GroupID < refs[j].GroupID
		}
		return refs[i].TestID < refs[j].TestID
	})

	report := &Report{}
	for _, ref := range refs {
		answer, ok := got[ref]
		if !ok {
			report.Missing = append(report.Missing, ref)
			continue
		}

		fields := make([]string, 0, len(want[ref]))
		for field := range want[ref] {
			if field != "tcId" {
				fields = append(fields, field)
			}
		}
		sort.Strings(fields)

		passed := true
		for _, field := range fields {
			if !sameValue(want[ref][field], answer[field]) {
				report.Mismatches = append(report.Mismatches, Mismatch{TestRef: ref, Field: field})
				passed = false
			}
		}
		if passed {
			report.Passed++
		}
	}
	return report, nil
}

func sameValue(want, got json.RawMessage) bool {
	if got == nil {
		return false
	}
	var ws, gs string
	if json.Unmarshal(want, &ws) == nil && json.Unmarshal(got, &gs) == nil {
		if isHex(ws) && isHex(gs) {
			return strings.EqualFold(ws, gs)
		}
		return ws == gs
	}

	var wv, gv any
	if json.Unmarshal(want, &wv) != nil || json.Unmarshal(got, &gv) != nil {
		return false
	}
	wb, _ := json.Marshal(wv)
	gb, _ := json.Marshal(gv)
	return string(wb) == string(gb)
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
