// Package acvp reads ACVP vector sets, hands them to the processor registered
// for their algorithm and mode, and writes the matching response documents.
package acvp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownAlgorithm is returned when no processor handles a vector set.
var ErrUnknownAlgorithm = errors.New("no processor for algorithm")

// Processor turns one vector set into response test groups.
type Processor interface {
	Process(vectorSet []byte) (*Outcome, error)
}

// Outcome is what a processor produced for a vector set. Tests that failed
// are listed in Failures and left out of Groups.
type Outcome struct {
	Groups   any
	Failures []Failure
}

// Failure records a test case the backend could not answer.
type Failure struct {
	GroupID uint64 `json:"tgId"`
	TestID  uint64 `json:"tcId"`
	Err     string `json:"error"`
}

// Header holds the vector set fields every algorithm shares.
type Header struct {
	VSID      uint64 `json:"vsId"`
	Algorithm string `json:"algorithm"`
	Mode      string `json:"mode,omitempty"`
	Revision  string `json:"revision,omitempty"`
	IsSample  bool   `json:"isSample,omitempty"`
}

// Response is the vector set answer, without the version envelope.
type Response struct {
	Header
	TestGroups any `json:"testGroups"`
}

// Result bundles a response with the failures that were left out of it.
type Result struct {
	RunID      string
	ACVVersion string
	Response   Response
	Failures   []Failure
}

// Encode writes the response in the ACVP envelope form
// [{"acvVersion": ...}, {...}].
func (r *Result) Encode() ([]byte, error) {
	version := map[string]string{"acvVersion": r.ACVVersion}
	return json.MarshalIndent([]any{version, r.Response}, "", "  ")
}

// Harness dispatches vector sets by "<algorithm>/<mode>".
type Harness struct {
	mu         sync.RWMutex
	processors map[string]Processor
	logger     *zap.Logger
}

// NewHarness returns a harness with no processors.
func NewHarness(logger *zap.Logger) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{
		processors: make(map[string]Processor),
		logger:     logger.Named("acvp"),
	}
}

func processorKey(algorithm, mode string) string {
	if mode == "" {
		return algorithm
	}
	return algorithm + "/" + mode
}

// Handle sets the processor for algorithm and mode, replacing any previous one.
func (h *Harness) Handle(algorithm, mode string, p Processor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processors[processorKey(algorithm, mode)] = p
}

// Algorithms lists the registered "<algorithm>/<mode>" keys.
func (h *Harness) Algorithms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]string, 0, len(h.processors))
	for k := range h.processors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Run processes one vector set document. Both the bare object and the
// enveloped array form are accepted.
func (h *Harness) Run(doc []byte) (*Result, error) {
	version, vectorSet, err := unwrap(doc)
	if err != nil {
		return nil, err
	}

	var header Header
	if err := json.Unmarshal(vectorSet, &header); err != nil {
		return nil, fmt.Errorf("failed to parse vector set header: %w", err)
	}

	key := processorKey(header.Algorithm, header.Mode)
	h.mu.RLock()
	p, ok := h.processors[key]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAlgorithm, key)
	}

	runID := uuid.NewString()
	logger := h.logger.With(zap.String("run_id", runID), zap.Uint64("vs_id", header.VSID), zap.String("algorithm", key))
	logger.Info("Processing vector set")

	outcome, err := p.Process(vectorSet)
	if err != nil {
		logger.Error("Vector set failed", zap.Error(err))
		return nil, fmt.Errorf("vector set %d (%s): %w", header.VSID, key, err)
	}

	for _, f := range outcome.Failures {
		logger.Warn("Test case failed", zap.Uint64("tg_id", f.GroupID), zap.Uint64("tc_id", f.TestID), zap.String("error", f.Err))
	}
	logger.Info("Vector set complete", zap.Int("failures", len(outcome.Failures)))

	header.IsSample = false
	return &Result{
		RunID:      runID,
		ACVVersion: version,
		Response:   Response{Header: header, TestGroups: outcome.Groups},
		Failures:   outcome.Failures,
	}, nil
}

// unwrap returns the acvVersion (if any) and the vector set object of doc.
func unwrap(doc []byte) (string, json.RawMessage, error) {
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 {
		return "", nil, errors.New("empty document")
	}
	if doc[0] != '[' {
		return "", doc, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(doc, &elems); err != nil {
		return "", nil, fmt.Errorf("failed to parse document envelope: %w", err)
	}

	var version string
	var vectorSet json.RawMessage
	for _, elem := range elems {
		var probe struct {
			ACVVersion *string          `json:"acvVersion"`
			TestGroups *json.RawMessage `json:"testGroups"`
		}
		if err := json.Unmarshal(elem, &probe); err != nil {
			return "", nil, fmt.Errorf("failed to parse document envelope: %w", err)
		}
		if probe.ACVVersion != nil {
			version = *probe.ACVVersion
		}
		if probe.TestGroups != nil {
			vectorSet = elem
		}
	}
	if vectorSet == nil {
		return "", nil, errors.New("document has no vector set")
	}
	return version, vectorSet, nil
}
