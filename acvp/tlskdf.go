package acvp

import (
	"crypto"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"acvp-tlskdf/kdftls"
)

type tlsKDFVectorSet struct {
	Groups []tlsKDFTestGroup `json:"testGroups"`
}

type tlsKDFTestGroup struct {
	ID           uint64       `json:"tgId"`
	Hash         string       `json:"hashAlg"`
	TLSVersion   string       `json:"tlsVersion"`
	KeyBlockBits uint32       `json:"keyBlockLength"`
	PMSBits      uint32       `json:"preMasterSecretLength"`
	Tests        []tlsKDFTest `json:"tests"`
}

type tlsKDFTest struct {
	ID     uint64 `json:"tcId"`
	PMSHex string `json:"preMasterSecret"`
	// The hello randoms feed the master secret and the other two feed the
	// key block. Real handshakes use the same values for both pairs.
	ClientHelloRandomHex string `json:"clientHelloRandom"`
	ServerHelloRandomHex string `json:"serverHelloRandom"`
	ClientRandomHex      string `json:"clientRandom"`
	ServerRandomHex      string `json:"serverRandom"`
}

type tlsKDFTestGroupResponse struct {
	ID    uint64               `json:"tgId"`
	Tests []tlsKDFTestResponse `json:"tests"`
}

type tlsKDFTestResponse struct {
	ID              uint64 `json:"tcId"`
	MasterSecretHex string `json:"masterSecret"`
	KeyBlockHex     string `json:"keyBlock"`
}

// TLSKDF processes kdf-components/tls vector sets through a kdftls.Dispatcher.
type TLSKDF struct {
	dispatcher *kdftls.Dispatcher
	flags      kdftls.Flags
	logger     *zap.Logger
}

// NewTLSKDF returns a processor dispatching through d. Every test case is
// sent with flags plus kdftls.VariantHelloRandoms, which the ACVP layout
// requires.
func NewTLSKDF(d *kdftls.Dispatcher, flags kdftls.Flags, logger *zap.Logger) *TLSKDF {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TLSKDF{
		dispatcher: d,
		flags:      flags | kdftls.VariantHelloRandoms,
		logger:     logger.Named("tlskdf"),
	}
}

// Process implements Processor.
func (k *TLSKDF) Process(vectorSet []byte) (*Outcome, error) {
	if err := validateDocument("kdf-components/tls", tlsKDFSchema, vectorSet); err != nil {
		return nil, err
	}

	var parsed tlsKDFVectorSet
	if err := json.Unmarshal(vectorSet, &parsed); err != nil {
		return nil, err
	}

	ret := make([]tlsKDFTestGroupResponse, 0, len(parsed.Groups))
	var failures []Failure
	for _, group := range parsed.Groups {
		h, err := groupHash(group)
		if err != nil {
			return nil, fmt.Errorf("test group %d: %w", group.ID, err)
		}
		if group.KeyBlockBits%8 != 0 {
			return nil, fmt.Errorf("test group %d: requested key-block length (%d bits) is not a whole number of bytes", group.ID, group.KeyBlockBits)
		}

		response := tlsKDFTestGroupResponse{ID: group.ID, Tests: []tlsKDFTestResponse{}}
		for _, test := range group.Tests {
			tc, err := buildTestCase(h, group, test)
			if err != nil {
				return nil, fmt.Errorf("test group %d, test %d: %w", group.ID, test.ID, err)
			}

			err = k.dispatcher.Dispatch(tc, k.flags)
			clear(tc.PreMasterSecret)
			if err != nil {
				failures = append(failures, Failure{GroupID: group.ID, TestID: test.ID, Err: err.Error()})
				continue
			}

			response.Tests = append(response.Tests, tlsKDFTestResponse{
				ID:              test.ID,
				MasterSecretHex: hex.EncodeToString(tc.MasterSecret),
				KeyBlockHex:     hex.EncodeToString(tc.KeyBlock),
			})
		}

		k.logger.Debug("Processed test group",
			zap.Uint64("tg_id", group.ID),
			zap.String("hash", group.Hash),
			zap.Int("tests", len(group.Tests)))
		ret = append(ret, response)
	}

	return &Outcome{Groups: ret, Failures: failures}, nil
}

// tlsKDFHashes lists the hashes ACVP allows for each TLS version.
var tlsKDFHashes = map[string][]crypto.Hash{
	"v1.0/1.1": {crypto.SHA1},
	"v1.2":     {crypto.SHA256, crypto.SHA384, crypto.SHA512},
}

// groupHash checks that the hash is one ACVP permits for the TLS version.
func groupHash(group tlsKDFTestGroup) (crypto.Hash, error) {
	allowed, ok := tlsKDFHashes[group.TLSVersion]
	if !ok {
		return 0, fmt.Errorf("unknown TLS version %q", group.TLSVersion)
	}

	h, err := kdftls.ParseHash(group.Hash)
	if err != nil {
		return 0, err
	}
	if !slices.Contains(allowed, h) {
		return 0, fmt.Errorf("hash %q not permitted with TLS version %q", group.Hash, group.TLSVersion)
	}
	return h, nil
}

func buildTestCase(h crypto.Hash, group tlsKDFTestGroup, test tlsKDFTest) (*kdftls.TestCase, error) {
	tc := &kdftls.TestCase{
		ID:                  test.ID,
		Hash:                h,
		PreMasterSecretBits: group.PMSBits,
		KeyBlockBits:        group.KeyBlockBits,
	}

	fields := []struct {
		name string
		hex  string
		dst  *[]byte
	}{
		{"preMasterSecret", test.PMSHex, &tc.PreMasterSecret},
		{"clientHelloRandom", test.ClientHelloRandomHex, &tc.ClientHelloRandom},
		{"serverHelloRandom", test.ServerHelloRandomHex, &tc.ServerHelloRandom},
		{"clientRandom", test.ClientRandomHex, &tc.ClientRandom},
		{"serverRandom", test.ServerRandomHex, &tc.ServerRandom},
	}
	for _, f := range fields {
		b, err := hex.DecodeString(f.hex)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = b
	}
	return tc, nil
}

// RegisterTLSKDF installs a TLSKDF processor on h for kdf-components/tls.
func RegisterTLSKDF(h *Harness, d *kdftls.Dispatcher, flags kdftls.Flags, logger *zap.Logger) {
	h.Handle("kdf-components", "tls", NewTLSKDF(d, flags, logger))
}
