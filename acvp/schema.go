package acvp

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"acvp-tlskdf/kdftls"
)

// Compiled schemas per processor name
var (
	schemaCache = make(map[string]*gojsonschema.Schema)
	schemaMutex sync.Mutex
)

func compileSchema(name, source string) (*gojsonschema.Schema, error) {
	schemaMutex.Lock()
	defer schemaMutex.Unlock()

	if compiled, ok := schemaCache[name]; ok {
		return compiled, nil
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", name, err)
	}
	schemaCache[name] = compiled
	return compiled, nil
}

// validateDocument checks doc against the named schema and joins every
// violation into one error.
func validateDocument(name, source string, doc []byte) error {
	compiled, err := compileSchema(name, source)
	if err != nil {
		return err
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("vector set validation failed: %w", err)
	}
	if !result.Valid() {
		var b strings.Builder
		for i, e := range result.Errors() {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(e.String())
		}
		return fmt.Errorf("invalid vector set: %s", b.String())
	}
	return nil
}

const hexPattern = `^([0-9a-fA-F]{2})*$`

// tlsKDFSchema describes an ACVP kdf-components/tls vector set.
// See https://pages.nist.gov/ACVP/draft-celi-acvp-kdf-tls.html
var tlsKDFSchema = `{
  "type": "object",
  "required": ["vsId", "algorithm", "testGroups"],
  "properties": {
    "vsId": {"type": "integer", "minimum": 0},
    "algorithm": {"type": "string"},
    "mode": {"type": "string"},
    "testGroups": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["tgId", "hashAlg", "tlsVersion", "keyBlockLength", "preMasterSecretLength", "tests"],
        "properties": {
          "tgId": {"type": "integer", "minimum": 0},
          "hashAlg": {"type": "string"},
          "tlsVersion": {"enum": ["v1.0/1.1", "v1.2"]},
          "keyBlockLength": {"type": "integer", "minimum": 0, "maximum": ` + strconv.Itoa(kdftls.MaxKeyBlockBits) + `},
          "preMasterSecretLength": {"type": "integer", "minimum": 0, "maximum": 4294967295},
          "tests": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["tcId", "preMasterSecret", "clientHelloRandom", "serverHelloRandom", "clientRandom", "serverRandom"],
              "properties": {
                "tcId": {"type": "integer", "minimum": 0},
                "preMasterSecret": {"type": "string", "pattern": "` + hexPattern + `"},
                "clientHelloRandom": {"type": "string", "pattern": "` + hexPattern + `"},
                "serverHelloRandom": {"type": "string", "pattern": "` + hexPattern + `"},
                "clientRandom": {"type": "string", "pattern": "` + hexPattern + `"},
                "serverRandom": {"type": "string", "pattern": "` + hexPattern + `"}
              }
            }
          }
        }
      }
    }
  }
}`
