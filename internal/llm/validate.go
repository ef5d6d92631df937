package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled holds compiled schemas keyed by name and definition digest, so
// two prompts reusing a name with different shapes never share a validator.
var compiled sync.Map // map[string]*jsonschema.Schema

// validateResponse checks raw JSON against schema. Providers call it on
// every structured response, so callers only ever see content matching
// the schema they sent. Failures are *ErrInvalidResponse.
func validateResponse(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	sch, err := compile(schema)
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("compile schema %q: %w", schema.Name, err)}
	}
	if err := sch.Validate(doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("schema %q: %w", schema.Name, err)}
	}
	return nil
}

func compile(schema *Schema) (*jsonschema.Schema, error) {
	// Round-tripping through JSON turns Go literals ([]string, int) into
	// the generic values the compiler expects.
	def, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	sum := sha256.Sum256(def)
	key := schema.Name + "-" + hex.EncodeToString(sum[:8])
	if s, ok := compiled.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	var generic any
	if err := json.Unmarshal(def, &generic); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	c := jsonschema.NewCompiler()
	url := "mem://schemas/" + key + ".json"
	if err := c.AddResource(url, generic); err != nil {
		return nil, err
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	compiled.Store(key, s)
	return s, nil
}
