// Package validate checks JSON documents entering the system against the
// embedded schemas before they are decoded into service inputs.
package validate

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

type Schema string

const (
	Receipt      Schema = "receipt"
	Transaction  Schema = "transaction"
	CreditCard   Schema = "credit_card"
	Subscription Schema = "subscription"
	Budget       Schema = "budget"
)

var allSchemas = []Schema{Receipt, Transaction, CreditCard, Subscription, Budget}

// Validator holds the compiled schemas. It is safe for concurrent use.
type Validator struct {
	schemas map[Schema]*gojsonschema.Schema
}

func New() (*Validator, error) {
	v := &Validator{schemas: make(map[Schema]*gojsonschema.Schema, len(allSchemas))}
	for _, name := range allSchemas {
		raw, err := schemaFS.ReadFile("schemas/" + string(name) + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = compiled
	}
	return v, nil
}

var defaultValidator = sync.OnceValues(New)

// Default returns a process-wide Validator.
func Default() (*Validator, error) {
	return defaultValidator()
}

// Validate checks doc against the named schema. Schema violations are
// returned as core.ValidationErrors, one per offending field.
func (v *Validator) Validate(name Schema, doc []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	if !json.Valid(doc) {
		return core.ValidationErrors{{Field: "(root)", Reason: "malformed JSON"}}
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	if res.Valid() {
		return nil
	}

	errs := make(core.ValidationErrors, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, &core.ValidationError{Field: fieldOf(e), Reason: e.Description()})
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

// Decode validates doc and unmarshals it into a T.
func Decode[T any](v *Validator, name Schema, doc []byte) (T, error) {
	var out T
	if err := v.Validate(name, doc); err != nil {
		return out, err
	}
	if err := json.Unmarshal(doc, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, nil
}

// fieldOf names the property a result error refers to. Missing properties
// are reported on the root, so the detail carries the real name.
func fieldOf(e gojsonschema.ResultError) string {
	if e.Type() == "required" {
		if p, ok := e.Details()["property"].(string); ok {
			return p
		}
	}
	return e.Field()
}
