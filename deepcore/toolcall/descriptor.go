package toolcall

import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// TransportFunc is one way of reaching a tool's external capability.
// It returns the structured payload on success.
type TransportFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

// TranslateFunc rewrites arguments for a fallback transport whose wire
// format differs from the primary's.
type TranslateFunc func(args map[string]any) map[string]any

// Descriptor declares a tool: its identity, argument schema, and up to two
// transports. Transport selection belongs to the Invoker, never to agents.
type Descriptor struct {
	Name        string
	Description string
	Category    string
	// Schema is an optional JSON Schema for the tool arguments.
	Schema json.RawMessage

	// Primary is the preferred transport. Required.
	Primary TransportFunc
	// Fallback is the secondary transport, attempted at most once after a
	// primary timeout or transport failure. Optional.
	Fallback TransportFunc
	// TranslateArgs maps primary-shaped arguments into the fallback's shape.
	// Applied only when the fallback runs. Optional.
	TranslateArgs TranslateFunc

	compiled *jsonschema.Schema
}

// HasFallback returns true if a fallback transport is registered.
func (d *Descriptor) HasFallback() bool {
	return d.Fallback != nil
}

// fallbackArgs returns the arguments to hand the fallback transport.
func (d *Descriptor) fallbackArgs(args map[string]any) map[string]any {
	if d.TranslateArgs != nil {
		return d.TranslateArgs(args)
	}
	return args
}

// compileSchema compiles the descriptor's JSON Schema, if any.
func (d *Descriptor) compileSchema() error {
	if len(d.Schema) == 0 {
		return nil
	}
	doc, err := jsonschema.UnmarshalJSON(bytesReader(d.Schema))
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(d.Name+".schema.json", doc); err != nil {
		return err
	}
	schema, err := compiler.Compile(d.Name + ".schema.json")
	if err != nil {
		return err
	}
	d.compiled = schema
	return nil
}

// validateArgs checks args against the compiled schema.
// Descriptors without a schema accept any arguments.
func (d *Descriptor) validateArgs(args map[string]any) error {
	if d.compiled == nil {
		return nil
	}
	// Round-trip through JSON so numeric types match what the schema
	// library expects from unmarshaled documents.
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytesReader(raw))
	if err != nil {
		return err
	}
	return d.compiled.Validate(doc)
}
