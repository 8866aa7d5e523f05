// Package tool implements the text-embedded tool calling subsystem: a scanner
// for the `[TOOL_CALL: id({...})]` marker grammar, a build-once registry of
// tool definitions with schema validated arguments, and an executor that
// substitutes results back into agent text with consistent error handling.
package tool

import (
	"context"
	"fmt"
)

// ParamType enumerates the JSON types accepted in a parameter schema.
type ParamType string

// Supported parameter types. These mirror the JSON type names so schemas can
// be exposed to models verbatim.
const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

// ParamSpec declares a single named parameter of a tool.
type ParamSpec struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
}

// Handler executes a tool with already-validated arguments. Handlers must
// respect ctx cancellation; the executor bounds each call with a timeout.
// Handlers touching shared external resources are responsible for their own
// concurrency safety.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Definition describes a callable tool: identity, human guidance for the
// model, a flat parameter schema and the handler. Definitions are registered
// once at process start and treated as immutable afterward.
type Definition struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters,omitempty"`
	Handler     Handler              `json:"-"`
}

// ValidationError reports a parameter schema violation with enough detail for
// an inline [TOOL_ERROR: ...] substitution.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for parameter '%s': %s", e.Field, e.Message)
}

// ValidateParams checks params against the declared schema: required
// parameters must be present and every declared parameter that is present
// must match its type. Undeclared extras are rejected to keep handler inputs
// closed.
func ValidateParams(params map[string]any, schema map[string]ParamSpec) error {
	for name, spec := range schema {
		v, ok := params[name]
		if !ok {
			if spec.Required {
				return &ValidationError{Field: name, Message: "required parameter is missing"}
			}
			continue
		}
		if !matchesType(v, spec.Type) {
			return &ValidationError{
				Field:   name,
				Value:   v,
				Message: fmt.Sprintf("expected type %s, got %T", spec.Type, v),
			}
		}
	}
	for name := range params {
		if _, ok := schema[name]; !ok {
			return &ValidationError{Field: name, Message: "unexpected parameter"}
		}
	}
	return nil
}

// matchesType checks a JSON-decoded value against a declared ParamType.
// JSON numbers decode as float64; integers additionally require a whole value.
func matchesType(v any, t ParamType) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		_, ok := v.(float64)
		return ok
	case TypeInteger:
		f, ok := v.(float64)
		return ok && f == float64(int64(f))
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	}
	return false
}
