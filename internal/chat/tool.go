// Package chat runs the conversational completion loop and bridges model
// tool calls to transaction ingestion.
package chat

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// LogTransactionToolName is the only tool the model may call.
const LogTransactionToolName = "logTransaction"

// ParameterType is the JSON type of a tool parameter.
type ParameterType string

const (
	TypeNumber ParameterType = "number"
	TypeString ParameterType = "string"
)

// Property describes one tool parameter.
type Property struct {
	Type        ParameterType
	Description string
	Enum        []string
	// ExclusiveMinimum, when set, rejects numbers less than or equal to it.
	ExclusiveMinimum *float64
}

// Schema is a flat object schema. Order fixes the parameter order handed to
// model libraries.
type Schema struct {
	Properties map[string]Property
	Order      []string
	Required   []string
}

// Tool is a model-callable function, independent of any model library.
type Tool struct {
	Name        string
	Description string
	Parameters  Schema
}

var zero = 0.0

// LogTransactionTool persists one transaction for the calling user.
var LogTransactionTool = Tool{
	Name:        LogTransactionToolName,
	Description: "Persist a transaction",
	Parameters: Schema{
		Properties: map[string]Property{
			"amount": {
				Type:             TypeNumber,
				Description:      "Positive amount of money moved",
				ExclusiveMinimum: &zero,
			},
			"type": {
				Type:        TypeString,
				Description: "Whether money came in or went out",
				Enum:        []string{"income", "expense"},
			},
			"category": {
				Type:        TypeString,
				Description: "Short category name such as Groceries or Salary",
			},
			"description": {
				Type:        TypeString,
				Description: "Free-form note about the transaction",
			},
			"transactionDate": {
				Type:        TypeString,
				Description: "Date of the transaction in YYYY-MM-DD form",
			},
		},
		Order:    []string{"amount", "type", "category", "description", "transactionDate"},
		Required: []string{"amount", "type"},
	},
}

// ArgumentError lists every way a tool call's arguments broke the schema.
type ArgumentError struct {
	Tool       string
	Violations []string
}

func (e *ArgumentError) Error() string {
	if e.Tool == "" {
		return "invalid arguments: " + strings.Join(e.Violations, "; ")
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Violations, "; "))
}

// Validate checks args against the schema. Unknown fields are ignored.
func (s Schema) Validate(args map[string]any) error {
	var violations []string

	for _, name := range s.Required {
		if v, ok := args[name]; !ok || v == nil {
			violations = append(violations, fmt.Sprintf("%s is required", name))
		}
	}

	for _, name := range s.fieldOrder() {
		prop := s.Properties[name]
		v, ok := args[name]
		if !ok || v == nil {
			continue
		}
		switch prop.Type {
		case TypeNumber:
			n, ok := toFloat(v)
			if !ok {
				violations = append(violations, fmt.Sprintf("%s must be a number", name))
				continue
			}
			if prop.ExclusiveMinimum != nil && n <= *prop.ExclusiveMinimum {
				violations = append(violations, fmt.Sprintf("%s must be greater than %g", name, *prop.ExclusiveMinimum))
			}
		case TypeString:
			str, ok := v.(string)
			if !ok {
				violations = append(violations, fmt.Sprintf("%s must be a string", name))
				continue
			}
			if len(prop.Enum) > 0 && !slices.Contains(prop.Enum, str) {
				violations = append(violations, fmt.Sprintf("%s must be one of %s", name, strings.Join(prop.Enum, ", ")))
			}
		}
	}

	if len(violations) > 0 {
		return &ArgumentError{Violations: violations}
	}
	return nil
}

func (s Schema) fieldOrder() []string {
	if len(s.Order) == len(s.Properties) {
		return s.Order
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LogTransactionArgs is a validated logTransaction call.
type LogTransactionArgs struct {
	Amount          float64
	Type            string
	Category        string
	Description     string
	TransactionDate string
}

// DecodeLogTransactionArgs validates args and decodes them.
func DecodeLogTransactionArgs(args map[string]any) (LogTransactionArgs, error) {
	if err := LogTransactionTool.Parameters.Validate(args); err != nil {
		if ae, ok := err.(*ArgumentError); ok {
			ae.Tool = LogTransactionToolName
		}
		return LogTransactionArgs{}, err
	}
	amount, _ := toFloat(args["amount"])
	return LogTransactionArgs{
		Amount:          amount,
		Type:            stringArg(args, "type"),
		Category:        stringArg(args, "category"),
		Description:     stringArg(args, "description"),
		TransactionDate: stringArg(args, "transactionDate"),
	}, nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
