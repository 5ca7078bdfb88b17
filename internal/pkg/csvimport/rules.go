package csvimport

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpectedHeaders is the fixed column set a property CSV must carry.
var ExpectedHeaders = []string{"name", "address", "property_type", "price", "size", "rooms", "description"}

// fieldType distinguishes string and numeric validation.
type fieldType int

const (
	fieldString fieldType = iota
	fieldNumber
)

// validationRule declares the constraints for one CSV column.
type validationRule struct {
	Field     string
	Required  bool
	Type      fieldType
	MaxLength int
	MinValue  float64
	MaxValue  float64
}

var validationRules = []validationRule{
	{Field: "name", Required: true, Type: fieldString, MaxLength: 100},
	{Field: "address", Required: true, Type: fieldString, MaxLength: 200},
	{Field: "property_type", Required: true, Type: fieldString, MaxLength: 50},
	{Field: "price", Required: false, Type: fieldNumber, MinValue: 0, MaxValue: 999999999},
	{Field: "size", Required: false, Type: fieldNumber, MinValue: 0, MaxValue: 10000},
	{Field: "rooms", Required: false, Type: fieldNumber, MinValue: 0, MaxValue: 100},
	{Field: "description", Required: false, Type: fieldString, MaxLength: 1000},
}

func ruleFor(field string) *validationRule {
	for i := range validationRules {
		if validationRules[i].Field == field {
			return &validationRules[i]
		}
	}
	return nil
}

// fieldValue is the outcome of validating one cell. For optional numeric
// fields left blank, both Str and Num stay unset and Omitted is true.
type fieldValue struct {
	Str     string
	Num     float64
	IsNum   bool
	Omitted bool
}

// validateField checks one cell against its rule. The returned message is
// caller-facing and names the violated constraint.
func validateField(value string, rule *validationRule) (fieldValue, string) {
	value = strings.TrimSpace(value)

	if value == "" {
		if rule.Required {
			return fieldValue{}, "is required"
		}
		return fieldValue{Omitted: true}, ""
	}

	if rule.Type == fieldNumber {
		num, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fieldValue{}, "must be a number"
		}
		if num < rule.MinValue {
			return fieldValue{}, fmt.Sprintf("must be at least %g", rule.MinValue)
		}
		if num > rule.MaxValue {
			return fieldValue{}, fmt.Sprintf("must be at most %g", rule.MaxValue)
		}
		return fieldValue{Num: num, IsNum: true}, ""
	}

	if rule.MaxLength > 0 && len([]rune(value)) > rule.MaxLength {
		return fieldValue{}, fmt.Sprintf("must be %d characters or fewer", rule.MaxLength)
	}
	return fieldValue{Str: value}, ""
}
