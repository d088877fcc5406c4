package validation

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/username/smartflow/backend/src/models"
)

// The first line of defense. Checks the extracted payload against the strict
// schema: required fields, types, and value ranges. Pure; never touches the
// database.

var requiredFields = []string{"item", "client", "qty"}

// ValidateStructure checks an untrusted payload and reports every violation
// found. Missing or null required fields skip the type checks: a type check
// on an absent field is meaningless.
func ValidateStructure(payload models.ExtractedPayload) models.ValidationResult {
	var errs []string

	if len(payload) == 0 {
		return models.ValidationResult{Valid: false, Errors: []string{"input payload is empty"}}
	}

	for _, field := range requiredFields {
		value, present := payload[field]
		if !present {
			errs = append(errs, fmt.Sprintf("missing required field: '%s'", field))
		} else if value == nil {
			errs = append(errs, fmt.Sprintf("field '%s' cannot be null", field))
		}
	}
	if len(errs) > 0 {
		return models.ValidationResult{Valid: false, Errors: errs}
	}

	// Type and range checks are independent: a non-integer, non-positive
	// quantity reports both violations.
	qty := payload["qty"]
	if _, isInt := asInt(qty); !isInt {
		errs = append(errs, fmt.Sprintf("quantity must be an integer, got %T", qty))
	}
	if numValue, isNumeric := asFloat(qty); isNumeric && numValue <= 0 {
		errs = append(errs, fmt.Sprintf("quantity must be positive, got %v", qty))
	}

	if _, ok := payload["item"].(string); !ok {
		errs = append(errs, "item name must be a string")
	}
	if _, ok := payload["client"].(string); !ok {
		errs = append(errs, "client name must be a string")
	}

	return models.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ToRecord converts a payload that has passed ValidateStructure into its
// typed form. The bool reports whether the conversion was possible; callers
// must validate first.
func ToRecord(payload models.ExtractedPayload) (models.ExtractedRecord, bool) {
	item, itemOK := payload["item"].(string)
	client, clientOK := payload["client"].(string)
	qty, qtyOK := asInt(payload["qty"])
	if !itemOK || !clientOK || !qtyOK {
		return models.ExtractedRecord{}, false
	}
	action, _ := payload["action"].(string)
	return models.ExtractedRecord{Item: item, Quantity: qty, Client: client, Action: action}, true
}

// asInt reports whether the value carries an integral number, across the
// representations a JSON decoder or the heuristic extractor may produce.
// Whole-valued floats are not integers; the wire said "5.0", not "5".
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// asFloat reports the numeric value of any number representation, integral
// or not, for range checking.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		if f, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}
