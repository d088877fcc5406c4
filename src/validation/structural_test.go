package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smartflow/backend/src/models"
)

func TestValidateStructureValidPayload(t *testing.T) {
	payload := models.ExtractedPayload{
		"item":   "Dell XPS",
		"qty":    5,
		"client": "TechCorp",
		"action": "sold",
	}

	result := ValidateStructure(payload)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateStructureEmptyPayload(t *testing.T) {
	for _, payload := range []models.ExtractedPayload{nil, {}} {
		result := ValidateStructure(payload)
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "empty")
	}
}

func TestValidateStructureMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload models.ExtractedPayload
		want    []string
	}{
		{
			name:    "missing item",
			payload: models.ExtractedPayload{"qty": 5, "client": "TechCorp"},
			want:    []string{"missing required field: 'item'"},
		},
		{
			name:    "missing client and qty",
			payload: models.ExtractedPayload{"item": "Dell XPS"},
			want:    []string{"missing required field: 'client'", "missing required field: 'qty'"},
		},
		{
			name:    "null client",
			payload: models.ExtractedPayload{"item": "Dell XPS", "qty": 5, "client": nil},
			want:    []string{"field 'client' cannot be null"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateStructure(tc.payload)
			require.False(t, result.Valid)
			for _, want := range tc.want {
				assert.Contains(t, result.Errors, want)
			}
			require.Len(t, result.Errors, len(tc.want))
		})
	}
}

func TestValidateStructureMissingFieldSkipsTypeChecks(t *testing.T) {
	// A payload missing its item should not also complain that the absent
	// item is not a string.
	payload := models.ExtractedPayload{"qty": "not-a-number", "client": 7}
	result := ValidateStructure(payload)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "missing required field: 'item'")
}

func TestValidateStructureQuantityRange(t *testing.T) {
	for _, qty := range []any{0, -10, json.Number("-3")} {
		payload := models.ExtractedPayload{"item": "Dell XPS", "qty": qty, "client": "TechCorp"}
		result := ValidateStructure(payload)
		require.False(t, result.Valid, "qty %v should fail", qty)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "positive")
	}
}

func TestValidateStructureQuantityType(t *testing.T) {
	payload := models.ExtractedPayload{"item": "Dell XPS", "qty": 2.5, "client": "TechCorp"}
	result := ValidateStructure(payload)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "integer")
}

func TestValidateStructureQuantityTypeAndRangeBothFire(t *testing.T) {
	payload := models.ExtractedPayload{"item": "Dell XPS", "qty": -2.5, "client": "TechCorp"}
	result := ValidateStructure(payload)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "integer")
	assert.Contains(t, result.Errors[1], "positive")
}

func TestValidateStructureNonNumericQuantity(t *testing.T) {
	payload := models.ExtractedPayload{"item": "Dell XPS", "qty": "five", "client": "TechCorp"}
	result := ValidateStructure(payload)
	require.False(t, result.Valid)
	// Only the type error fires; there is no numeric value to range-check.
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "integer")
}

func TestValidateStructureStringFields(t *testing.T) {
	payload := models.ExtractedPayload{"item": 42, "qty": 5, "client": []string{"TechCorp"}}
	result := ValidateStructure(payload)
	require.False(t, result.Valid)
	assert.Contains(t, result.Errors, "item name must be a string")
	assert.Contains(t, result.Errors, "client name must be a string")
}

func TestValidateStructureJSONNumberQuantity(t *testing.T) {
	// Payloads decoded from model output carry json.Number quantities.
	payload := models.ExtractedPayload{"item": "iPhone 15", "qty": json.Number("5"), "client": "Client A"}
	result := ValidateStructure(payload)
	assert.True(t, result.Valid)

	payload["qty"] = json.Number("5.5")
	result = ValidateStructure(payload)
	require.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "integer")
}

func TestToRecord(t *testing.T) {
	payload := models.ExtractedPayload{
		"item":   "iPhone 15",
		"qty":    json.Number("5"),
		"client": "Client A",
		"action": "sold",
	}
	record, ok := ToRecord(payload)
	require.True(t, ok)
	assert.Equal(t, models.ExtractedRecord{Item: "iPhone 15", Quantity: 5, Client: "Client A", Action: "sold"}, record)

	_, ok = ToRecord(models.ExtractedPayload{"item": 1, "qty": 5, "client": "x"})
	assert.False(t, ok)
}
