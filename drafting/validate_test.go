package drafting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/lexdraft/unifiedllm"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*DraftRequest)
		message    string
		field      string
		constraint string
	}{
		{
			name:       "unknown document type",
			mutate:     func(r *DraftRequest) { r.DocumentType = "Lease" },
			message:    "Invalid document type. Please select a valid document type.",
			field:      "document_type",
			constraint: "doctype",
		},
		{
			name:       "empty document type",
			mutate:     func(r *DraftRequest) { r.DocumentType = "" },
			message:    "Invalid document type. Please select a valid document type.",
			field:      "document_type",
			constraint: "doctype",
		},
		{
			name:       "document type is case sensitive",
			mutate:     func(r *DraftRequest) { r.DocumentType = "will" },
			message:    "Invalid document type. Please select a valid document type.",
			field:      "document_type",
			constraint: "doctype",
		},
		{
			name:       "blank party A",
			mutate:     func(r *DraftRequest) { r.PartyA = " \t " },
			message:    "Party A information is required.",
			field:      "party_a",
			constraint: "notblank",
		},
		{
			name:       "empty party B",
			mutate:     func(r *DraftRequest) { r.PartyB = "" },
			message:    "Party B information is required.",
			field:      "party_b",
			constraint: "notblank",
		},
		{
			name:       "short additional details",
			mutate:     func(r *DraftRequest) { r.AdditionalDetails = "too short" },
			message:    "Additional details must be more descriptive (at least 10 characters).",
			field:      "additional_details",
			constraint: "min",
		},
		{
			name:       "short specific details",
			mutate:     func(r *DraftRequest) { r.SpecificDetails = "" },
			message:    "Specific details must be more descriptive (at least 10 characters).",
			field:      "specific_details",
			constraint: "min",
		},
		{
			name: "first failing field wins",
			mutate: func(r *DraftRequest) {
				r.PartyB = ""
				r.SpecificDetails = ""
			},
			message:    "Party B information is required.",
			field:      "party_b",
			constraint: "notblank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := Validate(req)
			require.Error(t, err)

			var ce *unifiedllm.ClassifiedError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, unifiedllm.KindValidation, ce.Kind)
			assert.Equal(t, tt.message, ce.Message)
			assert.False(t, ce.Retryable)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, tt.constraint, fe.Constraint)
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	for _, name := range DocumentTypeNames() {
		req := validRequest()
		req.DocumentType = name
		assert.NoError(t, Validate(req), name)
	}

	req := validRequest()
	req.AdditionalDetails = "exactly 10"
	req.State = ""
	assert.NoError(t, Validate(req))
}
