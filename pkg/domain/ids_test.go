package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "campaign/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseLeaderID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseLeaderID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseLeaderID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseLeaderID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, LeaderID(validUUID), id)
	})
}

func TestParseID_BoundaryInputs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE table_reports;--", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWitnessID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical parsing behavior.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	parsers := map[string]func(string) error{
		"candidate":       func(s string) error { _, err := ParseCandidateID(s); return err },
		"leader":          func(s string) error { _, err := ParseLeaderID(s); return err },
		"voter":           func(s string) error { _, err := ParseVoterID(s); return err },
		"witness":         func(s string) error { _, err := ParseWitnessID(s); return err },
		"municipality":    func(s string) error { _, err := ParseMunicipalityID(s); return err },
		"polling_station": func(s string) error { _, err := ParsePollingStationID(s); return err },
		"report":          func(s string) error { _, err := ParseReportID(s); return err },
		"user":            func(s string) error { _, err := ParseUserID(s); return err },
	}

	valid := uuid.New().String()
	for name, parse := range parsers {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, parse(valid))
			for _, input := range []string{"", "invalid", uuid.Nil.String()} {
				require.Error(t, parse(input), "input %q", input)
			}
		})
	}
}

func TestIsNil(t *testing.T) {
	assert.True(t, WitnessID{}.IsNil())
	assert.False(t, WitnessID(uuid.New()).IsNil())
}
