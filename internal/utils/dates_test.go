package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	inputs := []string{
		"2025-01-10",
		"10/01/2025",
		"10-01-2025",
		" 2025-01-10 ",
		"2025-01-10T09:30:00Z",
		"2025/01/10",
		"10.01.2025",
		"45667", // Excel serial for 2025-01-10
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDate(in)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "ParseDate(%q) = %v, want %v", in, got, want)
		})
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "demain", "2025-13-45", "32/01/2025"} {
		_, err := ParseDate(in)
		assert.Error(t, err, "ParseDate(%q) should fail", in)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := map[string]string{
		"09:00":    "09:00",
		"9:00":     "09:00",
		"14h30":    "14:30",
		"14H30":    "14:30",
		"9h":       "09:00",
		"9h05":     "09:05",
		"0930":     "09:30",
		"2:30 PM":  "14:30",
		"11am":     "11:00",
		"08:15:00": "08:15",
		"0.375":    "09:00",
		"2:30 pm":  "14:30",
	}
	for in, want := range tests {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"midi", "25h00", "9h75", "2400"} {
		_, err := ParseTimeOfDay(in)
		assert.Error(t, err, "ParseTimeOfDay(%q) should fail", in)
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+33 6 12 34 56 78", NormalizePhone("06 12 34 56 78", "FR"))
	assert.Equal(t, "n/a", NormalizePhone(" n/a ", "FR"))
	assert.Equal(t, "", NormalizePhone("  ", "FR"))
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		Title string `json:"title" validate:"required"`
		Email string `json:"email" validate:"omitempty,email"`
	}

	assert.NoError(t, ValidateStruct(input{Title: "Site A"}))

	err := ValidateStruct(input{Email: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title: required")
	assert.Contains(t, err.Error(), "email: email")
}
