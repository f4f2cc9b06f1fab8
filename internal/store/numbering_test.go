package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentPrefix(t *testing.T) {
	departments := NewDepartments(nil)

	cases := map[string]string{
		"Admissions":  "AD",
		"Registrar":   "RE",
		"Accounting":  "AC",
		"Library":     "LI",
		"  science  ": "SC",
		"x":           "X",
	}
	for department, want := range cases {
		prefix, err := departments.Prefix(department)
		require.NoError(t, err)
		assert.Equalf(t, want, prefix, "Prefix(%q)", department)
	}

	_, err := departments.Prefix("   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDepartmentPrefixCustomTable(t *testing.T) {
	departments := NewDepartments(map[string]string{"Guidance": " gd ", "": "ZZ"})

	prefix, err := departments.Prefix("Guidance")
	require.NoError(t, err)
	assert.Equal(t, "GD", prefix)
	assert.True(t, departments.Known("Guidance"))
	assert.False(t, departments.Known("Admissions"))
}

func TestParseSequence(t *testing.T) {
	cases := []struct {
		number string
		want   int
		ok     bool
	}{
		{"AD10", 10, true},
		{"AD9", 9, true},
		{"ad7", 7, true},
		{"AD12-1700000000000", 12, true},
		{"AD", 0, false},
		{"AD0", 0, false},
		{"RE5", 0, false},
		{"ADx3", 0, false},
	}
	for _, tt := range cases {
		got, ok := ParseSequence("AD", tt.number)
		assert.Equalf(t, tt.ok, ok, "ParseSequence(%q) ok", tt.number)
		assert.Equalf(t, tt.want, got, "ParseSequence(%q)", tt.number)
	}
}

func TestMaxSequenceComparesNumerically(t *testing.T) {
	assert.Equal(t, 10, MaxSequence("AD", []string{"AD9", "AD10", "AD2", "RE40", "bogus"}))
	assert.Equal(t, 0, MaxSequence("AD", nil))
	assert.Equal(t, "AD11", FormatQueueNumber("AD", 11))
}
