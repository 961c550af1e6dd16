package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to FileStatus
		want     bool
	}{
		{FileStatusImporting, FileStatusCompleted, true},
		{FileStatusImporting, FileStatusFailed, true},
		{FileStatusImporting, FileStatusImporting, false},
		{FileStatusCompleted, FileStatusImporting, false},
		{FileStatusFailed, FileStatusImporting, false},
		{FileStatusCompleted, FileStatusFailed, false},
		{FileStatusFailed, FileStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestFileStatus_Valid(t *testing.T) {
	assert.True(t, FileStatusImporting.Valid())
	assert.True(t, FileStatusCompleted.Valid())
	assert.True(t, FileStatusFailed.Valid())
	assert.False(t, FileStatus("PROCESSING").Valid())
	assert.False(t, FileStatus("").Valid())
}

func TestFileStatus_Terminal(t *testing.T) {
	assert.False(t, FileStatusImporting.Terminal())
	assert.True(t, FileStatusCompleted.Terminal())
	assert.True(t, FileStatusFailed.Terminal())
}

func TestModel_Supports(t *testing.T) {
	m := Model{Name: "models/gemini-2.5-flash", GenerationMethods: []string{"generateContent", "countTokens"}}

	assert.True(t, m.Supports("generateContent"))
	assert.False(t, m.Supports("embedContent"))
	assert.False(t, Model{}.Supports("generateContent"))
}
