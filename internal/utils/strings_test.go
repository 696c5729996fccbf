package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"only separators", " , ,", nil},
		{"single value", "PETR4.SA", []string{"PETR4.SA"}},
		{"varied spacing", "http://a.example,  http://b.example ", []string{"http://a.example", "http://b.example"}},
		{"blank middle entry", "A,,B", []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}
