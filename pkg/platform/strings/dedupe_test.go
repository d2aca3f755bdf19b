package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanList(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil stays nil", input: nil, want: nil},
		{name: "empty stays empty", input: []string{}, want: []string{}},
		{name: "trims and drops blanks", input: []string{" a ", "", "  ", "b"}, want: []string{"a", "b"}},
		{name: "keeps first occurrence", input: []string{"b", "a", " b"}, want: []string{"b", "a"}},
		{name: "case is significant", input: []string{"A", "a"}, want: []string{"A", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanList(tt.input))
		})
	}
}

func TestCleanListFold(t *testing.T) {
	got := CleanListFold([]string{"https://PRMS.example.org ", "https://prms.example.org", "http://localhost:3000"})
	assert.Equal(t, []string{"https://prms.example.org", "http://localhost:3000"}, got)
}
