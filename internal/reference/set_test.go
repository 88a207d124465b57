package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSet(t *testing.T) {
	set := NewSet("mito", "Homo sapiens",
		[]string{"ABC1", "DEF2", "GHI3", " JKL4 "},
		[]string{"ABCX|ABCY", "", "42", "NA"},
	)

	assert.Equal(t, 4, set.Len())
	assert.Equal(t, []string{"ABCX", "ABCY"}, set.Entries[0].Synonyms)
	assert.Equal(t, []string{SynonymPlaceholder}, set.Entries[1].Synonyms)
	assert.Equal(t, []string{SynonymPlaceholder}, set.Entries[2].Synonyms)
	assert.Equal(t, []string{SynonymPlaceholder}, set.Entries[3].Synonyms)
	assert.Equal(t, "JKL4", set.Entries[3].Symbol)
}

func TestSet_Contains(t *testing.T) {
	set := NewSet("mito", "Mus musculus", []string{"Abc1", "Def2"}, []string{"Abcx|Abcy", "-"})

	tests := []struct {
		gene string
		want bool
	}{
		{"Abc1", true},
		{"Abcy", true},
		{"Def2", true},
		{"abc1", false},
		{"Abc", false},
		{"", false},
		{SynonymPlaceholder, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, set.Contains(tt.gene), tt.gene)
	}
}
