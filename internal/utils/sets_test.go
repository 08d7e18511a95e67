package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name        string
		prev, next  []string
		wantAdded   []string
		wantRemoved []string
	}{
		{"both empty", nil, nil, nil, nil},
		{"all added", nil, []string{"a", "b"}, []string{"a", "b"}, nil},
		{"all removed", []string{"a", "b"}, []string{}, nil, []string{"a", "b"}},
		{"mixed keeps order", []string{"a", "b", "c"}, []string{"c", "d", "a"}, []string{"d"}, []string{"b"}},
		{"duplicates collapse", []string{"a", "a"}, []string{"b", "b", "a"}, []string{"b"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed := Diff(tt.prev, tt.next)
			assert.Equal(t, tt.wantAdded, added)
			assert.Equal(t, tt.wantRemoved, removed)
		})
	}
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Dedupe([]string{"a", "", "b", "a"}))
	assert.Equal(t, []string{}, Dedupe(nil))
}

func TestWithAndWithoutID(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, WithID([]string{"a"}, "b"))
	assert.Equal(t, []string{"a", "b"}, WithID([]string{"a", "b", "a"}, "a"))
	assert.Equal(t, []string{"b"}, WithoutID([]string{"a", "b", "a"}, "a"))
	assert.Equal(t, []string{}, WithoutID(nil, "a"))
	assert.True(t, Contains([]string{"x", "y"}, "y"))
	assert.False(t, Contains(nil, "y"))
}
