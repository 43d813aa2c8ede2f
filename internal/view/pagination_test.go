package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/todoboard/internal/model"
)

func TestPageNumbers(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    []int
	}{
		{"no pages", 1, 0, nil},
		{"few pages listed in full", 2, 5, []int{1, 2, 3, 4, 5}},
		{"near start", 3, 20, []int{1, 2, 3, 4, Ellipsis, 20}},
		{"middle", 10, 20, []int{1, Ellipsis, 9, 10, 11, Ellipsis, 20}},
		{"near end", 18, 20, []int{1, Ellipsis, 17, 18, 19, 20}},
		{"last", 20, 20, []int{1, Ellipsis, 17, 18, 19, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageNumbers(tt.current, tt.total))
		})
	}
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 1, ClampPage(0, 5))
	assert.Equal(t, 3, ClampPage(3, 5))
	assert.Equal(t, 5, ClampPage(9, 5))
	assert.Equal(t, 1, ClampPage(4, 0))
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats(sample())
	assert.Equal(t, model.Stats{Total: 3, Completed: 1, Pending: 2}, s)

	assert.Equal(t, model.Stats{}, ComputeStats(nil))
	assert.Equal(t, 33, Percent(s.Completed, s.Total))
	assert.Equal(t, 0, Percent(1, 0))
}
