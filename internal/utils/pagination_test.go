package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		want        Pagination
	}{
		{"defaults on zero", 0, 0, Pagination{Page: 1, Limit: 50, Offset: 0}},
		{"third page", 3, 20, Pagination{Page: 3, Limit: 20, Offset: 40}},
		{"limit capped", 1, 1000, Pagination{Page: 1, Limit: MaxPageLimit, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPagination(tt.page, tt.limit, 1, 50))
		})
	}
}

func TestPagination_SetTotal(t *testing.T) {
	p := NewPagination(1, 20, 1, 20)
	p.SetTotal(41)
	assert.Equal(t, 3, p.TotalPages)

	p.SetTotal(0)
	assert.Equal(t, 0, p.TotalPages)
}
