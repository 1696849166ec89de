package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaging_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Paging
		want Paging
	}{
		{"defaults", Paging{}, Paging{Page: 1, Limit: 5}},
		{"negative page", Paging{Page: -3, Limit: 10}, Paging{Page: 1, Limit: 10}},
		{"limit capped", Paging{Page: 2, Limit: 500}, Paging{Page: 2, Limit: 100}},
		{"kept", Paging{Page: 3, Limit: 5}, Paging{Page: 3, Limit: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize(DefaultPageLimit))
		})
	}
}

func TestPaging_Offset(t *testing.T) {
	assert.Equal(t, 0, Paging{Page: 1, Limit: 5}.Offset())
	assert.Equal(t, 10, Paging{Page: 3, Limit: 5}.Offset())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 5))
	assert.Equal(t, 1, TotalPages(5, 5))
	assert.Equal(t, 3, TotalPages(12, 5))
	assert.Equal(t, 1, TotalPages(12, 100))
}

func TestNewPage_NilItems(t *testing.T) {
	page := NewPage[string](nil, 0, Paging{Page: 1, Limit: 5})
	assert.NotNil(t, page.Items)
	assert.Equal(t, 0, page.TotalPages)
}
