package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorDetail_Error(t *testing.T) {
	tests := []struct {
		name   string
		detail *ErrorDetail
		want   string
	}{
		{"nil", nil, ""},
		{"typed", NewErrorDetail("alloc", "out of room").WithCode("data_next"), "alloc: out of room [data_next]"},
		{"internal", NewErrorDetail("internal", "boom"), "boom"},
		{"untyped", &ErrorDetail{Message: "plain"}, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.detail.Error())
		})
	}
}

func TestErrorDetail_DetailIntSurvivesJSON(t *testing.T) {
	d := NewErrorDetail("header_parse", "missing data version").WithDetail("log", 3)
	got, ok := d.DetailInt("log")
	require.True(t, ok)
	assert.Equal(t, 3, got)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	var back ErrorDetail
	require.NoError(t, json.Unmarshal(data, &back))

	got, ok = back.DetailInt("log")
	require.True(t, ok)
	assert.Equal(t, 3, got)

	_, ok = back.DetailInt("missing")
	assert.False(t, ok)
}
