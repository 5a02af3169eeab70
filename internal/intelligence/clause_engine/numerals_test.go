package clause_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"3", 3, true},
		{"１８０", 180, true},
		{"一", 1, true},
		{"两", 2, true},
		{"三", 3, true},
		{"十", 10, true},
		{"十五", 15, true},
		{"二十", 20, true},
		{"九十", 90, true},
		{"一百八十", 180, true},
		{"零", 0, true},
		{"", 0, false},
		{"次", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"150", 150, true},
		{"12.5", 12.5, true},
		{"１２０", 120, true},
		{"二十", 20, true},
		{"", 0, false},
		{"百分", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDecimal(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPeriodToDays(t *testing.T) {
	assert.Equal(t, 365, PeriodToDays(1, "年"))
	assert.Equal(t, 730, PeriodToDays(2, "年"))
	assert.Equal(t, 180, PeriodToDays(6, "个月"))
	assert.Equal(t, 90, PeriodToDays(3, "月"))
	assert.Equal(t, 90, PeriodToDays(90, "日"))
	assert.Equal(t, 180, PeriodToDays(180, "天"))
}
