package bitmath

import "testing"

func TestSignExtend(t *testing.T) {
	tests := []struct {
		x    uint32
		n    uint
		want int32
	}{
		{0b011, 3, 3},
		{0b100, 3, -4},
		{0b111, 3, -1},
		{0, 8, 0},
		{0xFFFFFFFF, 32, -1},
		{0x7FFFFFFF, 32, 0x7FFFFFFF},
	}
	for _, tt := range tests {
		if got := SignExtend(tt.x, tt.n); got != tt.want {
			t.Errorf("SignExtend(%#x, %d) = %d, want %d", tt.x, tt.n, got, tt.want)
		}
	}
}

func TestZigZag(t *testing.T) {
	tests := []struct {
		u    uint64
		want int64
	}{
		{0, 0},
		{1, -1},
		{2, 1},
		{3, -2},
		{4, 2},
		{31, -16},
	}
	for _, tt := range tests {
		if got := ZigZag(tt.u); got != tt.want {
			t.Errorf("ZigZag(%d) = %d, want %d", tt.u, got, tt.want)
		}
	}
}
