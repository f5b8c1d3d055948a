package order

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoucherOf(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{42, "VOU-00000042"},
		{1, "VOU-00000001"},
		{12345678, "VOU-12345678"},
		// 超过补零宽度时不截断
		{123456789, "VOU-123456789"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, VoucherOf(tt.id))
	}
}

func TestVoucherOfDeterministic(t *testing.T) {
	require.Equal(t, VoucherOf(7), VoucherOf(7))
}
