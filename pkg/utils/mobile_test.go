package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMobile(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain digits", in: "9876543210", want: "9876543210"},
		{name: "leading plus", in: "+919876543210", want: "+919876543210"},
		{name: "spaces and dashes", in: " 98765-43 210 ", want: "9876543210"},
		{name: "empty", in: "", wantErr: true},
		{name: "too short", in: "12345", wantErr: true},
		{name: "too long", in: "1234567890123456", wantErr: true},
		{name: "letters", in: "98765abc10", wantErr: true},
		{name: "plus in the middle", in: "98+76543210", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeMobile(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidMobile)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashMobileIsStable(t *testing.T) {
	a := HashMobile("9876543210")
	assert.Equal(t, a, HashMobile("9876543210"))
	assert.NotEqual(t, a, HashMobile("9876543211"))
	assert.Len(t, a, 64)
}

func TestMaskMobile(t *testing.T) {
	assert.Equal(t, "******3210", MaskMobile("9876543210"))
	assert.Equal(t, "***", MaskMobile("123"))
}
