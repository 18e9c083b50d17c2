package evm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeployerAddress(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{
			name: "key one",
			key:  "0x0000000000000000000000000000000000000000000000000000000000000001",
			want: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		},
		{
			name: "without prefix",
			key:  anvilKey,
			want: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		},
		{
			name: "surrounding whitespace",
			key:  "  0x" + anvilKey + "\n",
			want: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeployerAddress(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeployerAddress_Invalid(t *testing.T) {
	for _, key := range []string{"", "0x1234", "zz" + anvilKey[2:], anvilKey + "00"} {
		_, err := DeployerAddress(key)
		require.ErrorIs(t, err, ErrInvalidSigningKey)
		if key != "" {
			assert.NotContains(t, err.Error(), key)
		}
	}
}
