package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeProfile(t *testing.T) {
	b, err := encodeProfile(nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(b))

	b, err = encodeProfile(map[string]any{"badges": []int{1, 2}})
	require.NoError(t, err)
	require.JSONEq(t, `{"badges":[1,2]}`, string(b))

	_, err = encodeProfile(map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}

func TestIsUUID(t *testing.T) {
	require.True(t, isUUID("3f2504e0-4f89-11d3-9a0c-0305e82c3301"))
	require.False(t, isUUID(""))
	require.False(t, isUUID("h1"))
}
