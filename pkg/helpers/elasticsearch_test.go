package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewESClient(t *testing.T) {
	es, err := NewESClient([]string{"http://127.0.0.1:9200"}, "", "")
	require.NoError(t, err)
	require.NotNil(t, es)

	_, err = NewESClient([]string{"://bad"}, "elastic", "changeme")
	require.Error(t, err)
}
