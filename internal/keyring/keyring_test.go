package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestToken_RoundTrip(t *testing.T) {
	keyring.MockInit()

	_, err := Token()
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, SetToken("tok-1"))
	require.NoError(t, SetToken("tok-2"))
	got, err := Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got)

	require.NoError(t, DeleteToken())
	require.NoError(t, DeleteToken())
	_, err = Token()
	assert.ErrorIs(t, err, ErrNoToken)
}
