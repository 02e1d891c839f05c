package domain

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("  0x5A927AC639636E534B678E81768CA19E2C6280B7 ")
	require.NoError(t, err)
	assert.Equal(t, Address("0x5a927ac639636e534b678e81768ca19e2c6280b7"), a)

	again, err := ParseAddress(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, again)

	for _, bad := range []string{"", "0x123", "5a927ac639636e534b678e81768ca19e2c6280b7", "0xzz927ac639636e534b678e81768ca19e2c6280b7"} {
		_, err := ParseAddress(bad)
		assert.True(t, errors.Is(err, errors.NotValid), "input %q", bad)
	}
}

func TestNormalizeAddresses(t *testing.T) {
	got := NormalizeAddresses([]string{
		"0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB02",
		"not-an-address",
		"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb02",
		"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa01",
	})
	assert.Equal(t, []Address{
		"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb02",
		"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa01",
	}, got)
}

func TestAddressShort(t *testing.T) {
	assert.Equal(t, "0x5a92…80b7", MustAddress("0x5a927ac639636e534b678e81768ca19e2c6280b7").Short())
}
