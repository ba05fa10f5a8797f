package address

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Agora/internal/core/networks"
)

const (
	aliceHex      = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceGeneric  = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	alicePolkadot = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	aliceKusama   = "HNZata7iMYWmk5RvZRTiAsSDhV8366zq2YGb3tLH5Upf74F"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	nets := append(networks.Defaults(),
		networks.Network{Name: "moonbeam", AccountFormat: networks.FormatEVM},
		networks.Network{Name: "highprefix", SS58Prefix: 1284},
	)
	registry, err := networks.NewRegistry(nets)
	require.NoError(t, err)
	return NewCodec(registry)
}

func TestCanonicalize_SameAccountAcrossEncodings(t *testing.T) {
	codec := testCodec(t)

	for _, addr := range []string{aliceGeneric, alicePolkadot, aliceKusama, aliceHex} {
		c, err := codec.Canonicalize(addr, "polkadot")
		require.NoError(t, err, addr)
		assert.Equal(t, Canonical(aliceHex), c, addr)
	}
}

func TestCanonicalize_UppercaseHex(t *testing.T) {
	codec := testCodec(t)

	c, err := codec.Canonicalize("0xD43593C715FDD31C61141ABD04A99FD6822C8558854CCDE39A5684E7A56DA27D", "kusama")
	require.NoError(t, err)
	assert.Equal(t, Canonical(aliceHex), c)
}

func TestEncode_PerNetwork(t *testing.T) {
	codec := testCodec(t)

	tests := []struct {
		network  string
		expected string
	}{
		{"polkadot", alicePolkadot},
		{"kusama", aliceKusama},
		{"westend", aliceGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			encoded, err := codec.Encode(Canonical(aliceHex), tt.network)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, encoded)
		})
	}
}

func TestSS58_TwoBytePrefixRoundTrip(t *testing.T) {
	codec := testCodec(t)

	encoded, err := codec.Encode(Canonical(aliceHex), "highprefix")
	require.NoError(t, err)

	accountID, prefix, err := DecodeSS58(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint16(1284), prefix)

	c, err := codec.Canonicalize(encoded, "polkadot")
	require.NoError(t, err)
	assert.Equal(t, Canonical(aliceHex), c)
	assert.Len(t, accountID, 32)
}

func TestCanonicalize_Invalid(t *testing.T) {
	codec := testCodec(t)

	tests := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"not base58", "0OIl"},
		{"bad checksum", aliceGeneric[:len(aliceGeneric)-1] + "Z"},
		{"truncated", aliceGeneric[:20]},
		{"short hex", "0xd435"},
		{"bad hex", "0xzz3593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Canonicalize(tt.addr, "polkadot")
			require.Error(t, err)
			var invalid *InvalidError
			assert.True(t, errors.As(err, &invalid), "expected InvalidError, got %T", err)
		})
	}
}

func TestCanonicalize_UnknownNetwork(t *testing.T) {
	codec := testCodec(t)

	_, err := codec.Canonicalize(aliceGeneric, "nowhere")
	assert.ErrorIs(t, err, networks.ErrUnknownNetwork)
}

func TestCanonicalize_EVM(t *testing.T) {
	codec := testCodec(t)

	c, err := codec.Canonicalize("0xF24FF3a9CF04c71Dbc94D0b566f7A27B94566cac", "moonbeam")
	require.NoError(t, err)
	assert.Equal(t, Canonical("0xf24ff3a9cf04c71dbc94d0b566f7a27b94566cac"), c)

	_, err = codec.Canonicalize(aliceGeneric, "moonbeam")
	assert.Error(t, err)

	encoded, err := codec.Encode(c, "moonbeam")
	require.NoError(t, err)
	assert.Equal(t, c.String(), encoded)
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "5Grwva...GKutQY", Shorten(aliceGeneric, 6))
	assert.Equal(t, "5Grw...utQY", Shorten(aliceGeneric, 4))
	assert.Equal(t, "5Grwva...GKutQY", Shorten(aliceGeneric, 0))
	assert.Equal(t, "short", Shorten("short", 6))
	assert.Equal(t, "abcdefghijkl", Shorten("abcdefghijkl", 6))
}
