package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolID(t *testing.T) {
	assert.Equal(t, "timelord/0/mainnet", NewProtocolID("mainnet", false).String())
	assert.Equal(t, "timelord/0/testnet/bluebox", NewProtocolID("testnet", true).String())

	testCases := []struct {
		protocol string
		want     *ProtocolID
	}{
		{protocol: "timelord/0/mainnet", want: &ProtocolID{Version: "0", Network: "mainnet"}},
		{protocol: "timelord/0/testnet-11/BLUEBOX", want: &ProtocolID{Version: "0", Network: "testnet-11", Bluebox: true}},
		{protocol: "timelord/0"},
		{protocol: "jamnp-s/0/mainnet"},
		{protocol: "timelord/1/mainnet"},
		{protocol: "timelord/0/Mainnet"},
		{protocol: "timelord/0/"},
		{protocol: "timelord/0/mainnet/builder"},
		{protocol: "timelord/0/mainnet/bluebox/extra"},
	}
	for _, tc := range testCases {
		t.Run(tc.protocol, func(t *testing.T) {
			id, err := ParseProtocolID(tc.protocol)
			if tc.want == nil {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}
