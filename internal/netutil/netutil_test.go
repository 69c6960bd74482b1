package netutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMulticastGroup(t *testing.T) {
	ip, err := ParseMulticastGroup("224.1.1.1")
	require.NoError(t, err)
	require.Equal(t, "224.1.1.1", ip.String())
	require.Equal(t, "224.1.1.1:5004", FormatAddress(ip, 5004))

	for _, bad := range []string{"", "not-an-ip", "192.168.1.10", "ff02::1"} {
		_, err := ParseMulticastGroup(bad)
		require.Error(t, err, bad)
	}
}

func TestValidatePort(t *testing.T) {
	require.Error(t, ValidatePort(0))
	require.NoError(t, ValidatePort(5004))
}

func TestInterfaceByNameEmpty(t *testing.T) {
	iface, _, err := InterfaceByName("")
	require.NoError(t, err)
	require.Nil(t, iface)

	_, _, err = InterfaceByName("definitely-not-a-nic0")
	require.Error(t, err)
}
