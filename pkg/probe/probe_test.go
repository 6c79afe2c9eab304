package probe

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsIPLiteral(t *testing.T) {
	require.True(t, IsIPLiteral("192.168.1.10"))
	require.True(t, IsIPLiteral("::1"))
	require.True(t, IsIPLiteral("fe80::1"))
	require.False(t, IsIPLiteral("hv01"))
	require.False(t, IsIPLiteral("hv01.corp.local"))
	require.False(t, IsIPLiteral(""))
	// 带端口的串不是 IP 字面量,调用方负责先拆端口
	require.False(t, IsIPLiteral("192.168.1.10:5985"))
}

func TestPortOpenAndClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	p := New()
	require.NoError(t, p.Port("127.0.0.1", port))

	// 关掉监听后同一端口应报端口未开放
	ln.Close()
	err = p.Port("127.0.0.1", port)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrPortClosed))
}
