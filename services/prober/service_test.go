package prober

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendwell/sendguard/dto"
	internal_config "github.com/sendwell/sendguard/internal/config"
)

// fakeSMTPServer answers the minimal dialog the prober drives: greeting,
// EHLO and QUIT. It never advertises STARTTLS or AUTH.
func fakeSMTPServer(t *testing.T) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				c.Write([]byte("220 fake.test ESMTP ready\r\n"))
				reader := bufio.NewReader(c)
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						return
					}
					switch {
					case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
						c.Write([]byte("250-fake.test\r\n250 SIZE 35882577\r\n"))
					case strings.HasPrefix(line, "QUIT"):
						c.Write([]byte("221 bye\r\n"))
						return
					default:
						c.Write([]byte("502 command not implemented\r\n"))
					}
				}
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

// silentServer accepts connections and never sends a greeting
func silentServer(t *testing.T) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// hold the connection open without speaking
			go func(c net.Conn) {
				time.Sleep(5 * time.Second)
				c.Close()
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func newTestProber() *proberService {
	return NewProberService(&internal_config.ProbeConfig{
		ConnectTimeoutSeconds:  2,
		GreetingTimeoutSeconds: 2,
	}).(*proberService)
}

func TestProbeSuccess(t *testing.T) {
	host, port := fakeSMTPServer(t)

	result := newTestProber().Probe(context.Background(), dto.ProbeRequest{
		Host: host,
		Port: port,
	})

	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "succeeded")
	assert.Empty(t, result.ErrorCode)
}

func TestProbeGreetingTimeout(t *testing.T) {
	host, port := silentServer(t)

	result := newTestProber().Probe(context.Background(), dto.ProbeRequest{
		Host:            host,
		Port:            port,
		GreetingTimeout: 300 * time.Millisecond,
	})

	assert.False(t, result.Success)
	assert.Equal(t, ErrCodeGreetingTimeout, result.ErrorCode)
}

func TestProbeConnectRefused(t *testing.T) {
	// grab a free port and close the listener so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	result := newTestProber().Probe(context.Background(), dto.ProbeRequest{
		Host:           "127.0.0.1",
		Port:           port,
		ConnectTimeout: time.Second,
	})

	assert.False(t, result.Success)
	assert.Equal(t, ErrCodeConnectFailed, result.ErrorCode)
}
