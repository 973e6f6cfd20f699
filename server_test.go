//----------------------------------------------------------------------
// This file is part of alarmap.
// Copyright (C) 2025-present Bernd Fix   >Y<
//
// alarmap is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// alarmap is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

package alarmap

import (
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// rawGet sends one request and returns the raw response bytes (the
// server closes the connection after sending).
func rawGet(t *testing.T, addr, path string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: alarm\r\n\r\n", path)
	require.NoError(t, err)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(data)
}

func TestServerEndToEnd(t *testing.T) {
	dev := new(fakeDevice)
	cfg := Config{Gateway: "192.168.4.1", Port: 0}
	lst, stat := SetupListener(dev, cfg)
	require.Equal(t, StatOK, stat)

	s := NewServer(dev, lst, cfg)
	done := make(chan error, 1)
	go func() { done <- s.Run() }()
	addr := lst.Addr().String()

	resp := rawGet(t, addr, "/alarm?alarm=1")
	require.Contains(t, resp, "HTTP/1.1 200 OK")
	require.Contains(t, resp, "ACTIVATED")
	require.Contains(t, resp, "?alarm=0")

	resp = rawGet(t, addr, "/alarm?alarm=0")
	require.Contains(t, resp, "DEACTIVATED")
	require.Contains(t, resp, "?alarm=1")

	// anything else redirects to the control page on the gateway
	resp = rawGet(t, addr, "/")
	require.Contains(t, resp, "HTTP/1.1 302 Redirect")
	require.Contains(t, resp, "Location: http://192.168.4.1/alarm")

	s.Shutdown()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
