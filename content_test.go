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
	"testing"

	"github.com/stretchr/testify/require"
)

// render the control page for the given path/query
func renderContent(s *Server, path, query string) (int, string) {
	buf := make([]byte, bodyBufSize)
	n := s.alarmContent([]byte(path), []byte(query), buf)
	if n <= 0 || n > len(buf) {
		return n, ""
	}
	return n, string(buf[:n])
}

func TestControlPageTogglesAlarm(t *testing.T) {
	s, _ := newTestServer()

	n, body := renderContent(s, ControlPath, "alarm=1")
	require.Positive(t, n)
	require.True(t, s.alarmActive)
	require.Contains(t, body, "ACTIVATED")
	require.Contains(t, body, "?alarm=0")
	require.Contains(t, body, "Turn off")

	// repeating the same command is idempotent
	n2, body2 := renderContent(s, ControlPath, "alarm=1")
	require.Equal(t, n, n2)
	require.Equal(t, body, body2)
	require.True(t, s.alarmActive)

	_, body = renderContent(s, ControlPath, "alarm=0")
	require.False(t, s.alarmActive)
	require.Contains(t, body, "DEACTIVATED")
	require.Contains(t, body, "?alarm=1")
	require.Contains(t, body, "Turn on")
}

func TestControlPageWithoutQuery(t *testing.T) {
	s, _ := newTestServer()
	s.alarmActive = true

	n, body := renderContent(s, ControlPath, "")
	require.Positive(t, n)
	require.True(t, s.alarmActive)
	require.Contains(t, body, "ACTIVATED")
}

func TestUnrecognizedPath(t *testing.T) {
	s, _ := newTestServer()
	for _, path := range []string{"/", "/led", "/alarms", "/alarm/"} {
		n, _ := renderContent(s, path, "alarm=1")
		require.Zero(t, n, "path %q must not be handled", path)
		require.False(t, s.alarmActive)
	}
}

func TestContentOverflowDetectable(t *testing.T) {
	s, _ := newTestServer()
	// a result buffer too small for the page: the returned length
	// exceeds the capacity, which is the caller's abort signal
	small := make([]byte, 8)
	n := s.alarmContent([]byte(ControlPath), nil, small)
	require.Greater(t, n, len(small)-1)
}

func TestQueryAlarmValue(t *testing.T) {
	for _, tc := range []struct {
		query string
		value int
		ok    bool
	}{
		{"alarm=1", 1, true},
		{"alarm=0", 0, true},
		{"alarm=42", 42, true},
		{"alarm=-1", -1, true},
		{"alarm=7&x=1", 7, true}, // trailing bytes ignored
		{"alarm=1AAAA", 1, true},
		{"alarm=", 0, false},
		{"alarm=x", 0, false},
		{"foo=1", 0, false},
		{"", 0, false},
	} {
		v, ok := queryAlarmValue([]byte(tc.query))
		require.Equal(t, tc.ok, ok, "query %q", tc.query)
		require.Equal(t, tc.value, v, "query %q", tc.query)
	}
}
