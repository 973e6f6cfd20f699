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
	"bytes"
	"fmt"
	"log/slog"
)

// ControlPath is the single recognized HTTP resource.
const ControlPath = "/alarm"

// Fixed response templates. Headers are rendered into the 128-byte
// header buffer, the control page into the 256-byte body buffer.
const (
	responseHeaders = "HTTP/1.1 %d OK\nContent-Length: %d\n" +
		"Content-Type: text/html; charset=utf-8\nConnection: close\n\n"
	responseRedirect = "HTTP/1.1 302 Redirect\nLocation: http://%s" +
		ControlPath + "\n\n"
	controlBody = "<html><body style=\"text-align:center;margin-top:50px\">" +
		"<h1>Alarm</h1>" +
		"<p>%s</p>" +
		"<a href=\"?alarm=%d\" style=\"background:#4CAF50;color:white;" +
		"padding:5px 10px;text-decoration:none\">%s</a>" +
		"</body></html>"
)

var alarmParam = []byte("alarm=")

// alarmContent renders the control page into result and returns the
// rendered length. Only the exact control path is handled; any other
// path yields 0 (the caller redirects). An "alarm=<int>" query switches
// the alarm first, so the page always reflects the current state. A
// length exceeding cap(result) means the page did not fit; the caller
// must abort instead of sending a truncated body.
func (s *Server) alarmContent(path, query, result []byte) int {
	if !bytes.Equal(path, []byte(ControlPath)) {
		return 0
	}
	if v, ok := queryAlarmValue(query); ok {
		s.alarmActive = v != 0
		s.log.Info("alarm switched", slog.Bool("active", s.alarmActive))
	}
	var out []byte
	if s.alarmActive {
		out = fmt.Appendf(result[:0], controlBody, "ACTIVATED", 0, "Turn off")
	} else {
		out = fmt.Appendf(result[:0], controlBody, "DEACTIVATED", 1, "Turn on")
	}
	return len(out)
}

// queryAlarmValue extracts the integer argument of an "alarm=<int>"
// query. Bytes after the integer are ignored, like a scanf conversion.
func queryAlarmValue(query []byte) (v int, ok bool) {
	q, found := bytes.CutPrefix(query, alarmParam)
	if !found {
		return 0, false
	}
	i := 0
	neg := false
	if i < len(q) && (q[i] == '-' || q[i] == '+') {
		neg = q[i] == '-'
		i++
	}
	start := i
	for i < len(q) && q[i] >= '0' && q[i] <= '9' {
		v = v*10 + int(q[i]-'0')
		i++
	}
	if i == start {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
