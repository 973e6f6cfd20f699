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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Buffer capacities and connection time bounds.
const (
	headerBufSize = 128 // request line in, response header out
	bodyBufSize   = 256 // generated control page
	idleTimeout   = 10 * time.Second
	sendBudget    = 250 * time.Millisecond
)

// Error messages
var (
	errConnBusy     = errors.New("connection slot busy")
	errHeaderSize   = errors.New("header exceeds buffer")
	errResponseSize = errors.New("response exceeds buffer")
)

var methodGET = []byte("GET")

// connState tracks one client connection from accept to close.
// The headers buffer is reused: it first holds the raw request line
// (truncated to 127 bytes), later the rendered response header.
type connState struct {
	srv       *Server
	link      net.Conn
	gateway   string // borrowed from the server
	sentLen   int
	headers   [headerBufSize]byte
	body      [bodyBufSize]byte
	headerLen int
	bodyLen   int
	idleBy    time.Time

	// Per-connection dispatch table. The close routine nils all four
	// slots before the slot is released, so no event can reach a
	// connection twice.
	onRecv func(data []byte)
	onSent func(n int)
	onPoll func(now time.Time)
	onErr  func(err error)
}

// acceptClient registers a freshly accepted connection. Only one
// connection is served at a time (the listen backlog is 1); a second
// accept while one is outstanding is refused as resource exhaustion.
func (s *Server) acceptClient(link net.Conn, now time.Time) {
	if s.client != nil {
		s.log.Error("accept refused", slog.String("err", errConnBusy.Error()))
		link.Close()
		return
	}
	c := &connState{
		srv:     s,
		link:    link,
		gateway: s.gateway,
		idleBy:  now.Add(idleTimeout),
	}
	c.onRecv = c.handleRecv
	c.onSent = c.handleSent
	c.onPoll = c.handlePoll
	c.onErr = c.handleError
	s.client = c
	s.log.Debug("client connected")
}

// handleRecv consumes one chunk of request bytes. Requests longer than
// the buffer are silently truncated; only GET requests are processed,
// everything else is consumed and ignored (the connection stays open
// until the peer closes it or the idle timeout fires).
func (c *connState) handleRecv(data []byte) {
	n := copy(c.headers[:headerBufSize-1], data)
	req := c.headers[:n]
	if !bytes.HasPrefix(req, methodGET) || len(req) <= len(methodGET) {
		return
	}
	line := req[len(methodGET)+1:]
	if i := bytes.IndexByte(line, ' '); i >= 0 {
		line = line[:i]
	}
	path, query, _ := bytes.Cut(line, []byte{'?'})
	c.srv.log.Debug("request",
		slog.String("path", string(path)), slog.String("query", string(query)))
	c.respond(path, query)
}

// respond generates the control page and sends the response. A zero
// generated length means the target was not recognized and the client
// is redirected to the control path on the gateway address instead.
func (c *connState) respond(path, query []byte) {
	s := c.srv
	c.bodyLen = s.alarmContent(path, query, c.body[:])
	if c.bodyLen > bodyBufSize-1 {
		s.log.Error("too much result data", slog.Int("len", c.bodyLen))
		s.closeClient(c, errResponseSize)
		return
	}

	// render the response header (this overwrites the request bytes,
	// which have been fully consumed above)
	var hdr []byte
	if c.bodyLen > 0 {
		hdr = fmt.Appendf(c.headers[:0], responseHeaders, 200, c.bodyLen)
		if len(hdr) > headerBufSize-1 {
			s.log.Error("too much header data", slog.Int("len", len(hdr)))
			s.closeClient(c, errHeaderSize)
			return
		}
	} else {
		hdr = fmt.Appendf(c.headers[:0], responseRedirect, c.gateway)
		s.log.Debug("sending redirect", slog.String("gateway", c.gateway))
	}
	c.headerLen = len(hdr)
	c.sentLen = 0

	if err := c.send(c.headers[:c.headerLen]); err != nil {
		s.log.Error("failed to write header data", slog.String("err", err.Error()))
		s.closeClient(c, err)
		return
	}
	if c.bodyLen > 0 {
		if err := c.send(c.body[:c.bodyLen]); err != nil {
			s.log.Error("failed to write result data", slog.String("err", err.Error()))
			s.closeClient(c, err)
		}
	}
}

// send writes one buffer within the send budget and credits the written
// bytes through the send-complete handler.
func (c *connState) send(data []byte) error {
	c.link.SetWriteDeadline(time.Now().Add(sendBudget))
	n, err := c.link.Write(data)
	if err != nil {
		return err
	}
	if c.onSent != nil {
		c.onSent(n)
	}
	return nil
}

// handleSent accumulates acknowledged bytes; once header and body are
// fully out the connection is done and closed gracefully.
func (c *connState) handleSent(n int) {
	c.sentLen += n
	c.idleBy = time.Now().Add(idleTimeout)
	if c.sentLen >= c.headerLen+c.bodyLen {
		c.srv.log.Debug("all done")
		c.srv.closeClient(c, nil)
	}
}

// handlePoll fires when the idle timeout elapsed without any activity.
// This bounds the connection lifetime and counts as a normal close.
func (c *connState) handlePoll(now time.Time) {
	c.srv.log.Debug("idle timeout")
	c.srv.closeClient(c, nil)
}

// handleError reacts to an asynchronous transport error. Errors caused
// by our own close are ignored.
func (c *connState) handleError(err error) {
	if errors.Is(err, net.ErrClosed) {
		return
	}
	c.srv.closeClient(c, err)
}

// closeClient is the single routine through which every close path
// funnels. It first clears the dispatch table, then shuts the link
// down (falling back to an abort if the graceful close fails), and
// finally releases the connection slot. Safe to call more than once.
func (s *Server) closeClient(c *connState, cause error) {
	if c == nil {
		return
	}
	c.onRecv, c.onSent, c.onPoll, c.onErr = nil, nil, nil, nil
	if c.link != nil {
		if err := c.link.Close(); err != nil {
			s.log.Error("close failed, calling abort", slog.String("err", err.Error()))
			if a, ok := c.link.(interface{ Abort() }); ok {
				a.Abort()
			}
		}
		c.link = nil
	}
	if s.client == c {
		s.client = nil
	}
	if cause != nil {
		s.log.Error("connection closed", slog.String("err", cause.Error()))
	} else {
		s.log.Debug("connection closed")
	}
}
