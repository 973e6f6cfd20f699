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
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"
)

// Loop timing: all pending network events are serviced, the alarm
// scheduler advances once, then the loop yields briefly. Reads are
// bounded by a short poll budget so nothing in the loop can block.
const (
	loopInterval   = 10 * time.Millisecond
	recvPollBudget = 2 * time.Millisecond
)

// Config for the alarm server.
type Config struct {
	// SSID and passphrase of the hosted wireless network.
	SSID   string
	Passwd string
	// Hostname announced on the network.
	Hostname string
	// Gateway address the controller assigns itself; also the address
	// embedded in redirect responses.
	Gateway string
	// TCP port of the control endpoint.
	Port uint16
	// Logger used by the server (optional).
	Logger *slog.Logger
}

// Server is the process-wide alarm state shared by the connection
// handling and the alarm scheduler. Everything runs on the loop
// goroutine, so no locking is needed; only the shutdown flag is
// written from outside.
type Server struct {
	dev      Device
	log      *slog.Logger
	gateway  string
	lst      net.Listener
	client   *connState
	acceptCh chan net.Conn
	rx       [512]byte

	// alarm state owned by the scheduler (timing fields) and the
	// content generator (alarmActive)
	alarmActive bool
	ledOn       bool
	nextToggle  time.Time
	beepActive  bool
	beepEnd     time.Time

	shutdownRequested atomic.Bool
}

// NewServer creates the alarm server on a bound listener.
// The alarm starts inactive.
func NewServer(dev Device, lst net.Listener, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		dev:      dev,
		log:      logger,
		gateway:  cfg.Gateway,
		lst:      lst,
		acceptCh: make(chan net.Conn, 1),
	}
}

// Shutdown requests a clean exit of the run loop. Triggered by the
// operator; safe to call from any goroutine.
func (s *Server) Shutdown() {
	s.shutdownRequested.Store(true)
}

// Run drives the cooperative loop until shutdown is requested: service
// pending network events, advance the alarm scheduler once, yield.
// On exit the client connection and the listener are closed and all
// alarm outputs are forced off.
func (s *Server) Run() error {
	s.log.Info("starting server", slog.String("gateway", s.gateway))
	go s.acceptPump()

	s.nextToggle = time.Now()
	for !s.shutdownRequested.Load() {
		s.serviceNetwork(time.Now())
		s.updateAlarm(time.Now())
		time.Sleep(loopInterval)
	}

	s.closeClient(s.client, nil)
	err := s.lst.Close()
	s.dev.Indicator(false)
	s.dev.ToneLevel(0)
	s.log.Info("server stopped")
	return err
}

// acceptPump feeds accepted connections into the loop. The channel is
// sized like the listen backlog (1), so at most one connection waits
// while another is being served.
func (s *Server) acceptPump() {
	for {
		link, err := s.lst.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Error("accept failed", slog.String("err", err.Error()))
			}
			return
		}
		s.acceptCh <- link
	}
}

// serviceNetwork dispatches all pending network events for this
// iteration: a newly accepted connection first, then the in-flight
// connection's timeout and receive events. Handlers run to completion
// before the next event is considered.
func (s *Server) serviceNetwork(now time.Time) {
	select {
	case link := <-s.acceptCh:
		s.acceptClient(link, now)
	default:
	}

	c := s.client
	if c == nil {
		return
	}
	if c.onPoll != nil && now.After(c.idleBy) {
		c.onPoll(now)
		return
	}
	if c.onRecv == nil {
		return
	}

	// bounded read; a missed deadline just means no data is pending
	c.link.SetReadDeadline(now.Add(recvPollBudget))
	n, err := c.link.Read(s.rx[:])
	switch {
	case n > 0:
		c.idleBy = now.Add(idleTimeout)
		c.onRecv(s.rx[:n])
	case errors.Is(err, os.ErrDeadlineExceeded):
		// nothing received within the poll budget
	case errors.Is(err, io.EOF):
		s.log.Debug("connection closed by peer")
		s.closeClient(c, nil)
	case err != nil:
		if c.onErr != nil {
			c.onErr(err)
		}
	}
}
