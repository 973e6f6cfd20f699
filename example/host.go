//go:build !rp2350

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

package main

import (
	"bufio"
	"log/slog"
	"os"
	"strconv"

	"github.com/bfix/alarmap"
	"github.com/joho/godotenv"
)

// getenv with fallback
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// run the alarm controller on a development host (no alarm hardware;
// only the control endpoint is served).
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	// optional .env with ALARM_* settings
	godotenv.Load()

	port, err := strconv.ParseUint(getenv("ALARM_PORT", "8080"), 10, 16)
	if err != nil {
		logger.Error("invalid port", slog.String("err", err.Error()))
		os.Exit(1)
	}
	cfg := alarmap.Config{
		Hostname: getenv("ALARM_HOST", "alarm"),
		Gateway:  getenv("ALARM_GATEWAY", "192.168.4.1"),
		Port:     uint16(port),
		Logger:   logger,
	}

	dev := alarmap.InitDevice()
	lst, stat := alarmap.SetupListener(dev, cfg)
	if stat != alarmap.StatOK {
		logger.Error("bring-up failed", slog.Int("status", stat))
		os.Exit(1)
	}

	srv := alarmap.NewServer(dev, lst, cfg)

	// operator exit: 'd' + return on stdin
	go func() {
		in := bufio.NewReader(os.Stdin)
		for {
			key, err := in.ReadByte()
			if err != nil {
				return
			}
			if key == 'd' || key == 'D' {
				srv.Shutdown()
				return
			}
		}
	}()

	if err := srv.Run(); err != nil {
		logger.Error("server failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
