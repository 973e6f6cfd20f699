//go:build rp2350

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
	"machine"
	"strconv"
	"time"

	"github.com/bfix/alarmap"
)

// Network credentials and control port (set via linker flags)
var (
	SSID    string
	Passwd  string
	Host    string
	Gateway string = "192.168.4.1"
	Port    string = "80"
)

// run the alarm controller
func main() {
	// access device
	dev := alarmap.InitDevice()
	state := alarmap.NewStatus(dev)
	defer state.Trap(30 * time.Second)
	state.Set(alarmap.StatOK, 0)
	dev.Render("Starting", "system...")

	port, err := strconv.ParseUint(Port, 10, 16)
	if err != nil {
		state.Set(alarmap.StatPORT, 0)
		return
	}
	cfg := alarmap.Config{
		SSID:     SSID,
		Passwd:   Passwd,
		Hostname: Host,
		Gateway:  Gateway,
		Port:     uint16(port),
	}

	// bring up radio, network stack and listener
	lst, stat := alarmap.SetupListener(dev, cfg)
	if stat != alarmap.StatOK {
		state.Set(stat, 0)
		return
	}

	srv := alarmap.NewServer(dev, lst, cfg)

	// operator exit: 'd' on the serial console
	go func() {
		for {
			if machine.Serial.Buffered() > 0 {
				if key, err := machine.Serial.ReadByte(); err == nil && (key == 'd' || key == 'D') {
					srv.Shutdown()
					return
				}
			}
			time.Sleep(50 * time.Millisecond)
		}
	}()

	if err := srv.Run(); err != nil {
		state.Set(alarmap.StatSRV, 0)
	}
}
