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

package alarmap

import (
	"context"
	"fmt"
	"net"
)

// LinuxDevice (for testing purposes): no alarm hardware, no display.
type LinuxDevice struct{}

// Indicator on or off (not applicable)
func (dev *LinuxDevice) Indicator(on bool) {}

// StatusLED on or off (not applicable)
func (dev *LinuxDevice) StatusLED(on bool) {}

// ToneLevel is ignored (not applicable)
func (dev *LinuxDevice) ToneLevel(level uint32) {}

// Render is ignored (not applicable)
func (dev *LinuxDevice) Render(line1, line2 string) {}

// Initialize device
func InitDevice() Device {
	return new(LinuxDevice)
}

// SetupListener returns a TCP listener on the configured port.
// No radio is involved on this platform.
func SetupListener(dev Device, cfg Config) (lst net.Listener, state int) {
	lc := new(net.ListenConfig)
	lis, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, StatLISTEN1
	}
	return lis, StatOK
}
