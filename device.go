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

// Device is a hardware abstraction.
// All methods are fire-and-forget: the alarm scheduler calls them once
// per loop tick and never waits for a result.
type Device interface {
	// Indicator turns the alarm indicator output on or off.
	Indicator(on bool)

	// StatusLED on or off (if applicable). Used for bring-up and
	// fault blink codes, not for the alarm itself.
	StatusLED(on bool)

	// ToneLevel sets the tone generator compare level within a
	// ToneWrap-count period. 0 silences the output.
	ToneLevel(level uint32)

	// Render shows up to two short text lines centered on the status
	// display (if applicable). Empty lines are skipped.
	Render(line1, line2 string)
}
