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

import "time"

// Tone generator timing. The period counter wraps at ToneWrap, derived
// from a 125 MHz system clock, a 1 kHz target frequency and a fixed
// clock divider of 2.
const (
	ToneFreqHz   = 1000
	ToneClockDiv = 2
	ToneWrap     = 125_000_000 / (ToneFreqHz * ToneClockDiv) // = 62500
)

// Alarm cadence: the indicator flips every toggleInterval; each "on"
// phase starts a tone pulse of beepDuration. The pulse-end check is
// independent of the toggle check so a pulse can never outlive its
// deadline even if the intervals change.
const (
	toggleInterval = 100 * time.Millisecond
	beepDuration   = 200 * time.Millisecond
)

// Display text for the two alarm states.
const (
	displayAlarm1 = "ALARM"
	displayAlarm2 = "EVACUATE"
	displayIdle1  = "System"
	displayIdle2  = "idle"
)

// updateAlarm advances the indicator/tone timers purely from wall-clock
// comparisons. Called once per loop iteration; never blocks.
func (s *Server) updateAlarm(now time.Time) {
	if !s.alarmActive {
		// force all outputs off
		s.ledOn = false
		s.dev.Indicator(false)
		s.dev.ToneLevel(0)
		s.beepActive = false
		s.dev.Render(displayIdle1, displayIdle2)
		return
	}
	// flip indicator on deadline; an "on" phase starts a tone pulse
	// at 50% duty cycle.
	if !now.Before(s.nextToggle) {
		s.ledOn = !s.ledOn
		s.dev.Indicator(s.ledOn)
		if s.ledOn {
			s.dev.ToneLevel(ToneWrap / 2)
			s.beepActive = true
			s.beepEnd = now.Add(beepDuration)
		} else {
			s.dev.ToneLevel(0)
			s.beepActive = false
		}
		s.nextToggle = now.Add(toggleInterval)
	}
	// end a running pulse on its own deadline
	if s.beepActive && !now.Before(s.beepEnd) {
		s.dev.ToneLevel(0)
		s.beepActive = false
	}
	s.dev.Render(displayAlarm1, displayAlarm2)
}
