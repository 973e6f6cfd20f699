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

package alarmap

import (
	"image/color"
	"log/slog"
	"machine"
	"net"
	"net/netip"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/seqs/stacks"
	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Pin assignment on the alarm board.
const (
	indicatorPin = machine.GP13 // red alarm LED
	tonePin      = machine.GP21 // piezo buzzer (PWM slice 2)
	sdaPin       = machine.GP14 // status display I2C
	sclPin       = machine.GP15
)

// Status display geometry (128x64 monochrome panel at 0x3C).
const (
	displayAddr   = 0x3C
	displayWidth  = 128
	displayLine1Y = 20
	displayLine2Y = 30
)

var displayFont = &proggy.TinySZ8pt7b

// pwmSlice is the subset of a machine PWM group the tone generator
// needs (the concrete type is unexported in machine).
type pwmSlice interface {
	Configure(machine.PWMConfig) error
	Channel(machine.Pin) (uint8, error)
	Set(channel uint8, value uint32)
	Top() uint32
}

// Raspberry Pico2 W  [RP2350]
type Pico2WDevice struct {
	ref     *cyw43439.Device // reference to radio device
	tone    pwmSlice         // buzzer PWM slice
	toneCh  uint8
	display ssd1306.Device
	line1   string // last rendered text (skip redundant redraws)
	line2   string
}

// Indicator drives the red alarm LED.
func (dev *Pico2WDevice) Indicator(on bool) {
	indicatorPin.Set(on)
}

// StatusLED drives the LED on the radio module.
func (dev *Pico2WDevice) StatusLED(on bool) {
	dev.ref.GPIOSet(0, on)
}

// ToneLevel sets the buzzer duty level within a ToneWrap-count period.
func (dev *Pico2WDevice) ToneLevel(level uint32) {
	if dev.tone == nil {
		return
	}
	if level == 0 {
		dev.tone.Set(dev.toneCh, 0)
		return
	}
	// scale from the ToneWrap period to the configured slice period
	dev.tone.Set(dev.toneCh, uint32(uint64(dev.tone.Top())*uint64(level)/ToneWrap))
}

// Render shows two text lines centered on the panel. Redrawing only
// happens when the text changed; a full I2C refresh every loop tick
// would not fit the loop's time budget.
func (dev *Pico2WDevice) Render(line1, line2 string) {
	if line1 == dev.line1 && line2 == dev.line2 {
		return
	}
	dev.line1, dev.line2 = line1, line2
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	dev.display.ClearBuffer()
	if line1 != "" {
		_, w := tinyfont.LineWidth(displayFont, line1)
		tinyfont.WriteLine(&dev.display, displayFont,
			(displayWidth-int16(w))/2, displayLine1Y, line1, white)
	}
	if line2 != "" {
		_, w := tinyfont.LineWidth(displayFont, line2)
		tinyfont.WriteLine(&dev.display, displayFont,
			(displayWidth-int16(w))/2, displayLine2Y, line2, white)
	}
	dev.display.Display()
}

// Initialize device: alarm LED, buzzer PWM (1 kHz), status display
// and the radio handle.
func InitDevice() Device {
	dev := new(Pico2WDevice)
	dev.ref = cyw43439.NewPicoWDevice()

	indicatorPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	indicatorPin.Low()

	tone := machine.PWM2
	if err := tone.Configure(machine.PWMConfig{Period: 1e9 / ToneFreqHz}); err == nil {
		if ch, err := tone.Channel(tonePin); err == nil {
			dev.tone = tone
			dev.toneCh = ch
			tone.Set(ch, 0)
		}
	}

	machine.I2C1.Configure(machine.I2CConfig{
		Frequency: 400_000,
		SDA:       sdaPin,
		SCL:       sclPin,
	})
	dev.display = ssd1306.NewI2C(machine.I2C1)
	dev.display.Configure(ssd1306.Config{
		Width:   displayWidth,
		Height:  64,
		Address: displayAddr,
	})
	dev.display.ClearDisplay()

	return dev
}

// SetupListener brings up the radio and the network stack with the
// static gateway address and returns a TCP listener on the given port.
// Hosting the wireless network itself (beacon, address assignment and
// name resolution for clients) is handled by the radio firmware and
// companion services, not by this module.
func SetupListener(dev Device, cfg Config) (lst net.Listener, state int) {
	d, ok := dev.(*Pico2WDevice)
	if !ok {
		state = StatDEV
		return
	}

	var logger *slog.Logger = slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{Level: slog.LevelDebug - 1}))
	time.Sleep(2 * time.Second)

	gw, err := netip.ParseAddr(cfg.Gateway)
	if err != nil {
		state = StatIP
		return
	}

	wificfg := cyw43439.DefaultWifiConfig()
	wificfg.Logger = logger
	logger.Info("initializing pico W device...")
	devInitTime := time.Now()
	if err = d.ref.Init(wificfg); err != nil {
		state = StatWIFI
		return
	}
	logger.Info("cyw43439:Init", slog.Duration("duration", time.Since(devInitTime)))

	for i := 0; i < 5; i++ {
		err = d.ref.JoinWPA2(cfg.SSID, cfg.Passwd)
		if err == nil {
			break
		}
		logger.Error("radio join failed", slog.String("err", err.Error()))
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		state = StatAP
		return
	}
	mac, _ := d.ref.HardwareAddr6()
	logger.Info("radio up", slog.String("mac", net.HardwareAddr(mac[:]).String()))

	stack := stacks.NewPortStack(stacks.PortStackConfig{
		MAC:             mac,
		MaxOpenPortsTCP: 1,
		MTU:             cyw43439.MTU,
		Logger:          logger,
	})
	d.ref.RecvEthHandle(stack.RecvEth)

	// Begin asynchronous packet handling.
	go nicLoop(d.ref, stack)

	// The controller owns the gateway address of its network.
	stack.SetAddr(gw)
	logger.Info("network ready", slog.String("gateway", gw.String()))

	// one client connection at a time: backlog of 1
	listener, err := stacks.NewTCPListener(stack, stacks.TCPListenerConfig{
		MaxConnections: 1,
		ConnTxBufSize:  512,
		ConnRxBufSize:  512,
	})
	if err != nil {
		state = StatLISTEN1
		return
	}
	lst = listener
	if listener.StartListening(cfg.Port) != nil {
		state = StatLISTEN2
		return
	}
	state = StatOK
	return
}

// nicLoop moves ethernet frames between the radio and the stack.
func nicLoop(dev *cyw43439.Device, stack *stacks.PortStack) {
	// Maximum number of packets to queue before sending them.
	const (
		queueSize                = 3
		maxRetriesBeforeDropping = 3
	)
	var queue [queueSize][cyw43439.MTU]byte
	var lenBuf [queueSize]int
	var retries [queueSize]int
	markSent := func(i int) {
		lenBuf[i] = 0
		retries[i] = 0
	}
	for {
		stallRx := true
		// Poll for incoming packets.
		gotPacket, err := dev.PollOne()
		if err != nil {
			println("poll error:", err.Error())
		}
		if gotPacket {
			stallRx = false
		}

		// Queue packets to be sent.
		for i := range queue {
			if retries[i] != 0 {
				continue // Packet currently queued for retransmission.
			}
			buf := queue[i][:]
			lenBuf[i], err = stack.HandleEth(buf)
			if err != nil {
				println("stack error n(should be 0)=", lenBuf[i], "err=", err.Error())
				lenBuf[i] = 0
				continue
			}
			if lenBuf[i] == 0 {
				break
			}
		}
		stallTx := lenBuf == [queueSize]int{}
		if stallTx {
			if stallRx {
				// Avoid busy waiting when both Rx and Tx stall.
				time.Sleep(51 * time.Millisecond)
			}
			continue
		}

		// Send queued packets.
		for i := range queue {
			n := lenBuf[i]
			if n <= 0 {
				continue
			}
			if err := dev.SendEth(queue[i][:n]); err != nil {
				// Queue packet for retransmission.
				retries[i]++
				if retries[i] > maxRetriesBeforeDropping {
					markSent(i)
					println("dropped outgoing packet:", err.Error())
				}
			} else {
				markSent(i)
			}
		}
	}
}
