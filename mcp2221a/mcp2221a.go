// Copyright (c) 2023 The ad569x developers. All rights reserved.
// Project site: https://github.com/gotmc/ad569x
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package mcp2221a drives the I2C module of the Microchip MCP2221A USB to
// I2C bridge, which is reached as a USB HID-class device. It implements the
// write-only bus transport the ad569x driver requires, including writes
// that leave the bus transaction open (no stop condition).
//
// Datasheet: http://ww1.microchip.com/downloads/en/devicedoc/20005565b.pdf
package mcp2221a

import (
	"fmt"
	"sync"
	"time"

	usb "github.com/karalabe/hid"
)

// VID and PID are the USB vendor and product identifiers of the MCP2221A.
const (
	VID = 0x04D8
	PID = 0x00DD
)

// DefaultBaudRate is the standard-mode I2C clock rate.
const DefaultBaudRate = 100000

const (
	msgSize      = 64       // all command and response messages are 64 bytes
	clockHz      = 12000000 // internal clock of the MCP2221A
	maxFrameSize = 60       // payload bytes that fit in one write command

	statusRetries = 50
	retryDelay    = 300 * time.Microsecond
)

type command byte

const (
	commandStatusParams   command = 0x10
	commandI2CWrite       command = 0x90
	commandI2CWriteNoStop command = 0x94
	commandReset          command = 0x70
)

var commands = map[command]string{
	commandStatusParams:   "Read status/set parameters",
	commandI2CWrite:       "I2C write data",
	commandI2CWriteNoStop: "I2C write data without stop condition",
	commandReset:          "Reset chip",
}

func (c command) String() string {
	return commands[c]
}

// I2C engine states reported in byte 8 of the status response.
const (
	stateIdle            byte = 0x00
	stateStartTimeout    byte = 0x12
	stateRepStartTimeout byte = 0x17
	stateAddrTimeout     byte = 0x23
	stateAddrNACK        byte = 0x25
	statePartialData     byte = 0x41
	stateWriteTimeout    byte = 0x44
	stateWritingNoStop   byte = 0x45
	stateStopTimeout     byte = 0x62
)

// stateTimedOut reports whether the I2C engine state is one of the bus
// timeout conditions.
func stateTimedOut(state byte) bool {
	switch state {
	case stateStartTimeout, stateRepStartTimeout, stateAddrTimeout,
		stateWriteTimeout, stateStopTimeout:
		return true
	}
	return false
}

// engineStatus holds the I2C fields parsed from a status response.
type engineStatus struct {
	cancelled byte
	speedSet  byte
	state     byte
	requested uint16
	sent      uint16
	sclLine   byte
	sdaLine   byte
}

// parseStatus extracts the I2C engine fields from a 64-byte status
// response message.
func parseStatus(msg []byte) *engineStatus {
	if len(msg) < msgSize {
		return nil
	}
	return &engineStatus{
		cancelled: msg[2],
		speedSet:  msg[3],
		state:     msg[8],
		requested: uint16(msg[10])<<8 | uint16(msg[9]),
		sent:      uint16(msg[12])<<8 | uint16(msg[11]),
		sclLine:   msg[22],
		sdaLine:   msg[23],
	}
}

// packI2CWrite builds the 64-byte command message for an I2C write of p to
// the 7-bit address addr. The transfer length occupies bytes 1-2 (least
// significant byte first) and the address is shifted up one bit for the
// R/W flag.
func packI2CWrite(addr byte, p []byte) []byte {
	msg := make([]byte, msgSize)
	msg[1] = byte(len(p) & 0xFF)
	msg[2] = byte(len(p) >> 8)
	msg[3] = addr << 1
	copy(msg[4:], p)
	return msg
}

// Bridge models the I2C module of one MCP2221A. A mutex serializes bus
// transactions so one Bridge holds the bus exclusively from the start of a
// frame until the engine reports it done.
type Bridge struct {
	Device *usb.Device

	mux sync.Mutex
}

// Open claims the first MCP2221A found on the USB and returns a Bridge for
// its I2C module. Call Close when finished.
func Open() (*Bridge, error) {
	info := usb.Enumerate(VID, PID)
	if len(info) == 0 {
		return nil, fmt.Errorf("no MCP2221A found (VID 0x%04X, PID 0x%04X)", VID, PID)
	}
	dev, err := info[0].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening MCP2221A: %s", err)
	}
	return &Bridge{Device: dev}, nil
}

// Close closes the USB HID connection.
func (b *Bridge) Close() error {
	return b.Device.Close()
}

// exchange sends one 64-byte command message and returns the 64-byte
// response. The command byte is placed into the message automatically.
func (b *Bridge) exchange(cmd command, msg []byte) ([]byte, error) {
	msg[0] = byte(cmd)
	if _, err := b.Device.Write(msg); err != nil {
		return nil, fmt.Errorf("error sending command '%s' to bridge: %s", cmd, err)
	}
	rsp := make([]byte, msgSize)
	n, err := b.Device.Read(rsp)
	if err != nil {
		return nil, fmt.Errorf("error reading response to '%s': %s", cmd, err)
	}
	if n < msgSize {
		return rsp, fmt.Errorf("short response to '%s': %d of %d bytes", cmd, n, msgSize)
	}
	if rsp[0] != byte(cmd) || rsp[1] != 0x00 {
		return rsp, fmt.Errorf("command '%s' failed (status 0x%02X)", cmd, rsp[1])
	}
	return rsp, nil
}

// status reads the bridge status and returns the parsed I2C engine fields.
func (b *Bridge) status() (*engineStatus, error) {
	rsp, err := b.exchange(commandStatusParams, make([]byte, msgSize))
	if err != nil {
		return nil, err
	}
	return parseStatus(rsp), nil
}

// cancel aborts any I2C transfer currently in progress.
func (b *Bridge) cancel() error {
	msg := make([]byte, msgSize)
	msg[2] = 0x10
	rsp, err := b.exchange(commandStatusParams, msg)
	if err != nil {
		return err
	}
	if rsp[2] == 0x10 {
		// the engine needs a moment after a marked cancellation
		time.Sleep(retryDelay)
	}
	return nil
}

// SetBaudRate configures the I2C clock divider for the given baud rate.
// Rates from clockHz/258 to clockHz/3 are accepted; if in doubt, use
// DefaultBaudRate.
func (b *Bridge) SetBaudRate(baud uint32) error {
	if baud > clockHz/3 || baud < clockHz/258 {
		return fmt.Errorf("invalid baud rate: %d", baud)
	}
	msg := make([]byte, msgSize)
	msg[3] = 0x20
	msg[4] = byte(clockHz/baud - 3)
	rsp, err := b.exchange(commandStatusParams, msg)
	if err != nil {
		return err
	}
	if rsp[3] == 0x21 {
		return fmt.Errorf("error setting baud rate: transfer in progress")
	}
	return nil
}

// WriteTo transmits p to the 7-bit device address addr as a single I2C
// transaction. With stop false the transaction is left open on the bus
// instead of being terminated with a stop condition. The frame must fit in
// one bridge command (60 bytes). WriteTo satisfies ad569x.Buser.
func (b *Bridge) WriteTo(addr byte, p []byte, stop bool) error {
	if len(p) == 0 {
		return nil
	}
	if len(p) > maxFrameSize {
		return fmt.Errorf("frame too long: %d bytes (max %d)", len(p), maxFrameSize)
	}

	b.mux.Lock()
	defer b.mux.Unlock()

	stat, err := b.status()
	if err != nil {
		return err
	}
	if stat.state != stateIdle {
		if stat.state == stateAddrNACK {
			return fmt.Errorf("I2C NACK from address 0x%02X", addr)
		}
		if err := b.cancel(); err != nil {
			return err
		}
	}

	cmd := commandI2CWrite
	if !stop {
		cmd = commandI2CWriteNoStop
	}
	if _, err := b.exchange(cmd, packI2CWrite(addr, p)); err != nil {
		return err
	}

	// wait for the engine to finish the transaction
	for retry := 0; retry < statusRetries; retry++ {
		stat, err := b.status()
		if err != nil {
			return err
		}
		switch {
		case stat.state == stateIdle:
			return nil
		case cmd == commandI2CWriteNoStop && stat.state == stateWritingNoStop:
			// held-open transaction, frame fully clocked out
			return nil
		case stat.state == stateAddrNACK:
			return fmt.Errorf("I2C NACK from address 0x%02X", addr)
		case stateTimedOut(stat.state):
			return fmt.Errorf("I2C write timed out (state 0x%02X)", stat.state)
		}
		time.Sleep(retryDelay)
	}
	return fmt.Errorf("I2C engine busy after write to 0x%02X", addr)
}
