// Copyright (c) 2023 The ad569x developers. All rights reserved.
// Project site: https://github.com/gotmc/ad569x
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ad569x

import "encoding/binary"

type command byte

// Command bytes understood by the AD569x.
const (
	commandNoOp             command = 0x00
	commandWriteInput       command = 0x10
	commandUpdateDAC        command = 0x20
	commandWriteDACAndInput command = 0x30
	commandWriteControl     command = 0x40
)

var commands = map[command]string{
	commandNoOp:             "No operation",
	commandWriteInput:       "Write input register",
	commandUpdateDAC:        "Update DAC register from input register",
	commandWriteDACAndInput: "Write input register and update DAC register",
	commandWriteControl:     "Write control register",
}

func (c command) String() string {
	return commands[c]
}

// holdBus reports whether the command's bus transaction must be left open,
// i.e. transmitted without a terminating I2C stop condition. The AD569x
// requires this for control-register writes; every other command releases
// the bus normally.
func (c command) holdBus() bool {
	return c == commandWriteControl
}

const frameSize = 3

// packFrame builds the 3-byte frame for the given command: the command byte
// followed by the 16-bit value, most significant byte first.
func packFrame(cmd command, value uint16) []byte {
	frame := make([]byte, frameSize)
	frame[0] = byte(cmd)
	binary.BigEndian.PutUint16(frame[1:], value)
	return frame
}
