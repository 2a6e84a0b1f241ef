// Copyright (c) 2023 The ad569x developers. All rights reserved.
// Project site: https://github.com/gotmc/ad569x
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package ad569x controls the Analog Devices AD5691R/AD5692R/AD5693 and
// AD5693R single-channel DACs over I2C. Every chip operation is a single
// 3-byte bus transaction: a command byte followed by a 16-bit value.
// Control-register writes are transmitted without a terminating stop
// condition, as the chip requires.
package ad569x

import "fmt"

// DefaultAddress is the factory-default 7-bit I2C address of the AD569x.
const DefaultAddress byte = 0x4C

// Buser defines the interface required to carry AD569x frames on the I2C
// bus. WriteTo transmits p to the 7-bit device address addr as a single
// transaction. With stop false the transaction is left open on the bus (no
// I2C stop condition) instead of being released.
type Buser interface {
	WriteTo(addr byte, p []byte, stop bool) error
}

// AD569x models one AD569x DAC on an I2C bus. The bus handle is externally
// owned; the driver itself holds no state beyond the device address, so
// the chip's input, DAC, and control registers are the only state machine.
// Concurrent use of one AD569x must be serialized by the caller.
type AD569x struct {
	Address byte
	bus     Buser
}

// InitializationError reports that the reset and configure sequence run by
// NewAD569x failed, i.e. the device never became usable.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("ad569x: initialization failed: %s", e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// NewAD569x creates an AD569x on the given bus at the given 7-bit address
// (use DefaultAddress for an unmodified board). The chip is soft-reset and
// then configured for normal mode with the internal reference enabled and
// 1x gain. If either step fails no device is returned and the error is an
// *InitializationError wrapping the underlying bus failure.
func NewAD569x(bus Buser, addr byte) (*AD569x, error) {
	dac := &AD569x{
		Address: addr,
		bus:     bus,
	}
	if err := dac.Reset(); err != nil {
		return nil, &InitializationError{Err: err}
	}
	if err := dac.SetMode(NormalMode, true, false); err != nil {
		return nil, &InitializationError{Err: err}
	}
	return dac, nil
}

// sendCommand transmits one command frame to the device and performs
// exactly one bus write. Commands that must hold the bus open are sent
// without a stop condition.
func (dac *AD569x) sendCommand(cmd command, value uint16) error {
	frame := packFrame(cmd, value)
	if err := dac.bus.WriteTo(dac.Address, frame, !cmd.holdBus()); err != nil {
		return fmt.Errorf("error sending command '%s' to device: %s", cmd, err)
	}
	return nil
}

// Reset soft-resets the chip by writing the reserved value 0x8000 to the
// control register. The input, DAC, and control registers return to their
// defaults and the output goes to zero scale.
func (dac *AD569x) Reset() error {
	return dac.sendCommand(commandWriteControl, resetControlWord)
}

// SetMode writes the control register with the given operating mode,
// reference setting, and gain setting. The DAC value is unaffected. The
// control register cannot be read back, so mode is a one-way setting.
func (dac *AD569x) SetMode(mode OperatingMode, enableRef, gain2x bool) error {
	return dac.sendCommand(commandWriteControl, PackControlWord(mode, enableRef, gain2x))
}

// WriteDAC writes a 16-bit value to the input register only. The analog
// output does not change until UpdateDAC is called.
func (dac *AD569x) WriteDAC(value uint16) error {
	return dac.sendCommand(commandWriteInput, value)
}

// UpdateDAC copies the input register into the DAC register, updating the
// analog output.
func (dac *AD569x) UpdateDAC() error {
	return dac.sendCommand(commandUpdateDAC, 0x0000)
}

// WriteUpdateDAC writes a 16-bit value to the input register and updates
// the DAC register in a single chip operation.
func (dac *AD569x) WriteUpdateDAC(value uint16) error {
	return dac.sendCommand(commandWriteDACAndInput, value)
}
