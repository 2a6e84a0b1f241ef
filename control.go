// Copyright (c) 2023 The ad569x developers. All rights reserved.
// Project site: https://github.com/gotmc/ad569x
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ad569x

// OperatingMode is the output mode of the DAC as set in the control
// register. Modes other than NormalMode tie the output to ground through
// the named impedance or tristate it.
type OperatingMode byte

// Operating modes
const (
	NormalMode          OperatingMode = 0x00
	Output1KImpedance   OperatingMode = 0x01
	Output100KImpedance OperatingMode = 0x02
	OutputTristate      OperatingMode = 0x03
)

var operatingModes = map[OperatingMode]string{
	NormalMode:          "Normal mode",
	Output1KImpedance:   "Output 1 kOhm to ground",
	Output100KImpedance: "Output 100 kOhm to ground",
	OutputTristate:      "Output tristate",
}

func (m OperatingMode) String() string {
	return operatingModes[m]
}

// Control register bit positions. The 16-bit control word carries the
// operating mode in D14-D13, the reference-disable flag in D12, and the
// gain flag in D11. All other bits are zero.
const (
	modeShift       = 13
	refDisableShift = 12
	gainShift       = 11
)

// resetControlWord is the reserved control word that soft-resets the chip
// instead of configuring it.
const resetControlWord uint16 = 0x8000

// PackControlWord packs an operating mode, reference setting, and gain
// setting into the 16-bit control word. Note the chip's flag is a
// reference *disable*, so bit D12 is set when enableRef is false. With
// gain2x true the output range is doubled to 2x the reference voltage.
func PackControlWord(mode OperatingMode, enableRef, gain2x bool) uint16 {
	word := uint16(mode&0x03) << modeShift
	if !enableRef {
		word |= 1 << refDisableShift
	}
	if gain2x {
		word |= 1 << gainShift
	}
	return word
}

// UnpackControlWord unpacks a 16-bit control word into its operating mode,
// reference setting, and gain setting. It is the exact inverse of
// PackControlWord.
func UnpackControlWord(word uint16) (OperatingMode, bool, bool) {
	mode := OperatingMode((word >> modeShift) & 0x03)
	enableRef := word&(1<<refDisableShift) == 0
	gain2x := word&(1<<gainShift) != 0
	return mode, enableRef, gain2x
}
