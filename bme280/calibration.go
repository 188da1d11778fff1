// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bme280

import (
	"fmt"
)

const (
	// CalibrationALen is the size of the region at 0x88~0xA1.
	CalibrationALen = int(addrCalAEnd-addrCalAStart) + 1
	// CalibrationBLen is the size of the region at 0xE1~0xE7.
	CalibrationBLen = int(addrCalBEnd-addrCalBStart) + 1
)

// Calibration holds the per-device constants programmed at the factory.
//
// The zero value is not usable; obtain one from DecodeCalibration.
type Calibration struct {
	t1     uint16
	t2, t3 int16

	p1                             uint16
	p2, p3, p4, p5, p6, p7, p8, p9 int16

	h1, h3     uint8
	h2, h4, h5 int16
	h6         int8
}

// DecodeCalibration parses calibration data from both buffers.
//
// a covers 0x88 through 0xA1, b covers 0xE1 through 0xE7.
func DecodeCalibration(a, b []byte) (Calibration, error) {
	if len(a) != CalibrationALen || len(b) != CalibrationBLen {
		return Calibration{}, fmt.Errorf("%w: got %d and %d bytes, want %d and %d",
			ErrCalibrationLength, len(a), len(b), CalibrationALen, CalibrationBLen)
	}
	if blank(a) || blank(b) {
		return Calibration{}, ErrInvalidCalibration
	}

	getInt16 := func(lsb, msb byte) int16 {
		return int16(lsb) | (int16(msb) << 8)
	}

	getUInt16 := func(lsb, msb byte) uint16 {
		return uint16(lsb) | (uint16(msb) << 8)
	}

	var c Calibration
	c.t1 = getUInt16(a[0], a[1])
	c.t2 = getInt16(a[2], a[3])
	c.t3 = getInt16(a[4], a[5])

	c.p1 = getUInt16(a[6], a[7])
	c.p2 = getInt16(a[8], a[9])
	c.p3 = getInt16(a[10], a[11])
	c.p4 = getInt16(a[12], a[13])
	c.p5 = getInt16(a[14], a[15])
	c.p6 = getInt16(a[16], a[17])
	c.p7 = getInt16(a[18], a[19])
	c.p8 = getInt16(a[20], a[21])
	c.p9 = getInt16(a[22], a[23])

	// a[24] (0xA0) is reserved.
	c.h1 = a[25]
	c.h2 = getInt16(b[0], b[1])
	c.h3 = b[2]
	// 0xE5 is shared: bits 3:0 belong to H4, bits 7:4 to H5.
	c.h4 = signExtend12(uint16(b[3])<<4 | uint16(b[4]&0x0F))
	c.h5 = signExtend12(uint16(b[5])<<4 | uint16(b[4]>>4))
	c.h6 = int8(b[6])

	// Both are used as multipliers with no offset; a zero turns every reading
	// into a constant.
	if c.t1 == 0 || c.p1 == 0 {
		return Calibration{}, ErrInvalidCalibration
	}
	return c, nil
}

func (c *Calibration) String() string {
	return fmt.Sprintf("T{%d %d %d} P{%d %d %d %d %d %d %d %d %d} H{%d %d %d %d %d %d}",
		c.t1, c.t2, c.t3,
		c.p1, c.p2, c.p3, c.p4, c.p5, c.p6, c.p7, c.p8, c.p9,
		c.h1, c.h2, c.h3, c.h4, c.h5, c.h6)
}

// signExtend12 interprets the low 12 bits of v as two's complement.
func signExtend12(v uint16) int16 {
	return int16(v<<4) >> 4
}

// blank reports whether b holds a single repeated 0x00 or 0xFF, which is what
// a floating or absent device returns.
func blank(b []byte) bool {
	if b[0] != 0x00 && b[0] != 0xFF {
		return false
	}
	for _, v := range b[1:] {
		if v != b[0] {
			return false
		}
	}
	return true
}
