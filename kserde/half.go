package kserde

import "math"

// Float32ToBFloat16 converts to bfloat16, rounding to nearest even.
func Float32ToBFloat16(value float32) uint16 {
	bits := math.Float32bits(value)
	if bits&0x7F800000 == 0x7F800000 && bits&0x7FFFFF != 0 {
		// Keep NaNs quiet instead of letting rounding turn them into Inf.
		return uint16(bits>>16) | 0x40
	}
	bits += 0x7FFF + (bits>>16)&1
	return uint16(bits >> 16)
}

// BFloat16ToFloat32 widens a bfloat16. The conversion is exact.
func BFloat16ToFloat32(value uint16) float32 {
	return math.Float32frombits(uint32(value) << 16)
}

// Float16ToFloat32 widens an IEEE 754 half. The conversion is exact.
func Float16ToFloat32(value uint16) float32 {
	sign := uint32(value>>15) & 0x1
	exponent := uint32(value>>10) & 0x1F
	mantissa := uint32(value & 0x3FF)

	var bits uint32
	switch {
	case exponent == 0 && mantissa == 0:
		bits = sign << 31
	case exponent == 0:
		// Subnormal: normalize the mantissa.
		e := uint32(127 - 15 + 1)
		for mantissa&0x400 == 0 {
			mantissa <<= 1
			e--
		}
		mantissa &= 0x3FF
		bits = (sign << 31) | (e << 23) | (mantissa << 13)
	case exponent == 0x1F:
		bits = (sign << 31) | 0x7F800000 | (mantissa << 13)
	default:
		exponent += 127 - 15
		bits = (sign << 31) | (exponent << 23) | (mantissa << 13)
	}

	return math.Float32frombits(bits)
}

// Float32ToFloat16 converts to an IEEE 754 half. Values too large become
// infinity, values too small flush to signed zero; the mantissa is
// truncated.
func Float32ToFloat16(value float32) uint16 {
	bits := math.Float32bits(value)

	sign := uint16((bits >> 31) & 0x1)
	exponent := int((bits >> 23) & 0xFF)
	mantissa := bits & 0x7FFFFF

	var half uint16
	switch {
	case exponent == 0xFF:
		half = (sign << 15) | 0x7C00
		if mantissa != 0 {
			half |= 0x200 | uint16(mantissa>>13)
		}
	case exponent > 142:
		half = (sign << 15) | 0x7C00
	case exponent < 103:
		half = sign << 15
	case exponent < 113:
		mantissa |= 0x800000
		shift := uint(113 - exponent)
		half = (sign << 15) | uint16(mantissa>>(shift+13))
	default:
		half = (sign << 15) | uint16(exponent-112)<<10 | uint16(mantissa>>13)
	}

	return half
}
