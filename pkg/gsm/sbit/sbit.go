// Package sbit converts burst samples between the bit representations used
// across the radio stack: soft bits {-127..127}, unsigned soft bits {254..0}
// as used by the PHY interface, and hard bits {1, 0}.
package sbit

// usbitErasure marks an erased or saturated unsigned soft bit.
const usbitErasure = 0xff

// UsbitToSbitBuffer converts unsigned soft bits to soft bits. The erasure
// marker saturates to -127, the same value 254 maps to.
func UsbitToSbitBuffer(input []byte, output []int8) int {
	for i := 0; i < len(input); i++ {
		if input[i] == usbitErasure {
			output[i] = -127
			continue
		}
		output[i] = int8(127 - int(input[i]))
	}
	return len(input)
}

func UsbitToSbit(bits []byte) []int8 {
	ret := make([]int8, len(bits))
	UsbitToSbitBuffer(bits, ret)
	return ret
}

// SbitToUsbitBuffer converts soft bits to unsigned soft bits.
func SbitToUsbitBuffer(input []int8, output []byte) int {
	for i := 0; i < len(input); i++ {
		output[i] = byte(127 - int(input[i]))
	}
	return len(input)
}

func SbitToUsbit(bits []int8) []byte {
	ret := make([]byte, len(bits))
	SbitToUsbitBuffer(bits, ret)
	return ret
}

// SbitToUbitBuffer slices soft bits into hard bits, one bit per byte.
// Negative values are 1, everything else (including 0) is 0.
func SbitToUbitBuffer(input []int8, output []byte) int {
	for i := 0; i < len(input); i++ {
		if input[i] < 0 {
			output[i] = 1
		} else {
			output[i] = 0
		}
	}
	return len(input)
}

func SbitToUbit(bits []int8) []byte {
	ret := make([]byte, len(bits))
	SbitToUbitBuffer(bits, ret)
	return ret
}

// UbitToSbitBuffer expands hard bits into full confidence soft bits.
func UbitToSbitBuffer(input []byte, output []int8) int {
	for i := 0; i < len(input); i++ {
		if input[i] != 0 {
			output[i] = -127
		} else {
			output[i] = 127
		}
	}
	return len(input)
}

func UbitToSbit(bits []byte) []int8 {
	ret := make([]int8, len(bits))
	UbitToSbitBuffer(bits, ret)
	return ret
}

// FromBytes reinterprets burst bytes as two's complement soft bits.
func FromBytes(b []byte) []int8 {
	ret := make([]int8, len(b))
	for i := 0; i < len(b); i++ {
		ret[i] = int8(b[i])
	}
	return ret
}

// Bytes is the inverse of FromBytes.
func Bytes(bits []int8) []byte {
	ret := make([]byte, len(bits))
	for i := 0; i < len(bits); i++ {
		ret[i] = byte(bits[i])
	}
	return ret
}
