package gsm

const (
	// BurstLength is the number of symbols in a normal burst.
	BurstLength = 148
	// EDGEBurstLength is the number of symbols in an 8-PSK (EDGE) burst.
	EDGEBurstLength = 3 * BurstLength

	// Hyperframe is the frame number wraparound point.
	Hyperframe = 2048 * 26 * 51

	// TimeslotCount is the number of timeslots in a TDMA frame.
	TimeslotCount = 8
)

// ValidBurstLength reports whether n is one of the permitted burst lengths.
func ValidBurstLength(n int) bool {
	return n == BurstLength || n == EDGEBurstLength
}

// ValidFrameNumber reports whether fn lies in [0, Hyperframe].
func ValidFrameNumber(fn int64) bool {
	return fn >= 0 && fn <= Hyperframe
}

// ValidTimeslot reports whether tn lies in [0, TimeslotCount).
func ValidTimeslot(tn int) bool {
	return tn >= 0 && tn < TimeslotCount
}
