package datamsg

import (
	"fmt"

	"github.com/rs/zerolog"
)

const (
	UplinkHeaderLength = commonHeaderLength + 1

	PowerMin = 0x00
	PowerMax = 0xff
)

// Uplink is a burst sent from L1 to the transceiver for transmission.
// The zero value is an empty message ready for Decode.
type Uplink struct {
	common
	power int
}

func NewUplink(fn int64, tn, power int, burst Burst) *Uplink {
	m := &Uplink{}
	m.SetFN(fn)
	m.SetTN(tn)
	m.SetPower(power)
	m.SetBurst(burst)
	return m
}

// Power returns the transmit power level and whether it is set.
func (m *Uplink) Power() (int, bool) {
	return m.power, m.has(fieldPower)
}

func (m *Uplink) SetPower(power int) {
	m.power = power
	m.set |= fieldPower
}

func (m *Uplink) Validate() bool {
	return validate(&m.common, m) == nil
}

func (m *Uplink) Encode() ([]byte, error) {
	return encode(&m.common, m)
}

func (m *Uplink) Decode(buf []byte) error {
	return decode(&m.common, m, buf)
}

func (m *Uplink) headerLength() int {
	return UplinkHeaderLength
}

func (m *Uplink) validateHeader() error {
	if !m.has(fieldPower) {
		return fmt.Errorf("power level is not set")
	}
	if m.power < PowerMin || m.power > PowerMax {
		return fmt.Errorf("power level %d out of range", m.power)
	}
	return nil
}

func (m *Uplink) generateHeader() []byte {
	return []byte{byte(m.power)}
}

func (m *Uplink) parseHeader(hdr []byte) {
	m.SetPower(int(hdr[5]))
}

func (m *Uplink) MarshalZerologObject(e *zerolog.Event) {
	e.Int("tn", m.tn).
		Int64("fn", m.fn).
		Int("pwr", m.power).
		Int("burst_len", len(m.burst))
}
