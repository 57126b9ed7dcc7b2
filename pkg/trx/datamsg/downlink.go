package datamsg

import (
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog"
)

const (
	DownlinkHeaderLength = commonHeaderLength + 3

	RSSIMin = -120
	RSSIMax = -50

	// ToA is expressed in symbol periods.
	ToAMin = -10.0
	ToAMax = 10.0

	toaScale = 256.0
)

// Downlink is a burst received by the transceiver and handed up to L1.
// The zero value is an empty message ready for Decode.
type Downlink struct {
	common
	rssi int
	toa  float64
}

func NewDownlink(fn int64, tn, rssi int, toa float64, burst Burst) *Downlink {
	m := &Downlink{}
	m.SetFN(fn)
	m.SetTN(tn)
	m.SetRSSI(rssi)
	m.SetToA(toa)
	m.SetBurst(burst)
	return m
}

// RSSI returns the received signal strength in dBm and whether it is set.
func (m *Downlink) RSSI() (int, bool) {
	return m.rssi, m.has(fieldRSSI)
}

func (m *Downlink) SetRSSI(rssi int) {
	m.rssi = rssi
	m.set |= fieldRSSI
}

// ToA returns the time of arrival and whether it is known. It is never
// known on a decoded message.
func (m *Downlink) ToA() (float64, bool) {
	return m.toa, m.has(fieldToA)
}

func (m *Downlink) SetToA(toa float64) {
	m.toa = toa
	m.set |= fieldToA
}

func (m *Downlink) Validate() bool {
	return validate(&m.common, m) == nil
}

func (m *Downlink) Encode() ([]byte, error) {
	return encode(&m.common, m)
}

func (m *Downlink) Decode(buf []byte) error {
	return decode(&m.common, m, buf)
}

func (m *Downlink) headerLength() int {
	return DownlinkHeaderLength
}

func (m *Downlink) validateHeader() error {
	if !m.has(fieldRSSI) {
		return fmt.Errorf("rssi is not set")
	}
	if m.rssi < RSSIMin || m.rssi > RSSIMax {
		return fmt.Errorf("rssi %d out of range", m.rssi)
	}
	if !m.has(fieldToA) {
		return fmt.Errorf("toa is not set")
	}
	if !(m.toa >= ToAMin && m.toa <= ToAMax) {
		return fmt.Errorf("toa %f out of range", m.toa)
	}
	return nil
}

func (m *Downlink) generateHeader() []byte {
	buf := make([]byte, 3)
	buf[0] = byte(-m.rssi)

	// Q8 fixed point, rounded half up and truncated toward zero
	toa := int(m.toa*toaScale + 0.5)
	binary.BigEndian.PutUint16(buf[1:], uint16(toa))

	return buf
}

func (m *Downlink) parseHeader(hdr []byte) {
	m.SetRSSI(-int(hdr[5]))

	// ToA (hdr[6:8]) is not decoded and stays unknown
	m.toa = 0
	m.set &^= fieldToA
}

func (m *Downlink) MarshalZerologObject(e *zerolog.Event) {
	e.Int("tn", m.tn).
		Int64("fn", m.fn).
		Int("rssi", m.rssi).
		Int("burst_len", len(m.burst))
	if m.has(fieldToA) {
		e.Float64("toa", m.toa)
	}
}
