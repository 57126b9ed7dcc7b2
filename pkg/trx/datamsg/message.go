// Package datamsg implements the TRX DATA interface messages exchanged
// between L1 and a transceiver: Uplink (L1 -> TRX) carries a burst to
// transmit with its power level, Downlink (TRX -> L1) carries a received
// burst with RSSI and time of arrival.
package datamsg

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/norasector/faketrx/pkg/gsm"
)

// commonHeaderLength covers the timeslot and frame number shared by every
// message kind.
const commonHeaderLength = 1 + fnLength

const fnLength = 4

var (
	// ErrValidation is returned by Encode when a field is unset or out of range.
	ErrValidation = errors.New("message incomplete or incorrect")
	// ErrLength is returned by Decode when the buffer cannot hold a header and a burst.
	ErrLength = errors.New("message is too short")
)

// Message is a TRX DATA message that can be put on and taken off the wire.
type Message interface {
	Validate() bool
	Encode() ([]byte, error)
	Decode(buf []byte) error
}

// header is the message specific part between the frame number and the burst.
// Only Uplink and Downlink implement it.
type header interface {
	headerLength() int
	generateHeader() []byte
	parseHeader(hdr []byte)
	validateHeader() error
}

type field uint8

const (
	fieldTN field = 1 << iota
	fieldFN
	fieldBurst
	fieldPower
	fieldRSSI
	fieldToA
)

// Burst holds one soft decision per byte.
type Burst []byte

// NewBurst checks that b has one of the permitted burst lengths.
func NewBurst(b []byte) (Burst, error) {
	if !gsm.ValidBurstLength(len(b)) {
		return nil, fmt.Errorf("%w: burst length %d", ErrValidation, len(b))
	}
	return Burst(b), nil
}

// common holds the fields every message kind carries.
type common struct {
	tn    int
	fn    int64
	burst Burst
	set   field
}

func (c *common) has(f field) bool {
	return c.set&f != 0
}

// TN returns the timeslot index and whether it is set.
func (c *common) TN() (int, bool) {
	return c.tn, c.has(fieldTN)
}

func (c *common) SetTN(tn int) {
	c.tn = tn
	c.set |= fieldTN
}

// FN returns the TDMA frame number and whether it is set.
func (c *common) FN() (int64, bool) {
	return c.fn, c.has(fieldFN)
}

func (c *common) SetFN(fn int64) {
	c.fn = fn
	c.set |= fieldFN
}

// Burst returns the burst, nil when unset.
func (c *common) Burst() Burst {
	return c.burst
}

func (c *common) SetBurst(b Burst) {
	c.burst = b
	if b == nil {
		c.set &^= fieldBurst
		return
	}
	c.set |= fieldBurst
}

func (c *common) validate() error {
	if !c.has(fieldBurst) {
		return errors.New("burst is not set")
	}
	if !gsm.ValidBurstLength(len(c.burst)) {
		return fmt.Errorf("burst length %d", len(c.burst))
	}
	if !c.has(fieldFN) {
		return errors.New("frame number is not set")
	}
	if !gsm.ValidFrameNumber(c.fn) {
		return fmt.Errorf("frame number %d out of range", c.fn)
	}
	if !c.has(fieldTN) {
		return errors.New("timeslot is not set")
	}
	if !gsm.ValidTimeslot(c.tn) {
		return fmt.Errorf("timeslot %d out of range", c.tn)
	}
	return nil
}

// GenerateFN encodes a frame number as 4 big endian bytes.
func GenerateFN(fn uint32) []byte {
	buf := make([]byte, fnLength)
	binary.BigEndian.PutUint32(buf, fn)
	return buf
}

// ParseFN decodes the first 4 bytes of buf as a big endian frame number.
func ParseFN(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[:fnLength])
}

func validate(c *common, h header) error {
	if err := c.validate(); err != nil {
		return err
	}
	return h.validateHeader()
}

func encode(c *common, h header) ([]byte, error) {
	if err := validate(c, h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	buf := make([]byte, 0, h.headerLength()+len(c.burst))
	buf = append(buf, byte(c.tn))
	buf = append(buf, GenerateFN(uint32(c.fn))...)
	buf = append(buf, h.generateHeader()...)
	buf = append(buf, c.burst...)

	return buf, nil
}

// decode fills c and h from buf. The burst length is not checked against
// the permitted lengths here, only against the minimum.
func decode(c *common, h header, buf []byte) error {
	hdrLen := h.headerLength()
	if len(buf) < hdrLen+gsm.BurstLength {
		return fmt.Errorf("%w: got %d bytes, need at least %d", ErrLength, len(buf), hdrLen+gsm.BurstLength)
	}

	c.SetTN(int(buf[0]))
	c.SetFN(int64(ParseFN(buf[1:])))

	h.parseHeader(buf[:hdrLen])

	burst := make(Burst, len(buf)-hdrLen)
	copy(burst, buf[hdrLen:])
	c.SetBurst(burst)

	return nil
}
