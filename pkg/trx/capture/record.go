package capture

import (
	"fmt"
	"time"

	"github.com/norasector/faketrx/pkg/trx/datamsg"
	"google.golang.org/protobuf/encoding/protowire"
)

type Direction int

const (
	DirectionUplink Direction = iota + 1
	DirectionDownlink
)

func (d Direction) String() string {
	switch d {
	case DirectionUplink:
		return "uplink"
	case DirectionDownlink:
		return "downlink"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Record is one captured TRX DATA message as it appeared on the wire.
type Record struct {
	Direction Direction
	Timestamp time.Time
	Data      []byte
}

const (
	fieldDirection protowire.Number = 1
	fieldTimestamp protowire.Number = 2
	fieldData      protowire.Number = 3
)

func (r Record) marshal() []byte {
	b := make([]byte, 0, len(r.Data)+24)
	b = protowire.AppendTag(b, fieldDirection, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Direction))
	b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Timestamp.UnixNano()))
	b = protowire.AppendTag(b, fieldData, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Data)
	return b
}

func unmarshal(b []byte) (Record, error) {
	var r Record
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Record{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldDirection && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			r.Direction = Direction(v)
		case num == fieldTimestamp && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			r.Timestamp = time.Unix(0, int64(v)).UTC()
		case num == fieldData && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			r.Data = append([]byte(nil), v...)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return Record{}, protowire.ParseError(n)
		}
		b = b[n:]
	}
	return r, nil
}

// Uplink decodes the captured bytes as an uplink message.
func (r Record) Uplink() (*datamsg.Uplink, error) {
	if r.Direction != DirectionUplink {
		return nil, fmt.Errorf("record holds a %s message", r.Direction)
	}
	m := &datamsg.Uplink{}
	if err := m.Decode(r.Data); err != nil {
		return nil, err
	}
	return m, nil
}

// Downlink decodes the captured bytes as a downlink message.
func (r Record) Downlink() (*datamsg.Downlink, error) {
	if r.Direction != DirectionDownlink {
		return nil, fmt.Errorf("record holds a %s message", r.Direction)
	}
	m := &datamsg.Downlink{}
	if err := m.Decode(r.Data); err != nil {
		return nil, err
	}
	return m, nil
}
