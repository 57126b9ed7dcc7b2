// Package capture records raw TRX DATA messages to a file so a session can
// be inspected or replayed later. Each record is a little endian uint16
// length followed by the protobuf wire encoding of the record.
package capture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
)

type Writer struct {
	mu   sync.Mutex
	dest io.Writer
}

func NewWriter(dest io.Writer) *Writer {
	return &Writer{dest: dest}
}

func (w *Writer) Write(r Record) error {
	encoded := r.marshal()
	if len(encoded) > math.MaxUint16 {
		return fmt.Errorf("capture record too large: %d bytes", len(encoded))
	}

	var msgBuf bytes.Buffer
	if err := binary.Write(&msgBuf, binary.LittleEndian, uint16(len(encoded))); err != nil {
		return err
	}
	if _, err := msgBuf.Write(encoded); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := msgBuf.WriteTo(w.dest)
	return err
}

type Reader struct {
	src io.Reader
}

func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Read returns the next record, or io.EOF when the capture ends cleanly.
func (r *Reader) Read() (Record, error) {
	var size uint16
	if err := binary.Read(r.src, binary.LittleEndian, &size); err != nil {
		return Record{}, err
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, err
	}

	return unmarshal(buf)
}
