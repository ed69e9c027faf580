package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNeedMore signals that the buffer does not yet contain a full frame.
var ErrNeedMore = errors.New("protocol: need more data")

// InvalidError is a fatal framing error: the connection must be closed.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("protocol: invalid frame: %s", e.Reason)
}

// Encode serializes a packet to its wire representation. It always
// succeeds and computes MetaLen/BinLen from the packet's payloads.
func Encode(p Packet) []byte {
	metaLen := len(p.Meta)
	binLen := len(p.Binary)
	out := make([]byte, HeaderSize+metaLen+binLen)

	binary.BigEndian.PutUint32(out[0:4], Magic)
	binary.BigEndian.PutUint16(out[4:6], Version)
	binary.BigEndian.PutUint16(out[6:8], uint16(p.Header.Type))
	binary.BigEndian.PutUint32(out[8:12], p.Header.Flags)
	binary.BigEndian.PutUint64(out[12:20], p.Header.RequestID)
	binary.BigEndian.PutUint32(out[20:24], uint32(metaLen))
	binary.BigEndian.PutUint32(out[24:28], uint32(binLen))

	copy(out[HeaderSize:HeaderSize+metaLen], p.Meta)
	copy(out[HeaderSize+metaLen:], p.Binary)
	return out
}

// Decode peeks the header of buf. If a complete frame is present it
// returns the decoded packet and the number of bytes to consume. If
// buf is a strict prefix of a valid frame it returns ErrNeedMore. If
// the header's magic, version, or declared lengths violate the caps,
// it returns an *InvalidError — fatal to the connection.
func Decode(buf []byte) (Packet, int, error) {
	if len(buf) < HeaderSize {
		return Packet{}, 0, ErrNeedMore
	}

	h := Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   binary.BigEndian.Uint16(buf[4:6]),
		Type:      Type(binary.BigEndian.Uint16(buf[6:8])),
		Flags:     binary.BigEndian.Uint32(buf[8:12]),
		RequestID: binary.BigEndian.Uint64(buf[12:20]),
		MetaLen:   binary.BigEndian.Uint32(buf[20:24]),
		BinLen:    binary.BigEndian.Uint32(buf[24:28]),
	}

	if h.Magic != Magic {
		return Packet{}, 0, &InvalidError{Reason: "bad magic"}
	}
	if h.Version != Version {
		return Packet{}, 0, &InvalidError{Reason: "unsupported version"}
	}
	if h.MetaLen > MaxMetaSize {
		return Packet{}, 0, &InvalidError{Reason: "meta_len exceeds cap"}
	}
	if h.BinLen > MaxBinarySize {
		return Packet{}, 0, &InvalidError{Reason: "bin_len exceeds cap"}
	}

	total := HeaderSize + int(h.MetaLen) + int(h.BinLen)
	if len(buf) < total {
		return Packet{}, 0, ErrNeedMore
	}

	p := Packet{Header: h}
	if h.MetaLen > 0 {
		p.Meta = append([]byte(nil), buf[HeaderSize:HeaderSize+int(h.MetaLen)]...)
	}
	if h.BinLen > 0 {
		binStart := HeaderSize + int(h.MetaLen)
		p.Binary = append([]byte(nil), buf[binStart:binStart+int(h.BinLen)]...)
	}
	return p, total, nil
}
