// Package routeros implements the MikroTik RouterOS binary API: the
// length-prefixed word/sentence wire format and a client for login,
// command execution and reachability probing.
package routeros

import "encoding/binary"

// RouterOS word length prefix:
//
//	< 0x80        1 byte
//	< 0x4000      2 bytes, top bits 10
//	< 0x200000    3 bytes, top bits 110
//	< 0x10000000  4 bytes, top bits 1110
//	otherwise     0xF0 marker + 4-byte big-endian length
//
// A sentence is a run of words terminated by a zero-length word.

// EncodeLength returns the wire form of a word length.
func EncodeLength(n int) []byte {
	switch {
	case n < 0x80:
		return []byte{byte(n)}
	case n < 0x4000:
		return []byte{byte(n>>8) | 0x80, byte(n)}
	case n < 0x200000:
		return []byte{byte(n>>16) | 0xC0, byte(n >> 8), byte(n)}
	case n < 0x10000000:
		return []byte{byte(n>>24) | 0xE0, byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		buf := make([]byte, 5)
		buf[0] = 0xF0
		binary.BigEndian.PutUint32(buf[1:], uint32(n))
		return buf
	}
}

// EncodeWord returns the wire form of one word.
func EncodeWord(word string) []byte {
	out := EncodeLength(len(word))
	return append(out, word...)
}

// EncodeSentence returns the wire form of a full sentence including the
// zero-length terminator.
func EncodeSentence(words []string) []byte {
	var out []byte
	for _, w := range words {
		out = append(out, EncodeWord(w)...)
	}
	return append(out, 0)
}

// decodeLength parses a length prefix from buf. Returns the length, the
// number of bytes consumed and false when buf does not yet hold the whole
// prefix.
func decodeLength(buf []byte) (length, consumed int, ok bool) {
	if len(buf) == 0 {
		return 0, 0, false
	}
	first := buf[0]
	switch {
	case first < 0x80:
		return int(first), 1, true
	case first < 0xC0:
		if len(buf) < 2 {
			return 0, 0, false
		}
		return int(first&0x3F)<<8 | int(buf[1]), 2, true
	case first < 0xE0:
		if len(buf) < 3 {
			return 0, 0, false
		}
		return int(first&0x1F)<<16 | int(buf[1])<<8 | int(buf[2]), 3, true
	case first < 0xF0:
		if len(buf) < 4 {
			return 0, 0, false
		}
		return int(first&0x0F)<<24 | int(buf[1])<<16 | int(buf[2])<<8 | int(buf[3]), 4, true
	default:
		if len(buf) < 5 {
			return 0, 0, false
		}
		return int(binary.BigEndian.Uint32(buf[1:5])), 5, true
	}
}

// Decoder accumulates raw bytes from a TCP stream and yields complete
// sentences. Partial input is never an error: the undecoded remainder stays
// buffered until more bytes arrive.
type Decoder struct {
	buf []byte
}

// Write appends raw bytes from the wire.
func (d *Decoder) Write(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete sentence, or ok=false when the buffer does
// not yet hold one. Nothing is consumed until a full sentence (terminated
// by a zero-length word) is available.
func (d *Decoder) Next() (words []string, ok bool) {
	offset := 0
	for {
		length, consumed, have := decodeLength(d.buf[offset:])
		if !have {
			return nil, false
		}
		if len(d.buf[offset+consumed:]) < length {
			return nil, false
		}
		if length == 0 {
			d.buf = d.buf[offset+consumed:]
			return words, true
		}
		words = append(words, string(d.buf[offset+consumed:offset+consumed+length]))
		offset += consumed + length
	}
}
