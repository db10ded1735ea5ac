// Package wire implements the byte-exact cross-chain message and proof
// payload encodings. All multi-byte integers are big-endian; strings are
// u16 length-prefixed UTF-8; signed integers travel as fixed-width
// two's complement.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
	"math/big"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

var (
	ErrShortMessage       = errors.New("SHORT_MESSAGE")
	ErrTrailingBytes      = errors.New("TRAILING_BYTES")
	ErrUnknownMessageType = errors.New("UNKNOWN_MESSAGE_TYPE")
	ErrStringTooLong      = errors.New("STRING_TOO_LONG")
	ErrTooManyPrincipals  = errors.New("TOO_MANY_PRINCIPALS")
	ErrValueOutOfRange    = errors.New("VALUE_OUT_OF_RANGE")
	ErrBadBool            = errors.New("BAD_BOOL")
)

type writer struct {
	buf []byte
	err error
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *writer) u64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }

func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) str16(s string) {
	if len(s) > math.MaxUint16 {
		w.fail(ErrStringTooLong)
		return
	}
	w.u16(uint16(len(s)))
	w.bytes([]byte(s))
}

// signed writes v as a width-byte two's-complement big-endian integer.
func (w *writer) signed(v *big.Int, width int) {
	if v == nil {
		v = new(big.Int)
	}
	enc, err := encodeSigned(v, width)
	if err != nil {
		w.fail(err)
		return
	}
	w.bytes(enc)
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortMessage
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) boolean() bool {
	switch r.u8() {
	case 0:
		return false
	case 1:
		return true
	default:
		if r.err == nil {
			r.err = ErrBadBool
		}
		return false
	}
}

func (r *reader) str16() string {
	n := int(r.u16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *reader) signed(width int) *big.Int {
	b := r.take(width)
	if b == nil {
		return new(big.Int)
	}
	return decodeSigned(b)
}

func (r *reader) correlation() (c [32]byte) {
	copy(c[:], r.take(32))
	return c
}

func (r *reader) agentID() (id types.AgentID) {
	copy(id[:], r.take(32))
	return id
}

func (r *reader) address() (a types.Address) {
	copy(a[:], r.take(20))
	return a
}

// finish rejects messages with bytes beyond the decoded frame.
func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return ErrTrailingBytes
	}
	return nil
}

func encodeSigned(v *big.Int, width int) ([]byte, error) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(width*8-1)), big.NewInt(1))
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(width*8-1)))
	if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
		return nil, ErrValueOutOfRange
	}
	tc := new(big.Int).Set(v)
	if tc.Sign() < 0 {
		tc.Add(tc, new(big.Int).Lsh(big.NewInt(1), uint(width*8)))
	}
	out := make([]byte, width)
	tc.FillBytes(out)
	return out, nil
}

func decodeSigned(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return v
}
