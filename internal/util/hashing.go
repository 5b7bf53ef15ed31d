package util

import (
	"crypto/sha256"
	"strconv"
)

// Hasher builds a sha256 key from a sequence of typed fields. Every field is length or
// separator delimited, so different field sequences never share an encoding.
type Hasher struct {
	buf []byte
}

func (h *Hasher) Float(v float64) *Hasher {
	h.buf = strconv.AppendFloat(h.buf, v, 'g', -1, 64)
	h.buf = append(h.buf, ';')
	return h
}

func (h *Hasher) Int(v int) *Hasher {
	h.buf = strconv.AppendInt(h.buf, int64(v), 10)
	h.buf = append(h.buf, ';')
	return h
}

func (h *Hasher) String(s string) *Hasher {
	h.buf = strconv.AppendInt(h.buf, int64(len(s)), 10)
	h.buf = append(h.buf, ':')
	h.buf = append(h.buf, s...)
	return h
}

func (h *Hasher) Sum() [32]byte {
	return sha256.Sum256(h.buf)
}
