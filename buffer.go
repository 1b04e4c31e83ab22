package attgatt

// reader is the buffer abstraction the codec unpacks PDUs from: byte-level
// reads with explicit end-of-buffer detection, little-endian throughout.
type reader struct {
	b   []byte
	pos int
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

// remaining reports how many unread bytes are left.
func (r *reader) remaining() int {
	return len(r.b) - r.pos
}

func (r *reader) rest() []byte {
	return r.b[r.pos:]
}

func (r *reader) u8() (byte, bool) {
	if r.remaining() < 1 {
		return 0, false
	}
	v := r.b[r.pos]
	r.pos++
	return v, true
}

func (r *reader) u16() (uint16, bool) {
	if r.remaining() < 2 {
		return 0, false
	}
	v := uint16(r.b[r.pos]) | uint16(r.b[r.pos+1])<<8
	r.pos += 2
	return v, true
}

func (r *reader) u32() (uint32, bool) {
	if r.remaining() < 4 {
		return 0, false
	}
	v := uint32(r.b[r.pos]) | uint32(r.b[r.pos+1])<<8 | uint32(r.b[r.pos+2])<<16 | uint32(r.b[r.pos+3])<<24
	r.pos += 4
	return v, true
}

func (r *reader) bytes(n int) ([]byte, bool) {
	if n < 0 || r.remaining() < n {
		return nil, false
	}
	v := r.b[r.pos : r.pos+n]
	r.pos += n
	return v, true
}

// uuid reads a UUID of the given wire width (2 or 16 bytes).
func (r *reader) uuid(width int) (UUID, bool) {
	b, ok := r.bytes(width)
	if !ok {
		return UUID{}, false
	}
	switch width {
	case 2:
		return UUID16(uint16(b[0]) | uint16(b[1])<<8), true
	case 16:
		var u UUID
		u.v128 = toCanonical128(b)
		return u, true
	default:
		return UUID{}, false
	}
}

// encoder is an append-only little-endian byte builder, used wherever a PDU
// is encoded without an MTU ceiling (requests, and responses small enough
// that truncation never applies). Truncating responses use writer.go's
// mtuWriter instead.
type encoder struct {
	b []byte
}

func newEncoder() *encoder {
	return &encoder{}
}

func (e *encoder) putU8(v byte) {
	e.b = append(e.b, v)
}

func (e *encoder) putU16(v uint16) {
	e.b = append(e.b, byte(v), byte(v>>8))
}

func (e *encoder) putU32(v uint32) {
	e.b = append(e.b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (e *encoder) putBytes(v []byte) {
	e.b = append(e.b, v...)
}

func (e *encoder) putUUID(u UUID) {
	e.putBytes(u.wireBytes())
}

func (e *encoder) Bytes() []byte {
	return e.b
}
