package attgatt

// mtuWriter builds a single outbound PDU, truncating it to fit the
// negotiated MTU. Chunk marks where truncation is allowed to bite (the
// variable-length tail of a response); bytes written before Chunk are
// never dropped. Commit finalizes the PDU, trimming the chunked region
// down to whatever fits in the remaining budget.
type mtuWriter struct {
	mtu        int
	buf        []byte
	chunkStart int
	chunked    bool
	committed  bool
}

func newMTUWriter(mtu int) *mtuWriter {
	return &mtuWriter{mtu: mtu}
}

func (w *mtuWriter) checkFresh() {
	if w.committed {
		panic("attgatt: mtuWriter used after Commit")
	}
}

// WriteByte appends a single byte unconditionally (used for the opcode and
// other fixed-size header fields that must never be truncated away).
func (w *mtuWriter) WriteByte(b byte) {
	w.checkFresh()
	w.buf = append(w.buf, b)
}

// WriteUint16 appends a little-endian uint16.
func (w *mtuWriter) WriteUint16(v uint16) {
	w.checkFresh()
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// WriteUUID appends uuid in its wire (little-endian) form.
func (w *mtuWriter) WriteUUID(uuid UUID) {
	w.checkFresh()
	w.buf = append(w.buf, uuid.wireBytes()...)
}

// Write appends raw bytes.
func (w *mtuWriter) Write(b []byte) {
	w.checkFresh()
	w.buf = append(w.buf, b...)
}

// Chunk marks the start of the truncatable tail. It may be called at most
// once per writer.
func (w *mtuWriter) Chunk() {
	w.checkFresh()
	if w.chunked {
		panic("attgatt: mtuWriter.Chunk called twice")
	}
	w.chunkStart = len(w.buf)
	w.chunked = true
}

// ChunkSeek reports how many bytes have been written since Chunk, so a
// caller building fixed-width repeated entries (Find Information, Read By
// Type, ...) can stop adding entries once a partial one would not fit.
func (w *mtuWriter) ChunkSeek() int {
	if !w.chunked {
		panic("attgatt: mtuWriter.ChunkSeek called before Chunk")
	}
	return len(w.buf) - w.chunkStart
}

// WriteFit appends b if it fits within the MTU, returning false (without
// modifying the buffer) if it would not. Only meaningful after Chunk.
func (w *mtuWriter) WriteFit(b []byte) bool {
	if !w.chunked {
		panic("attgatt: mtuWriter.WriteFit called before Chunk")
	}
	if len(w.buf)+len(b) > w.mtu {
		return false
	}
	w.buf = append(w.buf, b...)
	return true
}

// Commit finalizes the PDU: the fixed header survives untouched, and the
// chunked tail is trimmed to whatever whole amount fits in the MTU. Commit
// may be called at most once.
func (w *mtuWriter) Commit() []byte {
	w.checkFresh()
	if !w.chunked {
		panic("attgatt: mtuWriter.Commit called before Chunk")
	}
	w.committed = true
	if len(w.buf) > w.mtu {
		w.buf = w.buf[:w.mtu]
	}
	return w.buf
}

// Bytes returns the PDU as built so far without finalizing it.
func (w *mtuWriter) Bytes() []byte {
	return w.buf
}
