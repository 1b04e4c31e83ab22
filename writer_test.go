package attgatt

import "testing"

func TestMTUWriterFixedHeaderSurvivesTruncation(t *testing.T) {
	w := newMTUWriter(5)
	w.WriteByte(0x01)
	w.WriteUint16(0x0003)
	w.Chunk()
	w.Write([]byte{0xAA, 0xBB, 0xCC, 0xDD})
	got := w.Commit()
	want := []byte{0x01, 0x03, 0x00, 0xAA, 0xBB}
	if !bytesEqual(got, want) {
		t.Fatalf("Commit() = % x, want % x", got, want)
	}
}

func TestMTUWriterWriteFitRejectsOverflow(t *testing.T) {
	w := newMTUWriter(4)
	w.WriteByte(0x01)
	w.Chunk()
	if !w.WriteFit([]byte{0xAA, 0xBB}) {
		t.Fatal("first 2-byte chunk should fit in remaining budget of 3")
	}
	if w.WriteFit([]byte{0xCC, 0xDD}) {
		t.Fatal("second 2-byte chunk should not fit (only 1 byte left)")
	}
	got := w.Commit()
	want := []byte{0x01, 0xAA, 0xBB}
	if !bytesEqual(got, want) {
		t.Fatalf("Commit() = % x, want % x", got, want)
	}
}

func TestMTUWriterChunkSeek(t *testing.T) {
	w := newMTUWriter(100)
	w.WriteByte(0x01)
	w.Chunk()
	if got := w.ChunkSeek(); got != 0 {
		t.Fatalf("ChunkSeek() = %d, want 0", got)
	}
	w.WriteFit([]byte{0x01, 0x02, 0x03})
	if got := w.ChunkSeek(); got != 3 {
		t.Fatalf("ChunkSeek() = %d, want 3", got)
	}
}

func TestMTUWriterChunkTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("calling Chunk twice should panic")
		}
	}()
	w := newMTUWriter(10)
	w.Chunk()
	w.Chunk()
}

func TestMTUWriterCommitBeforeChunkPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("calling Commit before Chunk should panic")
		}
	}()
	w := newMTUWriter(10)
	w.WriteByte(0x01)
	w.Commit()
}

func TestMTUWriterWriteAfterCommitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("writing after Commit should panic")
		}
	}()
	w := newMTUWriter(10)
	w.Chunk()
	w.Commit()
	w.WriteByte(0x01)
}

func TestMTUWriterBytesWithoutCommit(t *testing.T) {
	w := newMTUWriter(10)
	w.WriteByte(0x01)
	w.WriteUUID(UUID16(0x2800))
	got := w.Bytes()
	want := []byte{0x01, 0x00, 0x28}
	if !bytesEqual(got, want) {
		t.Fatalf("Bytes() = % x, want % x", got, want)
	}
}
