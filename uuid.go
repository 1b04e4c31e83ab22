package attgatt

import (
	"fmt"

	"github.com/google/uuid"
)

// UUID is either a 16-bit assigned number or a full 128-bit UUID. The two
// forms are distinct on the wire and are never promoted into each other.
type UUID struct {
	is16 bool
	v16  uint16
	v128 [16]byte // RFC 4122 (big-endian) byte order, same as google/uuid.UUID
}

// UUID16 constructs a 16-bit assigned-number UUID, e.g. UUID16(0x2800) for
// the Primary Service declaration type.
func UUID16(v uint16) UUID {
	return UUID{is16: true, v16: v}
}

// UUID128 constructs a 128-bit UUID from its canonical (RFC 4122) byte order.
func UUID128(canonical [16]byte) UUID {
	return UUID{v128: canonical}
}

// ParseUUID parses a standard dashed UUID string ("xxxxxxxx-xxxx-...") into a
// 128-bit UUID.
func ParseUUID(s string) (UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, fmt.Errorf("attgatt: parse uuid %q: %w", s, err)
	}
	return UUID128([16]byte(id)), nil
}

// MustParseUUID is ParseUUID, panicking on a malformed string. Intended for
// package-level UUID constants, not for parsing untrusted input.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Is16 reports whether u is a 16-bit assigned-number UUID.
func (u UUID) Is16() bool { return u.is16 }

// Uint16 returns the 16-bit value. Only meaningful when Is16() is true.
func (u UUID) Uint16() uint16 { return u.v16 }

// Len is the wire width in bytes: 2 for a 16-bit UUID, 16 for a 128-bit one.
func (u UUID) Len() int {
	if u.is16 {
		return 2
	}
	return 16
}

// wireBytes renders u in little-endian wire order.
func (u UUID) wireBytes() []byte {
	if u.is16 {
		return []byte{byte(u.v16), byte(u.v16 >> 8)}
	}
	b := make([]byte, 16)
	for i := 0; i < 16; i++ {
		b[i] = u.v128[15-i]
	}
	return b
}

func toCanonical128(wire []byte) [16]byte {
	var out [16]byte
	for i := 0; i < 16; i++ {
		out[i] = wire[15-i]
	}
	return out
}

// Equal compares two UUIDs; a 16-bit and a 128-bit UUID are never equal even
// if one happens to be the Bluetooth-base expansion of the other.
func (u UUID) Equal(o UUID) bool {
	if u.is16 != o.is16 {
		return false
	}
	if u.is16 {
		return u.v16 == o.v16
	}
	return u.v128 == o.v128
}

func (u UUID) String() string {
	if u.is16 {
		return fmt.Sprintf("0x%04X", u.v16)
	}
	return uuid.UUID(u.v128).String()
}
