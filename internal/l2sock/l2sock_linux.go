// Package l2sock opens the raw AF_BLUETOOTH/SOCK_SEQPACKET/BTPROTO_L2CAP
// socket an ATT server binds to the fixed ATT channel (CID 0x0004) on.
// golang.org/x/sys/unix has no typed sockaddr for this address family (its
// Sockaddr interface's marshaling method is unexported, so third-party
// address families cannot implement it), so binding and accepting go
// through raw syscalls against a hand-packed sockaddr_l2, the same shape
// the kernel's <bluetooth/l2cap.h> defines it.
package l2sock

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	btProtoL2CAP   = 0
	cidATT         = 0x0004
	bdaddrLEPublic = 0x01

	solBluetooth = 274
	optBTSecurity = 4

	sockaddrL2Size = 14
	readBufSize    = 1024
)

// SecurityLevel mirrors the BT_SECURITY setsockopt levels this package
// understands.
type SecurityLevel uint8

const (
	SecurityNone   SecurityLevel = 0 // BT_SECURITY_SDP: do not set the option
	SecurityLow    SecurityLevel = 1
	SecurityMedium SecurityLevel = 2
	SecurityHigh   SecurityLevel = 3
)

// sockaddrL2 is struct sockaddr_l2 from <bluetooth/l2cap.h>:
//
//	sa_family_t l2_family;    // 2 bytes
//	__le16      l2_psm;       // 2 bytes
//	bdaddr_t    l2_bdaddr;    // 6 bytes
//	__le16      l2_cid;       // 2 bytes
//	__u8        l2_bdaddr_type; // 1 byte (+1 trailing pad)
type sockaddrL2 struct {
	psm        uint16
	bdaddr     [6]byte
	cid        uint16
	bdaddrType uint8
}

func (s *sockaddrL2) marshal() []byte {
	b := make([]byte, sockaddrL2Size)
	binary.LittleEndian.PutUint16(b[0:], uint16(unix.AF_BLUETOOTH))
	binary.LittleEndian.PutUint16(b[2:], s.psm)
	copy(b[4:10], s.bdaddr[:])
	binary.LittleEndian.PutUint16(b[10:], s.cid)
	b[12] = s.bdaddrType
	return b
}

func rawBind(fd int, addr *sockaddrL2) error {
	b := addr.marshal()
	_, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)))
	if errno != 0 {
		return errno
	}
	return nil
}

func rawAccept(fd int) (int, error) {
	nfd, _, errno := unix.Syscall(unix.SYS_ACCEPT, uintptr(fd), 0, 0)
	if errno != 0 {
		return -1, errno
	}
	return int(nfd), nil
}

// setSecurity applies BT_SECURITY via the raw Bluetooth setsockopt level;
// x/sys/unix has no typed helper for it (it is not a generic socket
// option), so this goes through SYS_SETSOCKOPT directly.
func setSecurity(fd int, level SecurityLevel) error {
	if level == SecurityNone {
		return nil
	}
	opt := [2]byte{byte(level), 16} // {level, key_size}; 16 matches the teacher's default encryption key size
	_, _, errno := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), uintptr(solBluetooth), uintptr(optBTSecurity),
		uintptr(unsafe.Pointer(&opt[0])), uintptr(len(opt)), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Listener accepts incoming ATT connections on the fixed L2CAP CID.
type Listener struct {
	fd int
}

// Listen opens, binds, and listens on an AF_BLUETOOTH/L2CAP socket bound
// to CID 0x0004 (ATT). deviceID is accepted for API symmetry with the
// teacher's device-selecting constructors but is not wired to a specific
// local adapter in this implementation: the socket binds to BDADDR_ANY and
// the kernel routes to whichever local controller is available.
func Listen(deviceID int, security SecurityLevel, backlog int) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, btProtoL2CAP)
	if err != nil {
		return nil, fmt.Errorf("l2sock: socket: %w", err)
	}
	addr := &sockaddrL2{cid: cidATT, bdaddrType: bdaddrLEPublic}
	if err := rawBind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("l2sock: bind: %w", err)
	}
	if err := setSecurity(fd, security); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("l2sock: setsockopt BT_SECURITY: %w", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("l2sock: listen: %w", err)
	}
	return &Listener{fd: fd}, nil
}

// Accept blocks for the next incoming connection and returns it as a Conn
// framed one ATT PDU per ReadPDU/WritePDU call.
func (l *Listener) Accept() (*Conn, error) {
	nfd, err := rawAccept(l.fd)
	if err != nil {
		return nil, fmt.Errorf("l2sock: accept: %w", err)
	}
	return &Conn{fd: nfd}, nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

// Conn is one accepted ATT channel.
type Conn struct {
	fd int
}

// ReadPDU blocks for the next inbound PDU. SOCK_SEQPACKET delivers message
// boundaries, so one Read call yields exactly one PDU.
func (c *Conn) ReadPDU() ([]byte, error) {
	buf := make([]byte, readBufSize)
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}
	return buf[:n], nil
}

// WritePDU sends exactly one PDU.
func (c *Conn) WritePDU(pdu []byte) error {
	_, err := unix.Write(c.fd, pdu)
	return err
}

// Close closes the accepted socket.
func (c *Conn) Close() error {
	return unix.Close(c.fd)
}
