package attgatt

import (
	"errors"
	"io"
	"sync"
)

// Transport carries one ATT PDU per Read and one per Write, matching the
// datagram framing SOCK_SEQPACKET gives a connected L2CAP channel: there is
// no length prefix to parse because the kernel (or, in tests, the pipe
// below) already delivers message boundaries.
type Transport interface {
	io.Closer
	// ReadPDU blocks until one PDU is available, returning it as a freshly
	// allocated slice the caller owns.
	ReadPDU() ([]byte, error)
	// WritePDU sends exactly one PDU. It does not block waiting for the
	// peer; the caller serializes calls.
	WritePDU(pdu []byte) error
}

// ErrTransportClosed is returned by the in-memory pipe's WritePDU once that
// end has been closed, and by its ReadPDU once the peer end has been closed.
// Connection's Notify and Indicate also return it after the connection ends.
var ErrTransportClosed = errors.New("attgatt: transport closed")

// pipeTransport is an in-memory, in-process Transport pair for tests and
// for wiring a Connection to an application that does not go over a real
// socket. NewPipe returns the two ends already connected to each other.
type pipeTransport struct {
	mu     sync.Mutex
	closed bool
	out    chan []byte
	in     chan []byte
}

// NewPipe returns two Transports, each other's peer: a PDU written to one
// is read from the other.
func NewPipe() (Transport, Transport) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	a := &pipeTransport{out: ab, in: ba}
	b := &pipeTransport{out: ba, in: ab}
	return a, b
}

func (p *pipeTransport) ReadPDU() ([]byte, error) {
	pdu, ok := <-p.in
	if !ok {
		return nil, ErrTransportClosed
	}
	return pdu, nil
}

func (p *pipeTransport) WritePDU(pdu []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrTransportClosed
	}
	cp := append([]byte(nil), pdu...)
	p.out <- cp
	return nil
}

func (p *pipeTransport) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.out)
	return nil
}
