package attgatt

import (
	"context"
	"fmt"
)

// defaultATTMTU is the MTU in effect before a successful Exchange MTU.
const defaultATTMTU = 23

// maxATTMTU is the largest attribute MTU the Core Specification allows.
const maxATTMTU = 517

type outboundKind int

const (
	kindNotify outboundKind = iota
	kindIndicate
)

type outboundMsg struct {
	kind     outboundKind
	handle   Handle
	value    []byte
	resultCh chan error
}

type readResult struct {
	pdu []byte
	err error
}

type pendingWriteFragment struct {
	Handle Handle
	Offset uint16
	Value  []byte
}

// Connection runs the per-peer ATT event loop on the goroutine that calls
// Run: all connection state (negotiated MTU, the pending-write queue, the
// indication-confirmation slot) is owned by that goroutine and touched by
// nothing else. A small reader goroutine turns transport.ReadPDU's
// blocking calls into channel sends so Run can select across ingress,
// outbound application traffic, and cancellation.
type Connection struct {
	transport Transport
	handler   *GATTHandler
	logger    logFieldLogger

	maxMTU      int
	serverRxMTU int
	clientRxMTU int
	mtu         int

	pending []pendingWriteFragment

	outbound        chan outboundMsg
	indicateSem     chan struct{}
	pendingIndicate chan error

	readCh chan readResult
	done   chan struct{}
}

// NewConnection wires a Transport to a fresh GATTHandler built from db and
// the token maps a Registration produced. maxMTU bounds what the server
// will ever agree to (pass 0 for the Core Specification maximum). A nil
// logger is replaced with a no-op one.
func NewConnection(transport Transport, db *Database, writeTokens map[Handle]Token, notifyHandles map[Token]Handle, maxMTU int, logger logFieldLogger) *Connection {
	if maxMTU <= 0 {
		maxMTU = maxATTMTU
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Connection{
		transport:   transport,
		handler:     newGATTHandler(db, writeTokens, notifyHandles, logger),
		logger:      logger,
		maxMTU:      maxMTU,
		serverRxMTU: maxMTU,
		clientRxMTU: defaultATTMTU,
		mtu:         defaultATTMTU,
		outbound:    make(chan outboundMsg),
		indicateSem: make(chan struct{}, 1),
		readCh:      make(chan readResult),
		done:        make(chan struct{}),
	}
}

// Events returns the channel on which writes to tokened characteristics
// are published.
func (c *Connection) Events() <-chan WriteEvent {
	return c.handler.Events()
}

// SetAuthenticated updates whether the peer is considered link-layer
// authenticated, affecting AUTHENTICATION_REQUIRED attribute checks.
func (c *Connection) SetAuthenticated(v bool) {
	c.handler.SetAuthenticated(v)
}

// Notify sends a Handle Value Notification for the characteristic token
// identifies. It does not wait for any acknowledgement (there is none).
func (c *Connection) Notify(token Token, value []byte) error {
	hdl, ok := c.handler.NotifyHandleForToken(token)
	if !ok {
		return fmt.Errorf("attgatt: token %v is not a notify/indicate handle", token)
	}
	select {
	case c.outbound <- outboundMsg{kind: kindNotify, handle: hdl, value: value}:
		return nil
	case <-c.done:
		return ErrTransportClosed
	}
}

// Indicate sends a Handle Value Indication and waits for the peer's
// Confirmation. Only one indication may be outstanding at a time; a second
// call blocks until the first is confirmed (or fails).
func (c *Connection) Indicate(ctx context.Context, token Token, value []byte) error {
	hdl, ok := c.handler.NotifyHandleForToken(token)
	if !ok {
		return fmt.Errorf("attgatt: token %v is not a notify/indicate handle", token)
	}
	select {
	case c.indicateSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrTransportClosed
	}
	defer func() { <-c.indicateSem }()

	resultCh := make(chan error, 1)
	select {
	case c.outbound <- outboundMsg{kind: kindIndicate, handle: hdl, value: value, resultCh: resultCh}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrTransportClosed
	}
	select {
	case err := <-resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrTransportClosed
	}
}

// Close shuts down the transport and unblocks Run and any pending
// Notify/Indicate callers.
func (c *Connection) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return c.transport.Close()
}

// Run drives the event loop until the transport closes, ctx is cancelled,
// or an unrecoverable transport error occurs. It blocks, and is meant to
// be called on its own goroutine by a Server (or directly by a test).
func (c *Connection) Run(ctx context.Context) error {
	go c.readLoop()
	defer c.handler.closeEvents()
	for {
		select {
		case <-ctx.Done():
			c.Close()
			c.failPendingIndicate(ctx.Err())
			return ctx.Err()
		case rr := <-c.readCh:
			if rr.err != nil {
				c.Close()
				c.failPendingIndicate(rr.err)
				if rr.err == ErrTransportClosed {
					return nil
				}
				return rr.err
			}
			if err := c.handleIncoming(rr.pdu); err != nil {
				c.Close()
				c.failPendingIndicate(err)
				return err
			}
		case out := <-c.outbound:
			if err := c.handleOutbound(out); err != nil {
				c.Close()
				c.failPendingIndicate(err)
				return err
			}
		}
	}
}

func (c *Connection) readLoop() {
	for {
		pdu, err := c.transport.ReadPDU()
		select {
		case c.readCh <- readResult{pdu: pdu, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *Connection) failPendingIndicate(err error) {
	if c.pendingIndicate != nil {
		c.pendingIndicate <- err
		c.pendingIndicate = nil
	}
}

func (c *Connection) handleOutbound(out outboundMsg) error {
	switch out.kind {
	case kindNotify:
		return c.transport.WritePDU(encodeHandleValueNotification(c.mtu, out.handle, out.value))
	case kindIndicate:
		if err := c.transport.WritePDU(encodeHandleValueIndication(c.mtu, out.handle, out.value)); err != nil {
			out.resultCh <- err
			return err
		}
		c.pendingIndicate = out.resultCh
		return nil
	default:
		return nil
	}
}

func (c *Connection) replyError(op Opcode, h Handle, code ErrorCode) error {
	return c.transport.WritePDU(encodeErrorResponse(op, h, code))
}

func (c *Connection) replyATTErr(aerr *ATTError) error {
	return c.transport.WritePDU(encodeErrorResponse(aerr.RequestOpcode, aerr.Handle, aerr.Code))
}

func (c *Connection) handleIncoming(pdu []byte) error {
	if len(pdu) == 0 {
		c.logger.Warn("empty PDU received, ignoring")
		return nil
	}
	op := Opcode(pdu[0])
	body := pdu[1:]

	switch op {
	case OpExchangeMTURequest:
		req, ok := parseExchangeMTURequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		c.negotiateMTU(req.ClientRxMTU)
		return c.transport.WritePDU(encodeExchangeMTUResponse(uint16(c.serverRxMTU)))

	case OpFindInformationRequest:
		req, ok := parseFindInformationRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		entries, aerr := c.handler.FindInformation(req.Start, req.End)
		if aerr != nil {
			return c.replyATTErr(aerr)
		}
		return c.transport.WritePDU(encodeFindInformationResponse(c.mtu, entries))

	case OpFindByTypeValueRequest:
		req, ok := parseFindByTypeValueRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		groups, aerr := c.handler.FindByTypeValue(req.Start, req.End, req.AttType, req.Value)
		if aerr != nil {
			return c.replyATTErr(aerr)
		}
		return c.transport.WritePDU(encodeFindByTypeValueResponse(c.mtu, groups))

	case OpReadByTypeRequest:
		req, ok := parseReadByTypeRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		entries, aerr := c.handler.ReadByType(req.Start, req.End, req.AttType)
		if aerr != nil {
			return c.replyATTErr(aerr)
		}
		return c.transport.WritePDU(encodeReadByTypeResponse(c.mtu, entries))

	case OpReadRequest:
		req, ok := parseReadRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		v, aerr := c.handler.Read(req.Handle)
		if aerr != nil {
			return c.replyATTErr(aerr)
		}
		return c.transport.WritePDU(encodeReadResponse(c.mtu, v))

	case OpReadBlobRequest:
		req, ok := parseReadBlobRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		v, aerr := c.handler.ReadBlob(req.Handle, req.Offset)
		if aerr != nil {
			return c.replyATTErr(aerr)
		}
		return c.transport.WritePDU(encodeReadBlobResponse(c.mtu, v))

	case OpReadMultipleRequest:
		req, ok := parseReadMultipleRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		v, aerr := c.handler.ReadMultiple(req.Handles)
		if aerr != nil {
			return c.replyATTErr(aerr)
		}
		return c.transport.WritePDU(encodeReadMultipleResponse(c.mtu, v))

	case OpReadByGroupTypeRequest:
		req, ok := parseReadByGroupTypeRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		groups, aerr := c.handler.ReadByGroupType(req.Start, req.End, req.GroupType)
		if aerr != nil {
			return c.replyATTErr(aerr)
		}
		return c.transport.WritePDU(encodeReadByGroupTypeResponse(c.mtu, groups))

	case OpWriteRequest:
		req, ok := parseWriteRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		if aerr := c.handler.Write(op, req.Handle, req.Value); aerr != nil {
			return c.replyATTErr(aerr)
		}
		return c.transport.WritePDU(encodeWriteResponse())

	case OpWriteCommand:
		if req, ok := parseWriteRequest(body); ok {
			c.handler.WriteCommand(req.Handle, req.Value)
		}
		return nil

	case OpSignedWriteCommand:
		if req, ok := parseSignedWriteCommand(body); ok {
			c.handler.WriteCommand(req.Handle, req.Value)
		}
		return nil

	case OpPrepareWriteRequest:
		req, ok := parsePrepareWriteRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		if aerr := c.handler.CheckWritable(op, req.Handle); aerr != nil {
			return c.replyATTErr(aerr)
		}
		c.pending = append(c.pending, pendingWriteFragment{
			Handle: req.Handle,
			Offset: req.Offset,
			Value:  append([]byte(nil), req.PartValue...),
		})
		return c.transport.WritePDU(encodePrepareWriteResponse(c.mtu, req.Handle, req.Offset, req.PartValue))

	case OpExecuteWriteRequest:
		req, ok := parseExecuteWriteRequest(body)
		if !ok {
			return c.replyError(op, InvalidHandleValue, ErrInvalidPDU)
		}
		if req.Flags == 0x00 {
			c.pending = nil
			return c.transport.WritePDU(encodeExecuteWriteResponse())
		}
		if aerr := c.commitPendingWrites(); aerr != nil {
			return c.replyATTErr(aerr)
		}
		return c.transport.WritePDU(encodeExecuteWriteResponse())

	case OpHandleValueConfirmation:
		if c.pendingIndicate != nil {
			c.pendingIndicate <- nil
			c.pendingIndicate = nil
		} else {
			c.logger.Warn("unsolicited confirmation received")
		}
		return nil

	default:
		return c.replyError(op, InvalidHandleValue, ErrRequestNotSupported)
	}
}

func (c *Connection) negotiateMTU(clientRxMTU uint16) {
	c.clientRxMTU = int(clientRxMTU)
	offer := c.maxMTU
	if c.clientRxMTU < offer {
		offer = c.clientRxMTU
	}
	if offer < defaultATTMTU {
		offer = defaultATTMTU
	}
	c.serverRxMTU = offer

	working := c.clientRxMTU
	if c.serverRxMTU < working {
		working = c.serverRxMTU
	}
	if working < defaultATTMTU {
		working = defaultATTMTU
	}
	c.mtu = working
}

// commitPendingWrites assembles the queued fragments per handle, in the
// order each handle first appeared, and applies them via the handler. A
// fragment whose offset does not equal the running length already
// assembled for its handle is a client error; commit aborts at that point.
func (c *Connection) commitPendingWrites() *ATTError {
	assembled := make(map[Handle][]byte)
	var order []Handle
	for _, frag := range c.pending {
		cur, seen := assembled[frag.Handle]
		if int(frag.Offset) != len(cur) {
			c.pending = nil
			return newATTError(OpExecuteWriteRequest, frag.Handle, ErrInvalidOffset)
		}
		if !seen {
			order = append(order, frag.Handle)
		}
		assembled[frag.Handle] = append(cur, frag.Value...)
	}
	for _, h := range order {
		if aerr := c.handler.Write(OpExecuteWriteRequest, h, assembled[h]); aerr != nil {
			c.pending = nil
			return aerr
		}
	}
	c.pending = nil
	return nil
}

// nopLogger discards everything; the default when no logger is supplied.
type nopLogger struct{}

func (nopLogger) WithField(string, interface{}) logFieldLogger { return nopLogger{} }
func (nopLogger) Warn(...interface{})                          {}
func (nopLogger) Error(...interface{})                         {}
func (nopLogger) Info(...interface{})                          {}
func (nopLogger) Debug(...interface{})                         {}
