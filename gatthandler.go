package attgatt

import "sync/atomic"

// WriteEvent is delivered to an application's event channel whenever a
// tokened characteristic value is written via Write Request, Write
// Command, or Signed Write Command.
type WriteEvent struct {
	Token Token
	Value []byte
}

// GATTHandler is the concrete request handler bound to one connection's
// Database and token maps. It has no notion of the wire: it is handed
// already-parsed handles, UUIDs, and byte values, and returns already
// validated results or an *ATTError.
type GATTHandler struct {
	db            *Database
	writeTokens   map[Handle]Token
	notifyHandles map[Token]Handle

	authenticated int32 // atomic bool; authorization is not modeled (always true)
	events        chan WriteEvent
	logger        logFieldLogger
}

func newGATTHandler(db *Database, writeTokens map[Handle]Token, notifyHandles map[Token]Handle, logger logFieldLogger) *GATTHandler {
	return &GATTHandler{
		db:            db,
		writeTokens:   writeTokens,
		notifyHandles: notifyHandles,
		events:        make(chan WriteEvent, 16),
		logger:        logger,
	}
}

// SetAuthenticated updates the connection's authenticated state, as
// reported by the Security Manager once pairing completes.
func (h *GATTHandler) SetAuthenticated(v bool) {
	var i int32
	if v {
		i = 1
	}
	atomic.StoreInt32(&h.authenticated, i)
}

func (h *GATTHandler) isAuthenticated() bool {
	return atomic.LoadInt32(&h.authenticated) != 0
}

// authorized is always true: this module does not model a separate
// authorization subsystem distinct from link-layer authentication.
const authorized = true

// Events returns the channel Write/WriteCommand/SignedWriteCommand publish
// to for tokened handles. It is closed when the owning Connection's Run
// returns.
func (h *GATTHandler) Events() <-chan WriteEvent {
	return h.events
}

func (h *GATTHandler) closeEvents() {
	close(h.events)
}

// NotifyHandleForToken resolves an application token to the value handle
// Notify/Indicate should target.
func (h *GATTHandler) NotifyHandleForToken(token Token) (Handle, bool) {
	hdl, ok := h.notifyHandles[token]
	return hdl, ok
}

func (h *GATTHandler) FindInformation(start, end Handle) ([]FoundInformation, *ATTError) {
	return h.db.FindInformation(OpFindInformationRequest, start, end)
}

func (h *GATTHandler) FindByTypeValue(start, end Handle, attType UUID, value []byte) ([]GroupEntry, *ATTError) {
	return h.db.FindByTypeValue(OpFindByTypeValueRequest, start, end, attType, value, authorized, h.isAuthenticated())
}

func (h *GATTHandler) ReadByType(start, end Handle, attType UUID) ([]HandleValue, *ATTError) {
	return h.db.ReadByType(OpReadByTypeRequest, start, end, attType, authorized, h.isAuthenticated())
}

func (h *GATTHandler) Read(hdl Handle) ([]byte, *ATTError) {
	return h.db.Read(OpReadRequest, hdl, authorized, h.isAuthenticated())
}

func (h *GATTHandler) ReadBlob(hdl Handle, offset uint16) ([]byte, *ATTError) {
	v, err := h.db.Read(OpReadBlobRequest, hdl, authorized, h.isAuthenticated())
	if err != nil {
		return nil, err
	}
	if int(offset) > len(v) {
		return nil, newATTError(OpReadBlobRequest, hdl, ErrInvalidOffset)
	}
	return v[offset:], nil
}

func (h *GATTHandler) ReadMultiple(handles []Handle) ([]byte, *ATTError) {
	var out []byte
	for _, hdl := range handles {
		v, err := h.db.Read(OpReadMultipleRequest, hdl, authorized, h.isAuthenticated())
		if err != nil {
			return nil, err
		}
		out = append(out, v...)
	}
	return out, nil
}

func (h *GATTHandler) ReadByGroupType(start, end Handle, groupType UUID) ([]GroupEntry, *ATTError) {
	return h.db.ReadByGroupType(OpReadByGroupTypeRequest, start, end, groupType, authorized, h.isAuthenticated())
}

func (h *GATTHandler) CheckWritable(op Opcode, hdl Handle) *ATTError {
	return h.db.CheckWritable(op, hdl, authorized, h.isAuthenticated())
}

// Write applies value to hdl and, if hdl carries a token, publishes a
// WriteEvent for it.
func (h *GATTHandler) Write(op Opcode, hdl Handle, value []byte) *ATTError {
	if err := h.db.Write(op, hdl, value, authorized, h.isAuthenticated()); err != nil {
		return err
	}
	h.publishWriteEvent(hdl, value)
	return nil
}

// WriteCommand applies value to hdl, discarding any Database error (per
// the protocol, Write Command has no error channel) but logging it.
func (h *GATTHandler) WriteCommand(hdl Handle, value []byte) {
	if err := h.db.Write(OpWriteCommand, hdl, value, authorized, h.isAuthenticated()); err != nil {
		if h.logger != nil {
			h.logger.WithField("handle", hdl).WithField("error", err).Warn("write command rejected")
		}
		return
	}
	h.publishWriteEvent(hdl, value)
}

func (h *GATTHandler) publishWriteEvent(hdl Handle, value []byte) {
	token, ok := h.writeTokens[hdl]
	if !ok {
		return
	}
	select {
	case h.events <- WriteEvent{Token: token, Value: append([]byte(nil), value...)}:
	default:
		if h.logger != nil {
			h.logger.WithField("handle", hdl).Warn("write event dropped: subscriber channel full")
		}
	}
}

// logFieldLogger is the narrow subset of *logrus.Entry this package needs,
// so tests can substitute a no-op logger without dragging in logrus.
type logFieldLogger interface {
	WithField(key string, value interface{}) logFieldLogger
	Warn(args ...interface{})
	Error(args ...interface{})
	Info(args ...interface{})
	Debug(args ...interface{})
}
