package attgatt

// This file implements the wire codec (Bluetooth Core 5.1, Vol 3, Part F,
// §3.4): one parse function per inbound PDU shape and one encode function
// per outbound PDU shape. Parsing never panics; a malformed PDU yields
// ok == false and the caller replies with an InvalidPDU error.

func encodeErrorResponse(op Opcode, h Handle, code ErrorCode) []byte {
	e := newEncoder()
	e.putU8(byte(OpErrorResponse))
	e.putU8(byte(op))
	e.putU16(uint16(h))
	e.putU8(byte(code))
	return e.Bytes()
}

// Exchange MTU

type exchangeMTURequest struct {
	ClientRxMTU uint16
}

func parseExchangeMTURequest(body []byte) (exchangeMTURequest, bool) {
	r := newReader(body)
	mtu, ok := r.u16()
	return exchangeMTURequest{ClientRxMTU: mtu}, ok
}

func encodeExchangeMTUResponse(serverRxMTU uint16) []byte {
	e := newEncoder()
	e.putU8(byte(OpExchangeMTUResponse))
	e.putU16(serverRxMTU)
	return e.Bytes()
}

// Find Information

type findInformationRequest struct {
	Start, End Handle
}

func parseFindInformationRequest(body []byte) (findInformationRequest, bool) {
	r := newReader(body)
	start, ok1 := r.u16()
	end, ok2 := r.u16()
	if !ok1 || !ok2 {
		return findInformationRequest{}, false
	}
	return findInformationRequest{Start: Handle(start), End: Handle(end)}, true
}

const findInfoFormat16 = 0x01
const findInfoFormat128 = 0x02

func encodeFindInformationResponse(mtu int, entries []FoundInformation) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpFindInformationResponse))
	format := byte(findInfoFormat16)
	if len(entries) > 0 && !entries[0].Type.Is16() {
		format = findInfoFormat128
	}
	w.WriteByte(format)
	w.Chunk()
	for _, ent := range entries {
		entBuf := newEncoder()
		entBuf.putU16(uint16(ent.Handle))
		entBuf.putUUID(ent.Type)
		if !w.WriteFit(entBuf.Bytes()) {
			break
		}
	}
	return w.Commit()
}

// Find By Type Value

type findByTypeValueRequest struct {
	Start, End Handle
	AttType    UUID
	Value      []byte
}

func parseFindByTypeValueRequest(body []byte) (findByTypeValueRequest, bool) {
	r := newReader(body)
	start, ok1 := r.u16()
	end, ok2 := r.u16()
	attType, ok3 := r.u16()
	if !ok1 || !ok2 || !ok3 {
		return findByTypeValueRequest{}, false
	}
	return findByTypeValueRequest{
		Start:   Handle(start),
		End:     Handle(end),
		AttType: UUID16(attType),
		Value:   append([]byte(nil), r.rest()...),
	}, true
}

func encodeFindByTypeValueResponse(mtu int, groups []GroupEntry) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpFindByTypeValueResponse))
	w.Chunk()
	for _, g := range groups {
		entBuf := newEncoder()
		entBuf.putU16(uint16(g.Start))
		entBuf.putU16(uint16(g.End))
		if !w.WriteFit(entBuf.Bytes()) {
			break
		}
	}
	return w.Commit()
}

// Read By Type

type readByTypeRequest struct {
	Start, End Handle
	AttType    UUID
}

func parseReadByTypeRequest(body []byte) (readByTypeRequest, bool) {
	r := newReader(body)
	start, ok1 := r.u16()
	end, ok2 := r.u16()
	if !ok1 || !ok2 {
		return readByTypeRequest{}, false
	}
	var attType UUID
	var ok3 bool
	switch r.remaining() {
	case 2:
		attType, ok3 = r.uuid(2)
	case 16:
		attType, ok3 = r.uuid(16)
	default:
		ok3 = false
	}
	if !ok3 {
		return readByTypeRequest{}, false
	}
	return readByTypeRequest{Start: Handle(start), End: Handle(end), AttType: attType}, true
}

func encodeReadByTypeResponse(mtu int, entries []HandleValue) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpReadByTypeResponse))
	length := 2 + len(entries[0].Value)
	if length > 255 {
		length = 255
	}
	w.WriteByte(byte(length))
	w.Chunk()
	for _, ent := range entries {
		entBuf := newEncoder()
		entBuf.putU16(uint16(ent.Handle))
		v := ent.Value
		if len(v) > length-2 {
			v = v[:length-2]
		}
		entBuf.putBytes(v)
		if len(entBuf.Bytes()) != length {
			break
		}
		if !w.WriteFit(entBuf.Bytes()) {
			break
		}
	}
	return w.Commit()
}

// Read

type readRequest struct {
	Handle Handle
}

func parseReadRequest(body []byte) (readRequest, bool) {
	r := newReader(body)
	h, ok := r.u16()
	return readRequest{Handle: Handle(h)}, ok
}

func encodeReadResponse(mtu int, value []byte) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpReadResponse))
	w.Chunk()
	w.Write(value)
	return w.Commit()
}

// Read Blob

type readBlobRequest struct {
	Handle Handle
	Offset uint16
}

func parseReadBlobRequest(body []byte) (readBlobRequest, bool) {
	r := newReader(body)
	h, ok1 := r.u16()
	off, ok2 := r.u16()
	return readBlobRequest{Handle: Handle(h), Offset: off}, ok1 && ok2
}

func encodeReadBlobResponse(mtu int, value []byte) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpReadBlobResponse))
	w.Chunk()
	w.Write(value)
	return w.Commit()
}

// Read Multiple

type readMultipleRequest struct {
	Handles []Handle
}

func parseReadMultipleRequest(body []byte) (readMultipleRequest, bool) {
	r := newReader(body)
	if r.remaining() < 4 || r.remaining()%2 != 0 {
		return readMultipleRequest{}, false
	}
	var handles []Handle
	for r.remaining() > 0 {
		h, ok := r.u16()
		if !ok {
			return readMultipleRequest{}, false
		}
		handles = append(handles, Handle(h))
	}
	return readMultipleRequest{Handles: handles}, true
}

func encodeReadMultipleResponse(mtu int, concatenated []byte) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpReadMultipleResponse))
	w.Chunk()
	w.Write(concatenated)
	return w.Commit()
}

// Read By Group Type

type readByGroupTypeRequest struct {
	Start, End Handle
	GroupType  UUID
}

func parseReadByGroupTypeRequest(body []byte) (readByGroupTypeRequest, bool) {
	r := newReader(body)
	start, ok1 := r.u16()
	end, ok2 := r.u16()
	if !ok1 || !ok2 {
		return readByGroupTypeRequest{}, false
	}
	var groupType UUID
	var ok3 bool
	switch r.remaining() {
	case 2:
		groupType, ok3 = r.uuid(2)
	case 16:
		groupType, ok3 = r.uuid(16)
	default:
		ok3 = false
	}
	if !ok3 {
		return readByGroupTypeRequest{}, false
	}
	return readByGroupTypeRequest{Start: Handle(start), End: Handle(end), GroupType: groupType}, true
}

func encodeReadByGroupTypeResponse(mtu int, groups []GroupEntry) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpReadByGroupTypeResponse))
	length := 4 + len(groups[0].Value)
	if length > 255 {
		length = 255
	}
	w.WriteByte(byte(length))
	w.Chunk()
	for _, g := range groups {
		entBuf := newEncoder()
		entBuf.putU16(uint16(g.Start))
		entBuf.putU16(uint16(g.End))
		v := g.Value
		if len(v) > length-4 {
			v = v[:length-4]
		}
		entBuf.putBytes(v)
		if len(entBuf.Bytes()) != length {
			break
		}
		if !w.WriteFit(entBuf.Bytes()) {
			break
		}
	}
	return w.Commit()
}

// Write Request / Command / Signed Write Command all share a body shape.

type writeRequest struct {
	Handle Handle
	Value  []byte
}

func parseWriteRequest(body []byte) (writeRequest, bool) {
	r := newReader(body)
	h, ok := r.u16()
	if !ok {
		return writeRequest{}, false
	}
	return writeRequest{Handle: Handle(h), Value: append([]byte(nil), r.rest()...)}, true
}

// parseSignedWriteCommand strips the trailing 12-byte CSRK signature (sign
// counter + MAC); authentication of the signature is a Security Manager
// concern and out of scope here, so the value is accepted unconditionally.
func parseSignedWriteCommand(body []byte) (writeRequest, bool) {
	if len(body) < 2+12 {
		return writeRequest{}, false
	}
	r := newReader(body[:len(body)-12])
	h, ok := r.u16()
	if !ok {
		return writeRequest{}, false
	}
	return writeRequest{Handle: Handle(h), Value: append([]byte(nil), r.rest()...)}, true
}

func encodeWriteResponse() []byte {
	return []byte{byte(OpWriteResponse)}
}

// Prepare Write

type prepareWriteRequest struct {
	Handle     Handle
	Offset     uint16
	PartValue  []byte
}

func parsePrepareWriteRequest(body []byte) (prepareWriteRequest, bool) {
	r := newReader(body)
	h, ok1 := r.u16()
	off, ok2 := r.u16()
	if !ok1 || !ok2 {
		return prepareWriteRequest{}, false
	}
	return prepareWriteRequest{Handle: Handle(h), Offset: off, PartValue: append([]byte(nil), r.rest()...)}, true
}

func encodePrepareWriteResponse(mtu int, h Handle, offset uint16, partValue []byte) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpPrepareWriteResponse))
	w.WriteUint16(uint16(h))
	w.WriteUint16(offset)
	w.Chunk()
	w.Write(partValue)
	return w.Commit()
}

// Execute Write

type executeWriteRequest struct {
	Flags byte
}

func parseExecuteWriteRequest(body []byte) (executeWriteRequest, bool) {
	r := newReader(body)
	f, ok := r.u8()
	return executeWriteRequest{Flags: f}, ok
}

func encodeExecuteWriteResponse() []byte {
	return []byte{byte(OpExecuteWriteResponse)}
}

// Handle Value Notification / Indication / Confirmation

func encodeHandleValueNotification(mtu int, h Handle, value []byte) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpHandleValueNotification))
	w.WriteUint16(uint16(h))
	w.Chunk()
	w.WriteFit(value)
	return w.Commit()
}

func encodeHandleValueIndication(mtu int, h Handle, value []byte) []byte {
	w := newMTUWriter(mtu)
	w.WriteByte(byte(OpHandleValueIndication))
	w.WriteUint16(uint16(h))
	w.Chunk()
	w.WriteFit(value)
	return w.Commit()
}

func encodeHandleValueConfirmation() []byte {
	return []byte{byte(OpHandleValueConfirmation)}
}
