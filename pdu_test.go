package attgatt

import "testing"

func TestExchangeMTURoundTrip(t *testing.T) {
	body := []byte{0x17, 0x00}
	req, ok := parseExchangeMTURequest(body)
	if !ok || req.ClientRxMTU != 0x0017 {
		t.Fatalf("parseExchangeMTURequest = %+v, %v", req, ok)
	}
	got := encodeExchangeMTUResponse(0x00A0)
	want := []byte{byte(OpExchangeMTUResponse), 0xA0, 0x00}
	if !bytesEqual(got, want) {
		t.Fatalf("encodeExchangeMTUResponse = % x, want % x", got, want)
	}
}

func TestFindInformationResponseFormat16(t *testing.T) {
	entries := []FoundInformation{
		{Handle: Handle(1), Type: UUID16(0x2800)},
		{Handle: Handle(4), Type: UUID16(0x2803)},
	}
	got := encodeFindInformationResponse(23, entries)
	want := []byte{
		byte(OpFindInformationResponse), findInfoFormat16,
		0x01, 0x00, 0x00, 0x28,
		0x04, 0x00, 0x03, 0x28,
	}
	if !bytesEqual(got, want) {
		t.Fatalf("encodeFindInformationResponse = % x, want % x", got, want)
	}
}

func TestFindInformationResponseFormat128(t *testing.T) {
	u := MustParseUUID("12345678-1234-5678-1234-56789abcdef0")
	entries := []FoundInformation{{Handle: Handle(9), Type: u}}
	got := encodeFindInformationResponse(64, entries)
	if got[1] != findInfoFormat128 {
		t.Fatalf("format byte = %#x, want %#x (128-bit)", got[1], findInfoFormat128)
	}
	if len(got) != 2+2+16 {
		t.Fatalf("len(got) = %d, want %d", len(got), 2+2+16)
	}
}

func TestFindInformationResponseTruncatesToMTU(t *testing.T) {
	entries := []FoundInformation{
		{Handle: Handle(1), Type: UUID16(0x2800)},
		{Handle: Handle(4), Type: UUID16(0x2803)},
		{Handle: Handle(7), Type: UUID16(0x2803)},
	}
	got := encodeFindInformationResponse(6, entries)
	want := []byte{byte(OpFindInformationResponse), findInfoFormat16, 0x01, 0x00, 0x00, 0x28}
	if !bytesEqual(got, want) {
		t.Fatalf("encodeFindInformationResponse(mtu=6) = % x, want % x", got, want)
	}
}

func TestReadByTypeRequestParsesShortAndLongUUID(t *testing.T) {
	body16 := []byte{0x01, 0x00, 0xFF, 0xFF, 0x00, 0x28}
	req, ok := parseReadByTypeRequest(body16)
	if !ok || !req.AttType.Equal(UUID16(0x2800)) {
		t.Fatalf("parseReadByTypeRequest(16-bit) = %+v, %v", req, ok)
	}

	u := MustParseUUID("12345678-1234-5678-1234-56789abcdef0")
	body128 := append([]byte{0x01, 0x00, 0xFF, 0xFF}, u.wireBytes()...)
	req, ok = parseReadByTypeRequest(body128)
	if !ok || !req.AttType.Equal(u) {
		t.Fatalf("parseReadByTypeRequest(128-bit) = %+v, %v", req, ok)
	}
}

func TestReadByTypeResponseUsesFirstEntryLength(t *testing.T) {
	entries := []HandleValue{
		{Handle: Handle(3), Value: []byte{0x01, 0x02, 0x03}},
		{Handle: Handle(6), Value: []byte{0xAA}},
	}
	got := encodeReadByTypeResponse(64, entries)
	if got[1] != 2+3 {
		t.Fatalf("length byte = %d, want %d", got[1], 2+3)
	}
	// second entry's value is shorter than the first entry's length; it gets
	// dropped from the response rather than padded, per Part F 3.4.4.2.
	if len(got) != 2+(2+3) {
		t.Fatalf("len(got) = %d, want only the first entry encoded", len(got))
	}
}

func TestReadResponseChunkedTruncation(t *testing.T) {
	got := encodeReadResponse(4, []byte{0x01, 0x02, 0x03, 0x04, 0x05})
	want := []byte{byte(OpReadResponse), 0x01, 0x02, 0x03}
	if !bytesEqual(got, want) {
		t.Fatalf("encodeReadResponse = % x, want % x", got, want)
	}
}

func TestReadBlobRequestParse(t *testing.T) {
	body := []byte{0x03, 0x00, 0x05, 0x00}
	req, ok := parseReadBlobRequest(body)
	if !ok || req.Handle != Handle(3) || req.Offset != 5 {
		t.Fatalf("parseReadBlobRequest = %+v, %v", req, ok)
	}
}

func TestReadMultipleRequestParse(t *testing.T) {
	body := []byte{0x03, 0x00, 0x06, 0x00}
	req, ok := parseReadMultipleRequest(body)
	if !ok || len(req.Handles) != 2 || req.Handles[0] != 3 || req.Handles[1] != 6 {
		t.Fatalf("parseReadMultipleRequest = %+v, %v", req, ok)
	}
	if _, ok := parseReadMultipleRequest([]byte{0x03, 0x00}); ok {
		t.Fatal("parseReadMultipleRequest should reject a single handle (min 2 required)")
	}
}

func TestReadByGroupTypeResponse(t *testing.T) {
	groups := []GroupEntry{
		{Start: Handle(1), End: Handle(3), Value: []byte{0x00, 0x18}},
		{Start: Handle(4), End: Handle(6), Value: []byte{0x0F, 0x18}},
	}
	got := encodeReadByGroupTypeResponse(64, groups)
	want := []byte{
		byte(OpReadByGroupTypeResponse), 0x06,
		0x01, 0x00, 0x03, 0x00, 0x00, 0x18,
		0x04, 0x00, 0x06, 0x00, 0x0F, 0x18,
	}
	if !bytesEqual(got, want) {
		t.Fatalf("encodeReadByGroupTypeResponse = % x, want % x", got, want)
	}
}

func TestWriteRequestParse(t *testing.T) {
	body := []byte{0x03, 0x00, 0x68, 0x69}
	req, ok := parseWriteRequest(body)
	if !ok || req.Handle != Handle(3) || string(req.Value) != "hi" {
		t.Fatalf("parseWriteRequest = %+v, %v", req, ok)
	}
}

func TestSignedWriteCommandStripsSignature(t *testing.T) {
	body := append([]byte{0x03, 0x00, 0x68, 0x69}, make([]byte, 12)...)
	req, ok := parseSignedWriteCommand(body)
	if !ok || req.Handle != Handle(3) || string(req.Value) != "hi" {
		t.Fatalf("parseSignedWriteCommand = %+v, %v", req, ok)
	}
	if _, ok := parseSignedWriteCommand([]byte{0x03, 0x00}); ok {
		t.Fatal("parseSignedWriteCommand should reject a body shorter than handle+signature")
	}
}

func TestPrepareAndExecuteWriteRoundTrip(t *testing.T) {
	body := []byte{0x03, 0x00, 0x00, 0x00, 0x68, 0x69}
	req, ok := parsePrepareWriteRequest(body)
	if !ok || req.Handle != Handle(3) || req.Offset != 0 || string(req.PartValue) != "hi" {
		t.Fatalf("parsePrepareWriteRequest = %+v, %v", req, ok)
	}
	got := encodePrepareWriteResponse(64, req.Handle, req.Offset, req.PartValue)
	want := []byte{byte(OpPrepareWriteResponse), 0x03, 0x00, 0x00, 0x00, 0x68, 0x69}
	if !bytesEqual(got, want) {
		t.Fatalf("encodePrepareWriteResponse = % x, want % x", got, want)
	}

	exec, ok := parseExecuteWriteRequest([]byte{0x01})
	if !ok || exec.Flags != 0x01 {
		t.Fatalf("parseExecuteWriteRequest = %+v, %v", exec, ok)
	}
	if got := encodeExecuteWriteResponse(); got[0] != byte(OpExecuteWriteResponse) {
		t.Fatalf("encodeExecuteWriteResponse = % x", got)
	}
}

func TestHandleValueNotificationIndicationConfirmation(t *testing.T) {
	notif := encodeHandleValueNotification(64, Handle(3), []byte("hi"))
	want := []byte{byte(OpHandleValueNotification), 0x03, 0x00, 0x68, 0x69}
	if !bytesEqual(notif, want) {
		t.Fatalf("encodeHandleValueNotification = % x, want % x", notif, want)
	}

	ind := encodeHandleValueIndication(64, Handle(3), []byte("hi"))
	want[0] = byte(OpHandleValueIndication)
	if !bytesEqual(ind, want) {
		t.Fatalf("encodeHandleValueIndication = % x, want % x", ind, want)
	}

	conf := encodeHandleValueConfirmation()
	if len(conf) != 1 || conf[0] != byte(OpHandleValueConfirmation) {
		t.Fatalf("encodeHandleValueConfirmation = % x", conf)
	}
}

func TestErrorResponseEncoding(t *testing.T) {
	got := encodeErrorResponse(OpReadRequest, Handle(3), ErrInvalidHandle)
	want := []byte{byte(OpErrorResponse), byte(OpReadRequest), 0x03, 0x00, byte(ErrInvalidHandle)}
	if !bytesEqual(got, want) {
		t.Fatalf("encodeErrorResponse = % x, want % x", got, want)
	}
}
