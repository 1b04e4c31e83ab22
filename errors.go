package attgatt

import "fmt"

// Opcode is the first byte of every ATT PDU.
type Opcode byte

// Exhaustive opcode table (Bluetooth Core 5.1, Vol 3, Part F).
const (
	OpErrorResponse               Opcode = 0x01
	OpExchangeMTURequest          Opcode = 0x02
	OpExchangeMTUResponse         Opcode = 0x03
	OpFindInformationRequest      Opcode = 0x04
	OpFindInformationResponse     Opcode = 0x05
	OpFindByTypeValueRequest      Opcode = 0x06
	OpFindByTypeValueResponse     Opcode = 0x07
	OpReadByTypeRequest           Opcode = 0x08
	OpReadByTypeResponse          Opcode = 0x09
	OpReadRequest                 Opcode = 0x0A
	OpReadResponse                Opcode = 0x0B
	OpReadBlobRequest             Opcode = 0x0C
	OpReadBlobResponse            Opcode = 0x0D
	OpReadMultipleRequest         Opcode = 0x0E
	OpReadMultipleResponse        Opcode = 0x0F
	OpReadByGroupTypeRequest      Opcode = 0x10
	OpReadByGroupTypeResponse     Opcode = 0x11
	OpWriteRequest                Opcode = 0x12
	OpWriteResponse               Opcode = 0x13
	OpPrepareWriteRequest         Opcode = 0x16
	OpPrepareWriteResponse        Opcode = 0x17
	OpExecuteWriteRequest         Opcode = 0x18
	OpExecuteWriteResponse        Opcode = 0x19
	OpHandleValueNotification     Opcode = 0x1B
	OpHandleValueIndication       Opcode = 0x1D
	OpHandleValueConfirmation     Opcode = 0x1E
	OpWriteCommand                Opcode = 0x52
	OpSignedWriteCommand          Opcode = 0xD2
)

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(op))
}

var opcodeNames = map[Opcode]string{
	OpErrorResponse:           "ErrorResponse",
	OpExchangeMTURequest:      "ExchangeMTURequest",
	OpExchangeMTUResponse:     "ExchangeMTUResponse",
	OpFindInformationRequest:  "FindInformationRequest",
	OpFindInformationResponse: "FindInformationResponse",
	OpFindByTypeValueRequest:  "FindByTypeValueRequest",
	OpFindByTypeValueResponse: "FindByTypeValueResponse",
	OpReadByTypeRequest:       "ReadByTypeRequest",
	OpReadByTypeResponse:      "ReadByTypeResponse",
	OpReadRequest:             "ReadRequest",
	OpReadResponse:            "ReadResponse",
	OpReadBlobRequest:         "ReadBlobRequest",
	OpReadBlobResponse:        "ReadBlobResponse",
	OpReadMultipleRequest:     "ReadMultipleRequest",
	OpReadMultipleResponse:    "ReadMultipleResponse",
	OpReadByGroupTypeRequest:  "ReadByGroupTypeRequest",
	OpReadByGroupTypeResponse: "ReadByGroupTypeResponse",
	OpWriteRequest:            "WriteRequest",
	OpWriteResponse:           "WriteResponse",
	OpPrepareWriteRequest:     "PrepareWriteRequest",
	OpPrepareWriteResponse:    "PrepareWriteResponse",
	OpExecuteWriteRequest:     "ExecuteWriteRequest",
	OpExecuteWriteResponse:    "ExecuteWriteResponse",
	OpHandleValueNotification: "HandleValueNotification",
	OpHandleValueIndication:   "HandleValueIndication",
	OpHandleValueConfirmation: "HandleValueConfirmation",
	OpWriteCommand:            "WriteCommand",
	OpSignedWriteCommand:      "SignedWriteCommand",
}

// ErrorCode is the single-byte error code carried by an ATT Error Response.
// Unmapped values are preserved as-is (0x80-0x9F Application, 0xE0-0xFF
// Common Profile/Service, everything else Reserved for Future Use) so that
// encoding an ErrorCode is a bijection on the observed value.
type ErrorCode byte

const (
	ErrInvalidHandle                ErrorCode = 0x01
	ErrReadNotPermitted              ErrorCode = 0x02
	ErrWriteNotPermitted             ErrorCode = 0x03
	ErrInvalidPDU                    ErrorCode = 0x04
	ErrInsufficientAuthentication    ErrorCode = 0x05
	ErrRequestNotSupported           ErrorCode = 0x06
	ErrInvalidOffset                ErrorCode = 0x07
	ErrInsufficientAuthorization     ErrorCode = 0x08
	ErrPrepareQueueFull              ErrorCode = 0x09
	ErrAttributeNotFound             ErrorCode = 0x0A
	ErrAttributeNotLong              ErrorCode = 0x0B
	ErrInsufficientEncryptionKeySize ErrorCode = 0x0C
	ErrInvalidAttributeValueLength   ErrorCode = 0x0D
	ErrUnlikelyError                 ErrorCode = 0x0E
	ErrInsufficientEncryption        ErrorCode = 0x0F
	ErrUnsupportedGroupType          ErrorCode = 0x10
	ErrInsufficientResources         ErrorCode = 0x11
	ErrDatabaseOutOfSync             ErrorCode = 0x12
	ErrValueNotAllowed               ErrorCode = 0x13
)

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	switch {
	case c >= 0x80 && c <= 0x9F:
		return fmt.Sprintf("ApplicationError(0x%02X)", byte(c))
	case c >= 0xE0:
		return fmt.Sprintf("CommonProfileOrServiceError(0x%02X)", byte(c))
	default:
		return fmt.Sprintf("ReservedErrorCode(0x%02X)", byte(c))
	}
}

var errorCodeNames = map[ErrorCode]string{
	ErrInvalidHandle:                "InvalidHandle",
	ErrReadNotPermitted:              "ReadNotPermitted",
	ErrWriteNotPermitted:             "WriteNotPermitted",
	ErrInvalidPDU:                    "InvalidPDU",
	ErrInsufficientAuthentication:    "InsufficientAuthentication",
	ErrRequestNotSupported:           "RequestNotSupported",
	ErrInvalidOffset:                 "InvalidOffset",
	ErrInsufficientAuthorization:     "InsufficientAuthorization",
	ErrPrepareQueueFull:              "PrepareQueueFull",
	ErrAttributeNotFound:             "AttributeNotFound",
	ErrAttributeNotLong:              "AttributeNotLong",
	ErrInsufficientEncryptionKeySize: "InsufficientEncryptionKeySize",
	ErrInvalidAttributeValueLength:   "InvalidAttributeValueLength",
	ErrUnlikelyError:                 "UnlikelyError",
	ErrInsufficientEncryption:        "InsufficientEncryption",
	ErrUnsupportedGroupType:          "UnsupportedGroupType",
	ErrInsufficientResources:         "InsufficientResources",
	ErrDatabaseOutOfSync:             "DatabaseOutOfSync",
	ErrValueNotAllowed:               "ValueNotAllowed",
}

// ATTError is a protocol-level failure: it becomes an Error Response on the
// wire rather than terminating the connection.
type ATTError struct {
	RequestOpcode Opcode
	Handle        Handle
	Code          ErrorCode
}

func newATTError(op Opcode, h Handle, code ErrorCode) *ATTError {
	return &ATTError{RequestOpcode: op, Handle: h, Code: code}
}

func (e *ATTError) Error() string {
	return fmt.Sprintf("attgatt: %s at %s: %s", e.RequestOpcode, e.Handle, e.Code)
}
