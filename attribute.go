package attgatt

import (
	"encoding/binary"
	"unicode/utf8"
)

// Permission is the access-control bitmask an Attribute enforces on
// read/write.
type Permission uint8

const (
	PermReadable              Permission = 1 << iota // READABLE
	PermWritable                                      // WRITEABLE
	PermAuthorizationRequired                         // AUTHORIZATION_REQUIRED
	PermAuthenticationRequired                        // AUTHENTICATION_REQUIRED
)

func (p Permission) has(bit Permission) bool { return p&bit != 0 }

// CharacteristicProperties is the one-byte properties bitmap carried by a
// Characteristic declaration, matching the GATT wire values exactly.
type CharacteristicProperties uint8

const (
	PropBroadcast                 CharacteristicProperties = 0x01
	PropRead                      CharacteristicProperties = 0x02
	PropWriteWithoutResponse      CharacteristicProperties = 0x04
	PropWrite                     CharacteristicProperties = 0x08
	PropNotify                    CharacteristicProperties = 0x10
	PropIndicate                  CharacteristicProperties = 0x20
	PropAuthenticatedSignedWrites CharacteristicProperties = 0x40
	PropExtendedProperties        CharacteristicProperties = 0x80
)

func (p CharacteristicProperties) has(bit CharacteristicProperties) bool { return p&bit != 0 }

// ExtendedProperties is the Characteristic Extended Properties (0x2900)
// descriptor bitmap.
type ExtendedProperties uint8

const (
	ExtPropReliableWrite       ExtendedProperties = 0x01
	ExtPropWritableAuxiliaries ExtendedProperties = 0x02
)

// CCCConfig is the Client Characteristic Configuration (0x2902) bitmap.
type CCCConfig uint16

const (
	CCCNotify   CCCConfig = 0x0001
	CCCIndicate CCCConfig = 0x0002
)

// SCCConfig is the Server Characteristic Configuration (0x2903) bitmap.
type SCCConfig uint16

const SCCBroadcast SCCConfig = 0x0001

// Attribute type (declaration) UUIDs, Bluetooth-assigned.
var (
	typePrimaryService      = UUID16(0x2800)
	typeSecondaryService    = UUID16(0x2801)
	typeInclude             = UUID16(0x2802)
	typeCharacteristic      = UUID16(0x2803)
	typeExtendedProperties  = UUID16(0x2900)
	typeUserDescription     = UUID16(0x2901)
	typeClientCharCfg       = UUID16(0x2902)
	typeServerCharCfg       = UUID16(0x2903)
	typePresentationFormat  = UUID16(0x2904)
	typeAggregateFormat     = UUID16(0x2905)
)

type attrErrorCode int

const (
	errPermissionDenied attrErrorCode = iota
	errAuthorizationRequired
	errAuthenticationRequired
	errInvalidDataLength
)

// attrError is the Attribute-level failure, mapped to ATT error codes by the
// Database (the mapping differs for read vs write, so Attribute itself
// stays codec-agnostic).
type attrError struct{ code attrErrorCode }

func (e *attrError) Error() string {
	switch e.code {
	case errPermissionDenied:
		return "attgatt: permission denied"
	case errAuthorizationRequired:
		return "attgatt: authorization required"
	case errAuthenticationRequired:
		return "attgatt: authentication required"
	case errInvalidDataLength:
		return "attgatt: invalid data length"
	default:
		return "attgatt: attribute error"
	}
}

type attrKind uint8

const (
	kindService attrKind = iota
	kindInclude
	kindCharacteristic
	kindCharacteristicValue
	kindExtendedProperties
	kindUserDescription
	kindClientCharCfg
	kindServerCharCfg
	kindPresentationFormat
	kindAggregateFormat
	kindDescriptor
)

// Attribute is a single row of the GATT database: a tagged variant keyed by
// its role, per the Bluetooth attribute table. Every variant exposes a
// handle, a type UUID, permission bits, and Read/Write.
type Attribute struct {
	kind   attrKind
	handle Handle

	primary bool // Service
	uuid    UUID // Service / Characteristic / Descriptor UUID

	includedServiceHandle Handle // Include
	endGroupHandle        Handle // Include

	declProps   CharacteristicProperties // Characteristic declaration
	valueHandle Handle                   // Characteristic declaration

	attrType UUID   // CharacteristicValue: the characteristic's own UUID
	value    []byte // CharacteristicValue / Descriptor / UserDescription(as bytes)

	permission Permission

	extProps ExtendedProperties // CharacteristicExtendedProperties
	cccConfig CCCConfig          // ClientCharacteristicConfiguration
	sccConfig SCCConfig          // ServerCharacteristicConfiguration

	pfFormat      byte   // CharacteristicPresentationFormat
	pfExponent    byte
	pfUnit        uint16
	pfNamespace   uint16
	pfDescription uint16

	aggregateHandles []Handle // CharacteristicAggregateFormat
}

func newServiceAttribute(h Handle, primary bool, uuid UUID) *Attribute {
	return &Attribute{kind: kindService, handle: h, primary: primary, uuid: uuid}
}

func newIncludeAttribute(h, included, endGroup Handle, uuid UUID) *Attribute {
	return &Attribute{kind: kindInclude, handle: h, includedServiceHandle: included, endGroupHandle: endGroup, uuid: uuid}
}

func newCharacteristicAttribute(h Handle, props CharacteristicProperties, valueHandle Handle, uuid UUID) *Attribute {
	return &Attribute{kind: kindCharacteristic, handle: h, declProps: props, valueHandle: valueHandle, uuid: uuid}
}

func newCharacteristicValueAttribute(h Handle, attrType UUID, value []byte, perm Permission) *Attribute {
	return &Attribute{kind: kindCharacteristicValue, handle: h, attrType: attrType, value: value, permission: perm}
}

func newExtendedPropertiesAttribute(h Handle, ext ExtendedProperties) *Attribute {
	return &Attribute{kind: kindExtendedProperties, handle: h, extProps: ext}
}

func newUserDescriptionAttribute(h Handle, description string, perm Permission) *Attribute {
	return &Attribute{kind: kindUserDescription, handle: h, value: []byte(description), permission: perm}
}

func newClientCharCfgAttribute(h Handle, cfg CCCConfig, perm Permission) *Attribute {
	return &Attribute{kind: kindClientCharCfg, handle: h, cccConfig: cfg, permission: perm}
}

func newServerCharCfgAttribute(h Handle, cfg SCCConfig, perm Permission) *Attribute {
	return &Attribute{kind: kindServerCharCfg, handle: h, sccConfig: cfg, permission: perm}
}

func newPresentationFormatAttribute(h Handle, format, exponent byte, unit, namespace, description uint16) *Attribute {
	return &Attribute{kind: kindPresentationFormat, handle: h, pfFormat: format, pfExponent: exponent, pfUnit: unit, pfNamespace: namespace, pfDescription: description}
}

func newAggregateFormatAttribute(h Handle, handles []Handle) *Attribute {
	return &Attribute{kind: kindAggregateFormat, handle: h, aggregateHandles: handles}
}

func newDescriptorAttribute(h Handle, uuid UUID, value []byte, perm Permission) *Attribute {
	return &Attribute{kind: kindDescriptor, handle: h, uuid: uuid, value: value, permission: perm}
}

// Handle is the attribute's own handle.
func (a *Attribute) Handle() Handle { return a.handle }

// Type is the attribute type UUID (the "declaration" UUID for structural
// attributes, or the attribute's own UUID for values/descriptors).
func (a *Attribute) Type() UUID {
	switch a.kind {
	case kindService:
		if a.primary {
			return typePrimaryService
		}
		return typeSecondaryService
	case kindInclude:
		return typeInclude
	case kindCharacteristic:
		return typeCharacteristic
	case kindCharacteristicValue:
		return a.attrType
	case kindExtendedProperties:
		return typeExtendedProperties
	case kindUserDescription:
		return typeUserDescription
	case kindClientCharCfg:
		return typeClientCharCfg
	case kindServerCharCfg:
		return typeServerCharCfg
	case kindPresentationFormat:
		return typePresentationFormat
	case kindAggregateFormat:
		return typeAggregateFormat
	case kindDescriptor:
		return a.uuid
	default:
		return UUID{}
	}
}

// Permission reports this attribute's access-control bits.
func (a *Attribute) Permission() Permission {
	switch a.kind {
	case kindService, kindInclude, kindCharacteristic, kindExtendedProperties, kindPresentationFormat, kindAggregateFormat:
		return PermReadable
	default:
		return a.permission
	}
}

// Read renders the attribute's current value as bytes, honoring permission
// and authorization/authentication requirements.
func (a *Attribute) Read(authorized, authenticated bool) ([]byte, error) {
	perm := a.Permission()
	if !perm.has(PermReadable) {
		return nil, &attrError{errPermissionDenied}
	}
	if !authorized && perm.has(PermAuthorizationRequired) {
		return nil, &attrError{errAuthorizationRequired}
	}
	if !authenticated && perm.has(PermAuthenticationRequired) {
		return nil, &attrError{errAuthenticationRequired}
	}

	switch a.kind {
	case kindService:
		return a.uuid.wireBytes(), nil
	case kindInclude:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint16(b[0:], uint16(a.includedServiceHandle))
		binary.LittleEndian.PutUint16(b[2:], uint16(a.endGroupHandle))
		return append(b, a.uuid.wireBytes()...), nil
	case kindCharacteristic:
		b := make([]byte, 3)
		b[0] = byte(a.declProps)
		binary.LittleEndian.PutUint16(b[1:], uint16(a.valueHandle))
		return append(b, a.uuid.wireBytes()...), nil
	case kindCharacteristicValue:
		return a.value, nil
	case kindExtendedProperties:
		return []byte{byte(a.extProps)}, nil
	case kindUserDescription:
		return a.value, nil
	case kindClientCharCfg:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(a.cccConfig))
		return b, nil
	case kindServerCharCfg:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(a.sccConfig))
		return b, nil
	case kindPresentationFormat:
		b := make([]byte, 8)
		b[0] = a.pfFormat
		b[1] = a.pfExponent
		binary.LittleEndian.PutUint16(b[2:], a.pfUnit)
		binary.LittleEndian.PutUint16(b[4:], a.pfNamespace)
		binary.LittleEndian.PutUint16(b[6:], a.pfDescription)
		return b, nil
	case kindAggregateFormat:
		b := make([]byte, 2*len(a.aggregateHandles))
		for i, h := range a.aggregateHandles {
			binary.LittleEndian.PutUint16(b[2*i:], uint16(h))
		}
		return b, nil
	case kindDescriptor:
		return a.value, nil
	default:
		return nil, &attrError{errPermissionDenied}
	}
}

// CheckWritable runs the same permission/authorization/authentication
// checks as Write without touching the attribute's value, for callers that
// need to validate a pending write before it is assembled (Prepare Write).
func (a *Attribute) CheckWritable(authorized, authenticated bool) error {
	perm := a.Permission()
	if !perm.has(PermWritable) {
		return &attrError{errPermissionDenied}
	}
	if !authorized && perm.has(PermAuthorizationRequired) {
		return &attrError{errAuthorizationRequired}
	}
	if !authenticated && perm.has(PermAuthenticationRequired) {
		return &attrError{errAuthenticationRequired}
	}
	return nil
}

// Write parses bytes into the attribute, honoring permission and
// authorization/authentication requirements. For a CharacteristicValue the
// value becomes exactly the supplied bytes, with no length check.
func (a *Attribute) Write(val []byte, authorized, authenticated bool) error {
	perm := a.Permission()
	if !perm.has(PermWritable) {
		return &attrError{errPermissionDenied}
	}
	if !authorized && perm.has(PermAuthorizationRequired) {
		return &attrError{errAuthorizationRequired}
	}
	if !authenticated && perm.has(PermAuthenticationRequired) {
		return &attrError{errAuthenticationRequired}
	}

	switch a.kind {
	case kindService:
		switch len(val) {
		case 2:
			a.uuid = UUID16(binary.LittleEndian.Uint16(val))
		case 16:
			a.uuid = UUID128(toCanonical128(val))
		default:
			return &attrError{errInvalidDataLength}
		}
	case kindInclude:
		if len(val) != 6 && len(val) != 20 {
			return &attrError{errInvalidDataLength}
		}
		a.includedServiceHandle = Handle(binary.LittleEndian.Uint16(val[0:]))
		a.endGroupHandle = Handle(binary.LittleEndian.Uint16(val[2:]))
		rest := val[4:]
		switch len(rest) {
		case 2:
			a.uuid = UUID16(binary.LittleEndian.Uint16(rest))
		case 16:
			a.uuid = UUID128(toCanonical128(rest))
		default:
			return &attrError{errInvalidDataLength}
		}
	case kindCharacteristic:
		if len(val) != 5 && len(val) != 19 {
			return &attrError{errInvalidDataLength}
		}
		a.declProps = CharacteristicProperties(val[0])
		a.valueHandle = Handle(binary.LittleEndian.Uint16(val[1:]))
		rest := val[3:]
		switch len(rest) {
		case 2:
			a.uuid = UUID16(binary.LittleEndian.Uint16(rest))
		case 16:
			a.uuid = UUID128(toCanonical128(rest))
		default:
			return &attrError{errInvalidDataLength}
		}
	case kindCharacteristicValue:
		a.value = append([]byte(nil), val...)
	case kindExtendedProperties:
		if len(val) < 1 {
			return &attrError{errInvalidDataLength}
		}
		a.extProps = ExtendedProperties(val[0])
	case kindUserDescription:
		if !utf8.Valid(val) {
			return &attrError{errInvalidDataLength}
		}
		a.value = append([]byte(nil), val...)
	case kindClientCharCfg:
		if len(val) < 2 {
			return &attrError{errInvalidDataLength}
		}
		a.cccConfig = CCCConfig(binary.LittleEndian.Uint16(val))
	case kindServerCharCfg:
		if len(val) < 2 {
			return &attrError{errInvalidDataLength}
		}
		a.sccConfig = SCCConfig(binary.LittleEndian.Uint16(val))
	case kindPresentationFormat:
		if len(val) != 8 {
			return &attrError{errInvalidDataLength}
		}
		a.pfFormat = val[0]
		a.pfExponent = val[1]
		a.pfUnit = binary.LittleEndian.Uint16(val[2:])
		a.pfNamespace = binary.LittleEndian.Uint16(val[4:])
		a.pfDescription = binary.LittleEndian.Uint16(val[6:])
	case kindAggregateFormat:
		if len(val)%2 != 0 {
			return &attrError{errInvalidDataLength}
		}
		handles := make([]Handle, 0, len(val)/2)
		for i := 0; i+2 <= len(val); i += 2 {
			handles = append(handles, Handle(binary.LittleEndian.Uint16(val[i:])))
		}
		a.aggregateHandles = handles
	case kindDescriptor:
		a.value = append([]byte(nil), val...)
	default:
		return &attrError{errPermissionDenied}
	}
	return nil
}
