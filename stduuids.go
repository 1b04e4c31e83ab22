package attgatt

// Standard 16-bit attribute and service/characteristic UUIDs assigned by
// the Bluetooth SIG, provided for applications building a Registration.
// This is not an exhaustive assigned-numbers table; add more as a concrete
// component needs them.
var (
	UUIDGenericAccessService        = UUID16(0x1800)
	UUIDGenericAttributeService     = UUID16(0x1801)
	UUIDBatteryService              = UUID16(0x180F)
	UUIDDeviceInformationService    = UUID16(0x180A)

	UUIDDeviceNameChar        = UUID16(0x2A00)
	UUIDAppearanceChar        = UUID16(0x2A01)
	UUIDBatteryLevelChar      = UUID16(0x2A19)
	UUIDManufacturerNameChar  = UUID16(0x2A29)
	UUIDServiceChangedChar    = UUID16(0x2A05)
)
