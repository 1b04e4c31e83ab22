package attgatt

// Token identifies a characteristic to the application, independent of its
// handle (handles are an artifact of how the Registration happened to lay
// the database out). Any comparable value works: a string name, an int
// enum, whatever the caller finds convenient.
type Token = interface{}

// CharProps is the builder-level property bitmask accepted by
// AddCharacteristic. It is a superset of the wire CharacteristicProperties
// byte: the low byte aligns numerically with it (so the wire bits can be
// extracted with a mask), and the high bits carry builder-only concerns
// (extended-properties descriptor bits, and a permission-only
// authorization flag) that never appear verbatim on the wire.
type CharProps uint32

const (
	CPBroadcast                 CharProps = CharProps(PropBroadcast)
	CPRead                      CharProps = CharProps(PropRead)
	CPWriteWithoutResponse      CharProps = CharProps(PropWriteWithoutResponse)
	CPWrite                     CharProps = CharProps(PropWrite)
	CPNotify                    CharProps = CharProps(PropNotify)
	CPIndicate                  CharProps = CharProps(PropIndicate)
	CPAuthenticatedSignedWrites CharProps = CharProps(PropAuthenticatedSignedWrites)
	CPReliableWrite             CharProps = 0x0100
	CPWritableAuxiliaries       CharProps = 0x0200
	CPAuthorizationRequired     CharProps = 0x010000
)

func (p CharProps) perm() Permission {
	var perm Permission
	if p&CPRead != 0 {
		perm |= PermReadable
	}
	if p&(CPWrite|CPWriteWithoutResponse) != 0 {
		perm |= PermWritable
	}
	if p&CPAuthenticatedSignedWrites != 0 {
		perm |= PermAuthenticationRequired
	}
	if p&CPAuthorizationRequired != 0 {
		perm |= PermAuthorizationRequired
	}
	return perm
}

// wire splits p into the wire declaration properties byte and the extended
// properties descriptor bitmap; EXTENDED_PROPERTIES is forced into the
// returned byte whenever the extended bitmap is non-empty.
func (p CharProps) wire() (CharacteristicProperties, ExtendedProperties) {
	prop := CharacteristicProperties(p & 0xFF)
	ext := ExtendedProperties((p >> 8) & 0xFF)
	if ext != 0 {
		prop |= PropExtendedProperties
	}
	return prop, ext
}

func (a *Attribute) clone() *Attribute {
	c := *a
	if a.value != nil {
		c.value = append([]byte(nil), a.value...)
	}
	if a.aggregateHandles != nil {
		c.aggregateHandles = append([]Handle(nil), a.aggregateHandles...)
	}
	return &c
}

// Registration is a fluent builder that allocates handles sequentially
// starting at 0x0001 and accumulates the declaration/value/descriptor
// attribute triples for each service and characteristic. Build may be
// called more than once (e.g. once per accepted connection, since
// ClientCharacteristicConfiguration state is per-client) — each call
// materializes an independent Database from the same specification.
type Registration struct {
	nextHandle    Handle
	specs         []*Attribute
	writeTokens   map[Handle]Token
	notifyHandles map[Token]Handle
}

// NewRegistration returns an empty builder, ready for AddPrimaryService /
// AddCharacteristic / AddDescriptor calls.
func NewRegistration() *Registration {
	return &Registration{
		nextHandle:    0x0001,
		writeTokens:   make(map[Handle]Token),
		notifyHandles: make(map[Token]Handle),
	}
}

func (r *Registration) allocHandle() Handle {
	h := r.nextHandle
	r.nextHandle++
	return h
}

// AddPrimaryService appends a Primary Service declaration.
func (r *Registration) AddPrimaryService(uuid UUID) Handle {
	h := r.allocHandle()
	r.specs = append(r.specs, newServiceAttribute(h, true, uuid))
	return h
}

// AddSecondaryService appends a Secondary Service declaration.
func (r *Registration) AddSecondaryService(uuid UUID) Handle {
	h := r.allocHandle()
	r.specs = append(r.specs, newServiceAttribute(h, false, uuid))
	return h
}

// AddCharacteristic appends a Characteristic declaration, value attribute,
// and any descriptors its properties imply (extended properties, CCC, SCC).
// It returns the value attribute's handle.
func (r *Registration) AddCharacteristic(uuid UUID, value []byte, props CharProps) Handle {
	return r.addCharacteristic(nil, uuid, value, props)
}

// AddCharacteristicWithToken is AddCharacteristic, additionally recording
// token in the write-tokens / notify-handles maps Build returns, so the
// GATT Handler can correlate writes and notify/indicate calls back to this
// characteristic without the caller having to track raw handles.
func (r *Registration) AddCharacteristicWithToken(token Token, uuid UUID, value []byte, props CharProps) Handle {
	return r.addCharacteristic(&token, uuid, value, props)
}

func (r *Registration) addCharacteristic(token *Token, uuid UUID, value []byte, props CharProps) Handle {
	declHandle := r.allocHandle()
	valHandle := r.allocHandle()

	perm := props.perm()
	writable := perm.has(PermWritable)
	notify := props&CPNotify != 0
	indicate := props&CPIndicate != 0
	broadcast := props&CPBroadcast != 0
	wireProp, ext := props.wire()

	r.specs = append(r.specs, newCharacteristicAttribute(declHandle, wireProp, valHandle, uuid))
	r.specs = append(r.specs, newCharacteristicValueAttribute(valHandle, uuid, append([]byte(nil), value...), perm))

	if ext != 0 {
		h := r.allocHandle()
		r.specs = append(r.specs, newExtendedPropertiesAttribute(h, ext))
	}
	if notify || indicate {
		h := r.allocHandle()
		if token != nil {
			r.notifyHandles[*token] = valHandle
		}
		r.specs = append(r.specs, newClientCharCfgAttribute(h, 0, PermReadable|PermWritable))
	}
	if broadcast {
		h := r.allocHandle()
		r.specs = append(r.specs, newServerCharCfgAttribute(h, 0, PermReadable|PermWritable))
	}
	if writable && token != nil {
		r.writeTokens[valHandle] = *token
	}
	return valHandle
}

// AddDescriptor appends a user-defined descriptor attribute under the most
// recently added characteristic.
func (r *Registration) AddDescriptor(uuid UUID, value []byte, writable bool) Handle {
	h := r.allocHandle()
	perm := PermReadable
	if writable {
		perm |= PermWritable
	}
	r.specs = append(r.specs, newDescriptorAttribute(h, uuid, append([]byte(nil), value...), perm))
	return h
}

// Build materializes a fresh Database (and copies of the write-token /
// notify-handle maps) from the accumulated specification.
func (r *Registration) Build() (*Database, map[Handle]Token, map[Token]Handle) {
	cloned := make([]*Attribute, len(r.specs))
	for i, s := range r.specs {
		cloned[i] = s.clone()
	}
	db := newDatabase(cloned)

	wt := make(map[Handle]Token, len(r.writeTokens))
	for k, v := range r.writeTokens {
		wt[k] = v
	}
	nh := make(map[Token]Handle, len(r.notifyHandles))
	for k, v := range r.notifyHandles {
		nh[k] = v
	}
	return db, wt, nh
}
