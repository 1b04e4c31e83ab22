package attgatt

import "sort"

// Database is the handle-ordered attribute store. Attributes are always
// kept sorted by handle; the zero value is an empty database.
type Database struct {
	attrs []*Attribute
}

func newDatabase(attrs []*Attribute) *Database {
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].handle < attrs[j].handle })
	return &Database{attrs: attrs}
}

// Handles returns the database's handles in ascending order, for tests that
// assert the monotonicity invariant.
func (d *Database) Handles() []Handle {
	out := make([]Handle, len(d.attrs))
	for i, a := range d.attrs {
		out[i] = a.handle
	}
	return out
}

func (d *Database) indexOf(h Handle) (int, bool) {
	i := sort.Search(len(d.attrs), func(i int) bool { return d.attrs[i].handle >= h })
	if i < len(d.attrs) && d.attrs[i].handle == h {
		return i, true
	}
	return i, false
}

// attributeAt looks up a single attribute by handle.
func (d *Database) attributeAt(h Handle) (*Attribute, bool) {
	i, ok := d.indexOf(h)
	if !ok {
		return nil, false
	}
	return d.attrs[i], true
}

// inRange returns the attributes whose handle lies in [start, end], in
// ascending order.
func (d *Database) inRange(start, end Handle) []*Attribute {
	lo, _ := d.indexOf(start)
	var out []*Attribute
	for i := lo; i < len(d.attrs) && d.attrs[i].handle <= end; i++ {
		out = append(out, d.attrs[i])
	}
	return out
}

func validateRange(op Opcode, start, end Handle) *ATTError {
	if start == InvalidHandleValue || start > end {
		return newATTError(op, start, ErrInvalidHandle)
	}
	return nil
}

func mapAttrError(op Opcode, h Handle, err error, isWrite bool) *ATTError {
	ae, ok := err.(*attrError)
	if !ok {
		return newATTError(op, h, ErrUnlikelyError)
	}
	switch ae.code {
	case errPermissionDenied:
		if isWrite {
			return newATTError(op, h, ErrWriteNotPermitted)
		}
		return newATTError(op, h, ErrReadNotPermitted)
	case errAuthorizationRequired:
		return newATTError(op, h, ErrInsufficientAuthorization)
	case errAuthenticationRequired:
		return newATTError(op, h, ErrInsufficientAuthentication)
	case errInvalidDataLength:
		return newATTError(op, h, ErrInvalidAttributeValueLength)
	default:
		return newATTError(op, h, ErrUnlikelyError)
	}
}

// Read performs a single-attribute read by handle.
func (d *Database) Read(op Opcode, h Handle, authorized, authenticated bool) ([]byte, *ATTError) {
	if h == InvalidHandleValue {
		return nil, newATTError(op, h, ErrInvalidHandle)
	}
	a, ok := d.attributeAt(h)
	if !ok {
		return nil, newATTError(op, h, ErrAttributeNotFound)
	}
	v, err := a.Read(authorized, authenticated)
	if err != nil {
		return nil, mapAttrError(op, h, err, false)
	}
	return v, nil
}

// Write performs a single-attribute write by handle.
func (d *Database) Write(op Opcode, h Handle, value []byte, authorized, authenticated bool) *ATTError {
	if h == InvalidHandleValue {
		return newATTError(op, h, ErrInvalidHandle)
	}
	a, ok := d.attributeAt(h)
	if !ok {
		return newATTError(op, h, ErrAttributeNotFound)
	}
	if err := a.Write(value, authorized, authenticated); err != nil {
		return mapAttrError(op, h, err, true)
	}
	return nil
}

// CheckWritable validates that a write to h would be permitted, without
// performing it. Used by Prepare Write, which queues a fragment only after
// confirming the eventual commit would be allowed.
func (d *Database) CheckWritable(op Opcode, h Handle, authorized, authenticated bool) *ATTError {
	if h == InvalidHandleValue {
		return newATTError(op, h, ErrInvalidHandle)
	}
	a, ok := d.attributeAt(h)
	if !ok {
		return newATTError(op, h, ErrAttributeNotFound)
	}
	if err := a.CheckWritable(authorized, authenticated); err != nil {
		return mapAttrError(op, h, err, true)
	}
	return nil
}

// FoundInformation is one entry of a Find Information Response.
type FoundInformation struct {
	Handle Handle
	Type   UUID
}

// FindInformation returns contiguous (handle, attribute-type) pairs. The
// UUID width of the first returned entry fixes the format; iteration stops
// at the first entry whose UUID width differs (it is left for the client's
// next request).
func (d *Database) FindInformation(op Opcode, start, end Handle) ([]FoundInformation, *ATTError) {
	if err := validateRange(op, start, end); err != nil {
		return nil, err
	}
	var out []FoundInformation
	width := -1
	for _, a := range d.inRange(start, end) {
		t := a.Type()
		if width == -1 {
			width = t.Len()
		} else if t.Len() != width {
			break
		}
		out = append(out, FoundInformation{Handle: a.handle, Type: t})
	}
	if len(out) == 0 {
		return nil, newATTError(op, start, ErrAttributeNotFound)
	}
	return out, nil
}

// HandleValue is one (handle, value) pair, used by Read By Type.
type HandleValue struct {
	Handle Handle
	Value  []byte
}

// ReadByType returns all (handle, value) pairs in range whose type matches,
// subject to permission checks. Iteration stops at the first match that
// fails a permission check, and that failure is the request's error.
func (d *Database) ReadByType(op Opcode, start, end Handle, attrType UUID, authorized, authenticated bool) ([]HandleValue, *ATTError) {
	if err := validateRange(op, start, end); err != nil {
		return nil, err
	}
	var out []HandleValue
	for _, a := range d.inRange(start, end) {
		if !a.Type().Equal(attrType) {
			continue
		}
		v, err := a.Read(authorized, authenticated)
		if err != nil {
			return nil, mapAttrError(op, a.handle, err, false)
		}
		out = append(out, HandleValue{Handle: a.handle, Value: v})
	}
	if len(out) == 0 {
		return nil, newATTError(op, start, ErrAttributeNotFound)
	}
	return out, nil
}

// GroupEntry is one (start, end, value) group, used by Read By Group Type
// and Find By Type Value.
type GroupEntry struct {
	Start Handle
	End   Handle
	Value []byte
}

func (d *Database) groupsByType(op Opcode, start, end Handle, groupType UUID, authorized, authenticated bool) ([]GroupEntry, *ATTError) {
	attrs := d.inRange(start, end)
	var groups []GroupEntry
	open := false
	var curStart, prev Handle
	var curValue []byte
	for _, a := range attrs {
		if a.Type().Equal(groupType) {
			if open {
				groups = append(groups, GroupEntry{Start: curStart, End: prev, Value: curValue})
			}
			v, err := a.Read(authorized, authenticated)
			if err != nil {
				return nil, mapAttrError(op, a.handle, err, false)
			}
			curStart, curValue, open = a.handle, v, true
		}
		prev = a.handle
	}
	if open {
		groups = append(groups, GroupEntry{Start: curStart, End: prev, Value: curValue})
	}
	return groups, nil
}

// ReadByGroupType implements the grouping rule: each matching attribute
// opens a group that runs until the next match (or the range end). Once a
// value length is established by the first group, iteration stops at the
// first group with a different length (truncation for a later request).
func (d *Database) ReadByGroupType(op Opcode, start, end Handle, groupType UUID, authorized, authenticated bool) ([]GroupEntry, *ATTError) {
	if err := validateRange(op, start, end); err != nil {
		return nil, err
	}
	groups, err := d.groupsByType(op, start, end, groupType, authorized, authenticated)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, newATTError(op, start, ErrAttributeNotFound)
	}
	firstLen := len(groups[0].Value)
	for i, g := range groups {
		if len(g.Value) != firstLen {
			groups = groups[:i]
			break
		}
	}
	return groups, nil
}

// FindByTypeValue returns (foundHandle, groupEndHandle) pairs for groups of
// attrType whose rendered value equals value.
func (d *Database) FindByTypeValue(op Opcode, start, end Handle, attrType UUID, value []byte, authorized, authenticated bool) ([]GroupEntry, *ATTError) {
	if err := validateRange(op, start, end); err != nil {
		return nil, err
	}
	groups, err := d.groupsByType(op, start, end, attrType, authorized, authenticated)
	if err != nil {
		return nil, err
	}
	var out []GroupEntry
	for _, g := range groups {
		if bytesEqual(g.Value, value) {
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return nil, newATTError(op, start, ErrAttributeNotFound)
	}
	return out, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
