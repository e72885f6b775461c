package ptnet

import "bytes"

// Builder writes an ASDH once, then any number of (DUI, IOA [, IE]...)
// groups (spec §4.1). It is a thin sequential serializer: it does not
// consult an IE-width table, so callers are responsible for supplying
// exactly the IE bytes they intend to appear on the wire, whether that is a
// zeroed IE slot or no IE at all.
type Builder struct {
	buf bytes.Buffer
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// WithASDH writes the ASDU header. Call exactly once, before any group.
func (b *Builder) WithASDH(asdh ASDH) *Builder {
	enc := asdh.encode()
	b.buf.Write(enc[:])
	return b
}

// BeginGroup writes a DUI, starting a new DUI_group.
func (b *Builder) BeginGroup(dui DUI) *Builder {
	enc := dui.encode()
	b.buf.Write(enc[:])
	return b
}

// AddIOA writes an information object address.
func (b *Builder) AddIOA(ioa IOA) *Builder {
	b.buf.WriteByte(byte(ioa))
	return b
}

// AddIE writes a typed information element's encoded wire bytes.
func (b *Builder) AddIE(ie IE) error {
	enc, err := EncodeIE(ie)
	if err != nil {
		return err
	}
	b.buf.Write(enc)
	return nil
}

// AddRawIE writes raw IE bytes verbatim, for command groups whose IE shape
// is not one of this package's typed variants.
func (b *Builder) AddRawIE(raw []byte) *Builder {
	b.buf.Write(raw)
	return b
}

// Bytes returns the accumulated ASDU.
func (b *Builder) Bytes() []byte { return b.buf.Bytes() }
