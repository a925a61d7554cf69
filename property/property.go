// Package property implements the firmware's typed property table: a
// static list of named properties with compiled-in defaults, read through
// a storage.Store when one is attached. A property read never fails; if
// the store is unavailable or the key was never written, the default is
// returned.
package property

import (
	"fmt"
	"math"

	"github.com/stanley-fork/bluepad32/storage"
)

// Namespace is the storage namespace all properties live under.
const Namespace = "bp32"

// Type describes the wire/storage type of a property.
type Type int

const (
	TypeU8 Type = iota
	TypeU32
	TypeFloat
	TypeString
)

// Index identifies a property. Indexes are stable and match the order of
// the table below.
type Index int

const (
	DebugEnabled Index = iota
	MouseScale
	VirtualDeviceEnabled

	indexCount
)

// Value holds a property value; the field matching the property's Type is
// the meaningful one.
type Value struct {
	U8  uint8
	U32 uint32
	F32 float32
	Str string
}

// Property is one entry of the static table.
type Property struct {
	Idx     Index
	Name    string
	Type    Type
	Default Value
}

var properties = [indexCount]Property{
	{DebugEnabled, "debug.enabled", TypeU8, Value{U8: 0}},
	{MouseScale, "mouse.scale", TypeFloat, Value{F32: 1.0}},
	{VirtualDeviceEnabled, "virtual_device.enabled", TypeU8, Value{U8: 0}},
}

// FloatBits encodes a float for the integer-only store by reinterpreting
// its IEEE-754 bit pattern as a uint32. This is a serialization
// convention, not a numeric conversion: DecodeFloat(FloatBits(f)) == f
// bit-for-bit.
func FloatBits(f float32) uint32 {
	return math.Float32bits(f)
}

// FloatFromBits reverses FloatBits exactly.
func FloatFromBits(b uint32) float32 {
	return math.Float32frombits(b)
}

// Lookup returns the table entry for idx, or false for an invalid index.
func Lookup(idx Index) (Property, bool) {
	if idx < 0 || idx >= indexCount {
		return Property{}, false
	}
	return properties[idx], true
}

// Table binds the static property list to a storage backend. A nil store
// is valid and makes every Get return the default.
type Table struct {
	store storage.Store
}

// NewTable creates a property table over store. store may be nil.
func NewTable(store storage.Store) *Table {
	return &Table{store: store}
}

// Get returns the property value, falling back to the compiled-in default
// when the store is unavailable or has no entry.
func (t *Table) Get(idx Index) Value {
	p, ok := Lookup(idx)
	if !ok {
		return Value{}
	}
	if t.store == nil {
		return p.Default
	}

	switch p.Type {
	case TypeU8:
		v, err := t.store.GetU32(Namespace, p.Name)
		if err != nil {
			return p.Default
		}
		return Value{U8: uint8(v)}
	case TypeU32:
		v, err := t.store.GetU32(Namespace, p.Name)
		if err != nil {
			return p.Default
		}
		return Value{U32: v}
	case TypeFloat:
		v, err := t.store.GetU32(Namespace, p.Name)
		if err != nil {
			return p.Default
		}
		return Value{F32: FloatFromBits(v)}
	case TypeString:
		v, err := t.store.GetString(Namespace, p.Name)
		if err != nil {
			return p.Default
		}
		return Value{Str: v}
	}
	return p.Default
}

// Set writes the property value and commits it.
func (t *Table) Set(idx Index, v Value) error {
	p, ok := Lookup(idx)
	if !ok {
		return fmt.Errorf("property: invalid index %d", idx)
	}
	if t.store == nil {
		return fmt.Errorf("property: no store attached")
	}

	var err error
	switch p.Type {
	case TypeU8:
		err = t.store.SetU32(Namespace, p.Name, uint32(v.U8))
	case TypeU32:
		err = t.store.SetU32(Namespace, p.Name, v.U32)
	case TypeFloat:
		err = t.store.SetU32(Namespace, p.Name, FloatBits(v.F32))
	case TypeString:
		err = t.store.SetString(Namespace, p.Name, v.Str)
	}
	if err != nil {
		return fmt.Errorf("property: set %s: %w", p.Name, err)
	}
	if err := t.store.Commit(); err != nil {
		return fmt.Errorf("property: commit %s: %w", p.Name, err)
	}
	return nil
}

// ListAll dumps every property through print, one line per entry.
func (t *Table) ListAll(print func(string)) {
	for i := Index(0); i < indexCount; i++ {
		p := properties[i]
		v := t.Get(i)
		switch p.Type {
		case TypeU8:
			print(fmt.Sprintf("%s = %d", p.Name, v.U8))
		case TypeU32:
			print(fmt.Sprintf("%s = %d (%#x)", p.Name, v.U32, v.U32))
		case TypeFloat:
			print(fmt.Sprintf("%s = %f", p.Name, v.F32))
		case TypeString:
			print(fmt.Sprintf("%s = '%s'", p.Name, v.Str))
		}
	}
}
