package command

import (
	"fmt"

	"github.com/cyberinferno/gamesession/codec"
)

// PUTOBJ field widths.
const (
	PropertyNameSize = 8
	putObjHeaderSize = IDSize + codec.Uint64Size + codec.Uint64Size
)

// Operation is what a PUTOBJ asks the server to do with the object.
type Operation uint64

const (
	OperationAdd    Operation = 0
	OperationDelete Operation = 1
	OperationUpdate Operation = 2
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OperationAdd:
		return "Add"
	case OperationDelete:
		return "Delete"
	case OperationUpdate:
		return "Update"
	default:
		return fmt.Sprintf("Operation(%d)", uint64(o))
	}
}

// ParseOperation maps a wire operation code to an Operation.
//
// Returns:
//   - The operation
//   - ErrUnknownOperation for any code other than 0, 1 or 2
func ParseOperation(code uint64) (Operation, error) {
	switch op := Operation(code); op {
	case OperationAdd, OperationDelete, OperationUpdate:
		return op, nil
	default:
		return 0, fmt.Errorf("%w: code %d", ErrUnknownOperation, code)
	}
}

// ObjectProperty is one named blob attached to a game object. Length always
// equals len(Data) for properties produced by DecodeObjectProperty or
// NewObjectProperty.
type ObjectProperty struct {
	Name   string
	Length uint32
	Data   []byte
}

// NewObjectProperty builds a property and sets Length from data.
//
// Returns:
//   - The property
//   - codec.ErrOverflow if data is longer than a uint32 can describe
func NewObjectProperty(name string, data []byte) (ObjectProperty, error) {
	n, err := codec.Uint32FromInt(len(data))
	if err != nil {
		return ObjectProperty{}, fmt.Errorf("property %s: %w", name, err)
	}

	return ObjectProperty{Name: name, Length: n, Data: data}, nil
}

// Encode serializes the property as its name padded to 8 bytes, the data
// length as a little-endian uint32, then the data.
func (p ObjectProperty) Encode() ([]byte, error) {
	n, err := codec.Uint32FromInt(len(p.Data))
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", p.Name, err)
	}

	if n != p.Length {
		return nil, fmt.Errorf("%w: %s declares %d bytes, holds %d", ErrLengthMismatch, p.Name, p.Length, n)
	}

	return codec.Join(codec.PadString(p.Name, PropertyNameSize), codec.EncodeUint32LE(n), p.Data), nil
}

// DecodeObjectProperty reads one property from r, consuming exactly the
// bytes it occupies so r can be reused for the next property.
//
// Returns:
//   - The property, with its data copied out of the reader's buffer
//   - ErrTruncatedMessage if r runs out before the property is complete
func DecodeObjectProperty(r *codec.Reader) (ObjectProperty, error) {
	name, err := r.ReadString(PropertyNameSize)
	if err != nil {
		return ObjectProperty{}, truncated("property name", err)
	}

	length, err := r.ReadUint32LE()
	if err != nil {
		return ObjectProperty{}, truncated("property length", err)
	}

	n, err := codec.IntFromUint32(length)
	if err != nil {
		return ObjectProperty{}, malformed("property length", err)
	}

	data, err := r.ReadFixed(n)
	if err != nil {
		return ObjectProperty{}, truncated("property data", err)
	}

	return ObjectProperty{
		Name:   name,
		Length: length,
		Data:   append([]byte(nil), data...),
	}, nil
}

// PutObj uploads a game object as a list of properties. The server decodes
// and validates it but does not act on it.
type PutObj struct {
	ID         string
	Operation  Operation
	Properties []ObjectProperty
}

// NewPutObj builds a PUTOBJ.
func NewPutObj(op Operation, props ...ObjectProperty) PutObj {
	return PutObj{ID: PutObjID, Operation: op, Properties: props}
}

func (PutObj) command() {}

// Identifier implements Command.
func (p PutObj) Identifier() string { return p.ID }

// Encode implements Command.
func (p PutObj) Encode() ([]byte, error) {
	parts := make([][]byte, 0, 3+len(p.Properties))
	parts = append(parts,
		codec.PadString(p.ID, IDSize),
		codec.EncodeUint64LE(uint64(p.Operation)),
		codec.EncodeUint64LE(uint64(len(p.Properties))),
	)

	for _, prop := range p.Properties {
		b, err := prop.Encode()
		if err != nil {
			return nil, err
		}

		parts = append(parts, b)
	}

	return codec.Join(parts...), nil
}

// DecodePutObj decodes a PUTOBJ frame.
//
// Returns:
//   - The decoded PutObj
//   - ErrMalformedMessage if the 24-byte header is incomplete or bytes remain
//     after the last property
//   - ErrUnknownOperation if the operation code is not 0, 1 or 2
//   - ErrTruncatedMessage if the frame ends before every declared property
func DecodePutObj(frame []byte) (PutObj, error) {
	if len(frame) < putObjHeaderSize {
		return PutObj{}, fmt.Errorf("%w: putobj header needs %d bytes, have %d", ErrMalformedMessage, putObjHeaderSize, len(frame))
	}

	r := codec.NewReader(frame)

	id, err := r.ReadString(IDSize)
	if err != nil {
		return PutObj{}, malformed("putobj id", err)
	}

	if id != PutObjID {
		return PutObj{}, &ValidationError{Command: PutObjID, Field: "id", Value: id, Reason: "unexpected identifier"}
	}

	code, err := r.ReadUint64LE()
	if err != nil {
		return PutObj{}, malformed("putobj operation", err)
	}

	op, err := ParseOperation(code)
	if err != nil {
		return PutObj{}, err
	}

	count, err := r.ReadUint64LE()
	if err != nil {
		return PutObj{}, malformed("putobj count", err)
	}

	var props []ObjectProperty
	for i := uint64(0); i < count; i++ {
		if r.Len() == 0 {
			return PutObj{}, fmt.Errorf("%w: %d of %d properties present", ErrTruncatedMessage, i, count)
		}

		prop, err := DecodeObjectProperty(r)
		if err != nil {
			return PutObj{}, fmt.Errorf("property %d: %w", i, err)
		}

		props = append(props, prop)
	}

	if r.Len() > 0 {
		return PutObj{}, fmt.Errorf("%w: %d trailing bytes after properties", ErrMalformedMessage, r.Len())
	}

	return PutObj{ID: id, Operation: op, Properties: props}, nil
}
