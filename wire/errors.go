package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the reader and writer. Concrete errors wrap or
// match one of these, so callers test with errors.Is.
var (
	// ErrOutOfData means an operation would read past the end of the buffer.
	ErrOutOfData = errors.New("accelite: out of data")
	// ErrTypeMismatch means the accessor does not match the current wire type.
	ErrTypeMismatch = errors.New("accelite: wire type mismatch")
	// ErrInvalidWireType means a wire type has no defined length or is not
	// in the catalog.
	ErrInvalidWireType = errors.New("accelite: invalid wire type")
	// ErrInvalidConfig means a config byte nibble has no catalog entry.
	ErrInvalidConfig = errors.New("accelite: invalid config byte")
	// ErrInvalidFieldIndex means a field index cannot be packed into a tag.
	ErrInvalidFieldIndex = errors.New("accelite: invalid field index")
	// ErrNoCurrentField means an accessor was called without a preceding
	// successful HasNext, or after the field was already consumed.
	ErrNoCurrentField = errors.New("accelite: no current field")
	// ErrVarintTooLong means a varint did not terminate within 5 bytes.
	ErrVarintTooLong = errors.New("accelite: varint too long")
	// ErrInvalidString means string bytes are not valid in the stream encoding.
	ErrInvalidString = errors.New("accelite: invalid string data")
	// ErrUnknownField means a strict schema decode met an undeclared index.
	ErrUnknownField = errors.New("accelite: unknown field")
	// ErrInvalidValue means a value cannot be encoded as its schema type.
	ErrInvalidValue = errors.New("accelite: invalid value for field type")
)

// TypeMismatchError reports an accessor that does not match the wire type
// announced by the current tag.
type TypeMismatchError struct {
	Index  FieldIndex
	Actual WireType
	Target string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("accelite: field %d has wire type %s, cannot read as %s", e.Index, e.Actual, e.Target)
}

// Is matches ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// InvalidWireTypeError reports a wire type that cannot be used where it was
// found.
type InvalidWireTypeError struct {
	WireType WireType
}

func (e *InvalidWireTypeError) Error() string {
	return fmt.Sprintf("accelite: invalid wire type %s", e.WireType)
}

// Is matches ErrInvalidWireType.
func (e *InvalidWireTypeError) Is(target error) bool {
	return target == ErrInvalidWireType
}

// InvalidFieldIndexError reports a field index outside 1..MaxFieldIndex.
type InvalidFieldIndexError struct {
	Index FieldIndex
}

func (e *InvalidFieldIndexError) Error() string {
	return fmt.Sprintf("accelite: field index %d outside 1..%d", e.Index, MaxFieldIndex)
}

// Is matches ErrInvalidFieldIndex.
func (e *InvalidFieldIndexError) Is(target error) bool {
	return target == ErrInvalidFieldIndex
}

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["order", "items", "price"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at field path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// wrapWithField prefixes the path of err with fieldName, flattening nested
// FieldErrors so the path is never repeated.
func wrapWithField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}

// outOfData builds the ErrOutOfData error for a read of need bytes at off.
func outOfData(need, off, have int) error {
	return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrOutOfData, need, off, have)
}
