package ipcstruct

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rawbytedev/ipcstruct/pkg/numparse"
	"github.com/rawbytedev/ipcstruct/pkg/schema"
	"github.com/rawbytedev/ipcstruct/zc"
)

var (
	ErrNameRequired    = errors.New("field name required")
	ErrUnknownSchema   = schema.ErrUnknownStruct
	ErrUnknownField    = schema.ErrUnknownField
	ErrUnsupportedKind = errors.New("unsupported value kind")
	ErrArity           = errors.New("arity mismatch")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrLengthMismatch  = errors.New("array length mismatch")
	ErrKindMismatch    = errors.New("kind mismatch")
	ErrNumberFormat    = numparse.ErrNumberFormat
	ErrRange           = errors.New("value out of range")
	ErrReleased        = zc.ErrReleased
)

// FieldError is returned by every structure accessor. Err is one of the
// sentinel errors above.
type FieldError struct {
	Err    error
	Field  string // "<struct>.<field>", or the structure name alone
	Index  int    // meaningful when Err concerns an element
	Length int    // declared array length, when relevant
	Kind   Kind   // offending kind, when relevant
	Want   []Kind // kinds the accessor accepts, for ErrKindMismatch
	Detail string
}

func (e *FieldError) Error() string {
	if e.Detail == "" {
		return e.Err.Error() + ": " + e.Field
	}
	return e.Field + ": " + e.Detail
}

func (e *FieldError) Unwrap() error { return e.Err }

func nameRequired(st string) error {
	return &FieldError{Err: ErrNameRequired, Field: st, Detail: "field name required"}
}

func unknownField(st, name string) error {
	return &FieldError{Err: ErrUnknownField, Field: st + "." + name}
}

func unsupportedKind(f *schema.Field, k Kind) error {
	return &FieldError{Err: ErrUnsupportedKind, Field: f.String(), Kind: k,
		Detail: fmt.Sprintf("unsupported value kind %s", k)}
}

func notArray(f *schema.Field, idx int) error {
	return &FieldError{Err: ErrArity, Field: f.String(), Index: idx, Detail: "not an array field"}
}

func indexRequired(f *schema.Field) error {
	return &FieldError{Err: ErrArity, Field: f.String(), Length: f.ArrayLen, Detail: "index required"}
}

func outOfRange(f *schema.Field, idx int) error {
	return &FieldError{Err: ErrIndexOutOfRange, Field: f.String(), Index: idx, Length: f.ArrayLen,
		Detail: fmt.Sprintf("index %d out of range, length %d", idx, f.ArrayLen)}
}

func lengthMismatch(f *schema.Field, n int) error {
	return &FieldError{Err: ErrLengthMismatch, Field: f.String(), Index: n, Length: f.ArrayLen,
		Detail: fmt.Sprintf("array length %d does not match field length %d", n, f.ArrayLen)}
}

func kindMismatch(f *schema.Field, want ...Kind) error {
	names := make([]string, len(want))
	for i, k := range want {
		names[i] = k.String()
	}
	return &FieldError{Err: ErrKindMismatch, Field: f.String(), Kind: f.Kind, Want: want,
		Detail: fmt.Sprintf("field is %s, accessor expects %s", f.Kind, strings.Join(names, " or "))}
}

func structMismatch(f *schema.Field, got string) error {
	return &FieldError{Err: ErrKindMismatch, Field: f.String(), Kind: KindStruct, Want: []Kind{KindStruct},
		Detail: fmt.Sprintf("field holds %s, value is %s", f.Nested, got)}
}

func released(f *schema.Field) error {
	return &FieldError{Err: ErrReleased, Field: f.String(), Detail: "buffer released"}
}

// rangeError reports a native constructor argument outside a kind's domain.
func rangeError(k Kind, v any) error {
	return fmt.Errorf("%w: %v does not fit %s", ErrRange, v, k)
}

// parseError wraps a numparse failure so range failures also match ErrRange.
type parseError struct{ err error }

func (e *parseError) Error() string { return e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

func (e *parseError) Is(target error) bool {
	return target == ErrRange && numparse.IsRange(e.err)
}
