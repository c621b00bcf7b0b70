package schema

import (
	"fmt"
	"strings"
)

// Kind identifies the variant held by a value and the storage type of a
// structure field. The set is closed.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindIPv4
	KindIPv6
	KindText
	KindBytes
	KindStruct
)

var kindNames = [...]string{
	KindNull:    "NULL",
	KindInt8:    "INT8",
	KindUint8:   "UINT8",
	KindInt16:   "INT16",
	KindUint16:  "UINT16",
	KindInt32:   "INT32",
	KindUint32:  "UINT32",
	KindInt64:   "INT64",
	KindUint64:  "UINT64",
	KindFloat32: "FLOAT",
	KindFloat64: "DOUBLE",
	KindIPv4:    "IPV4",
	KindIPv6:    "IPV6",
	KindText:    "STRING",
	KindBytes:   "BINARY",
	KindStruct:  "STRUCT",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// Width is the storage size in bytes of one element of kind k, or 0 for
// kinds without a fixed width (struct widths come from their schema).
func (k Kind) Width() int {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32, KindIPv4:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	case KindIPv6:
		return 16
	default:
		return 0
	}
}

// Align is the natural alignment of kind k inside a structure.
func (k Kind) Align() int {
	switch k {
	case KindIPv6:
		return 4
	default:
		if w := k.Width(); w > 0 {
			return w
		}
		return 1
	}
}

func (k Kind) IsSigned() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

func (k Kind) IsUnsigned() bool {
	switch k {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	}
	return false
}

func (k Kind) IsInteger() bool { return k.IsSigned() || k.IsUnsigned() }

func (k Kind) IsFloat() bool { return k == KindFloat32 || k == KindFloat64 }

func (k Kind) IsAddress() bool { return k == KindIPv4 || k == KindIPv6 }

// Storable reports whether a structure field may hold kind k. Text, bytes
// and null have no fixed-width representation.
func (k Kind) Storable() bool {
	switch k {
	case KindText, KindBytes, KindNull:
		return false
	}
	return int(k) < len(kindNames)
}

// ParseKind reads a kind name. Canonical upper-case names are accepted
// along with the lower-case Go-style aliases used in definition files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "null":
		return KindNull, nil
	case "int8", "byte":
		return KindInt8, nil
	case "uint8":
		return KindUint8, nil
	case "int16":
		return KindInt16, nil
	case "uint16":
		return KindUint16, nil
	case "int32":
		return KindInt32, nil
	case "uint32":
		return KindUint32, nil
	case "int64":
		return KindInt64, nil
	case "uint64":
		return KindUint64, nil
	case "float", "float32":
		return KindFloat32, nil
	case "double", "float64":
		return KindFloat64, nil
	case "ipv4":
		return KindIPv4, nil
	case "ipv6":
		return KindIPv6, nil
	case "string", "text":
		return KindText, nil
	case "binary", "bytes":
		return KindBytes, nil
	case "struct":
		return KindStruct, nil
	}
	return KindNull, fmt.Errorf("%w: unknown kind %q", ErrInvalidDefinition, s)
}
