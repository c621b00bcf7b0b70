package ipcstruct

import (
	"fmt"

	"github.com/rawbytedev/ipcstruct/pkg/netaddr"
	"github.com/rawbytedev/ipcstruct/pkg/numparse"
)

func ParseInt8(s string) (Value, error)  { return Parse(KindInt8, s) }
func ParseInt16(s string) (Value, error) { return Parse(KindInt16, s) }
func ParseInt32(s string) (Value, error) { return Parse(KindInt32, s) }
func ParseInt64(s string) (Value, error) { return Parse(KindInt64, s) }

func ParseUint8(s string) (Value, error)  { return Parse(KindUint8, s) }
func ParseUint16(s string) (Value, error) { return Parse(KindUint16, s) }
func ParseUint32(s string) (Value, error) { return Parse(KindUint32, s) }
func ParseUint64(s string) (Value, error) { return Parse(KindUint64, s) }

func ParseFloat32(s string) (Value, error) { return Parse(KindFloat32, s) }
func ParseFloat64(s string) (Value, error) { return Parse(KindFloat64, s) }

func ParseIPv4(s string) (Value, error) { return Parse(KindIPv4, s) }
func ParseIPv6(s string) (Value, error) { return Parse(KindIPv6, s) }

// Parse reads the text form of a value of kind k. Numeric failures wrap
// ErrNumberFormat; out-of-range integers additionally match ErrRange.
func Parse(k Kind, s string) (Value, error) {
	switch {
	case k.IsSigned():
		n, err := numparse.ParseInt(s, k.Width()*8)
		if err != nil {
			return Value{}, &parseError{err: err}
		}
		return Value{kind: k, bits: uint64(n)}, nil
	case k.IsUnsigned():
		n, err := numparse.ParseUint(s, k.Width()*8)
		if err != nil {
			return Value{}, &parseError{err: err}
		}
		return Value{kind: k, bits: n}, nil
	case k == KindFloat32:
		f, err := numparse.ParseFloat(s, 32)
		if err != nil {
			return Value{}, &parseError{err: err}
		}
		return Float32(float32(f)), nil
	case k == KindFloat64:
		f, err := numparse.ParseFloat(s, 64)
		if err != nil {
			return Value{}, &parseError{err: err}
		}
		return Float64(f), nil
	case k == KindIPv4:
		a, err := netaddr.ParseIPv4(s)
		if err != nil {
			return Value{}, err
		}
		return Addr(a), nil
	case k == KindIPv6:
		a, err := netaddr.ParseIPv6(s)
		if err != nil {
			return Value{}, err
		}
		return IPv6(a), nil
	case k == KindText:
		return Text(s), nil
	case k == KindNull:
		if s == "null" || s == "" {
			return Null(), nil
		}
	}
	return Value{}, fmt.Errorf("%w: cannot parse %s from text", ErrUnsupportedKind, k)
}
