// Package numparse implements the textual numeric literal grammars used by
// IPC values.
//
// Integers accept an optional sign (unsigned literals only accept '+'),
// decimal digits, octal digits after a leading '0', or hexadecimal digits
// after "0x", "0X" or "#". No type suffix or digit separator is accepted and
// the magnitude must fit the target width exactly.
//
// Floating point literals accept "NaN" and "Infinity" with an optional sign,
// decimal literals with optional fraction and exponent, hexadecimal literals
// with a mandatory binary exponent, and an optional trailing f, F, d or D.
// Overflow rounds to a signed infinity and underflow to a signed zero.
package numparse

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrNumberFormat is wrapped by every parse failure.
var ErrNumberFormat = errors.New("invalid number format")

const (
	reasonSyntax = "invalid syntax"
	reasonRange  = "value out of range"
)

// NumError records a failed conversion.
type NumError struct {
	Type   string // target type, e.g. "int16"
	Num    string // the input
	Reason string
}

func (e *NumError) Error() string {
	return fmt.Sprintf("numparse: parsing %s %q: %s", e.Type, e.Num, e.Reason)
}

func (e *NumError) Unwrap() error { return ErrNumberFormat }

// IsRange reports whether err is a NumError caused by a literal that is
// well formed but does not fit the target type.
func IsRange(err error) bool {
	var ne *NumError
	return errors.As(err, &ne) && ne.Reason == reasonRange
}

func syntaxError(typ, s string) error {
	return &NumError{Type: typ, Num: s, Reason: reasonSyntax}
}

func rangeError(typ, s string) error {
	return &NumError{Type: typ, Num: s, Reason: reasonRange}
}

// ParseInt parses s as a signed integer of the given bit width.
func ParseInt(s string, bits int) (int64, error) {
	typ := "int" + strconv.Itoa(bits)
	neg, mag, overflow, ok := scanInteger(s, true)
	if !ok {
		return 0, syntaxError(typ, s)
	}
	limit := uint64(1) << uint(bits-1)
	if neg {
		if overflow || mag > limit {
			return 0, rangeError(typ, s)
		}
		return int64(-mag), nil
	}
	if overflow || mag > limit-1 {
		return 0, rangeError(typ, s)
	}
	return int64(mag), nil
}

// ParseUint parses s as an unsigned integer of the given bit width.
func ParseUint(s string, bits int) (uint64, error) {
	typ := "uint" + strconv.Itoa(bits)
	_, mag, overflow, ok := scanInteger(s, false)
	if !ok {
		return 0, syntaxError(typ, s)
	}
	max := uint64(math.MaxUint64)
	if bits < 64 {
		max = uint64(1)<<uint(bits) - 1
	}
	if overflow || mag > max {
		return 0, rangeError(typ, s)
	}
	return mag, nil
}

// scanInteger splits s into sign and magnitude. overflow is set when the
// magnitude does not fit 64 bits; the literal is still checked for syntax.
func scanInteger(s string, allowMinus bool) (neg bool, mag uint64, overflow, ok bool) {
	if s == "" {
		return false, 0, false, false
	}
	body := s
	switch body[0] {
	case '+':
		body = body[1:]
	case '-':
		if !allowMinus {
			return false, 0, false, false
		}
		neg = true
		body = body[1:]
	}

	base := uint64(10)
	switch {
	case len(body) >= 2 && body[0] == '0' && (body[1] == 'x' || body[1] == 'X'):
		base, body = 16, body[2:]
	case len(body) >= 1 && body[0] == '#':
		base, body = 16, body[1:]
	case len(body) > 1 && body[0] == '0':
		base, body = 8, body[1:]
	}
	if body == "" {
		return false, 0, false, false
	}

	for i := 0; i < len(body); i++ {
		d, valid := digitValue(body[i])
		if !valid || d >= base {
			return false, 0, false, false
		}
		if mag > (math.MaxUint64-d)/base {
			overflow = true
			continue
		}
		mag = mag*base + d
	}
	return neg, mag, overflow, true
}

func digitValue(c byte) (uint64, bool) {
	switch {
	case '0' <= c && c <= '9':
		return uint64(c - '0'), true
	case 'a' <= c && c <= 'f':
		return uint64(c-'a') + 10, true
	case 'A' <= c && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}

// ParseFloat parses s as a floating point literal rounded to the given bit
// size (32 or 64). The result is always returned as a float64 that is exactly
// representable at that size.
func ParseFloat(s string, bits int) (float64, error) {
	typ := "float" + strconv.Itoa(bits)
	if s == "" {
		return 0, syntaxError(typ, s)
	}
	body := s
	negative := false
	if body[0] == '+' || body[0] == '-' {
		negative = body[0] == '-'
		body = body[1:]
	}

	switch body {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		if negative {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	}

	if n := len(body); n > 0 {
		switch body[n-1] {
		case 'f', 'F', 'd', 'D':
			body = body[:n-1]
		}
	}

	hex := len(body) >= 2 && body[0] == '0' && (body[1] == 'x' || body[1] == 'X')
	if hex {
		if !validHexFloat(body[2:]) {
			return 0, syntaxError(typ, s)
		}
	} else if !validDecimalFloat(body) {
		return 0, syntaxError(typ, s)
	}

	literal := body
	if negative {
		literal = "-" + body
	}
	f, err := strconv.ParseFloat(literal, bits)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, syntaxError(typ, s)
	}
	return f, nil
}

func validDecimalFloat(b string) bool {
	i, digits := 0, 0
	for i < len(b) && isDecimal(b[i]) {
		i++
		digits++
	}
	if i < len(b) && b[i] == '.' {
		i++
		for i < len(b) && isDecimal(b[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		i++
		j, ok := scanExponent(b, i)
		if !ok {
			return false
		}
		i = j
	}
	return i == len(b)
}

func validHexFloat(b string) bool {
	i, digits := 0, 0
	for i < len(b) && isHex(b[i]) {
		i++
		digits++
	}
	if i < len(b) && b[i] == '.' {
		i++
		for i < len(b) && isHex(b[i]) {
			i++
			digits++
		}
	}
	if digits == 0 || i >= len(b) || (b[i] != 'p' && b[i] != 'P') {
		return false
	}
	j, ok := scanExponent(b, i+1)
	return ok && j == len(b)
}

// scanExponent consumes an optionally signed run of decimal digits starting
// at i.
func scanExponent(b string, i int) (int, bool) {
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		i++
	}
	start := i
	for i < len(b) && isDecimal(b[i]) {
		i++
	}
	return i, i > start
}

func isDecimal(c byte) bool { return '0' <= c && c <= '9' }

func isHex(c byte) bool {
	_, ok := digitValue(c)
	return ok
}

// FormatFloat renders f in a form ParseFloat reads back to the same value.
func FormatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
