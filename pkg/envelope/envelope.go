// Package envelope frames structure instances for the transport.
//
// Layout (little-endian):
//
//	0   magic "IPS1"
//	4   version uint16
//	6   flags uint16 (low two bits: compression)
//	8   schema ID uint64
//	16  raw length uint32
//	20  payload length uint32
//	24  varint name length, structure name
//	..  payload (raw or compressed structure bytes)
//	..  CRC32 (IEEE) of every preceding byte
package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/rawbytedev/ipcstruct"
	"github.com/rawbytedev/ipcstruct/internal/common"
	"github.com/rawbytedev/ipcstruct/internal/logging"
	"github.com/rawbytedev/ipcstruct/pkg/schema"
	"github.com/rawbytedev/ipcstruct/zc"
)

const (
	Magic      = "IPS1"
	Version    = 1
	HeaderSize = 24
	trailer    = 4
)

var (
	ErrTruncated      = errors.New("envelope: truncated")
	ErrMagic          = errors.New("envelope: bad magic")
	ErrVersion        = errors.New("envelope: unsupported version")
	ErrChecksum       = errors.New("envelope: checksum mismatch")
	ErrSchemaMismatch = errors.New("envelope: schema mismatch")
	ErrCompression    = errors.New("envelope: compression")
	ErrNotRaw         = errors.New("envelope: payload is compressed")
)

// Options control Encode.
type Options struct {
	Compression Compression
}

// Header is the decoded fixed part of an envelope plus the schema name.
type Header struct {
	Version    uint16
	Flags      uint16
	SchemaID   uint64
	RawLen     uint32
	PayloadLen uint32
	Name       string
	payloadOff int
}

func (h Header) Compression() Compression { return Compression(h.Flags & compMask) }

// Encode frames s. A compression that does not shrink the bytes falls
// back to none.
func Encode(s *ipcstruct.Struct, opts Options) ([]byte, error) {
	raw := s.Bytes()
	if raw == nil {
		return nil, fmt.Errorf("envelope: %s: %w", s.Name(), ipcstruct.ErrReleased)
	}
	sc := s.Schema()
	name := sc.Name()

	out := make([]byte, HeaderSize, HeaderSize+binary.MaxVarintLen64+len(name)+len(raw)+trailer)
	out = common.WriteVarUint(out, uint64(len(name)))
	out = append(out, name...)
	payloadOff := len(out)

	comp := opts.Compression
	out, err := compress(out, comp, raw)
	if errors.Is(err, errIncompressible) {
		comp = CompNone
		out, err = compress(out, comp, raw)
	}
	if err != nil {
		return nil, err
	}

	copy(out[0:4], Magic)
	binary.LittleEndian.PutUint16(out[4:], Version)
	binary.LittleEndian.PutUint16(out[6:], uint16(comp)&compMask)
	binary.LittleEndian.PutUint64(out[8:], sc.ID())
	binary.LittleEndian.PutUint32(out[16:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[20:], uint32(len(out)-payloadOff))

	crc := crc32.ChecksumIEEE(out)
	out = binary.LittleEndian.AppendUint32(out, crc)

	logging.L().Debug().Str("struct", name).Str("compression", comp.String()).
		Int("raw", len(raw)).Int("frame", len(out)).Msg("envelope encoded")
	return out, nil
}

// Peek validates framing and checksum and returns the header.
func Peek(data []byte) (Header, error) {
	if len(data) < HeaderSize+1+trailer {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	if string(data[0:4]) != Magic {
		return Header{}, ErrMagic
	}
	h := Header{
		Version:    binary.LittleEndian.Uint16(data[4:]),
		Flags:      binary.LittleEndian.Uint16(data[6:]),
		SchemaID:   binary.LittleEndian.Uint64(data[8:]),
		RawLen:     binary.LittleEndian.Uint32(data[16:]),
		PayloadLen: binary.LittleEndian.Uint32(data[20:]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	body := len(data) - trailer
	want := binary.LittleEndian.Uint32(data[body:])
	if crc32.ChecksumIEEE(data[:body]) != want {
		return Header{}, ErrChecksum
	}
	n, used := common.ReadVarUint(data[HeaderSize:body])
	if used == 0 || n > uint64(body-HeaderSize-used) {
		return Header{}, fmt.Errorf("%w: schema name", ErrTruncated)
	}
	start := HeaderSize + used
	h.Name = string(data[start : start+int(n)])
	h.payloadOff = start + int(n)
	if h.payloadOff+int(h.PayloadLen) != body {
		return Header{}, fmt.Errorf("%w: payload length %d, frame holds %d", ErrTruncated, h.PayloadLen, body-h.payloadOff)
	}
	return h, nil
}

func resolve(reg *schema.Registry, h Header) (*schema.Schema, error) {
	if reg == nil {
		reg = schema.Default()
	}
	sc, err := reg.Lookup(h.Name)
	if err != nil {
		return nil, err
	}
	if sc.ID() != h.SchemaID || uint32(sc.Size()) != h.RawLen {
		return nil, fmt.Errorf("%w: %s id %016x size %d, frame has id %016x size %d",
			ErrSchemaMismatch, h.Name, sc.ID(), sc.Size(), h.SchemaID, h.RawLen)
	}
	return sc, nil
}

// Decode unpacks data into a new owning instance resolved in reg. A nil
// reg means schema.Default().
func Decode(reg *schema.Registry, data []byte) (*ipcstruct.Struct, error) {
	h, err := Peek(data)
	if err != nil {
		return nil, err
	}
	sc, err := resolve(reg, h)
	if err != nil {
		return nil, err
	}
	buf := zc.New(sc.Size())
	payload := data[h.payloadOff : h.payloadOff+int(h.PayloadLen)]
	if err := decompress(buf.Bytes(), h.Compression(), payload); err != nil {
		buf.Release()
		return nil, err
	}
	return ipcstruct.Adopt(sc, buf, 0)
}

// View binds a view directly over the payload of an uncompressed frame.
// The view aliases data and must not outlive it.
func View(reg *schema.Registry, data []byte) (*ipcstruct.Struct, error) {
	h, err := Peek(data)
	if err != nil {
		return nil, err
	}
	if h.Compression() != CompNone {
		return nil, fmt.Errorf("%w: %s", ErrNotRaw, h.Compression())
	}
	sc, err := resolve(reg, h)
	if err != nil {
		return nil, err
	}
	return ipcstruct.Wrap(sc, zc.Wrap(data), h.payloadOff)
}

// Wrap binds a view of sc at offset inside a transport buffer.
func Wrap(sc *schema.Schema, buf []byte, offset int) (*ipcstruct.Struct, error) {
	return ipcstruct.Wrap(sc, zc.Wrap(buf), offset)
}
