// Package codec encodes experiment schemas into the journal's binary
// container and decodes them back.
//
// Container layout:
//
//	magic    [4]byte  "JRNX"
//	format   uint8    container format, currently 1
//	major    int32    big-endian schema major version
//	minor    int32    big-endian schema minor version
//	length   uvarint  length of the compressed body
//	body     []byte   snappy block of the field body
//	checksum uint32   big-endian CRC-32C of the uncompressed body
//
// The version pair sits outside the compressed body so it can be read
// without decoding the rest of the file. The body is protobuf wire format;
// unknown fields are skipped so later minor versions can add fields.
//
// Decode(Encode(s)) equals s except that empty Labels and SensorLayouts
// come back nil.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"

	"github.com/mesh-intelligence/journal/pkg/types"
)

const (
	magic         = "JRNX"
	formatV1      = uint8(1)
	headerSize    = len(magic) + 1 + 4 + 4
	checksumSize  = 4
	maxBodyLength = 64 << 20
)

// Decode errors.
var (
	ErrBadMagic          = errors.New("not a journal experiment file")
	ErrUnsupportedFormat = errors.New("unsupported container format")
	ErrTruncated         = errors.New("truncated experiment data")
	ErrChecksum          = errors.New("experiment checksum mismatch")
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Encode serializes schema into a new container. The output is a pure
// function of the schema.
func Encode(schema *types.ExperimentSchema) ([]byte, error) {
	if schema == nil {
		return nil, fmt.Errorf("encode: %w", types.ErrInvalidData)
	}

	body := marshalBody(schema)
	if len(body) > maxBodyLength {
		return nil, fmt.Errorf("encode: body of %d bytes exceeds limit", len(body))
	}

	compressed := snappy.Encode(nil, body)

	out := make([]byte, 0, headerSize+binary.MaxVarintLen64+len(compressed)+checksumSize)
	out = append(out, magic...)
	out = append(out, formatV1)
	out = binary.BigEndian.AppendUint32(out, uint32(schema.Version.Major))
	out = binary.BigEndian.AppendUint32(out, uint32(schema.Version.Minor))
	out = binary.AppendUvarint(out, uint64(len(compressed)))
	out = append(out, compressed...)
	out = binary.BigEndian.AppendUint32(out, crc32.Checksum(body, crcTable))
	return out, nil
}

// Decode parses a container produced by Encode.
func Decode(data []byte) (*types.ExperimentSchema, error) {
	version, err := PeekVersion(data)
	if err != nil {
		return nil, err
	}

	rest := data[headerSize:]
	n, size := binary.Uvarint(rest)
	if size <= 0 {
		return nil, fmt.Errorf("decode body length: %w", ErrTruncated)
	}
	rest = rest[size:]
	if n > uint64(len(rest)) || len(rest)-int(n) != checksumSize {
		return nil, fmt.Errorf("decode body: %w", ErrTruncated)
	}

	bodyLen, err := snappy.DecodedLen(rest[:n])
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if bodyLen > maxBodyLength {
		return nil, fmt.Errorf("decode body: length %d exceeds limit", bodyLen)
	}
	body, err := snappy.Decode(nil, rest[:n])
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if binary.BigEndian.Uint32(rest[n:]) != crc32.Checksum(body, crcTable) {
		return nil, ErrChecksum
	}

	schema := &types.ExperimentSchema{Version: version}
	if err := unmarshalBody(body, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// PeekVersion returns the schema version from a container header without
// decoding the body.
func PeekVersion(data []byte) (types.Version, error) {
	if len(data) < headerSize {
		return types.Version{}, ErrTruncated
	}
	if string(data[:len(magic)]) != magic {
		return types.Version{}, ErrBadMagic
	}
	if data[len(magic)] != formatV1 {
		return types.Version{}, fmt.Errorf("format %d: %w", data[len(magic)], ErrUnsupportedFormat)
	}
	off := len(magic) + 1
	return types.Version{
		Major: int32(binary.BigEndian.Uint32(data[off:])),
		Minor: int32(binary.BigEndian.Uint32(data[off+4:])),
	}, nil
}
