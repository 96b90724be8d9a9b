package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mesh-intelligence/journal/pkg/types"
)

// Field numbers of the experiment body message. Zero-valued scalars are
// omitted, as in proto3.
const (
	fieldSensorLayouts  protowire.Number = 1
	fieldLabels         protowire.Number = 5
	fieldTitle          protowire.Number = 6
	fieldDescription    protowire.Number = 7
	fieldCreationTimeMs protowire.Number = 8
	fieldSortKey        protowire.Number = 9
	fieldArchived       protowire.Number = 10
)

// Label message.
const (
	fieldLabelID        protowire.Number = 1
	fieldLabelType      protowire.Number = 2
	fieldLabelCreatedMs protowire.Number = 3
	fieldLabelText      protowire.Number = 4
	fieldLabelFilePath  protowire.Number = 5
)

// SensorLayout message.
const (
	fieldLayoutSensorID     protowire.Number = 1
	fieldLayoutCardPosition protowire.Number = 2
)

const initialBufferSize = 256

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendInt(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func marshalBody(s *types.ExperimentSchema) []byte {
	b := make([]byte, 0, initialBufferSize)
	for _, sl := range s.SensorLayouts {
		var m []byte
		m = appendString(m, fieldLayoutSensorID, sl.SensorID)
		m = appendInt(m, fieldLayoutCardPosition, int64(sl.CardPosition))
		b = appendMessage(b, fieldSensorLayouts, m)
	}
	for _, l := range s.Labels {
		var m []byte
		m = appendString(m, fieldLabelID, l.LabelID)
		m = appendString(m, fieldLabelType, l.LabelType)
		m = appendInt(m, fieldLabelCreatedMs, l.CreationTimeMs)
		m = appendString(m, fieldLabelText, l.Text)
		m = appendString(m, fieldLabelFilePath, l.FilePath)
		b = appendMessage(b, fieldLabels, m)
	}
	b = appendString(b, fieldTitle, s.Title)
	b = appendString(b, fieldDescription, s.Description)
	b = appendInt(b, fieldCreationTimeMs, s.CreationTimeMs)
	b = appendInt(b, fieldSortKey, int64(s.SortKey))
	b = appendBool(b, fieldArchived, s.Archived)
	return b
}

// fieldFunc decodes one field value from b and returns the number of bytes
// it consumed, or a negative protowire error code.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) int

// consumeMessage walks the fields of a message. Fields field does not
// recognize must be skipped with protowire.ConsumeFieldValue.
func consumeMessage(b []byte, field fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("decode body: %w: %w", ErrTruncated, protowire.ParseError(n))
		}
		b = b[n:]
		n = field(num, typ, b)
		if n < 0 {
			return fmt.Errorf("decode field %d: %w: %w", num, ErrTruncated, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

// consumeString and the other scalar readers skip a field with an
// unexpected wire type like an unknown field.
func consumeString(num protowire.Number, typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return protowire.ConsumeFieldValue(num, typ, b)
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func consumeInt64(num protowire.Number, typ protowire.Type, b []byte, dst *int64) int {
	if typ != protowire.VarintType {
		return protowire.ConsumeFieldValue(num, typ, b)
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int64(v)
	}
	return n
}

func consumeInt32(num protowire.Number, typ protowire.Type, b []byte, dst *int32) int {
	if typ != protowire.VarintType {
		return protowire.ConsumeFieldValue(num, typ, b)
	}
	var v int64
	n := consumeInt64(num, typ, b, &v)
	if n >= 0 {
		*dst = int32(v)
	}
	return n
}

func consumeBool(num protowire.Number, typ protowire.Type, b []byte, dst *bool) int {
	if typ != protowire.VarintType {
		return protowire.ConsumeFieldValue(num, typ, b)
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n
}

// consumeSubMessage reads a length-delimited field and decodes it with
// field. ok is false when the field was skipped or could not be decoded.
func consumeSubMessage(num protowire.Number, typ protowire.Type, b []byte, field fieldFunc, errp *error) (n int, ok bool) {
	if typ != protowire.BytesType {
		return protowire.ConsumeFieldValue(num, typ, b), false
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, false
	}
	if err := consumeMessage(v, field); err != nil {
		if *errp == nil {
			*errp = err
		}
		return n, false
	}
	return n, true
}

func unmarshalBody(b []byte, s *types.ExperimentSchema) error {
	var nestedErr error
	err := consumeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldSensorLayouts:
			var sl types.SensorLayout
			n, ok := consumeSubMessage(num, typ, b, func(num protowire.Number, typ protowire.Type, b []byte) int {
				switch num {
				case fieldLayoutSensorID:
					return consumeString(num, typ, b, &sl.SensorID)
				case fieldLayoutCardPosition:
					return consumeInt32(num, typ, b, &sl.CardPosition)
				}
				return protowire.ConsumeFieldValue(num, typ, b)
			}, &nestedErr)
			if ok {
				s.SensorLayouts = append(s.SensorLayouts, sl)
			}
			return n
		case fieldLabels:
			var l types.Label
			n, ok := consumeSubMessage(num, typ, b, func(num protowire.Number, typ protowire.Type, b []byte) int {
				switch num {
				case fieldLabelID:
					return consumeString(num, typ, b, &l.LabelID)
				case fieldLabelType:
					return consumeString(num, typ, b, &l.LabelType)
				case fieldLabelCreatedMs:
					return consumeInt64(num, typ, b, &l.CreationTimeMs)
				case fieldLabelText:
					return consumeString(num, typ, b, &l.Text)
				case fieldLabelFilePath:
					return consumeString(num, typ, b, &l.FilePath)
				}
				return protowire.ConsumeFieldValue(num, typ, b)
			}, &nestedErr)
			if ok {
				s.Labels = append(s.Labels, l)
			}
			return n
		case fieldTitle:
			return consumeString(num, typ, b, &s.Title)
		case fieldDescription:
			return consumeString(num, typ, b, &s.Description)
		case fieldCreationTimeMs:
			return consumeInt64(num, typ, b, &s.CreationTimeMs)
		case fieldSortKey:
			return consumeInt32(num, typ, b, &s.SortKey)
		case fieldArchived:
			return consumeBool(num, typ, b, &s.Archived)
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return err
	}
	return nestedErr
}
