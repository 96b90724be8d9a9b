package codec

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mesh-intelligence/journal/pkg/types"
)

func sampleSchema() *types.ExperimentSchema {
	return &types.ExperimentSchema{
		Version:        types.Version{Major: 1, Minor: 1},
		Title:          "Pendulum period",
		Description:    "Measuring g with a string and a bolt",
		CreationTimeMs: 1_700_000_000_000,
		SortKey:        4,
		Archived:       true,
		Labels: []types.Label{
			{LabelID: "l1", LabelType: types.LabelTypeText, CreationTimeMs: 11, Text: "first swing"},
			{LabelID: "l2", LabelType: types.LabelTypePicture, CreationTimeMs: 12, FilePath: "assets/bolt.jpg"},
		},
		SensorLayouts: []types.SensorLayout{
			{SensorID: "accelerometer-x", CardPosition: 0},
			{SensorID: "magnetometer", CardPosition: -1},
		},
	}
}

func randomString(r *rand.Rand) string {
	n := r.IntN(40)
	var sb strings.Builder
	for range n {
		sb.WriteRune(rune(r.IntN(0x2FF) + 1))
	}
	return sb.String()
}

func randomSchema(r *rand.Rand) *types.ExperimentSchema {
	s := &types.ExperimentSchema{
		Version:        types.Version{Major: r.Int32(), Minor: -r.Int32()},
		Title:          randomString(r),
		Description:    randomString(r),
		CreationTimeMs: r.Int64() - r.Int64(),
		SortKey:        r.Int32() - r.Int32(),
		Archived:       r.IntN(2) == 1,
	}
	if n := r.IntN(4); n > 0 {
		for i := range n {
			s.Labels = append(s.Labels, types.Label{
				LabelID:        randomString(r),
				LabelType:      []string{types.LabelTypeText, types.LabelTypePicture, types.LabelTypeSensor}[i%3],
				CreationTimeMs: r.Int64(),
				Text:           randomString(r),
				FilePath:       randomString(r),
			})
		}
	}
	if n := r.IntN(4); n > 0 {
		for range n {
			s.SensorLayouts = append(s.SensorLayouts, types.SensorLayout{
				SensorID:     randomString(r),
				CardPosition: r.Int32() - r.Int32(),
			})
		}
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	t.Run("sample", func(t *testing.T) {
		in := sampleSchema()
		data, err := Encode(in)
		require.NoError(t, err)

		out, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("zero value", func(t *testing.T) {
		in := &types.ExperimentSchema{}
		data, err := Encode(in)
		require.NoError(t, err)

		out, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("random", func(t *testing.T) {
		r := rand.New(rand.NewPCG(1, 2))
		for i := range 500 {
			in := randomSchema(r)
			data, err := Encode(in)
			require.NoError(t, err, "case %d", i)

			out, err := Decode(data)
			require.NoError(t, err, "case %d", i)
			require.Equal(t, in, out, "case %d", i)
		}
	})
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(sampleSchema())
	require.NoError(t, err)
	b, err := Encode(sampleSchema())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestEncodeNil(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestEmptyListsDecodeAsNil(t *testing.T) {
	in := &types.ExperimentSchema{Labels: []types.Label{}, SensorLayouts: []types.SensorLayout{}}
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Nil(t, out.Labels)
	assert.Nil(t, out.SensorLayouts)
}

func TestPeekVersion(t *testing.T) {
	s := sampleSchema()
	s.Version = types.Version{Major: 3, Minor: 9}
	data, err := Encode(s)
	require.NoError(t, err)

	v, err := PeekVersion(data)
	require.NoError(t, err)
	assert.Equal(t, types.Version{Major: 3, Minor: 9}, v)
}

func TestDecodeErrors(t *testing.T) {
	good, err := Encode(sampleSchema())
	require.NoError(t, err)

	corrupt := func(fn func([]byte) []byte) []byte {
		cp := append([]byte(nil), good...)
		return fn(cp)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncated},
		{"short header", good[:5], ErrTruncated},
		{"bad magic", corrupt(func(b []byte) []byte { b[0] = 'X'; return b }), ErrBadMagic},
		{"unknown format", corrupt(func(b []byte) []byte { b[4] = 9; return b }), ErrUnsupportedFormat},
		{"missing checksum", good[:len(good)-2], ErrTruncated},
		{"trailing garbage", append(append([]byte(nil), good...), 0), ErrTruncated},
		{"checksum flipped", corrupt(func(b []byte) []byte { b[len(b)-1] ^= 0xFF; return b }), ErrChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBodySkipsUnknownFields(t *testing.T) {
	body := marshalBody(sampleSchema())
	body = protowire.AppendTag(body, 99, protowire.BytesType)
	body = protowire.AppendString(body, "added in a later minor version")
	body = protowire.AppendTag(body, fieldTitle, protowire.Fixed32Type)
	body = protowire.AppendFixed32(body, 7)

	var s types.ExperimentSchema
	require.NoError(t, unmarshalBody(body, &s))
	s.Version = sampleSchema().Version
	assert.Equal(t, sampleSchema(), &s)
}

func TestBodyRejectsTruncatedField(t *testing.T) {
	var body []byte
	body = protowire.AppendTag(body, fieldTitle, protowire.BytesType)
	body = protowire.AppendVarint(body, 40)
	body = append(body, "short"...)

	var s types.ExperimentSchema
	err := unmarshalBody(body, &s)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Empty(t, s.Title)
}

func TestBodyRejectsTruncatedLabel(t *testing.T) {
	var label []byte
	label = protowire.AppendTag(label, fieldLabelID, protowire.BytesType)
	label = protowire.AppendVarint(label, 10)

	var body []byte
	body = protowire.AppendTag(body, fieldLabels, protowire.BytesType)
	body = protowire.AppendBytes(body, label)

	var s types.ExperimentSchema
	err := unmarshalBody(body, &s)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Nil(t, s.Labels)
}
