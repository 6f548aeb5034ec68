package mlmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodePropertyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   PropertyValue
	}{
		{"int", IntValue(42)},
		{"negative int", IntValue(-7)},
		{"double", DoubleValue(3.14)},
		{"string", StringValue("hello")},
		{"empty string", StringValue("")},
		{"proto shares the string column", ProtoValue([]byte("opaque bytes"))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := encodeProperty(tc.in)
			got, err := decodeProperty("test", encoded)
			assert.NoError(t, err)
			assert.Equal(t, tc.in.DataType(), got.DataType())
			// Proto round-trips through the string column; its bytes survive
			// even though DataType/IsProto no longer distinguish it.
			if tc.in.IsInt() {
				assert.Equal(t, tc.in.Int(), got.Int())
			} else if tc.in.IsDouble() {
				assert.Equal(t, tc.in.Double(), got.Double())
			} else {
				assert.Equal(t, tc.in.String(), got.String())
			}
		})
	}
}

func TestEncodePropertyExactlyOneColumnSet(t *testing.T) {
	e := encodeProperty(IntValue(1))
	assert.True(t, e.IntValue.Valid)
	assert.False(t, e.DoubleValue.Valid)
	assert.False(t, e.StringValue.Valid)

	e = encodeProperty(DoubleValue(1.5))
	assert.False(t, e.IntValue.Valid)
	assert.True(t, e.DoubleValue.Valid)
	assert.False(t, e.StringValue.Valid)

	e = encodeProperty(StringValue("x"))
	assert.False(t, e.IntValue.Valid)
	assert.False(t, e.DoubleValue.Valid)
	assert.True(t, e.StringValue.Valid)
}

func TestDecodePropertyAllNullIsDataCorruption(t *testing.T) {
	_, err := decodeProperty("test_op", encodedProperty{})
	assert.Error(t, err)
	assert.True(t, IsKind(err, KindDataCorruption))
}

func TestDecodePropertyPrefersIntOverDoubleOverString(t *testing.T) {
	// A malformed row with more than one column set should never occur in
	// practice, but decodeProperty must still pick deterministically.
	e := encodedProperty{}
	e.IntValue.Valid = true
	e.IntValue.Int64 = 5
	e.DoubleValue.Valid = true
	e.DoubleValue.Float64 = 9.9
	got, err := decodeProperty("test", e)
	assert.NoError(t, err)
	assert.True(t, got.IsInt())
	assert.Equal(t, int64(5), got.Int())
}

func TestPropertyValueEqual(t *testing.T) {
	assert.True(t, IntValue(1).equal(IntValue(1)))
	assert.False(t, IntValue(1).equal(IntValue(2)))
	assert.False(t, IntValue(1).equal(StringValue("1")))
	assert.True(t, StringValue("a").equal(StringValue("a")))
}
