package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNumericKinds(t *testing.T) {
	p, err := EncodeParameter("Flag", 1, "255", KindByte)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, p.Bytes)

	p, err = EncodeParameter("Wait", 1, "1500", KindWord)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDC, 0x05}, p.Bytes)

	p, err = EncodeParameter("Warp", 1, "0x12345678", KindDWord)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, p.Bytes)

	p, err = EncodeParameter("Flag", 1, "0x1F", KindByte)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1F}, p.Bytes)
}

func TestEncodeRangeChecks(t *testing.T) {
	_, err := EncodeParameter("Flag", 1, "256", KindByte)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValueRange)

	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "Flag", ee.Command)
	assert.Equal(t, 1, ee.Index)
	assert.Equal(t, "256", ee.Text)
	assert.Contains(t, err.Error(), "Flag")
	assert.Contains(t, err.Error(), "0-255")

	_, err = EncodeParameter("Wait", 2, "65536", KindWord)
	assert.ErrorIs(t, err, ErrValueRange)

	_, err = EncodeParameter("Wait", 1, "-1", KindWord)
	assert.ErrorIs(t, err, ErrBadLiteral)
}

func TestEncodeNamedConstants(t *testing.T) {
	p, err := EncodeParameter("Compare", 1, "GREATEROREQUAL", KindByte)
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, p.Bytes)

	p, err = EncodeParameter("Compare", 1, "true", KindWord)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0}, p.Bytes)

	p, err = EncodeParameter("Compare", 1, "NotEqual", KindByte)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, p.Bytes)

	// A literal that is a valid number never consults the table.
	p, err = EncodeParameter("Compare", 1, "2", KindByte)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, p.Bytes)

	_, err = EncodeParameter("Compare", 1, "sideways", KindByte)
	assert.ErrorIs(t, err, ErrBadLiteral)
}

func TestEncodeOffsetLiterals(t *testing.T) {
	p, err := EncodeParameter("Jump", 1, "@1234", KindOffset)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xD2, 0x04, 0x00, 0x00}, p.Bytes)
	assert.Nil(t, p.Ref)

	// The decompiler's 8-hex-digit shape reads back as hex.
	p, err = EncodeParameter("Jump", 1, "@0000ABCD", KindOffset)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCD, 0xAB, 0x00, 0x00}, p.Bytes)

	p, err = EncodeParameter("Jump", 1, "@0x10", KindOffset)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x00, 0x00, 0x00}, p.Bytes)
}

func TestEncodeReferences(t *testing.T) {
	p, err := EncodeParameter("Jump", 1, "Function#5", KindOffset)
	require.NoError(t, err)
	require.NotNil(t, p.Ref)
	assert.Equal(t, ContainerFunction, p.Ref.Kind)
	assert.Equal(t, uint32(5), p.Ref.ID)
	assert.Equal(t, []byte{0, 0, 0, 0}, p.Bytes)

	p, err = EncodeParameter("Jump", 1, "script#12", KindOffset)
	require.NoError(t, err)
	assert.Equal(t, ContainerScript, p.Ref.Kind)

	p, err = EncodeParameter("Jump", 1, "Function#16777215", KindOffset)
	require.NoError(t, err)
	assert.Equal(t, uint32(16777215), p.Ref.ID)

	_, err = EncodeParameter("Jump", 1, "Function#16777216", KindOffset)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReferenceRange)

	// References only mean something for Offset parameters.
	_, err = EncodeParameter("Wait", 1, "Function#5", KindWord)
	assert.ErrorIs(t, err, ErrBadLiteral)
}

func TestEncodeVariable(t *testing.T) {
	p, err := EncodeParameter("Data", 1, "1, 2 3", KindVariable)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, p.Bytes)
	assert.Equal(t, 3, p.Size())

	p, err = EncodeParameter("Data", 1, "0xFF", KindVariable)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, p.Bytes)

	_, err = EncodeParameter("Data", 1, "1 256", KindVariable)
	assert.ErrorIs(t, err, ErrValueRange)

	_, err = EncodeParameter("Data", 1, "  ", KindVariable)
	assert.ErrorIs(t, err, ErrEmptyParameter)
}

func TestDecodeParameter(t *testing.T) {
	assert.Equal(t, "255", DecodeParameter([]byte{0xFF}, KindByte))
	assert.Equal(t, "1500", DecodeParameter([]byte{0xDC, 0x05}, KindWord))
	assert.Equal(t, "305419896", DecodeParameter([]byte{0x78, 0x56, 0x34, 0x12}, KindDWord))
	assert.Equal(t, "@0000ABCD", DecodeParameter([]byte{0xCD, 0xAB, 0x00, 0x00}, KindOffset))
	assert.Equal(t, "1 2 3", DecodeParameter([]byte{1, 2, 3}, KindVariable))
}

func TestDecodeParameterAuto(t *testing.T) {
	assert.Equal(t, "7", DecodeParameterAuto([]byte{7}))
	assert.Equal(t, "1500", DecodeParameterAuto([]byte{0xDC, 0x05}))
	assert.Equal(t, "65536", DecodeParameterAuto([]byte{0, 0, 1, 0}))
	assert.Equal(t, "0x010203", DecodeParameterAuto([]byte{1, 2, 3}))
}

func TestEncodeDecodeInverse(t *testing.T) {
	cases := []struct {
		text string
		kind ParameterKind
	}{
		{"255", KindByte},
		{"1500", KindWord},
		{"305419896", KindDWord},
		{"7 8 9", KindVariable},
	}
	for _, tc := range cases {
		p, err := EncodeParameter("X", 1, tc.text, tc.kind)
		require.NoError(t, err)
		assert.Equal(t, tc.text, DecodeParameter(p.Bytes, tc.kind))
	}

	// Offset round-trips through the hex rendering.
	p, err := EncodeParameter("X", 1, "@0000ABCD", KindOffset)
	require.NoError(t, err)
	rendered := DecodeParameter(p.Bytes, KindOffset)
	p2, err := EncodeParameter("X", 1, rendered, KindOffset)
	require.NoError(t, err)
	assert.Equal(t, p.Bytes, p2.Bytes)
}

func TestEncodeErrorUnwraps(t *testing.T) {
	_, err := EncodeParameter("Flag", 3, "banana", KindByte)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadLiteral))
	assert.Contains(t, err.Error(), "parameter 3")
	assert.Contains(t, err.Error(), "banana")
	assert.Contains(t, err.Error(), "Byte")
}
