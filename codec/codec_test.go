package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	Map map[string]bool
	Arr []int
}

func TestJSONCodec(t *testing.T) {
	c := &JSONCodec{}
	var buf bytes.Buffer

	if err := c.Encoder(&buf).Encode(testData{
		Map: map[string]bool{"true": true, "false": false},
		Arr: []int{1, 2, 3},
	}); err != nil {
		t.Fatal(err)
	}

	var data testData
	if err := c.Decoder(&buf).Decode(&data); err != nil {
		t.Fatal(err)
	}

	if data.Map["true"] != true || data.Arr[2] != 3 {
		t.Fatal("unexpected data:", data)
	}
}

func TestJSONCodecIndent(t *testing.T) {
	b, err := Marshal(JSONCodec{Indent: "  "}, map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("unexpected encoding: %q", b)
	}
}

func TestCBORCodec(t *testing.T) {
	b, err := Marshal(CBORCodec{}, testData{Arr: []int{4, 5}})
	require.NoError(t, err)

	var data testData
	require.NoError(t, Unmarshal(CBORCodec{}, b, &data))
	assert.Equal(t, []int{4, 5}, data.Arr)
}

func TestRawCodec(t *testing.T) {
	b, err := Marshal(RawCodec{}, "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)

	var out []byte
	require.NoError(t, Unmarshal(RawCodec{}, []byte{1, 2, 3}, &out))
	assert.Equal(t, []byte{1, 2, 3}, out)

	_, err = Marshal(RawCodec{}, 42)
	assert.Error(t, err)
}

func TestFrameCodec(t *testing.T) {
	c := &FrameCodec{Codec: RawCodec{}, Limit: 8}
	var buf bytes.Buffer
	enc := c.Encoder(&buf)
	require.NoError(t, enc.Encode([]byte("one")))
	require.NoError(t, enc.Encode([]byte("two!")))
	require.NoError(t, enc.Encode([]byte("too long for it")))

	dec := c.Decoder(&buf)
	var b []byte
	require.NoError(t, dec.Decode(&b))
	assert.Equal(t, "one", string(b))
	require.NoError(t, dec.Decode(&b))
	assert.Equal(t, "two!", string(b))

	err := dec.Decode(&b)
	assert.True(t, errors.Is(err, ErrFrameTooLarge))
}

func TestFrameCodecTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&FrameCodec{Codec: RawCodec{}}).Encoder(&buf).Encode([]byte("abcdef")))
	truncated := bytes.NewReader(buf.Bytes()[:7])

	var b []byte
	err := (&FrameCodec{Codec: RawCodec{}}).Decoder(truncated).Decode(&b)
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}
