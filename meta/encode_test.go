package meta

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jackpal/bencode-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBencodeEncoder(t *testing.T) {
	tests := []struct {
		name     string
		input    Node
		expected string
	}{
		{"integer", BInt(4), "i4e"},
		{"zero", BInt(0), "i0e"},
		{"negative", BInt(-10), "i-10e"},
		{"true", BBool(true), "i1e"},
		{"false", BBool(false), "i0e"},
		{"empty string", BString(""), "0:"},
		{"string", BString("abc"), "3:abc"},
		{"digits", BString("1234567890"), "10:1234567890"},
		{"empty list", BList{}, "le"},
		{"nil list", BList(nil), "le"},
		{"list", BList{BInt(1), BInt(2), BInt(3)}, "li1ei2ei3ee"},
		{"nested list", BList{BList{BString("Alice"), BString("Bob")}, BList{BInt(2), BInt(3)}}, "ll5:Alice3:Bobeli2ei3eee"},
		{"empty dict", BDict{}, "de"},
		{"sorted keys", BDict{"eyes": BString("blue"), "age": BInt(25)}, "d3:agei25e4:eyes4:bluee"},
		{"nested dict", BDict{"spam.mp3": BDict{"author": BString("Alice"), "length": BInt(100000)}}, "d8:spam.mp3d6:author5:Alice6:lengthi100000eee"},
		{"byte order", BDict{"b": BInt(1), "B": BInt(2), "a\xff": BInt(3), "a": BInt(4)}, "d1:Bi2e1:ai4e2:a\xffi3e1:bi1ee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestBencodeEncoderDeterministic(t *testing.T) {
	d := BDict{}
	for _, k := range strings.Split("q w e r t y u i o p a s d f g h j k l", " ") {
		d[k] = BString(k)
	}

	first, err := Marshal(d)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Marshal(d)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBencodeEncoderUnsupported(t *testing.T) {
	inputs := []Node{
		3.14,
		42,
		"plain string",
		nil,
		BList{BInt(1), map[int]string{1: "foo"}},
		BDict{"ok": BDict{"bad": []byte("x")}},
	}

	for _, in := range inputs {
		_, err := Marshal(in)
		assert.ErrorIs(t, err, ErrUnsupportedType, "%#v", in)
	}

	var buf bytes.Buffer
	err := NewEncoder(&buf).Encode(BList{BInt(1), 2.5})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Zero(t, buf.Len())
}

func TestBencodeEncoderReadBack(t *testing.T) {
	peers := "\x0a\x00\x00\x01\x1a\xe1\x0a\x00\x00\x02\x1a\xe2"
	resp := BDict{
		"interval":   BInt(10800),
		"peers":      BString(peers),
		"complete":   BInt(1),
		"incomplete": BInt(2),
	}

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(resp))

	var decoded struct {
		Interval   int    `bencode:"interval"`
		Peers      string `bencode:"peers"`
		Complete   int    `bencode:"complete"`
		Incomplete int    `bencode:"incomplete"`
	}
	require.NoError(t, bencode.Unmarshal(bytes.NewReader(buf.Bytes()), &decoded))
	assert.Equal(t, 10800, decoded.Interval)
	assert.Equal(t, peers, decoded.Peers)
	assert.Equal(t, 1, decoded.Complete)
	assert.Equal(t, 2, decoded.Incomplete)

	node, err := NewDecoder(&buf).Decode()
	require.NoError(t, err)
	assert.Equal(t, resp, node)
}
