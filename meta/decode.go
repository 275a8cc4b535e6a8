package meta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

type Node any

type BInt int
type BBool bool
type BString string
type BList []Node
type BDict map[string]Node

type Decode struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decode {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decode{
		r: br,
	}
}

/* integers → i<number>e

example: i42e → 42

strings → <len>:<string>

example: 4:spam → "spam"

lists → l<items>e

example: l4:spami42ee → ["spam", 42]

dictionaries (map with string keys) → d<key><value>e

example: d3:bar4:spam3:fooi42ee → { "bar": "spam", "foo": 42 }

booleans have no encoding of their own and come back as BInt. */

func (d *Decode) Decode() (Node, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	return d.decodeFrom(b)
}

func (d *Decode) decodeFrom(b byte) (Node, error) {
	switch {
	case b == 'i':
		return d.parseInt()
	case b >= '0' && b <= '9':
		return d.parseString(b)
	case b == 'l':
		return d.parseList()
	case b == 'd':
		return d.parseDict()
	default:
		return nil, fmt.Errorf("unsupported bencode type: %c", b)
	}
}

func (d *Decode) parseInt() (BInt, error) {
	numStr, err := d.r.ReadString('e')
	if err != nil {
		return 0, unexpected(err)
	}
	i, err := strconv.Atoi(numStr[:len(numStr)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", numStr, err)
	}
	return BInt(i), nil
}

func (d *Decode) parseString(firstDigit byte) (BString, error) {
	rest, err := d.r.ReadString(':')
	if err != nil {
		return "", unexpected(err)
	}
	lengthStr := string(firstDigit) + rest[:len(rest)-1]

	length, err := strconv.Atoi(lengthStr)
	if err != nil || length < 0 {
		return "", fmt.Errorf("invalid string length %q", lengthStr)
	}

	// grow with the data actually present, never trust the length up front
	var content bytes.Buffer
	if _, err := io.CopyN(&content, d.r, int64(length)); err != nil {
		return "", unexpected(err)
	}
	return BString(content.String()), nil
}

func (d *Decode) parseList() (BList, error) {
	list := BList{}

	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, unexpected(err)
		}
		if b == 'e' {
			return list, nil
		}

		val, err := d.decodeFrom(b)
		if err != nil {
			return nil, err
		}
		list = append(list, val)
	}
}

func (d *Decode) parseDict() (BDict, error) {
	dict := make(BDict)

	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, unexpected(err)
		}
		if b == 'e' {
			return dict, nil
		}
		if b < '0' || b > '9' {
			return nil, fmt.Errorf("dictionary keys must be strings, got: %c", b)
		}

		key, err := d.parseString(b)
		if err != nil {
			return nil, err
		}

		value, err := d.Decode()
		if err != nil {
			return nil, unexpected(err)
		}
		dict[string(key)] = value
	}
}

// unexpected turns a clean EOF inside a value into io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
