package meta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

var ErrUnsupportedType = errors.New("bencode: unsupported type")

type Encode struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encode {
	return &Encode{
		w: bufio.NewWriter(w),
	}
}

// Encode writes n and flushes. Nothing is flushed when n holds an
// unsupported value.
func (e *Encode) Encode(n Node) error {
	var buf bytes.Buffer
	if err := encodeNode(&buf, n); err != nil {
		return err
	}
	if _, err := e.w.Write(buf.Bytes()); err != nil {
		return err
	}
	return e.w.Flush()
}

func Marshal(n Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeNode(buf *bytes.Buffer, n Node) error {
	switch v := n.(type) {
	case BInt:
		buf.WriteByte('i')
		buf.WriteString(strconv.Itoa(int(v)))
		buf.WriteByte('e')

	case BBool:
		if v {
			buf.WriteString("i1e")
		} else {
			buf.WriteString("i0e")
		}

	case BString:
		writeString(buf, string(v))

	case BList:
		buf.WriteByte('l')
		for _, item := range v {
			if err := encodeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte('e')

	case BDict:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		// byte-wise order, which is what string comparison gives us
		sort.Strings(keys)

		buf.WriteByte('d')
		for _, k := range keys {
			writeString(buf, k)
			if err := encodeNode(buf, v[k]); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		buf.WriteByte('e')

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, n)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteString(strconv.Itoa(len(s)))
	buf.WriteByte(':')
	buf.WriteString(s)
}
