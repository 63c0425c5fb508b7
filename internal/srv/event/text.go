package event

import "unicode/utf8"

// TextCapacity is the width of one display line, in bytes.
const TextCapacity = 30

// Text is a display line of at most TextCapacity bytes.
// The zero value is the empty line.
type Text struct {
	buf [TextCapacity]byte
	n   uint8
}

// NewText copies s into a Text, dropping NUL bytes and truncating at
// TextCapacity without splitting a UTF-8 sequence.
func NewText(s string) Text {
	var t Text
	for i := 0; i < len(s); {
		if s[i] == 0 {
			i++
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		if int(t.n)+size > TextCapacity {
			break
		}
		copy(t.buf[t.n:], s[i:i+size])
		t.n += uint8(size)
		i += size
	}
	return t
}

func (t Text) String() string {
	return string(t.buf[:t.n])
}

func (t Text) Len() int {
	return int(t.n)
}

// Padded returns the line zero-padded to TextCapacity.
func (t Text) Padded() [TextCapacity]byte {
	return t.buf
}
