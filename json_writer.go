package cashbook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
)

// jsonLine builds a JSON object whose keys keep their insertion order, so
// that snapshot lines read and diff the same way every time.
// Its zero value is ready to use.
type jsonLine struct {
	bytes.Buffer
	err error
}

// newLine starts an object whose first key is the command.
func newLine(command string) *jsonLine {
	w := new(jsonLine)
	return w.Append("command", command)
}

// Append adds a key-value pair. The value is marshaled with json.Marshal.
func (w *jsonLine) Append(key string, value any) *jsonLine {
	if w.err != nil {
		return w
	}
	b, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal value for key %q: %w", key, err)
		return w
	}
	k, _ := json.Marshal(key)
	w.Write(k)
	w.WriteByte(':')
	w.Write(b)
	w.WriteByte(',')
	return w
}

// Optional appends a key-value pair only when value is not its type's zero
// value. Decimals are omitted when zero.
func (w *jsonLine) Optional(key string, value any) *jsonLine {
	if w.err != nil {
		return w
	}
	if z, ok := value.(interface{ IsZero() bool }); ok && z.IsZero() {
		return w
	}
	v := reflect.ValueOf(value)
	if !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// MarshalJSON returns the complete object.
func (w *jsonLine) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	content := bytes.TrimSuffix(w.Bytes(), []byte(","))
	out := make([]byte, 0, len(content)+2)
	out = append(out, '{')
	out = append(out, content...)
	out = append(out, '}')
	return out, nil
}

// WriteLine writes the object followed by a newline.
func (w *jsonLine) WriteLine(out io.Writer) error {
	b, err := w.MarshalJSON()
	if err != nil {
		return err
	}
	if _, err := out.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	return nil
}
