package message

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Encode serializes a Message to a self-describing byte blob. gob is
// the idiomatic Go-native analogue of the original reference's
// pickle-based codec (original_source/message.py): both round-trip a
// tagged record without a schema compiler in the loop.
func Encode(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, fmt.Errorf("message: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a byte blob produced by Encode.
func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&msg); err != nil {
		return Message{}, fmt.Errorf("message: decode: %w", err)
	}
	return msg, nil
}
