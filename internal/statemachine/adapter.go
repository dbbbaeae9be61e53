package statemachine

import (
	"fmt"
	"strings"
)

// Reply strings, verbatim per spec.md §4.6/§6.
const (
	ReplyOk                   = "Ok"
	ReplyKeyNotFound          = "Key not found"
	ReplyNotRecognized        = "Request not recognized"
	ReplyFormatNotSupportedFmt = "Request format not supported - %s"
)

// Adapter applies committed commands to a KV in strict log-index
// order, as required by State-Machine Safety (spec.md §8): two peers
// that have both applied the entry at index i must have applied
// identical commands.
type Adapter struct {
	kv *KV
}

// NewAdapter wraps kv for command application.
func NewAdapter(kv *KV) *Adapter {
	return &Adapter{kv: kv}
}

// Apply tokenizes command on whitespace and dispatches it, returning
// the reply string the client front-end hands back verbatim.
func (a *Adapter) Apply(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Sprintf(ReplyFormatNotSupportedFmt, command)
	}

	verb := strings.ToUpper(fields[0])
	switch verb {
	case "NO_OP":
		return ReplyOk

	case "SET":
		if len(fields) < 3 {
			return fmt.Sprintf(ReplyFormatNotSupportedFmt, command)
		}
		key := fields[1]
		value := strings.Join(fields[2:], " ")
		a.kv.Set(key, value)
		return ReplyOk

	case "GET":
		if len(fields) != 2 {
			return fmt.Sprintf(ReplyFormatNotSupportedFmt, command)
		}
		if value, ok := a.kv.Get(fields[1]); ok {
			return value
		}
		return ReplyKeyNotFound

	case "DELETE":
		if len(fields) != 2 {
			return fmt.Sprintf(ReplyFormatNotSupportedFmt, command)
		}
		if a.kv.Delete(fields[1]) {
			return ReplyOk
		}
		return ReplyKeyNotFound

	default:
		return ReplyNotRecognized
	}
}
