package bot

import (
	"errors"
	"strconv"
	"strings"
)

// CallbackOp is the inline action attached to a history line.
type CallbackOp string

const (
	CallbackDelete CallbackOp = "del"
	CallbackEdit   CallbackOp = "edit"
)

var ErrInvalidCallback = errors.New("invalid callback data")

// EncodeCallback builds the callback payload for op on record id.
func EncodeCallback(op CallbackOp, id int64) string {
	return string(op) + "_" + strconv.FormatInt(id, 10)
}

// ParseCallback reverses EncodeCallback.
func ParseCallback(data string) (CallbackOp, int64, error) {
	prefix, rawID, ok := strings.Cut(data, "_")
	if !ok {
		return "", 0, ErrInvalidCallback
	}

	op := CallbackOp(prefix)
	if op != CallbackDelete && op != CallbackEdit {
		return "", 0, ErrInvalidCallback
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, ErrInvalidCallback
	}
	return op, id, nil
}
