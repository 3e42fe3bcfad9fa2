package models

import (
	"bytes"
	"strconv"
)

// IsTruthy reports whether a raw JSON value counts as present.
//
// Absent, null, false, numeric zero and the empty string are falsy. Arrays and
// objects are truthy even when empty.
func IsTruthy(raw []byte) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch v[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		return len(v) > 2
	default:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			// Out of range magnitudes are not zero.
			return true
		}
		return f != 0
	}
}
