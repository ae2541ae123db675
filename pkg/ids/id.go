// Package ids provides the opaque identifier shared by users and inventory items.
package ids

import (
	"bytes"
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	byteLen = 12
	// Len is the length of the hex form of an ID.
	Len = byteLen * 2
)

// ErrInvalid signals a value that is not 24 lowercase hex characters.
var ErrInvalid = errors.New("invalid id")

// ID is 12 random bytes in lowercase hex. The zero value means "no id".
type ID string

// New returns a fresh random ID. It panics only if the system CSPRNG fails.
func New() ID {
	var buf [byteLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("ids: read random bytes: %v", err))
	}
	return ID(hex.EncodeToString(buf[:]))
}

// Parse validates raw and returns it as an ID.
func Parse(raw string) (ID, error) {
	candidate := strings.ToLower(strings.TrimSpace(raw))
	if len(candidate) != Len {
		return "", ErrInvalid
	}
	if _, err := hex.DecodeString(candidate); err != nil {
		return "", ErrInvalid
	}
	return ID(candidate), nil
}

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return id == ""
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return string(id), nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = ""
		return nil
	case string:
		*id = ID(v)
		return nil
	case []byte:
		*id = ID(string(v))
		return nil
	default:
		return fmt.Errorf("ids: cannot scan %T", src)
	}
}

// UnmarshalJSON accepts only well-formed ids or an empty string.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	if raw == "" {
		*id = ""
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
