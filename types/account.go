package types

import (
	"encoding/hex"
	"fmt"
)

// AccountIDLen is the length in bytes of a principal identity.
const AccountIDLen = 32

// AccountID identifies a principal (a user key or a pooled protocol
// identity). The zero value is reserved and never owns state.
type AccountID [AccountIDLen]byte

// AccountIDFromBytes builds an AccountID from a byte slice.
func AccountIDFromBytes(b []byte) (AccountID, error) {
	var id AccountID
	if len(b) != AccountIDLen {
		return id, fmt.Errorf("invalid account ID length: %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// IsZero reports whether id is the reserved null identity.
func (id AccountID) IsZero() bool {
	return id == AccountID{}
}

// Bytes returns the identity as a byte slice.
func (id AccountID) Bytes() []byte {
	return id[:]
}

// String returns the hexadecimal representation of the identity.
func (id AccountID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler, so the identity encodes as
// a hex string in JSON.
func (id AccountID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *AccountID) UnmarshalText(text []byte) error {
	var hb HexBytes
	if err := hb.SetString(string(text)); err != nil {
		return err
	}
	got, err := AccountIDFromBytes(hb)
	if err != nil {
		return err
	}
	*id = got
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler, used by the CBOR codec.
func (id AccountID) MarshalBinary() ([]byte, error) {
	return id.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (id *AccountID) UnmarshalBinary(data []byte) error {
	got, err := AccountIDFromBytes(data)
	if err != nil {
		return err
	}
	*id = got
	return nil
}

// RecordID is the deterministic ledger address of a record. Addresses are
// derived from seed tuples, see the derive package.
type RecordID = AccountID
