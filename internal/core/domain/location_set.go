package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// AccountID identifies a bootstrapper or proposer (32-byte public key).
type AccountID [32]byte

// LocationSetID is the BLAKE2b-256 digest of an encoded location set.
type LocationSetID [32]byte

// LocationSet is a batch of meetup locations proposed together with the
// accounts that bootstrap it.
type LocationSet struct {
	Locations     []Location  `json:"locations"`
	Bootstrappers []AccountID `json:"bootstrappers"`
}

// Encode returns the canonical encoding of the (locations, bootstrappers)
// pair: compact length, 16 bytes per location, compact length, 32 bytes per
// account.
func (s LocationSet) Encode() []byte {
	b := make([]byte, 0, 10+len(s.Locations)*LocationSize+len(s.Bootstrappers)*32)
	b = appendCompact(b, uint64(len(s.Locations)))
	for _, l := range s.Locations {
		b = l.AppendBinary(b)
	}
	b = appendCompact(b, uint64(len(s.Bootstrappers)))
	for _, a := range s.Bootstrappers {
		b = append(b, a[:]...)
	}
	return b
}

// ID derives the set identifier from its encoding.
func (s LocationSet) ID() LocationSetID {
	return LocationSetID(blake2b.Sum256(s.Encode()))
}

// Clone returns a deep copy.
func (s LocationSet) Clone() LocationSet {
	return LocationSet{
		Locations:     append([]Location(nil), s.Locations...),
		Bootstrappers: append([]AccountID(nil), s.Bootstrappers...),
	}
}

func (id LocationSetID) String() string { return "0x" + hex.EncodeToString(id[:]) }

func (id LocationSetID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *LocationSetID) UnmarshalText(text []byte) error {
	v, err := ParseLocationSetID(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// ParseLocationSetID parses a 32-byte hex id, with or without 0x prefix.
func ParseLocationSetID(s string) (LocationSetID, error) {
	var id LocationSetID
	if err := decodeHex32(s, id[:]); err != nil {
		return id, fmt.Errorf("location set id: %w", err)
	}
	return id, nil
}

func (a AccountID) String() string { return "0x" + hex.EncodeToString(a[:]) }

func (a AccountID) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *AccountID) UnmarshalText(text []byte) error {
	v, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAccountID parses a 32-byte hex account, with or without 0x prefix.
func ParseAccountID(s string) (AccountID, error) {
	var a AccountID
	if err := decodeHex32(s, a[:]); err != nil {
		return a, fmt.Errorf("account id: %w", err)
	}
	return a, nil
}

func decodeHex32(s string, dst []byte) error {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 64 {
		return fmt.Errorf("expected 64 hex characters, got %d", len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}
