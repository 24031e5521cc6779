package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// setArtifact encodes the artifact and stores it under the given prefix+key.
func (s *Storage) setArtifact(prefix, key []byte, a any) error {
	data, err := encodeArtifact(a)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact retrieves and decodes the artifact stored under prefix+key into
// out. Returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rTx.Get(key)
	if err != nil {
		if err == db.ErrKeyNotFound {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// hasArtifact reports whether a key exists under the given prefix.
func (s *Storage) hasArtifact(prefix, key []byte) (bool, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	if _, err := rTx.Get(key); err != nil {
		if err == db.ErrKeyNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// deleteArtifact removes the artifact stored under prefix+key. Returns
// ErrNotFound if the key does not exist.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	ok, err := s.hasArtifact(prefix, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// listArtifacts iterates all keys under a prefix, passing each raw key and
// value to visit. Iteration stops when visit returns false.
func (s *Storage) listArtifacts(prefix []byte, visit func(key, value []byte) bool) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	return rTx.Iterate(nil, visit)
}
