package storage

import (
	"fmt"

	"github.com/veilmarket/veilmarket/types"
)

// SetRecord stores an encrypted record under its derived address. It is only
// called when a record is created or when a verified cluster result is
// committed, never from request handling.
func (s *Storage) SetRecord(id types.RecordID, rec *types.EncryptedRecord) error {
	return s.setArtifact(recordPrefix, id.Bytes(), rec)
}

// Record loads the encrypted record stored at the given address. Returns
// ErrNotFound if no record exists there.
func (s *Storage) Record(id types.RecordID) (*types.EncryptedRecord, error) {
	rec := &types.EncryptedRecord{}
	if err := s.getArtifact(recordPrefix, id.Bytes(), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// EncryptedRecord implements the record reader used by the computation
// cluster to resolve record references against current ledger state.
func (s *Storage) EncryptedRecord(id types.RecordID) (*types.EncryptedRecord, error) {
	rec, err := s.Record(id)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", id, err)
	}
	return rec, nil
}
