package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/veilmarket/veilmarket/types"
)

// PendingComputation is the in-flight record of one queued cluster
// computation: the unique handle it was submitted under, the circuit the
// callback must prove it ran, the records whose state the callback may
// overwrite, and an opaque context blob the committer uses to finish the
// business operation.
type PendingComputation struct {
	Handle  uint64           `json:"handle"            cbor:"0,keyasint"`
	Circuit string           `json:"circuit"           cbor:"1,keyasint"`
	Records []types.RecordID `json:"records"           cbor:"2,keyasint"`
	Context []byte           `json:"context,omitempty" cbor:"3,keyasint,omitempty"`
}

func handleKey(handle uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, handle)
}

// AddPendingComputation registers a computation before it is submitted to the
// cluster. Handles are unique: registering a handle that already has a
// computation in flight fails with ErrHandleInUse, whether or not the
// circuits differ.
func (s *Storage) AddPendingComputation(pc *PendingComputation) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := handleKey(pc.Handle)
	ok, err := s.hasArtifact(pendingPrefix, key)
	if err != nil {
		return fmt.Errorf("check pending computation: %w", err)
	}
	if ok {
		return fmt.Errorf("handle %d: %w", pc.Handle, ErrHandleInUse)
	}
	return s.setArtifact(pendingPrefix, key, pc)
}

// TakePendingComputation fetches and removes the pending computation for a
// handle in one step, so a handle is consumed exactly once regardless of the
// callback's outcome. Returns ErrNotFound for unknown or already consumed
// handles.
func (s *Storage) TakePendingComputation(handle uint64) (*PendingComputation, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := handleKey(handle)
	pc := &PendingComputation{}
	if err := s.getArtifact(pendingPrefix, key, pc); err != nil {
		return nil, err
	}
	if err := s.deleteArtifact(pendingPrefix, key); err != nil {
		return nil, fmt.Errorf("delete pending computation: %w", err)
	}
	return pc, nil
}

// PendingComputations returns all computations currently in flight.
func (s *Storage) PendingComputations() ([]*PendingComputation, error) {
	var pcs []*PendingComputation
	var decodeErr error
	if err := s.listArtifacts(pendingPrefix, func(_, v []byte) bool {
		pc := &PendingComputation{}
		if decodeErr = decodeArtifact(v, pc); decodeErr != nil {
			return false
		}
		pcs = append(pcs, pc)
		return true
	}); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return pcs, nil
}
