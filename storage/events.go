package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/veilmarket/veilmarket/types"
)

// Event is one entry of the append-only ledger journal. Events carry only
// information that is already public: revealed booleans, plaintext side
// effects and phase transitions. Encrypted payloads never appear here.
type Event struct {
	Seq        uint64            `json:"seq"                  cbor:"0,keyasint"`
	Time       uint64            `json:"time"                 cbor:"1,keyasint"`
	Kind       string            `json:"kind"                 cbor:"2,keyasint"`
	Subject    types.RecordID    `json:"subject"              cbor:"3,keyasint"`
	Attributes map[string]string `json:"attributes,omitempty" cbor:"4,keyasint,omitempty"`
}

// AppendEvent assigns the next sequence number to the event and persists it.
func (s *Storage) AppendEvent(e *Event) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if s.eventSeq == 0 {
		// recover the last assigned sequence from the journal tail
		if err := s.listArtifacts(eventPrefix, func(k, _ []byte) bool {
			if seq := binary.BigEndian.Uint64(k); seq > s.eventSeq {
				s.eventSeq = seq
			}
			return true
		}); err != nil {
			return fmt.Errorf("recover event sequence: %w", err)
		}
	}
	s.eventSeq++
	e.Seq = s.eventSeq
	return s.setArtifact(eventPrefix, binary.BigEndian.AppendUint64(nil, e.Seq), e)
}

// Events returns journal entries with sequence number greater than afterSeq,
// up to limit entries (no limit when limit <= 0), in sequence order.
func (s *Storage) Events(afterSeq uint64, limit int) ([]*Event, error) {
	var events []*Event
	var decodeErr error
	if err := s.listArtifacts(eventPrefix, func(k, v []byte) bool {
		if binary.BigEndian.Uint64(k) <= afterSeq {
			return true
		}
		if limit > 0 && len(events) >= limit {
			return false
		}
		e := &Event{}
		if decodeErr = decodeArtifact(v, e); decodeErr != nil {
			return false
		}
		events = append(events, e)
		return true
	}); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return events, nil
}
