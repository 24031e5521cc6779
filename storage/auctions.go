package storage

import (
	"github.com/veilmarket/veilmarket/types"
)

// SetAuction stores an auction under its derived address.
func (s *Storage) SetAuction(a *types.Auction) error {
	return s.setArtifact(auctionPrefix, a.ID.Bytes(), a)
}

// Auction loads an auction. Returns ErrNotFound if it does not exist.
func (s *Storage) Auction(id types.RecordID) (*types.Auction, error) {
	a := &types.Auction{}
	if err := s.getArtifact(auctionPrefix, id.Bytes(), a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAuctions returns all stored auctions.
func (s *Storage) ListAuctions() ([]*types.Auction, error) {
	var auctions []*types.Auction
	var decodeErr error
	if err := s.listArtifacts(auctionPrefix, func(_, v []byte) bool {
		a := &types.Auction{}
		if decodeErr = decodeArtifact(v, a); decodeErr != nil {
			return false
		}
		auctions = append(auctions, a)
		return true
	}); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return auctions, nil
}
