package storage

import (
	"github.com/veilmarket/veilmarket/types"
)

// SetShareAccount stores a share account under its derived address.
func (s *Storage) SetShareAccount(sh *types.ShareAccount) error {
	return s.setArtifact(sharePrefix, sh.ID.Bytes(), sh)
}

// ShareAccount loads a share account. Returns ErrNotFound if it does not
// exist.
func (s *Storage) ShareAccount(id types.RecordID) (*types.ShareAccount, error) {
	sh := &types.ShareAccount{}
	if err := s.getArtifact(sharePrefix, id.Bytes(), sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// SetVoteTokenAccount stores a vote token account under its derived address.
func (s *Storage) SetVoteTokenAccount(vt *types.VoteTokenAccount) error {
	return s.setArtifact(voteTokenPrefix, vt.ID.Bytes(), vt)
}

// VoteTokenAccount loads a vote token account. Returns ErrNotFound if it does
// not exist.
func (s *Storage) VoteTokenAccount(id types.RecordID) (*types.VoteTokenAccount, error) {
	vt := &types.VoteTokenAccount{}
	if err := s.getArtifact(voteTokenPrefix, id.Bytes(), vt); err != nil {
		return nil, err
	}
	return vt, nil
}
