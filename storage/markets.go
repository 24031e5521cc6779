package storage

import (
	"encoding/binary"

	"github.com/veilmarket/veilmarket/types"
)

// optionKey builds the composite key market ‖ index used for per-market
// option and tally artifacts, so they iterate grouped by market.
func optionKey(market types.RecordID, index uint16) []byte {
	key := make([]byte, 0, types.AccountIDLen+2)
	key = append(key, market.Bytes()...)
	key = binary.BigEndian.AppendUint16(key, index)
	return key
}

// SetMarket stores a market under its derived address.
func (s *Storage) SetMarket(m *types.Market) error {
	return s.setArtifact(marketPrefix, m.ID.Bytes(), m)
}

// Market loads a market. Returns ErrNotFound if it does not exist.
func (s *Storage) Market(id types.RecordID) (*types.Market, error) {
	m := &types.Market{}
	if err := s.getArtifact(marketPrefix, id.Bytes(), m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMarkets returns all stored markets.
func (s *Storage) ListMarkets() ([]*types.Market, error) {
	var markets []*types.Market
	var decodeErr error
	if err := s.listArtifacts(marketPrefix, func(_, v []byte) bool {
		m := &types.Market{}
		if decodeErr = decodeArtifact(v, m); decodeErr != nil {
			return false
		}
		markets = append(markets, m)
		return true
	}); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return markets, nil
}

// SetMarketOption stores a market option keyed by market and option index.
func (s *Storage) SetMarketOption(o *types.MarketOption) error {
	return s.setArtifact(optionPrefix, optionKey(o.Market, o.Index), o)
}

// MarketOption loads one option of a market.
func (s *Storage) MarketOption(market types.RecordID, index uint16) (*types.MarketOption, error) {
	o := &types.MarketOption{}
	if err := s.getArtifact(optionPrefix, optionKey(market, index), o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListMarketOptions returns the options of a market ordered by index.
func (s *Storage) ListMarketOptions(market types.RecordID) ([]*types.MarketOption, error) {
	var options []*types.MarketOption
	var decodeErr error
	prefix := market.Bytes()
	if err := s.listArtifacts(optionPrefix, func(k, v []byte) bool {
		if len(k) < types.AccountIDLen || string(k[:types.AccountIDLen]) != string(prefix) {
			return true
		}
		o := &types.MarketOption{}
		if decodeErr = decodeArtifact(v, o); decodeErr != nil {
			return false
		}
		options = append(options, o)
		return true
	}); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return options, nil
}

// SetOptionTally stores the running tally of one market option.
func (s *Storage) SetOptionTally(t *types.OptionTally) error {
	return s.setArtifact(tallyPrefix, optionKey(t.Market, t.OptionIndex), t)
}

// OptionTally loads the running tally of one market option.
func (s *Storage) OptionTally(market types.RecordID, index uint16) (*types.OptionTally, error) {
	t := &types.OptionTally{}
	if err := s.getArtifact(tallyPrefix, optionKey(market, index), t); err != nil {
		return nil, err
	}
	return t, nil
}
