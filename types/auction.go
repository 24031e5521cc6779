package types

// AuctionType selects the winner-determination circuit of an auction.
type AuctionType uint8

const (
	// FirstPrice: the winner pays their own bid.
	FirstPrice AuctionType = iota
	// Vickrey: the winner pays the second-highest bid.
	Vickrey
)

func (t AuctionType) String() string {
	switch t {
	case FirstPrice:
		return "first-price"
	case Vickrey:
		return "vickrey"
	}
	return "unknown"
}

// AuctionStatus is the stored, strictly forward-moving status of an auction.
type AuctionStatus uint8

const (
	AuctionOpen AuctionStatus = iota
	AuctionClosed
	AuctionResolved
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionOpen:
		return "open"
	case AuctionClosed:
		return "closed"
	case AuctionResolved:
		return "resolved"
	}
	return "unknown"
}

// Auction is a sealed-bid auction. The encrypted tail aggregates the current
// leading bids and bidder identity; individual bids are never stored. On
// resolution exactly the winner identity and payment amount are revealed.
type Auction struct {
	ID        RecordID      `json:"id"                cbor:"0,keyasint"`
	Authority AccountID     `json:"authority"         cbor:"1,keyasint"`
	Type      AuctionType   `json:"type"              cbor:"2,keyasint"`
	Status    AuctionStatus `json:"status"            cbor:"3,keyasint"`
	MinBid    uint64        `json:"minBid"            cbor:"4,keyasint"`
	EndTime   int64         `json:"endTime"           cbor:"5,keyasint"`
	BidCount  uint64        `json:"bidCount"          cbor:"6,keyasint"`
	Winner    *AccountID    `json:"winner,omitempty"  cbor:"7,keyasint,omitempty"`
	Payment   uint64        `json:"payment,omitempty" cbor:"8,keyasint,omitempty"`
}
