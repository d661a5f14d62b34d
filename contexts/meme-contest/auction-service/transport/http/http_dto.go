package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateAuctionRequest struct {
	EntryID       uint64 `json:"entry_id"`
	StartPrice    string `json:"start_price_wei"`
	DurationHours int    `json:"duration_hours"`
}

type PlaceBidRequest struct {
	AuctionID string `json:"auction_id"`
	Amount    string `json:"amount_wei"`
}

type AuctionResponse struct {
	AuctionID     string `json:"auction_id"`
	EntryID       uint64 `json:"entry_id"`
	Seller        string `json:"seller"`
	StartPrice    string `json:"start_price_wei"`
	CurrentPrice  string `json:"current_price_wei"`
	HighestBidder string `json:"highest_bidder,omitempty"`
	EndTime       string `json:"end_time"`
	IsActive      bool   `json:"is_active"`
	Status        string `json:"status"`
	TimeLeft      int64  `json:"time_left_seconds"`
	TimeLeftText  string `json:"time_left"`
}

type ListAuctionsResponse struct {
	Items []AuctionResponse `json:"items"`
}

type BidResponse struct {
	Bidder   string `json:"bidder"`
	Amount   string `json:"amount_wei"`
	PlacedAt string `json:"placed_at"`
}

type ListBidsResponse struct {
	AuctionID string        `json:"auction_id"`
	Items     []BidResponse `json:"items"`
}
