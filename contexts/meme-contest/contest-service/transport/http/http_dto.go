package http

type ErrorResponse struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	TxHash         string `json:"tx_hash,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
}

type EntryResponse struct {
	ID             uint64 `json:"id"`
	Creator        string `json:"creator"`
	ContentHash    string `json:"ipfs_hash"`
	ImageURL       string `json:"image_url"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	SocialLink     string `json:"social_links"`
	NetworkID      uint64 `json:"network_id"`
	VoteCount      uint64 `json:"vote_count"`
	SubmissionTime string `json:"submission_time"`
	IsActive       bool   `json:"is_active"`
	HasBeenMinted  bool   `json:"has_been_minted"`
	HasVoted       bool   `json:"has_voted"`
	VotePending    bool   `json:"vote_pending"`
}

type ListEntriesRequest struct {
	Viewer string
	Fresh  bool
}

type ListEntriesResponse struct {
	Items []EntryResponse `json:"items"`
}

type EligibilityResponse struct {
	EntryID        uint64 `json:"entry_id"`
	State          string `json:"state"`
	VoteCount      uint64 `json:"vote_count"`
	MinVotesForWin uint64 `json:"min_votes_for_win"`
	VotesNeeded    uint64 `json:"votes_needed"`
	RegistrationID string `json:"registration_id,omitempty"`
}

type VoteRequest struct {
	Viewer string `json:"viewer"`
}

type VoteResponse struct {
	EntryID       uint64               `json:"entry_id"`
	Viewer        string               `json:"viewer"`
	VoteCost      string               `json:"vote_cost_wei"`
	TxHash        string               `json:"tx_hash"`
	BlockNumber   uint64               `json:"block_number,omitempty"`
	Confirmation  string               `json:"confirmation"`
	Outcome       string               `json:"outcome"`
	RankingTxHash string               `json:"ranking_tx_hash,omitempty"`
	RankingError  string               `json:"ranking_error,omitempty"`
	Entry         EntryResponse        `json:"entry"`
	Eligibility   *EligibilityResponse `json:"eligibility,omitempty"`
}

type MintResponse struct {
	EntryID            uint64 `json:"entry_id"`
	State              string `json:"state"`
	RegistrationID     string `json:"registration_id,omitempty"`
	RegistrationTxHash string `json:"registration_tx_hash,omitempty"`
	MintTxHash         string `json:"mint_tx_hash,omitempty"`
	Resumed            bool   `json:"resumed"`
}

type RetryMintRequest struct {
	RegistrationID string `json:"registration_id"`
}

type GenerateMemeRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
}

type GenerateMemeResponse struct {
	ContentID string `json:"id"`
	ImageURL  string `json:"image_url"`
	Prompt    string `json:"prompt"`
	Style     string `json:"style"`
}

type SubmitMemeRequest struct {
	UserAddress string   `json:"user_address"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	SocialLinks string   `json:"social_links"`
	NetworkID   uint64   `json:"network_id"`
	FileID      string   `json:"file_id"`
	RegisterIP  bool     `json:"register_ip"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	AIGenerated bool     `json:"ai_generated"`
}

type RegistrationResponse struct {
	IPID   string `json:"ip_id"`
	TxHash string `json:"tx_hash"`
}

type SubmitMemeResponse struct {
	FileID       string                `json:"file_id"`
	ImageURL     string                `json:"image_url"`
	MetadataID   string                `json:"metadata_id"`
	MetadataURL  string                `json:"metadata_url"`
	Registration *RegistrationResponse `json:"registration,omitempty"`
}

type RegisterMemeRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Creator     string   `json:"creator"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	AIGenerated bool     `json:"ai_generated"`
}
