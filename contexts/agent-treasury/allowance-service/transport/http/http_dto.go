package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterDelegationRequest struct {
	SafeAddress  string `json:"safe_address"`
	TokenAddress string `json:"token_address,omitempty"`
}

type SpendRequest struct {
	Amount string `json:"amount_wei"`
}

type AllowanceResponse struct {
	Account         string `json:"account"`
	SafeAddress     string `json:"safe_address"`
	DelegateAddress string `json:"delegate_address"`
	TokenAddress    string `json:"token_address"`
	Amount          string `json:"amount_wei"`
	Spent           string `json:"spent_wei"`
	Remaining       string `json:"remaining_wei"`
	ResetPeriodMins int64  `json:"reset_period_minutes"`
	LastReset       string `json:"last_reset,omitempty"`
	Nonce           uint16 `json:"nonce"`
}

type DelegationResponse struct {
	Account         string `json:"account"`
	SafeAddress     string `json:"safe_address"`
	DelegateAddress string `json:"delegate_address"`
	TokenAddress    string `json:"token_address"`
	CreatedAt       string `json:"created_at"`
}

type SpendResponse struct {
	TxHash  string `json:"tx_hash"`
	Amount  string `json:"amount_wei"`
	Nonce   uint16 `json:"nonce"`
	Retried bool   `json:"retried"`
}
