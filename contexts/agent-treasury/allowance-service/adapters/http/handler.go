package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	application "artix/contexts/agent-treasury/allowance-service/application"
	"artix/contexts/agent-treasury/allowance-service/application/commands"
	"artix/contexts/agent-treasury/allowance-service/application/queries"
	domainerrors "artix/contexts/agent-treasury/allowance-service/domain/errors"
	httptransport "artix/contexts/agent-treasury/allowance-service/transport/http"

	"github.com/ethereum/go-ethereum/common"
)

type Handler struct {
	Spends  commands.SpendUseCase
	Queries queries.AllowanceQueries
	// DefaultToken is used when a registration names no token. The zero
	// address is native ETH.
	DefaultToken common.Address
	Logger       *slog.Logger
}

// GetAllowanceHandler godoc
// @Summary Remaining agent allowance
// @Tags agent
// @Produce json
// @Param X-User-Id header string true "Account address"
// @Success 200 {object} httptransport.AllowanceResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /agent/allowance [get]
func (h Handler) GetAllowanceHandler(ctx context.Context, caller string) (httptransport.AllowanceResponse, error) {
	account, err := parseAddress(caller, domainerrors.ErrInvalidDelegation)
	if err != nil {
		return httptransport.AllowanceResponse{}, err
	}
	view, err := h.Queries.GetAllowance(ctx, account)
	if err != nil {
		return httptransport.AllowanceResponse{}, err
	}
	resp := httptransport.AllowanceResponse{
		Account:         view.Delegation.Account.Hex(),
		SafeAddress:     view.Delegation.Principal.Hex(),
		DelegateAddress: view.Delegation.Delegate.Hex(),
		TokenAddress:    view.Delegation.Token.Hex(),
		Amount:          weiString(view.Allowance.Amount),
		Spent:           weiString(view.Allowance.Spent),
		Remaining:       weiString(view.Remaining),
		ResetPeriodMins: int64(view.Allowance.ResetPeriod / time.Minute),
		Nonce:           view.Allowance.Nonce,
	}
	if !view.Allowance.LastReset.IsZero() {
		resp.LastReset = view.Allowance.LastReset.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// RegisterDelegationHandler godoc
// @Summary Attach the agent to a Safe
// @Description The Safe owner must already have added the returned delegate to the allowance module.
// @Tags agent
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Account address"
// @Param body body httptransport.RegisterDelegationRequest true "Delegation"
// @Success 200 {object} httptransport.DelegationResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /agent/allowance [post]
func (h Handler) RegisterDelegationHandler(ctx context.Context, caller string, req httptransport.RegisterDelegationRequest) (httptransport.DelegationResponse, error) {
	account, err := parseAddress(caller, domainerrors.ErrInvalidDelegation)
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	principal, err := parseAddress(req.SafeAddress, domainerrors.ErrInvalidDelegation)
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	token := h.DefaultToken
	if strings.TrimSpace(req.TokenAddress) != "" {
		if !common.IsHexAddress(strings.TrimSpace(req.TokenAddress)) {
			return httptransport.DelegationResponse{}, fmt.Errorf("%w: %q is not a token address", domainerrors.ErrInvalidDelegation, req.TokenAddress)
		}
		token = common.HexToAddress(strings.TrimSpace(req.TokenAddress))
	}

	delegation, err := h.Spends.RegisterDelegation(ctx, commands.RegisterDelegationCommand{
		Account:   account,
		Principal: principal,
		Token:     token,
	})
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return httptransport.DelegationResponse{
		Account:         delegation.Account.Hex(),
		SafeAddress:     delegation.Principal.Hex(),
		DelegateAddress: delegation.Delegate.Hex(),
		TokenAddress:    delegation.Token.Hex(),
		CreatedAt:       delegation.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// SpendHandler godoc
// @Summary Spend from the agent allowance
// @Tags agent
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Account address"
// @Param body body httptransport.SpendRequest true "Amount"
// @Success 200 {object} httptransport.SpendResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /agent/spend [post]
func (h Handler) SpendHandler(ctx context.Context, caller string, req httptransport.SpendRequest) (httptransport.SpendResponse, error) {
	account, err := parseAddress(caller, domainerrors.ErrInvalidSpend)
	if err != nil {
		return httptransport.SpendResponse{}, err
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok {
		return httptransport.SpendResponse{}, fmt.Errorf("%w: %q is not a wei amount", domainerrors.ErrInvalidSpend, req.Amount)
	}
	application.ResolveLogger(h.Logger).Info("agent spend request received",
		"event", "http_agent_spend_received",
		"module", "agent-treasury/allowance-service",
		"layer", "transport",
		"account", account.Hex(),
		"amount", amount.String(),
	)
	receipt, err := h.Spends.Spend(ctx, commands.SpendCommand{Account: account, Amount: amount})
	if err != nil {
		return httptransport.SpendResponse{}, err
	}
	return httptransport.SpendResponse{
		TxHash:  receipt.TxHash.Hex(),
		Amount:  receipt.Amount.String(),
		Nonce:   receipt.Nonce,
		Retried: receipt.Retried,
	}, nil
}

func parseAddress(raw string, kind error) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q is not an address", kind, raw)
	}
	address := common.HexToAddress(raw)
	if address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", kind)
	}
	return address, nil
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
