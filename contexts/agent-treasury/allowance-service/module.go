package allowanceservice

import (
	"fmt"
	"log/slog"
	"math/big"

	"artix/contexts/agent-treasury/allowance-service/adapters/ethereum"
	httpadapter "artix/contexts/agent-treasury/allowance-service/adapters/http"
	"artix/contexts/agent-treasury/allowance-service/adapters/memory"
	"artix/contexts/agent-treasury/allowance-service/application/commands"
	"artix/contexts/agent-treasury/allowance-service/application/queries"
	"artix/contexts/agent-treasury/allowance-service/application/workers"
	"artix/contexts/agent-treasury/allowance-service/ports"
	"artix/internal/shared/inflight"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// InMemoryModuleAddress is where the in-memory allowance module pretends to
// be deployed; it only feeds the transfer hash domain.
var InMemoryModuleAddress = common.HexToAddress("0xCFbFaC74C26F8647cBDb8c5caf80BB5b32E43134")

type Module struct {
	Handler     httpadapter.Handler
	Evictor     workers.DelegationEvictor
	Signer      ports.DelegateSigner
	Delegations *memory.DelegationStore
	Allowances  *memory.AllowanceModule
	Clock       *memory.Clock
}

type Dependencies struct {
	Module      ports.AllowanceModule
	Signer      ports.DelegateSigner
	Delegations ports.DelegationStore
	Clock       ports.Clock
	Publisher   ports.EventPublisher
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	guard := inflight.NewGuard()
	spends := commands.SpendUseCase{
		Module:      deps.Module,
		Signer:      deps.Signer,
		Delegations: deps.Delegations,
		Guard:       guard,
		Clock:       deps.Clock,
		Publisher:   deps.Publisher,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Spends: spends,
			Queries: queries.AllowanceQueries{
				Module:      deps.Module,
				Delegations: deps.Delegations,
				Clock:       deps.Clock,
				Logger:      deps.Logger,
			},
			Logger: deps.Logger,
		},
		Evictor: workers.DelegationEvictor{
			Delegations: deps.Delegations,
			Guard:       guard,
			Clock:       deps.Clock,
			Logger:      deps.Logger,
		},
		Signer: deps.Signer,
	}
}

// NewInMemoryModule runs against an in-memory allowance module with a fresh
// delegate key. Allowances must be granted through Module.Allowances.
func NewInMemoryModule(chainID *big.Int, publisher ports.EventPublisher, logger *slog.Logger) (Module, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Module{}, fmt.Errorf("generate delegate key: %w", err)
	}
	signer, err := ethereum.NewKeySigner(key)
	if err != nil {
		return Module{}, err
	}
	clock := &memory.Clock{}
	allowances := memory.NewAllowanceModule(chainID, InMemoryModuleAddress, clock)
	delegations := memory.NewDelegationStore()
	module := NewModule(Dependencies{
		Module:      allowances,
		Signer:      signer,
		Delegations: delegations,
		Clock:       clock,
		Publisher:   publisher,
		Logger:      logger,
	})
	module.Delegations = delegations
	module.Allowances = allowances
	module.Clock = clock
	return module, nil
}
