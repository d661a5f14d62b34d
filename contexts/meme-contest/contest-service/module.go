package contestservice

import (
	"log/slog"
	"time"

	httpadapter "artix/contexts/meme-contest/contest-service/adapters/http"
	"artix/contexts/meme-contest/contest-service/adapters/memory"
	"artix/contexts/meme-contest/contest-service/application/commands"
	"artix/contexts/meme-contest/contest-service/application/queries"
	"artix/contexts/meme-contest/contest-service/application/workers"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	"artix/contexts/meme-contest/contest-service/ports"
	"artix/internal/shared/inflight"
)

type Module struct {
	Handler        httpadapter.Handler
	Catalog        *queries.EntryCatalog
	MintRetrier    workers.MintRetrier
	VoteReconciler workers.VoteReconciler
	Store          *memory.Store
}

type Dependencies struct {
	Ledger              ports.Ledger
	Wallet              ports.Wallet
	Watcher             ports.TxWatcher
	Minter              ports.Minter
	Registry            ports.IPRegistry
	Storage             ports.ContentStorage
	Images              ports.ImageGenerator
	Attempts            ports.MintAttemptRepository
	Publisher           ports.EventPublisher
	Clock               ports.Clock
	IDGenerator         ports.IDGenerator
	Network             entities.Network
	CacheTTL            time.Duration
	MaxEntryScan        uint64
	ConfirmationTimeout time.Duration
	Logger              *slog.Logger
}

func NewModule(deps Dependencies) Module {
	catalog := queries.NewEntryCatalog(deps.Ledger, deps.Clock, queries.CatalogOptions{
		TTL:     deps.CacheTTL,
		MaxScan: deps.MaxEntryScan,
		Logger:  deps.Logger,
	})
	mint := commands.MintUseCase{
		Catalog:     catalog,
		Attempts:    deps.Attempts,
		Registry:    deps.Registry,
		Minter:      deps.Minter,
		Storage:     deps.Storage,
		Publisher:   deps.Publisher,
		IDGenerator: deps.IDGenerator,
		Guard:       inflight.NewGuard(),
		Unsaved:     commands.NewAttemptJournal(),
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	vote := commands.VoteUseCase{
		Catalog:             catalog,
		Ledger:              deps.Ledger,
		Wallet:              deps.Wallet,
		Watcher:             deps.Watcher,
		Eligibility:         mint,
		Publisher:           deps.Publisher,
		IDGenerator:         deps.IDGenerator,
		Clock:               deps.Clock,
		Network:             deps.Network,
		ConfirmationTimeout: deps.ConfirmationTimeout,
		RankingPoints:       1,
		Logger:              deps.Logger,
	}
	memes := commands.MemeUseCase{
		Generator:   deps.Images,
		Storage:     deps.Storage,
		Registry:    deps.Registry,
		Publisher:   deps.Publisher,
		IDGenerator: deps.IDGenerator,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Catalog: catalog,
			Votes:   vote,
			Mints:   mint,
			Memes:   memes,
			Logger:  deps.Logger,
		},
		Catalog: catalog,
		MintRetrier: workers.MintRetrier{
			Attempts: deps.Attempts,
			Mint:     mint,
			Logger:   deps.Logger,
		},
		VoteReconciler: workers.VoteReconciler{
			Catalog: catalog,
			Ledger:  deps.Ledger,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one simulated ledger and wallet.
func NewInMemoryModule(seed []entities.Entry, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Ledger:              store,
		Wallet:              store,
		Watcher:             store,
		Minter:              store,
		Registry:            store,
		Storage:             store,
		Images:              store,
		Attempts:            store,
		Clock:               store,
		IDGenerator:         store,
		Network:             entities.BaseSepolia(),
		ConfirmationTimeout: 2 * time.Second,
		Logger:              logger,
	})
	module.Store = store
	return module
}
