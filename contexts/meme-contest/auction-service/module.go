package auctionservice

import (
	"log/slog"

	httpadapter "artix/contexts/meme-contest/auction-service/adapters/http"
	"artix/contexts/meme-contest/auction-service/adapters/memory"
	"artix/contexts/meme-contest/auction-service/application/commands"
	"artix/contexts/meme-contest/auction-service/application/queries"
	"artix/contexts/meme-contest/auction-service/application/workers"
	"artix/contexts/meme-contest/auction-service/ports"
)

type Module struct {
	Handler    httpadapter.Handler
	Settler    workers.AuctionSettler
	Repository *memory.Repository
	Clock      *memory.Clock
}

type Dependencies struct {
	Repository  ports.AuctionRepository
	Entries     ports.EntryReader
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Publisher   ports.EventPublisher
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	auctions := commands.AuctionUseCase{
		Repository:  deps.Repository,
		Entries:     deps.Entries,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Publisher:   deps.Publisher,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Auctions: auctions,
			Queries: queries.AuctionQueries{
				Repository: deps.Repository,
				Clock:      deps.Clock,
			},
			Logger: deps.Logger,
		},
		Settler: workers.AuctionSettler{
			Auctions: auctions,
			Logger:   deps.Logger,
		},
	}
}

// NewInMemoryModule keeps auctions in memory and reads entries from entries.
func NewInMemoryModule(entries ports.EntryReader, publisher ports.EventPublisher, logger *slog.Logger) Module {
	repository := memory.NewRepository()
	clock := &memory.Clock{}
	module := NewModule(Dependencies{
		Repository:  repository,
		Entries:     entries,
		Clock:       clock,
		IDGenerator: memory.IDGenerator{},
		Publisher:   publisher,
		Logger:      logger,
	})
	module.Repository = repository
	module.Clock = clock
	return module
}
