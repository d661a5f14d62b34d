package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	allowanceservice "artix/contexts/agent-treasury/allowance-service"
	allowanceethereum "artix/contexts/agent-treasury/allowance-service/adapters/ethereum"
	allowancememory "artix/contexts/agent-treasury/allowance-service/adapters/memory"
	auctionservice "artix/contexts/meme-contest/auction-service"
	auctionpostgres "artix/contexts/meme-contest/auction-service/adapters/postgres"
	auctionports "artix/contexts/meme-contest/auction-service/ports"
	contestservice "artix/contexts/meme-contest/contest-service"
	contestethereum "artix/contexts/meme-contest/contest-service/adapters/ethereum"
	"artix/contexts/meme-contest/contest-service/adapters/ipfs"
	contestmemory "artix/contexts/meme-contest/contest-service/adapters/memory"
	contestpostgres "artix/contexts/meme-contest/contest-service/adapters/postgres"
	"artix/contexts/meme-contest/contest-service/adapters/registry"
	"artix/contexts/meme-contest/contest-service/adapters/venice"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	"artix/internal/platform/chain"
	"artix/internal/platform/config"
	"artix/internal/platform/db"
	"artix/internal/platform/messaging"

	"github.com/ethereum/go-ethereum/common"
)

const ledgerReadAttempts = 3

type modules struct {
	contest   contestservice.Module
	auctions  auctionservice.Module
	allowance allowanceservice.Module
	postgres  *db.Postgres
	chain     *chain.Client
}

func (m modules) jobs() []Job {
	return []Job{
		{Name: "mint_retrier", Run: m.contest.MintRetrier.RunOnce},
		{Name: "vote_reconciler", Run: m.contest.VoteReconciler.RunOnce},
		{Name: "auction_settler", Run: m.auctions.Settler.RunOnce},
		{Name: "delegation_evictor", Run: m.allowance.Evictor.RunOnce},
	}
}

func (m modules) close() error {
	if m.chain != nil {
		m.chain.Close()
	}
	return closePostgres(m.postgres)
}

// buildModules picks an adapter per port from cfg. Every port has an in-memory
// fallback so the process starts with nothing configured.
func buildModules(ctx context.Context, cfg config.Config, bus *messaging.Bus, logger *slog.Logger) (modules, error) {
	var out modules

	if !cfg.UseInMemory && strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return modules{}, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return modules{}, err
		}
		out.postgres = pg
	}

	if !cfg.UseInMemory && cfg.ChainConfigured() {
		client, err := chain.Dial(ctx, cfg.RPCURL, cfg.ChainID)
		if err != nil {
			_ = out.close()
			return modules{}, err
		}
		out.chain = client
	}

	contest, err := buildContest(ctx, cfg, out, bus, logger)
	if err != nil {
		_ = out.close()
		return modules{}, err
	}
	out.contest = contest
	out.auctions = buildAuctions(out, contest, bus, logger)

	allowance, err := buildAllowance(cfg, out, bus, logger)
	if err != nil {
		_ = out.close()
		return modules{}, err
	}
	out.allowance = allowance
	return out, nil
}

func buildContest(ctx context.Context, cfg config.Config, infra modules, bus *messaging.Bus, logger *slog.Logger) (contestservice.Module, error) {
	store := contestmemory.NewStore(nil)
	deps := contestservice.Dependencies{
		Ledger:              store,
		Wallet:              store,
		Watcher:             store,
		Minter:              store,
		Registry:            store,
		Storage:             store,
		Images:              store,
		Attempts:            store,
		Publisher:           bus,
		Clock:               contestpostgres.SystemClock{},
		IDGenerator:         contestpostgres.UUIDGenerator{},
		Network:             networkFromConfig(cfg),
		CacheTTL:            cfg.CacheTTL,
		MaxEntryScan:        uint64(max(cfg.MaxEntryScan, 0)),
		ConfirmationTimeout: cfg.ConfirmationTimeout,
		Logger:              logger,
	}

	if infra.postgres != nil {
		deps.Attempts = contestpostgres.NewRepository(infra.postgres.DB, logger)
	}

	if infra.chain != nil {
		contestAddress := common.HexToAddress(cfg.ContestAddress)
		ledger := contestethereum.NewLedger(infra.chain, contestAddress, ledgerReadAttempts)
		deps.Ledger = ledger
		deps.Watcher = ledger

		if cfg.WalletPrivateKey != "" {
			key, err := chain.ParsePrivateKey(cfg.WalletPrivateKey)
			if err != nil {
				return contestservice.Module{}, fmt.Errorf("wallet key: %w", err)
			}
			deps.Wallet = contestethereum.NewWallet(infra.chain, key, contestAddress, common.HexToAddress(cfg.RankingAddress))
			deps.Minter = contestethereum.NewMinter(infra.chain, key, contestAddress, cfg.ConfirmationTimeout)
		} else {
			// A simulated signer against the real ledger would register IP
			// that can never be minted, so votes and mints are refused.
			deps.Wallet = nil
			deps.Minter = nil
			logger.Warn("no wallet key configured; votes and mints are disabled",
				"event", "bootstrap_signing_disabled",
				"module", "internal/app/bootstrap",
				"layer", "platform",
			)
		}
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	if !cfg.UseInMemory && cfg.IPFSBucket != "" {
		storage, err := ipfs.NewStorage(ctx, ipfs.Config{
			Endpoint:        cfg.IPFSEndpoint,
			Region:          cfg.IPFSRegion,
			Bucket:          cfg.IPFSBucket,
			AccessKey:       cfg.IPFSAccessKey,
			SecretKey:       cfg.IPFSSecretKey,
			Gateway:         cfg.IPFSGateway,
			FallbackGateway: cfg.IPFSFallbackGateway,
			FetchAttempts:   3,
		}, logger)
		if err != nil {
			return contestservice.Module{}, err
		}
		deps.Storage = storage
	}
	if !cfg.UseInMemory && cfg.VeniceAPIKey != "" {
		deps.Images = venice.NewClient(venice.Config{
			BaseURL: cfg.VeniceAPIURL,
			APIKey:  cfg.VeniceAPIKey,
		}, httpClient)
	}
	if !cfg.UseInMemory && cfg.IPRegistryURL != "" {
		deps.Registry = registry.NewClient(cfg.IPRegistryURL, httpClient)
	}

	module := contestservice.NewModule(deps)
	module.Store = store
	return module, nil
}

func buildAuctions(infra modules, contest contestservice.Module, bus *messaging.Bus, logger *slog.Logger) auctionservice.Module {
	entries := contestEntryReader{catalog: contest.Catalog}
	if infra.postgres == nil {
		return auctionservice.NewInMemoryModule(entries, bus, logger)
	}
	var repository auctionports.AuctionRepository = auctionpostgres.NewRepository(infra.postgres.DB, logger)
	return auctionservice.NewModule(auctionservice.Dependencies{
		Repository:  repository,
		Entries:     entries,
		Clock:       contestpostgres.SystemClock{},
		IDGenerator: contestpostgres.UUIDGenerator{},
		Publisher:   bus,
		Logger:      logger,
	})
}

func buildAllowance(cfg config.Config, infra modules, bus *messaging.Bus, logger *slog.Logger) (allowanceservice.Module, error) {
	if infra.chain == nil || cfg.AllowanceModuleAddress == "" || cfg.AgentPrivateKey == "" {
		chainID := entities.BaseSepolia().ChainID
		if cfg.ChainID != 0 {
			chainID = cfg.ChainID
		}
		module, err := allowanceservice.NewInMemoryModule(new(big.Int).SetUint64(chainID), bus, logger)
		if err != nil {
			return allowanceservice.Module{}, err
		}
		module.Evictor.IdleAfter = cfg.DelegationIdleTTL
		module.Handler.DefaultToken = common.HexToAddress(cfg.AllowanceToken)
		return module, nil
	}

	key, err := chain.ParsePrivateKey(cfg.AgentPrivateKey)
	if err != nil {
		return allowanceservice.Module{}, fmt.Errorf("agent key: %w", err)
	}
	signer, err := allowanceethereum.NewKeySigner(key)
	if err != nil {
		return allowanceservice.Module{}, err
	}
	if signer.Address() == (common.Address{}) {
		return allowanceservice.Module{}, errors.New("agent key resolves to the zero address")
	}

	moduleAddress := common.HexToAddress(cfg.AllowanceModuleAddress)
	delegations := allowancememory.NewDelegationStore()
	module := allowanceservice.NewModule(allowanceservice.Dependencies{
		Module:      allowanceethereum.NewAllowanceModule(infra.chain, key, moduleAddress, ledgerReadAttempts, cfg.ConfirmationTimeout),
		Signer:      signer,
		Delegations: delegations,
		Clock:       contestpostgres.SystemClock{},
		Publisher:   bus,
		Logger:      logger,
	})
	module.Evictor.IdleAfter = cfg.DelegationIdleTTL
	module.Handler.DefaultToken = common.HexToAddress(cfg.AllowanceToken)
	module.Delegations = delegations
	return module, nil
}

func networkFromConfig(cfg config.Config) entities.Network {
	network := entities.BaseSepolia()
	if cfg.ChainID != 0 {
		network.ChainID = cfg.ChainID
	}
	if cfg.NetworkName != "" {
		network.Name = cfg.NetworkName
	}
	if cfg.RPCURL != "" {
		network.RPCURL = cfg.RPCURL
	}
	if cfg.ExplorerURL != "" {
		network.ExplorerURL = cfg.ExplorerURL
	}
	return network
}
