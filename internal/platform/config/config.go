package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	UseInMemory bool

	RPCURL                 string
	ChainID                uint64
	NetworkName            string
	ExplorerURL            string
	ContestAddress         string
	RankingAddress         string
	AllowanceModuleAddress string
	AllowanceToken         string
	AgentPrivateKey        string
	WalletPrivateKey       string

	IPFSEndpoint        string
	IPFSRegion          string
	IPFSBucket          string
	IPFSAccessKey       string
	IPFSSecretKey       string
	IPFSGateway         string
	IPFSFallbackGateway string

	VeniceAPIURL  string
	VeniceAPIKey  string
	IPRegistryURL string

	CacheTTL            time.Duration
	MaxEntryScan        int
	ConfirmationTimeout time.Duration
	DelegationIdleTTL   time.Duration
	WorkerPollInterval  time.Duration
}

// Load reads the process environment. A .env file in the working directory is
// applied first when present; variables already set win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	chainID, err := envUint("CHAIN_ID", 84532)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ServiceName: envString("SERVICE_NAME", "artix"),
		HTTPPort:    envString("HTTP_PORT", "8080"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		UseInMemory: envBool("USE_IN_MEMORY", false),

		RPCURL:                 envString("RPC_URL", "https://sepolia.base.org"),
		ChainID:                chainID,
		NetworkName:            envString("NETWORK_NAME", "Base Sepolia"),
		ExplorerURL:            envString("EXPLORER_URL", "https://sepolia.basescan.org"),
		ContestAddress:         os.Getenv("CONTEST_ADDRESS"),
		RankingAddress:         os.Getenv("RANKING_ADDRESS"),
		AllowanceModuleAddress: os.Getenv("ALLOWANCE_MODULE_ADDRESS"),
		AllowanceToken:         envString("ALLOWANCE_TOKEN", "0x0000000000000000000000000000000000000000"),
		AgentPrivateKey:        os.Getenv("AGENT_PRIVATE_KEY"),
		WalletPrivateKey:       os.Getenv("WALLET_PRIVATE_KEY"),

		IPFSEndpoint:        envString("IPFS_ENDPOINT", "https://s3.filebase.com"),
		IPFSRegion:          envString("IPFS_REGION", "us-east-1"),
		IPFSBucket:          os.Getenv("IPFS_BUCKET"),
		IPFSAccessKey:       os.Getenv("IPFS_ACCESS_KEY"),
		IPFSSecretKey:       os.Getenv("IPFS_SECRET_KEY"),
		IPFSGateway:         envString("IPFS_GATEWAY", "https://ipfs.filebase.io"),
		IPFSFallbackGateway: envString("IPFS_FALLBACK_GATEWAY", "https://ipfs.io"),

		VeniceAPIURL:  envString("VENICE_API_URL", "https://api.venice.ai/api/v1"),
		VeniceAPIKey:  os.Getenv("VENICE_API_KEY"),
		IPRegistryURL: os.Getenv("IP_REGISTRY_URL"),

		CacheTTL:            envDuration("CACHE_TTL", 5*time.Minute),
		MaxEntryScan:        envInt("MAX_ENTRY_SCAN", 100),
		ConfirmationTimeout: envDuration("CONFIRMATION_TIMEOUT", 60*time.Second),
		DelegationIdleTTL:   envDuration("DELEGATION_IDLE_TTL", 24*time.Hour),
		WorkerPollInterval:  envDuration("WORKER_POLL_INTERVAL", 5*time.Second),
	}, nil
}

// ChainConfigured reports whether enough is set to talk to a real ledger.
func (c Config) ChainConfigured() bool {
	return !c.UseInMemory && strings.TrimSpace(c.ContestAddress) != "" && strings.TrimSpace(c.RPCURL) != ""
}

func envString(name string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envUint(name string, fallback uint64) (uint64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New(name + " must be an unsigned integer")
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
