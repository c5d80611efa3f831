package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "verichain/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	Ledger      Ledger
	Agent       Agent
	Issuance    Issuance
	Redis       RedisConfig
	Kafka       KafkaConfig
	Auth        Auth
}

// Ledger configures the registry binding.
type Ledger struct {
	RPCURL              string
	RegistryAddress     string
	ConfirmationTimeout time.Duration
}

// Agent configures the connection provider. SignerKeys are hex-encoded
// secp256k1 private keys; the first one is the initially active identity.
type Agent struct {
	SignerKeys          []string
	NetworkPollInterval time.Duration
	AutoApprove         bool
}

// Issuance configures fingerprinting and the advisory credential list.
type Issuance struct {
	FingerprintAlgorithm string
	DefaultExternalURI   string
	CredentialListTTL    time.Duration
}

// RedisConfig configures the optional advisory list backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit fan-out.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// Auth configures bearer authentication for mutating routes.
type Auth struct {
	JWTSecret string
}

// Defaults used when the environment does not override them.
var (
	DefaultConfirmationTimeout = 2 * time.Minute
	DefaultNetworkPollInterval = 5 * time.Second
	DefaultCredentialListTTL   = 24 * time.Hour
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        getEnv("VERICHAIN_ADDR", ":8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Ledger: Ledger{
			RPCURL:              os.Getenv("LEDGER_RPC_URL"),
			RegistryAddress:     os.Getenv("REGISTRY_ADDRESS"),
			ConfirmationTimeout: getDuration("CONFIRMATION_TIMEOUT", DefaultConfirmationTimeout),
		},
		Agent: Agent{
			SignerKeys:          splitList(os.Getenv("SIGNER_KEYS")),
			NetworkPollInterval: getDuration("NETWORK_POLL_INTERVAL", DefaultNetworkPollInterval),
			AutoApprove:         getEnv("AGENT_AUTO_APPROVE", "true") == "true",
		},
		Issuance: Issuance{
			FingerprintAlgorithm: getEnv("FINGERPRINT_ALGORITHM", "keccak256"),
			DefaultExternalURI:   getEnv("DEFAULT_EXTERNAL_URI", "ipfs://default"),
			CredentialListTTL:    getDuration("CREDENTIAL_LIST_TTL", DefaultCredentialListTTL),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: getEnv("AUDIT_TOPIC", "verichain.audit"),
		},
		Auth: Auth{
			JWTSecret: os.Getenv("API_JWT_SECRET"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(s, ","))
}
