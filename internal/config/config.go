// Package config defines the shape of client configuration (spec §6).
// Loading mechanics are intentionally thin: config loading proper is an
// out-of-scope external collaborator, but the struct shape is ambient.
package config

import (
	"os"
	"strconv"

	"github.com/alecthomas/units"
	"github.com/naoina/toml"
	"github.com/pkg/errors"
)

// Config mirrors spec §6's "Config (consumed from environment)" verbatim,
// plus the ambient-stack knobs SPEC_FULL §B adds for components the
// distilled spec is silent on (audit log, event bus, metrics, debug
// surface). All of the latter are optional: an empty address/path
// disables that component entirely.
type Config struct {
	ChainID             string `toml:"chain_id"`
	Endpoint            string `toml:"endpoint"`
	RestEndpoint        string `toml:"rest_endpoint"`
	ContractAddress     string `toml:"contract_address"`
	Bech32HRP           string `toml:"bech32_hrp"`
	EthChainID          uint64 `toml:"eth_chain_id"`
	WorkerCount         int    `toml:"worker_count"`
	EpochPollIntervalS  uint64 `toml:"epoch_poll_interval_s"`
	RevealWaitIntervalS uint64 `toml:"reveal_wait_interval_s"`
	MaxRetries          uint32 `toml:"max_retries"`
	InitialRetryDelayMs uint64 `toml:"initial_retry_delay_ms"`
	StateFilePath       string `toml:"state_file_path"`
	CommitmentLogDir    string `toml:"commitment_log_dir"`
	GasPrice            string `toml:"gas_price"`
	Mnemonic            string `toml:"mnemonic"`
	MemoryCapHuman       string `toml:"memory_cap"`

	// Ambient stack (SPEC_FULL §B.7-§B.9). Empty disables the component.
	AuditDialect  string `toml:"audit_dialect"` // "sqlite" (default) or "mysql"
	AuditDSN      string `toml:"audit_dsn"`      // sqlite file path, or MySQL DSN
	RedisAddr     string `toml:"redis_addr"`
	MetricsAddr   string `toml:"metrics_addr"`
	DebugHTTPAddr string `toml:"debug_http_addr"`
}

// Defaults matches the intervals and retry policy spec §4.1/§4.4 name.
func Defaults() Config {
	return Config{
		Bech32HRP:           "inj",
		EthChainID:          1439,
		EpochPollIntervalS:  2,
		RevealWaitIntervalS: 2,
		MaxRetries:          3,
		InitialRetryDelayMs: 1000,
		StateFilePath:       "powminer-state.json",
		CommitmentLogDir:    "powminer-commitments",
		AuditDialect:        "sqlite",
		AuditDSN:            "powminer-audit.db",
	}
}

// MemoryCapBytes parses MemoryCapHuman ("2GiB", "512MB", ...) using the
// teacher's human-units library. Zero means "no explicit cap" and callers
// fall back to the pbnjay/memory-derived default.
func (c Config) MemoryCapBytes() (uint64, error) {
	if c.MemoryCapHuman == "" {
		return 0, nil
	}
	v, err := units.ParseBase2Bytes(c.MemoryCapHuman)
	if err != nil {
		return 0, errors.Wrap(err, "parse memory_cap")
	}
	if v < 0 {
		return 0, errors.New("memory_cap must be non-negative")
	}
	return uint64(v), nil
}

// FromTOML loads a Config from a TOML file, applying Defaults() first.
func FromTOML(path string) (Config, error) {
	cfg := Defaults()
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "open config file")
	}
	defer f.Close()
	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, errors.Wrap(err, "decode config file")
	}
	return cfg, nil
}

// FromEnv overlays recognized POWMINER_* environment variables onto
// Defaults(). Unset variables leave the default untouched.
func FromEnv() (Config, error) {
	cfg := Defaults()
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("POWMINER_CHAIN_ID", &cfg.ChainID)
	str("POWMINER_ENDPOINT", &cfg.Endpoint)
	str("POWMINER_REST_ENDPOINT", &cfg.RestEndpoint)
	str("POWMINER_CONTRACT_ADDRESS", &cfg.ContractAddress)
	str("POWMINER_BECH32_HRP", &cfg.Bech32HRP)
	str("POWMINER_STATE_FILE_PATH", &cfg.StateFilePath)
	str("POWMINER_COMMITMENT_LOG_DIR", &cfg.CommitmentLogDir)
	str("POWMINER_GAS_PRICE", &cfg.GasPrice)
	str("POWMINER_MNEMONIC", &cfg.Mnemonic)
	str("POWMINER_MEMORY_CAP", &cfg.MemoryCapHuman)
	str("POWMINER_AUDIT_DIALECT", &cfg.AuditDialect)
	str("POWMINER_AUDIT_DSN", &cfg.AuditDSN)
	str("POWMINER_REDIS_ADDR", &cfg.RedisAddr)
	str("POWMINER_METRICS_ADDR", &cfg.MetricsAddr)
	str("POWMINER_DEBUG_HTTP_ADDR", &cfg.DebugHTTPAddr)

	var parseErr error
	uintVar := func(key string, dst *uint64) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				parseErr = errors.Wrapf(err, "parse %s", key)
				return
			}
			*dst = n
		}
	}
	uintVar("POWMINER_EPOCH_POLL_INTERVAL_S", &cfg.EpochPollIntervalS)
	uintVar("POWMINER_REVEAL_WAIT_INTERVAL_S", &cfg.RevealWaitIntervalS)
	uintVar("POWMINER_INITIAL_RETRY_DELAY_MS", &cfg.InitialRetryDelayMs)
	if v, ok := os.LookupEnv("POWMINER_WORKER_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrap(err, "parse POWMINER_WORKER_COUNT")
		}
		cfg.WorkerCount = n
	}
	if v, ok := os.LookupEnv("POWMINER_MAX_RETRIES"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return cfg, errors.Wrap(err, "parse POWMINER_MAX_RETRIES")
		}
		cfg.MaxRetries = uint32(n)
	}
	if v, ok := os.LookupEnv("POWMINER_ETH_CHAIN_ID"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, errors.Wrap(err, "parse POWMINER_ETH_CHAIN_ID")
		}
		cfg.EthChainID = n
	}
	return cfg, parseErr
}
