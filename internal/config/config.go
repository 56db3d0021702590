package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Error body shapes accepted by JUMPGATE_ERROR_FORMAT.
const (
	ErrorFormatStructured = "structured"
	ErrorFormatLegacy     = "legacy"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 25s, longer than ForwardTotalTimeout

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Gateway identity
	GatewayURL      string // public URL, identifies the gateway record
	GatewayToken    string // trust token injected into forwarded requests
	GatewayLocality string // "local" | "remote"
	TestMode        bool   // deployment test flag, restricts testMode services to local instances

	// Request pipeline
	BasePath              string        // prefix of every service route (ex: "/api")
	ErrorFormat           string        // "structured" | "legacy"
	ErrorsFile            string        // optional YAML error catalog
	ForwardConnectTimeout time.Duration // dial + TLS handshake bound (default: 20s)
	ForwardTotalTimeout   time.Duration // whole outbound call bound (default: 20s)
	StoreTimeout          time.Duration // bound on each store read (default: 2s)

	// Route table
	SeedFile        string        // optional YAML fixtures loaded into the store and watched
	RebuildInterval time.Duration // interval to resync the route table from the store (default: 30s)

	// Session collector
	SessionGCInterval time.Duration // opt-in, 0 disables collection (default: 0)
	SessionGCGrace    time.Duration // how long expired sessions are kept (default: 720h)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, Host headers accepted on admin endpoints (supports *.example.com)
	AllowedCIDRS []string // optional, restrict admin endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

// Load reads the full configuration needed by `jumpgate serve`.
func Load() *Config {
	cfg := LoadStore()

	cfg.ListenPort = getenv("JUMPGATE_LISTEN_PORT", ":8080")
	cfg.ShutdownTimeout = mustPositiveDuration("JUMPGATE_SHUTDOWN_TIMEOUT", 25*time.Second)

	cfg.GatewayURL = requireEnv("JUMPGATE_URL")
	cfg.GatewayToken = requireEnv("JUMPGATE_TOKEN")
	cfg.GatewayLocality = getenv("JUMPGATE_LOCALITY", "remote")
	cfg.TestMode = mustBool("JUMPGATE_TEST_MODE", false)

	cfg.BasePath = normalizeBasePath(getenv("JUMPGATE_BASE_PATH", ""))
	cfg.ErrorFormat = parseErrorFormat(getenv("JUMPGATE_ERROR_FORMAT", ErrorFormatStructured))
	cfg.ErrorsFile = getenv("JUMPGATE_ERRORS_FILE", "")
	cfg.ForwardConnectTimeout = mustPositiveDuration("JUMPGATE_FORWARD_CONNECT_TIMEOUT", 20*time.Second)
	cfg.ForwardTotalTimeout = mustPositiveDuration("JUMPGATE_FORWARD_TOTAL_TIMEOUT", 20*time.Second)
	cfg.StoreTimeout = mustPositiveDuration("JUMPGATE_STORE_TIMEOUT", 2*time.Second)

	cfg.RebuildInterval = mustPositiveDuration("JUMPGATE_REBUILD_INTERVAL", 30*time.Second)
	cfg.SessionGCInterval = mustDuration("JUMPGATE_SESSION_GC_INTERVAL", 0)
	cfg.SessionGCGrace = mustDuration("JUMPGATE_SESSION_GC_GRACE", 30*24*time.Hour)

	cfg.AllowedHosts = splitAndTrim(getenv("JUMPGATE_ADMIN_HOSTS", ""))
	cfg.AllowedCIDRS = parseAllowedIPs(getenv("JUMPGATE_ALLOWED_CIDRS", ""))
	cfg.TrustProxy = mustBool("JUMPGATE_TRUST_PROXY", true)

	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.GatewayToken = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// LoadStore reads only what is needed to reach the store (logging + Redis +
// seed file). Used by `jumpgate seed`.
func LoadStore() *Config {
	cfg := &Config{
		LogLevel:  getenv("JUMPGATE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("JUMPGATE_PRETTY_LOG", true),

		SeedFile: getenv("JUMPGATE_SEED_FILE", ""), // Optional, empty = no seeding

		RedisAddr:             requireEnv("JUMPGATE_REDIS_ADDR"),
		RedisUser:             getenv("JUMPGATE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("JUMPGATE_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("JUMPGATE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("JUMPGATE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 20),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),
	}

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: JUMPGATE_REDIS_PASSWORD is required when JUMPGATE_REDIS_PASSWORD_REQUIRED=true")
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustPositiveDuration is mustDuration for settings where zero or a negative
// value cannot work (tickers, timeouts).
func mustPositiveDuration(key string, def time.Duration) time.Duration {
	d := mustDuration(key, def)
	if d <= 0 {
		panic(fmt.Sprintf("❌ FATAL: %s must be a positive duration, got %s", key, d))
	}
	return d
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// normalizeBasePath returns "" for the root, otherwise a path with a leading
// slash and no trailing slash.
// Examples: "api/" -> "/api", "/" -> "", "/v1/gw" -> "/v1/gw"
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func parseErrorFormat(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case ErrorFormatLegacy:
		return ErrorFormatLegacy
	case ErrorFormatStructured:
		return ErrorFormatStructured
	default:
		panic(fmt.Sprintf("❌ FATAL: Invalid JUMPGATE_ERROR_FORMAT %q (want %q or %q)", v, ErrorFormatStructured, ErrorFormatLegacy))
	}
}
