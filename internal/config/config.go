package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to numbers
	"time"    // durations for the lock lease and sweep interval

	"github.com/joho/godotenv" // .env loading for local runs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Durations accept Go duration strings ("5m", "60s").
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AuthMode  string // "jwt" (bearer tokens) or "header" (trusted X-User-Id from a gateway)
	JWTSecret string // secret used to verify JWTs; required when AuthMode is "jwt"

	RabbitURL   string // AMQP broker URL; empty disables event publishing
	AuditLogDir string // directory the audit consumer appends booking.log to

	Lock    LockConfig
	Booking BookingConfig

	SeedMissingSeats bool   // generate seat grids for resources without seats at startup
	LogLevel         string // optional zap level override
}

// LockConfig controls the lifetime of seat locks and how often abandoned
// locks are reclaimed.
type LockConfig struct {
	Lease         time.Duration // how long a LOCKED seat stays held before it is eligible for release
	SweepInterval time.Duration // period of the expiry sweeper
}

// BookingConfig carries policy switches for the booking orchestrator.
type BookingConfig struct {
	ReleaseSeatsOnCancel bool // return BOOKED seats to AVAILABLE when their booking is cancelled
	MaxSeatsPerRequest   int  // upper bound on seat labels in one seat booking
}

// maxSeatsPerRequest is the hard ceiling on labels in one seat booking.
const maxSeatsPerRequest = 10

// LoadDotEnv loads variables from a .env file when one is present.  Values
// already present in the environment win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("config: failed to load %s: %v", p, err)
		}
	}
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:    must("APP_ENV"),                  // environment (dev/test/prod)
		Port:   must("APP_PORT"),                 // port to bind the HTTP server
		DBUser: must("DB_USER"),                  // database user
		DBPass: os.Getenv("DB_PASS"),             // database password (empty allowed)
		DBHost: must("DB_HOST"),                  // database host
		DBPort: strconv.Itoa(mustInt("DB_PORT")), // database port, must be numeric
		DBName: must("DB_NAME"),                  // database name

		AuthMode:    envStr("AUTH_MODE", "jwt"),      // jwt or header
		JWTSecret:   os.Getenv("JWT_SECRET"),         // checked below when AuthMode is jwt
		RabbitURL:   rabbitURL(),                     // empty disables events and the audit log
		AuditLogDir: envStr("AUDIT_LOG_DIR", "logs"), // where booking.log is appended

		Lock: LockConfig{
			Lease:         envDur("LOCK_LEASE", 5*time.Minute),      // hold time before a lock may be swept
			SweepInterval: envDur("SWEEP_INTERVAL", 60*time.Second), // sweeper period
		},
		Booking: BookingConfig{
			ReleaseSeatsOnCancel: envBool("RELEASE_SEATS_ON_CANCEL", false), // cancelled seats stay BOOKED unless set
			MaxSeatsPerRequest:   envInt("MAX_SEATS_PER_REQUEST", 10),       // clamped to 1..10 below
		},
		SeedMissingSeats: envBool("SEED_MISSING_SEATS", true), // backfill seat grids at startup
		LogLevel:         os.Getenv("LOG_LEVEL"),              // e.g. debug; empty keeps the env default
	}
	if cfg.AuthMode == "jwt" && cfg.JWTSecret == "" {
		log.Fatalf("missing required env var: JWT_SECRET (AUTH_MODE=jwt)")
	}
	// Non-positive durations would stall the sweeper or expire locks at once.
	if cfg.Lock.Lease <= 0 {
		cfg.Lock.Lease = 5 * time.Minute
	}
	if cfg.Lock.SweepInterval <= 0 {
		cfg.Lock.SweepInterval = 60 * time.Second
	}
	// seat bookings take between 1 and 10 labels; out-of-range values fall back to 10
	if cfg.Booking.MaxSeatsPerRequest < 1 || cfg.Booking.MaxSeatsPerRequest > maxSeatsPerRequest {
		cfg.Booking.MaxSeatsPerRequest = maxSeatsPerRequest
	}
	return cfg
}

// rabbitURL honours both RABBITMQ_URL and the older AMQP_URL name.
func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
