package config // package config loads application configuration from environment variables

import (
    "log"  // log is used to report configuration errors and halt execution
    "os"   // os provides access to environment variables
    "time" // time expresses the TTL knobs as durations
)

// Reconciliation modes.  "auto" tries the key-expiry event stream and
// falls back to scanning when the store refuses to enable it; "events"
// and "scan" force one mechanism.  Exactly one mechanism ever runs.
const (
    ReconcileAuto   = "auto"
    ReconcileEvents = "events"
    ReconcileScan   = "scan"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers, durations for the TTL windows
// that drive the reservation protocol.
type Config struct {
    Env           string        // application environment (e.g. "dev", "prod")
    Port          string        // HTTP port to listen on
    DBUser        string        // database username
    DBPass        string        // database password (optional)
    DBHost        string        // database host address
    DBPort        string        // database port number
    DBName        string        // database name
    BookingTTL    time.Duration // hold duration for a pending booking
    TicketInfoTTL time.Duration // staleness bound for cached counters and price/name
    SeatCacheTTL  time.Duration // lifetime of the seat availability payload
    ReconcileMode string        // auto | events | scan
    ScanInterval  time.Duration // polling period of the fallback scan
    AMQPURL       string        // RabbitMQ URL for seats-released events (empty disables)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The TTL knobs have
// defaults matching the hold protocol: a 600s booking hold and a 3600s
// inventory cache.
func Load() Config {
    cfg := Config{
        Env:           must("APP_ENV"),      // environment (dev/test/prod)
        Port:          must("APP_PORT"),     // port to bind the HTTP server
        DBUser:        must("DB_USER"),      // database user
        DBPass:        os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:        must("DB_HOST"),      // database host
        DBPort:        must("DB_PORT"),      // database port
        DBName:        must("DB_NAME"),      // database name
        BookingTTL:    envDur("BOOKING_TTL", 600*time.Second),
        TicketInfoTTL: envDur("TICKET_TYPE_TTL", 3600*time.Second),
        SeatCacheTTL:  envDur("SEAT_CACHE_TTL", 5*time.Minute),
        ReconcileMode: envStr("RECONCILE_MODE", ReconcileAuto),
        ScanInterval:  envDur("RECONCILE_SCAN_INTERVAL", time.Minute),
        AMQPURL:       os.Getenv("AMQP_URL"), // optional broker
    }
    switch cfg.ReconcileMode {
    case ReconcileAuto, ReconcileEvents, ReconcileScan:
    default:
        log.Fatalf("invalid RECONCILE_MODE: %q", cfg.ReconcileMode)
    }
    if cfg.BookingTTL <= 0 || cfg.TicketInfoTTL <= 0 {
        log.Fatalf("booking and ticket-type TTLs must be positive")
    }
    return cfg
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
