package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings splits the cancellation rule table
    "time"    // time parses durations for hold and sweep settings

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/model"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// hold and sweep timers, int64 cents for money.
type Config struct {
    Env       string // application environment (e.g. "dev", "prod")
    Port      string // HTTP port to listen on
    DBUser    string // database username
    DBPass    string // database password (optional)
    DBHost    string // database host address
    DBPort    string // database port number
    DBName    string // database name
    JWTSecret string // secret used to sign holder tokens

    HoldTTL              time.Duration            // how long a seat hold lives
    SweepInterval        time.Duration            // how often the expiry sweeper runs
    CancellationFeeCents int64                    // flat fee subtracted from refunds
    MinimumRefundCents   int64                    // floor for positive refunds
    CancellationRules    []model.CancellationRule // lead-time refund table
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Policy knobs all
// have sensible defaults so a bare environment still boots.
func Load() Config {
    return Config{
        Env:       must("APP_ENV"),      // environment (dev/test/prod)
        Port:      must("APP_PORT"),     // port to bind the HTTP server
        DBUser:    must("DB_USER"),      // database user
        DBPass:    os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:    must("DB_HOST"),      // database host
        DBPort:    must("DB_PORT"),      // database port
        DBName:    must("DB_NAME"),      // database name
        JWTSecret: must("JWT_SECRET"),   // secret used for signing holder tokens

        HoldTTL:              dur("SEAT_HOLD_TTL", 15*time.Minute),
        SweepInterval:        dur("SWEEP_INTERVAL", time.Minute),
        CancellationFeeCents: cents("CANCELLATION_FEE_CENTS", 0),
        MinimumRefundCents:   cents("MINIMUM_REFUND_CENTS", 0),
        CancellationRules:    rules("CANCELLATION_RULES", "2:100"),
    }
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

// dur parses a duration env var, falling back to the default when the
// variable is unset or malformed.
func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    d, err := time.ParseDuration(v)
    if err != nil || d <= 0 {
        log.Printf("config: invalid duration for %s: %q; using %s", key, v, def)
        return def
    }
    return d
}

// cents parses a money amount in the smallest currency unit.
func cents(key string, def int64) int64 {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.ParseInt(v, 10, 64)
    if err != nil || n < 0 {
        log.Printf("config: invalid amount for %s: %q; using %d", key, v, def)
        return def
    }
    return n
}

// rules parses a comma-separated "hours:percentage" table, e.g.
// "48:100,24:75,2:50".  Malformed entries are skipped with a warning;
// an empty result falls back to the default table.
func rules(key, def string) []model.CancellationRule {
    v := os.Getenv(key)
    if v == "" {
        v = def
    }
    out := parseRules(v)
    if len(out) == 0 {
        out = parseRules(def)
    }
    return out
}

func parseRules(v string) []model.CancellationRule {
    var out []model.CancellationRule
    for _, part := range strings.Split(v, ",") {
        part = strings.TrimSpace(part)
        if part == "" {
            continue
        }
        fields := strings.SplitN(part, ":", 2)
        if len(fields) != 2 {
            log.Printf("config: skipping malformed cancellation rule %q", part)
            continue
        }
        hours, err1 := strconv.Atoi(strings.TrimSpace(fields[0]))
        pct, err2 := strconv.Atoi(strings.TrimSpace(fields[1]))
        if err1 != nil || err2 != nil || hours < 0 || pct < 0 || pct > 100 {
            log.Printf("config: skipping malformed cancellation rule %q", part)
            continue
        }
        out = append(out, model.CancellationRule{HoursBeforeDeparture: hours, RefundPercentage: pct})
    }
    return out
}
