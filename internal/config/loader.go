// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"roombooking-service/internal/calendar"
)

// Calendar providers.
const (
	ProviderGraph  = "graph"
	ProviderGoogle = "google"
)

// Working hours stores.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Notification senders.
const (
	NotifierGraph    = "graph"
	NotifierSendGrid = "sendgrid"
	NotifierLog      = "log"
)

// Config captures environment driven configuration values for the room
// booking service.
type Config struct {
	ListenAddr string
	LogLevel   string
	LogFormat  string

	Provider string

	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string
	GraphEndpoint     string

	GoogleCredentialsFile string
	GoogleSubject         string
	GoogleRoomsFile       string

	TimeZone string
	Locale   string

	WorkingHoursStore string
	WorkingHoursFile  string
	DatabaseURL       string

	RoomPoliciesFile string

	JWTSecret    string
	StaticTokens map[string]string // token -> principal address

	FanoutLimit       int
	FetchTimeout      time.Duration
	ResolveTimeout    time.Duration
	WindowDays        int
	TitleCacheTTL     time.Duration
	ProviderRateLimit float64 // requests per second, 0 = unlimited

	Notifier         string
	SendGridAPIKey   string
	SendGridFromAddr string
	SendGridFromName string
	NotifyWatchers   []string
	FallbackApprover string
	FallbackSender   string

	PublicBaseURL string
	CORSOrigins   []string
}

// LoadEnvFile loads variables from a dotenv file without overriding the
// ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Required values depend on the
// chosen provider, store and notifier; all missing and invalid variables
// are reported together.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:        ":8080",
		LogLevel:          "info",
		LogFormat:         "json",
		Provider:          ProviderGraph,
		TimeZone:          "Europe/Amsterdam",
		Locale:            "nl",
		WorkingHoursStore: StoreFile,
		WorkingHoursFile:  "room_working_hours.json",
		FanoutLimit:       8,
		FetchTimeout:      10 * time.Second,
		ResolveTimeout:    5 * time.Second,
		WindowDays:        10,
		TitleCacheTTL:     15 * time.Minute,
		Notifier:          NotifierLog,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)
	e := env{invalid: &invalid}

	e.str("LISTEN_ADDR", &cfg.ListenAddr)
	e.str("LOG_LEVEL", &cfg.LogLevel)
	e.str("LOG_FORMAT", &cfg.LogFormat)
	e.str("TIMEZONE", &cfg.TimeZone)
	e.str("LOCALE", &cfg.Locale)
	e.str("ROOM_POLICIES_FILE", &cfg.RoomPoliciesFile)
	e.str("JWT_SECRET", &cfg.JWTSecret)
	e.str("FALLBACK_APPROVER", &cfg.FallbackApprover)
	e.str("FALLBACK_SENDER", &cfg.FallbackSender)
	e.str("PUBLIC_BASE_URL", &cfg.PublicBaseURL)
	e.positiveInt("FANOUT_LIMIT", &cfg.FanoutLimit)
	e.positiveInt("WINDOW_DAYS", &cfg.WindowDays)
	e.duration("FETCH_TIMEOUT", &cfg.FetchTimeout)
	e.duration("RESOLVE_TIMEOUT", &cfg.ResolveTimeout)
	e.duration("TITLE_CACHE_TTL", &cfg.TitleCacheTTL)
	cfg.NotifyWatchers = list(os.Getenv("NOTIFY_WATCHERS"))
	cfg.CORSOrigins = list(os.Getenv("CORS_ORIGINS"))

	if v := strings.TrimSpace(os.Getenv("PROVIDER_RATE_LIMIT")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			invalid = append(invalid, "PROVIDER_RATE_LIMIT")
		} else {
			cfg.ProviderRateLimit = rps
		}
	}

	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		invalid = append(invalid, "TIMEZONE")
	}

	tokens, ok := parseStaticTokens(os.Getenv("STATIC_TOKENS"))
	if !ok {
		invalid = append(invalid, "STATIC_TOKENS")
	}
	cfg.StaticTokens = tokens
	if cfg.JWTSecret == "" && len(cfg.StaticTokens) == 0 && ok {
		missing = append(missing, "JWT_SECRET")
	}

	e.str("CALENDAR_PROVIDER", &cfg.Provider)
	cfg.Provider = strings.ToLower(cfg.Provider)
	switch cfg.Provider {
	case ProviderGraph:
		e.str("GRAPH_ENDPOINT", &cfg.GraphEndpoint)
		missing = e.required(missing, "GRAPH_TENANT_ID", &cfg.GraphTenantID)
		missing = e.required(missing, "GRAPH_CLIENT_ID", &cfg.GraphClientID)
		missing = e.required(missing, "GRAPH_CLIENT_SECRET", &cfg.GraphClientSecret)
	case ProviderGoogle:
		e.str("GOOGLE_SUBJECT", &cfg.GoogleSubject)
		missing = e.required(missing, "GOOGLE_CREDENTIALS_FILE", &cfg.GoogleCredentialsFile)
		missing = e.required(missing, "GOOGLE_ROOMS_FILE", &cfg.GoogleRoomsFile)
	default:
		invalid = append(invalid, "CALENDAR_PROVIDER")
	}

	e.str("WORKING_HOURS_STORE", &cfg.WorkingHoursStore)
	cfg.WorkingHoursStore = strings.ToLower(cfg.WorkingHoursStore)
	switch cfg.WorkingHoursStore {
	case StoreFile:
		e.str("WORKING_HOURS_FILE", &cfg.WorkingHoursFile)
	case StorePostgres:
		missing = e.required(missing, "DATABASE_URL", &cfg.DatabaseURL)
	default:
		invalid = append(invalid, "WORKING_HOURS_STORE")
	}

	e.str("NOTIFIER", &cfg.Notifier)
	cfg.Notifier = strings.ToLower(cfg.Notifier)
	switch cfg.Notifier {
	case NotifierLog:
	case NotifierGraph:
		if cfg.Provider != ProviderGraph {
			invalid = append(invalid, "NOTIFIER")
		}
	case NotifierSendGrid:
		e.str("SENDGRID_FROM_NAME", &cfg.SendGridFromName)
		missing = e.required(missing, "SENDGRID_API_KEY", &cfg.SendGridAPIKey)
		missing = e.required(missing, "SENDGRID_FROM_EMAIL", &cfg.SendGridFromAddr)
	default:
		invalid = append(invalid, "NOTIFIER")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

type env struct {
	invalid *[]string
}

func (e env) str(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (e env) required(missing []string, key string, dst *string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return append(missing, key)
	}
	*dst = v
	return missing
}

func (e env) positiveInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*e.invalid = append(*e.invalid, key)
		return
	}
	*dst = n
}

func (e env) duration(key string, dst *time.Duration) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*e.invalid = append(*e.invalid, key)
		return
	}
	*dst = d
}

func list(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseStaticTokens reads "token:address" pairs separated by commas.
func parseStaticTokens(v string) (map[string]string, bool) {
	tokens := make(map[string]string)
	for _, pair := range list(v) {
		token, address, found := strings.Cut(pair, ":")
		token, address = strings.TrimSpace(token), strings.TrimSpace(address)
		if !found || token == "" || address == "" {
			return nil, false
		}
		tokens[token] = address
	}
	return tokens, true
}

type roomsFile struct {
	Rooms []struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
	} `yaml:"rooms"`
}

// LoadRooms reads the room directory used with providers that have none.
func LoadRooms(path string) ([]calendar.Room, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rooms: %w", err)
	}
	var f roomsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rooms: %w", err)
	}
	rooms := make([]calendar.Room, 0, len(f.Rooms))
	for i, r := range f.Rooms {
		if strings.TrimSpace(r.Email) == "" || strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("rooms: entry %d needs a name and an email", i)
		}
		id := r.ID
		if id == "" {
			id = r.Email
		}
		rooms = append(rooms, calendar.Room{ID: id, DisplayName: r.Name, Address: r.Email})
	}
	return rooms, nil
}
