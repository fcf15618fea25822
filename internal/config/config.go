// Package config defines the configuration contract and handles loading and validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"ruznama_bot/internal/domain"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken      = "TELEGRAM_TOKEN"
	KeyAdminIDs           = "ADMIN_IDS"
	KeyMongoURI           = "MONGO_URI"
	KeyMongoDB            = "MONGO_DB"
	KeyAppEnv             = "APP_ENV"
	KeyLogLevel           = "LOG_LEVEL"
	KeyHTTPPort           = "HTTP_PORT"
	KeyDataDir            = "DATA_DIR"
	KeyTimezone           = "TIMEZONE"
	KeyNotifyLeadMinutes  = "NOTIFY_LEAD_MINUTES"
	KeyNotifyPrayers      = "NOTIFY_PRAYERS"
	KeyNotifyRevokePolicy = "NOTIFY_REVOKE_POLICY"
	KeyNotifyConcurrency  = "NOTIFY_CONCURRENCY"
	KeyNotifySchedule     = "NOTIFY_SCHEDULE"
	KeyWebhookURL         = "WEBHOOK_URL"
	KeyWebhookSecret      = "WEBHOOK_SECRET"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv             = EnvProduction
	DefaultLogLevel           = "info"
	DefaultHTTPPort           = 8080
	DefaultDataDir            = "db"
	DefaultTimezone           = "Europe/Moscow"
	DefaultNotifyLeadMinutes  = 10
	DefaultNotifyPrayers      = "Fajr,Dhuhr,Asr,Maghrib,Isha"
	DefaultNotifyRevokePolicy = string(domain.RevokeUnsubscribe)
	DefaultNotifyConcurrency  = 8
	DefaultNotifySchedule     = "* * * * *"

	// Recommended database names by environment.
	DefaultMongoDBProd = "ruznama"
	DefaultMongoDBDev  = "ruznama_dev"

	maxLeadMinutes  = 180
	maxConcurrency  = 64
	redactedSuffix  = "...redacted"
	tokenPrefixSize = 4
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyAdminIDs,
		Example:     "123456789,987654321",
		Required:    true,
		Description: "Telegram user ids allowed to use admin commands.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string.",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Required:    true,
		Description: "MongoDB database name.",
		Notes:       "Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP port for health, metrics and the webhook endpoint.",
	},
	{
		Key:         KeyDataDir,
		Example:     DefaultDataDir,
		Default:     DefaultDataDir,
		Description: "Directory with cities-areas.json, cities-areas/<id>.json and quotes.json.",
	},
	{
		Key:         KeyTimezone,
		Example:     DefaultTimezone,
		Default:     DefaultTimezone,
		Description: "IANA time zone the prayer time tables are expressed in.",
	},
	{
		Key:         KeyNotifyLeadMinutes,
		Example:     "5",
		Default:     strconv.Itoa(DefaultNotifyLeadMinutes),
		Description: "Minutes before a prayer at which the reminder is sent.",
	},
	{
		Key:         KeyNotifyPrayers,
		Example:     DefaultNotifyPrayers + ",Sunrise",
		Default:     DefaultNotifyPrayers,
		Description: "Comma-separated prayers that trigger reminders.",
	},
	{
		Key:         KeyNotifyRevokePolicy,
		Example:     string(domain.RevokeUnsubscribe) + " / " + string(domain.RevokeDelete),
		Default:     DefaultNotifyRevokePolicy,
		Description: "What to do with a subscription whose user blocked the bot.",
	},
	{
		Key:         KeyNotifyConcurrency,
		Example:     strconv.Itoa(DefaultNotifyConcurrency),
		Default:     strconv.Itoa(DefaultNotifyConcurrency),
		Description: "Maximum reminders sent in parallel during one tick.",
	},
	{
		Key:         KeyNotifySchedule,
		Example:     DefaultNotifySchedule,
		Default:     DefaultNotifySchedule,
		Description: "Cron spec of the reminder tick.",
		Notes:       "Must fire at least once per minute; coarser or malformed specs are rejected at startup.",
	},
	{
		Key:         KeyWebhookURL,
		Example:     "https://bot.example.com/webhook",
		Description: "Public webhook URL; long polling is used when empty.",
	},
	{
		Key:         KeyWebhookSecret,
		Example:     "s3cr3t",
		Description: "Secret token Telegram sends with webhook requests.",
	},
}

// Notify groups the reminder scheduler settings.
type Notify struct {
	LeadTime     time.Duration
	Prayers      []domain.Prayer
	RevokePolicy domain.RevokePolicy
	Concurrency  int
	Schedule     string
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken string
	AdminIDs      []int64
	MongoURI      string
	MongoDB       string
	AppEnv        string
	LogLevel      string
	HTTPPort      int
	DataDir       string
	Timezone      string
	Location      *time.Location
	Notify        Notify
	WebhookURL    string
	WebhookSecret string
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:        firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken: strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		MongoURI:      strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:       strings.TrimSpace(os.Getenv(KeyMongoDB)),
		LogLevel:      firstNonEmpty(os.Getenv(KeyLogLevel), DefaultLogLevel),
		HTTPPort:      DefaultHTTPPort,
		DataDir:       firstNonEmpty(os.Getenv(KeyDataDir), DefaultDataDir),
		Timezone:      firstNonEmpty(os.Getenv(KeyTimezone), DefaultTimezone),
		WebhookURL:    strings.TrimSpace(os.Getenv(KeyWebhookURL)),
		WebhookSecret: strings.TrimSpace(os.Getenv(KeyWebhookSecret)),
		Notify: Notify{
			LeadTime:    DefaultNotifyLeadMinutes * time.Minute,
			Concurrency: DefaultNotifyConcurrency,
			Schedule:    firstNonEmpty(os.Getenv(KeyNotifySchedule), DefaultNotifySchedule),
		},
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}

	adminsRaw := strings.TrimSpace(os.Getenv(KeyAdminIDs))
	if adminsRaw == "" {
		missing = append(missing, KeyAdminIDs)
	} else {
		admins, parseErr := parseIDList(adminsRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyAdminIDs, parseErr)
		}
		cfg.AdminIDs = admins
	}

	if cfg.MongoURI == "" {
		missing = append(missing, KeyMongoURI)
	}

	if cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if err := validateMongoURI(cfg.MongoURI); err != nil {
		return Config{}, err
	}

	if port, ok, parseErr := positiveInt(KeyHTTPPort); parseErr != nil {
		return Config{}, parseErr
	} else if ok {
		cfg.HTTPPort = port
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyTimezone, err)
	}
	cfg.Location = loc

	if err := loadNotify(&cfg.Notify); err != nil {
		return Config{}, err
	}

	if cfg.WebhookURL != "" {
		parsed, parseErr := url.Parse(cfg.WebhookURL)
		if parseErr != nil || parsed.Scheme != "https" || parsed.Host == "" {
			return Config{}, fmt.Errorf("invalid %s: must be an absolute https URL", KeyWebhookURL)
		}
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// UseWebhook reports whether updates arrive through a webhook instead of long polling.
func (c Config) UseWebhook() bool {
	return c.WebhookURL != ""
}

// IsAdmin reports whether the user id is on the admin allowlist.
func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// FormatRedacted renders the configuration for diagnostics with secrets masked.
func FormatRedacted(cfg Config) string {
	prayers := make([]string, 0, len(cfg.Notify.Prayers))
	for _, p := range cfg.Notify.Prayers {
		prayers = append(prayers, string(p))
	}

	admins := make([]string, 0, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins = append(admins, strconv.FormatInt(id, 10))
	}

	lines := []string{
		"telegram_token: " + redactToken(cfg.TelegramToken),
		"admin_ids: " + strings.Join(admins, ","),
		"mongo_uri: " + redactURI(cfg.MongoURI),
		"mongo_db: " + cfg.MongoDB,
		"app_env: " + cfg.AppEnv,
		"log_level: " + cfg.LogLevel,
		"http_port: " + strconv.Itoa(cfg.HTTPPort),
		"data_dir: " + cfg.DataDir,
		"timezone: " + cfg.Timezone,
		"notify_lead: " + cfg.Notify.LeadTime.String(),
		"notify_prayers: " + strings.Join(prayers, ","),
		"notify_revoke_policy: " + string(cfg.Notify.RevokePolicy),
		"notify_concurrency: " + strconv.Itoa(cfg.Notify.Concurrency),
		"notify_schedule: " + cfg.Notify.Schedule,
		"webhook_url: " + cfg.WebhookURL,
		"webhook_secret: " + redactToken(cfg.WebhookSecret),
	}

	return strings.Join(lines, "\n")
}

func loadNotify(n *Notify) error {
	if lead, ok, err := intValue(KeyNotifyLeadMinutes); err != nil {
		return err
	} else if ok {
		if lead < 0 || lead > maxLeadMinutes {
			return fmt.Errorf("%s must be between 0 and %d", KeyNotifyLeadMinutes, maxLeadMinutes)
		}
		n.LeadTime = time.Duration(lead) * time.Minute
	}

	prayers, err := domain.ParsePrayers(firstNonEmpty(os.Getenv(KeyNotifyPrayers), DefaultNotifyPrayers))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", KeyNotifyPrayers, err)
	}
	n.Prayers = prayers

	policy, err := domain.ParseRevokePolicy(firstNonEmpty(os.Getenv(KeyNotifyRevokePolicy), DefaultNotifyRevokePolicy))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", KeyNotifyRevokePolicy, err)
	}
	n.RevokePolicy = policy

	if workers, ok, err := positiveInt(KeyNotifyConcurrency); err != nil {
		return err
	} else if ok {
		if workers > maxConcurrency {
			return fmt.Errorf("%s must not exceed %d", KeyNotifyConcurrency, maxConcurrency)
		}
		n.Concurrency = workers
	}

	if err := checkSchedule(n.Schedule); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyNotifySchedule, err)
	}

	return nil
}

// checkSchedule accepts cron specs that fire at least once a minute over a
// whole week. Reminders match the exact minute and are never caught up, so a
// coarser schedule would drop them.
func checkSchedule(spec string) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return err
	}

	at := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	end := at.AddDate(0, 0, 7)
	for at.Before(end) {
		next := schedule.Next(at)
		if next.IsZero() {
			return fmt.Errorf("%q never fires", spec)
		}
		if gap := next.Sub(at); gap > time.Minute {
			return fmt.Errorf("%q leaves a %s gap after %s; reminders need a tick every minute", spec, gap, at.Format("Mon 15:04"))
		}
		at = next
	}

	return nil
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func validateMongoURI(raw string) error {
	if strings.HasPrefix(raw, "mongodb://") || strings.HasPrefix(raw, "mongodb+srv://") {
		return nil
	}

	return fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
}

func parseIDList(raw string) ([]int64, error) {
	seen := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		if id <= 0 {
			return nil, fmt.Errorf("id %d must be positive", id)
		}
		seen[id] = true
	}
	if len(seen) == 0 {
		return nil, errors.New("no ids given")
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func intValue(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}

	return value, true, nil
}

func positiveInt(key string) (int, bool, error) {
	value, ok, err := intValue(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if value <= 0 {
		return 0, false, fmt.Errorf("%s must be greater than 0", key)
	}

	return value, true, nil
}

func redactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= tokenPrefixSize {
		return redactedSuffix
	}

	return token[:tokenPrefixSize] + redactedSuffix
}

func redactURI(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return redactedSuffix
	}
	parsed.User = nil

	return parsed.String()
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
