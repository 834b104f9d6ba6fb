// internal/infra/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持します。
// 優先順位: 環境変数 > 設定ファイル (YAML) > デフォルト値
type Config struct {
	// Solana RPC
	RPCEndpoint    string        `mapstructure:"rpc_endpoint"`
	Commitment     string        `mapstructure:"commitment"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	FreezePolicy   string        `mapstructure:"freeze_policy"`

	// Wallet: ローカル keypair ファイル、または Secret Manager のシークレット名
	KeypairPath    string `mapstructure:"keypair_path"`
	WalletSecretID string `mapstructure:"wallet_secret_id"`

	// Record-keeping service (POST /api/create-token)
	RecorderURL string `mapstructure:"recorder_url"`

	// Metadata upload: Arweave / Irys ラッパ API、または GCS バケット
	ArweaveBaseURL string `mapstructure:"arweave_base_url"`
	ArweaveAPIKey  string `mapstructure:"arweave_api_key"`
	GCSBucket      string `mapstructure:"gcs_bucket"`

	RedisAddr   string `mapstructure:"redis_addr"`
	JournalPath string `mapstructure:"journal_path"`

	// Record store for `serve`: postgres | firestore | memory
	StoreDriver        string `mapstructure:"store_driver"`
	DatabaseURL        string `mapstructure:"database_url"`
	FirestoreProjectID string `mapstructure:"firestore_project_id"`
	GCPCreds           string `mapstructure:"gcp_credentials"`

	Port           string   `mapstructure:"port"`
	MetricsEnabled bool     `mapstructure:"metrics_enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Defaults returns the built-in configuration (devnet, confirmed commitment).
func Defaults() *Config {
	return &Config{
		RPCEndpoint:    "https://api.devnet.solana.com",
		Commitment:     "confirmed",
		ConfirmTimeout: 60 * time.Second,
		PollInterval:   2 * time.Second,
		FreezePolicy:   "omit-at-init",
		KeypairPath:    "~/.config/solana/id.json",
		JournalPath:    "~/.splforge/journal.db",
		StoreDriver:    "memory",
		Port:           "8080",
		MetricsEnabled: true,
	}
}

// Load は設定ファイル（任意）と環境変数を読み込み Config を返します。
// path が空、または存在しない場合はファイルを読み飛ばします。
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path = strings.TrimSpace(path); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", filepath.Base(path), err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: parse %s: %w", filepath.Base(path), err)
	}
	if len(raw) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return fmt.Errorf("config: decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("config: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.RPCEndpoint = getenvDefault("SOLANA_RPC_ENDPOINT", cfg.RPCEndpoint)
	cfg.Commitment = getenvDefault("SOLANA_COMMITMENT", cfg.Commitment)
	cfg.FreezePolicy = getenvDefault("SPLFORGE_FREEZE_POLICY", cfg.FreezePolicy)

	cfg.KeypairPath = getenvDefault("SOLANA_KEYPAIR_PATH", cfg.KeypairPath)
	cfg.WalletSecretID = getenvDefault("WALLET_SECRET_ID", cfg.WalletSecretID)

	cfg.RecorderURL = getenvDefault("RECORDER_URL", cfg.RecorderURL)
	cfg.ArweaveBaseURL = getenvDefault("ARWEAVE_BASE_URL", cfg.ArweaveBaseURL)
	cfg.ArweaveAPIKey = getenvDefault("ARWEAVE_API_KEY", cfg.ArweaveAPIKey)
	cfg.GCSBucket = getenvDefault("GCS_BUCKET", cfg.GCSBucket)

	cfg.RedisAddr = getenvDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.JournalPath = getenvDefault("SPLFORGE_JOURNAL_PATH", cfg.JournalPath)

	cfg.StoreDriver = getenvDefault("SPLFORGE_STORE", cfg.StoreDriver)
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", cfg.DatabaseURL)
	// ベースとなる GCP プロジェクト ID
	cfg.FirestoreProjectID = getenvDefault("FIRESTORE_PROJECT_ID", getenvDefault("GCP_PROJECT_ID", cfg.FirestoreProjectID))
	cfg.GCPCreds = getenvDefault("GOOGLE_APPLICATION_CREDENTIALS", cfg.GCPCreds)

	cfg.Port = getenvDefault("PORT", cfg.Port)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}

	var err error
	if cfg.ConfirmTimeout, err = getenvDuration("SPLFORGE_CONFIRM_TIMEOUT", cfg.ConfirmTimeout); err != nil {
		return err
	}
	if cfg.PollInterval, err = getenvDuration("SPLFORGE_POLL_INTERVAL", cfg.PollInterval); err != nil {
		return err
	}
	if v := os.Getenv("SPLFORGE_METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SPLFORGE_METRICS: %w", err)
		}
		cfg.MetricsEnabled = b
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("config: unknown commitment %q", c.Commitment)
	}
	switch c.StoreDriver {
	case "memory", "postgres", "firestore":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.StoreDriver == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("config: store driver postgres requires DATABASE_URL")
	}
	if c.ConfirmTimeout <= 0 || c.PollInterval <= 0 {
		return fmt.Errorf("config: confirm_timeout and poll_interval must be positive")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ExpandHome resolves a leading "~/" against the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// splitCSV parses "a,b,c" / "a, b, c" into []string (empty trimmed items are removed).
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
