package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	StripeSecretKey     string
	StripeWebhookSecret string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	TreasuryUserID      string

	// Core tuning. Amounts are decimal strings at base-unit scale.
	MintMaxPerBlock    string
	MintLargeThreshold string
	MintCooldownBlocks uint64
	SlotSeconds        int64
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	maxPerBlock := viper.GetString("MINT_MAX_PER_BLOCK")
	if maxPerBlock == "" {
		// 1,000,000 tokens at 18-decimal scale per block
		maxPerBlock = "1000000000000000000000000"
	}
	largeThreshold := viper.GetString("MINT_LARGE_THRESHOLD")
	if largeThreshold == "" {
		// 100,000 tokens at 18-decimal scale
		largeThreshold = "100000000000000000000000"
	}
	cooldown := viper.GetUint64("MINT_COOLDOWN_BLOCKS")
	if cooldown == 0 {
		cooldown = 10
	}
	slotSeconds := viper.GetInt64("SLOT_SECONDS")
	if slotSeconds == 0 {
		slotSeconds = 12
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		StripeSecretKey:     viper.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: viper.GetString("STRIPE_WEBHOOK_SECRET"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		TreasuryUserID:      viper.GetString("TREASURY_USER_ID"),
		MintMaxPerBlock:     maxPerBlock,
		MintLargeThreshold:  largeThreshold,
		MintCooldownBlocks:  cooldown,
		SlotSeconds:         slotSeconds,
	}, nil
}
