package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Provider  ProviderConfig
	RateLimit RateLimitConfig
	Captcha   CaptchaConfig
	Admin     AdminConfig
	Tenants   map[string]TenantSeed
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	URL string
}

type ProviderConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	ForceMock         bool
	TimeoutSeconds    int
	CostPer1KTokens   float64
	RequestsPerSecond float64
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
	ExemptPaths       []string
	CleanupInterval   time.Duration
}

type CaptchaConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

type AdminConfig struct {
	JWTSecret string
}

// TenantSeed is the static tenant table entry, including the persona
// profile. Used when no database is configured.
type TenantSeed struct {
	Provider          string
	RequestsPerMinute int
	Burst             int
	ExemptPaths       []string
	PrimaryColor      string
	WelcomeMessage    string
	Persona           string
	Tone              string
	TemplateVersion   string
	PromptTemplate    string
	BlockedTopics     []string
	RefusalMessage    string
	RedirectTo        string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("GATEWAY")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("provider.baseurl", "https://api.openai.com")
	viper.SetDefault("provider.model", "gpt-4o-mini")
	viper.SetDefault("provider.forcemock", false)
	viper.SetDefault("provider.timeoutseconds", 60)
	viper.SetDefault("provider.costper1ktokens", 0.002)
	viper.SetDefault("provider.requestspersecond", 5)
	viper.SetDefault("ratelimit.requestsperminute", 60)
	viper.SetDefault("ratelimit.burst", 10)
	viper.SetDefault("ratelimit.exemptpaths", []string{"/health", "/metrics"})
	viper.SetDefault("ratelimit.cleanupinterval", "5m")
	viper.SetDefault("captcha.ttl", "5m")
	viper.SetDefault("captcha.maxattempts", 3)

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if secret := os.Getenv("ADMIN_JWT_SECRET"); secret != "" {
		cfg.Admin.JWTSecret = secret
	}

	// Default tenant table if not configured
	if len(cfg.Tenants) == 0 {
		cfg.Tenants = map[string]TenantSeed{
			"demo-tenant": {
				Provider:          "mock",
				RequestsPerMinute: 60,
				Burst:             10,
				PrimaryColor:      "#4A90D9",
				WelcomeMessage:    "Hi! How can I help you today?",
				Persona:           "Demo Assistant",
				Tone:              "friendly",
			},
		}
	}

	return &cfg, nil
}
