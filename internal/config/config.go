package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DatabaseMySQL = "mysql"
	DatabaseMongo = "mongo"
	// DatabaseMemory keeps links in process memory; for local runs only.
	DatabaseMemory = "memory"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"5000"`
}

type DiscordConfig struct {
	BotToken       string        `yaml:"bot_token" env:"DISCORD_TOKEN" env-default:""`
	ClientID       string        `yaml:"client_id" env:"DISCORD_CLIENT_ID" env-default:""`
	ClientSecret   string        `yaml:"client_secret" env:"DISCORD_CLIENT_SECRET" env-default:""`
	RedirectURI    string        `yaml:"redirect_uri" env:"REDIRECT_URI" env-default:""`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQ_TIMEOUT" env-default:"5s"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DATABASE_DRIVER" env-default:"mysql"`
	Host     string `yaml:"host" env:"DATABASE_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DATABASE_PORT" env-default:"3306"`
	User     string `yaml:"user" env:"DATABASE_USER" env-default:""`
	Password string `yaml:"password" env:"DATABASE_PASSWORD" env-default:""`
	Name     string `yaml:"name" env:"DATABASE_NAME" env-default:"discord_bot"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type SessionConfig struct {
	Driver     string        `yaml:"driver" env-default:"memory"`
	TTL        time.Duration `yaml:"ttl" env-default:"10m"`
	CookieName string        `yaml:"cookie_name" env-default:"rolelink_session"`
	Secure     bool          `yaml:"secure" env-default:"false"`
	Redis      RedisConfig   `yaml:"redis"`
}

type RateLimitConfig struct {
	Window      time.Duration `yaml:"window" env-default:"60s"`
	MaxRequests int           `yaml:"max_requests" env-default:"20"`
	// TrustForwarded takes the client address from the right-most X-Forwarded-For
	// hop; enable only behind a reverse proxy that appends it.
	TrustForwarded bool `yaml:"trust_forwarded" env:"TRUST_FORWARDED" env-default:"false"`
}

type IssuerConfig struct {
	BaseURL           string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:5000"`
	HomeGuildID       string `yaml:"home_guild_id" env:"DISCORD_DEV_GUILD_ID" env-default:""`
	PremiumRoleID     string `yaml:"premium_role_id" env:"PREMIUM_ROLE_ID" env-default:""`
	PersonalLinkLimit int    `yaml:"personal_link_limit" env:"FREE_USER_PERSONAL_LINK_LIMIT" env-default:"3"`
	GuildLinkLimit    int    `yaml:"guild_link_limit" env:"FREE_USER_SERVER_LINK_LIMIT" env-default:"10"`
	ListPageSize      int    `yaml:"list_page_size" env-default:"10"`
}

type TelegramConfig struct {
	Enabled      bool    `yaml:"enabled" env-default:"false"`
	ApiKey       string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
	MinLevel     string  `yaml:"min_level" env-default:"error"`
	// DigestInterval batches alerts below error level; zero sends them at once.
	DigestInterval time.Duration `yaml:"digest_interval" env-default:"30m"`
}

type Config struct {
	Env       string          `yaml:"env" env-default:"local"`
	Listen    Listen          `yaml:"listen"`
	Discord   DiscordConfig   `yaml:"discord"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Issuer    IssuerConfig    `yaml:"issuer"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		if err = instance.check(); err != nil {
			log.Fatal(fmt.Errorf("config: %w", err))
		}
	})
	return instance
}

func (c *Config) check() error {
	switch c.Database.Driver {
	case DatabaseMySQL, DatabaseMongo, DatabaseMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Session.Driver {
	case SessionMemory, SessionRedis:
	default:
		return fmt.Errorf("unknown session driver %q", c.Session.Driver)
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit: window and max_requests must be positive")
	}
	return nil
}
