package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type RateLimit struct {
	EventsPerSecond float64 `mapstructure:"events_per_second"`
	Burst           int     `mapstructure:"burst"`
}

type Storage struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type Config struct {
	Mode           string             `mapstructure:"mode"`
	Port           int                `mapstructure:"port"`
	LogLevel       string             `mapstructure:"log_level"`
	StaticPath     string             `mapstructure:"static_path"`
	Secret         string             `mapstructure:"secret"`
	ReadLimit      int64              `mapstructure:"read_limit"`
	PingPeriod     time.Duration      `mapstructure:"ping_period"`
	WriteWait      time.Duration      `mapstructure:"write_wait"`
	SendBuffer     int                `mapstructure:"send_buffer"`
	CallTimeout    time.Duration      `mapstructure:"call_timeout"`
	Backpressure   string             `mapstructure:"backpressure"`
	AllowedOrigins []string           `mapstructure:"allowed_origins"`
	RateLimit      RateLimit          `mapstructure:"rate_limit"`
	Storage        Storage            `mapstructure:"storage"`
	ICEServers     []webrtc.ICEServer `mapstructure:"ice_servers"`
}

// PongWait is how long a connection may stay silent before it is dropped.
func (c *Config) PongWait() time.Duration {
	return c.PingPeriod * 10 / 9
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("call_timeout", "30s")
	v.SetDefault("backpressure", "disconnect")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("rate_limit.events_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.path", "./data/chatline.db")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

// Flags registers the server flags that viper also understands.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file (default config/config.$CONFIG_ENV.yaml)")
	fs.Int("port", 8080, "listen port")
	fs.String("log_level", "info", "zerolog level")
}

// Load reads defaults, the YAML file, CHATLINE_* environment variables and
// the flags in fs, in increasing order of precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("chatline")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileName := ""
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
		fileName, _ = fs.GetString("config")
	}
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("storage", cfg.Storage.Driver).Dur("call_timeout", cfg.CallTimeout).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	}
	if c.PingPeriod <= 0 {
		return fmt.Errorf("ping_period must be positive, got %s", c.PingPeriod)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be positive, got %s", c.CallTimeout)
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	for i, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			return fmt.Errorf("ice_servers[%d]: no urls", i)
		}
	}
	return nil
}
