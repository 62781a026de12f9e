package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode        string `mapstructure:"mode"`
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	ControlURL  string `mapstructure:"control_url"`
	SignalURL   string `mapstructure:"signal_url"`
	Room        string `mapstructure:"room"`
	Participant string `mapstructure:"participant"`
	ICEServers  string `mapstructure:"ice_servers"`

	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Surface   SurfaceConfig   `mapstructure:"surface"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Device    DeviceConfig    `mapstructure:"device"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type MonitorConfig struct {
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	Threshold     float64       `mapstructure:"threshold"`
	Hold          time.Duration `mapstructure:"hold"`
}

type SurfaceConfig struct {
	Wait time.Duration `mapstructure:"wait"`
	Poll time.Duration `mapstructure:"poll"`
}

type AudioConfig struct {
	StartSuspended bool `mapstructure:"start_suspended"`
}

type DeviceConfig struct {
	VideoBusy     bool    `mapstructure:"video_busy"`
	Denied        bool    `mapstructure:"denied"`
	ToneAmplitude float64 `mapstructure:"tone_amplitude"`
}

type RateLimitConfig struct {
	Count    int           `mapstructure:"count"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, falling back to defaults.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("control_url", cfg.ControlURL).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8090)
	v.SetDefault("log_level", "info")
	v.SetDefault("control_url", "http://localhost:8080")
	v.SetDefault("signal_url", "")
	v.SetDefault("room", "")
	v.SetDefault("participant", "")
	v.SetDefault("ice_servers", "")

	v.SetDefault("monitor.frame_interval", "16ms")
	v.SetDefault("monitor.threshold", 0.022)
	v.SetDefault("monitor.hold", "1s")

	v.SetDefault("surface.wait", "3s")
	v.SetDefault("surface.poll", "50ms")

	v.SetDefault("audio.start_suspended", false)

	v.SetDefault("device.video_busy", false)
	v.SetDefault("device.denied", false)
	v.SetDefault("device.tone_amplitude", 0.0)

	v.SetDefault("rate_limit.count", 5)
	v.SetDefault("rate_limit.interval", "10s")
}
