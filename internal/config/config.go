package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string   `mapstructure:"mode"`
	SignalingURL string   `mapstructure:"signaling_url" validate:"required,url"`
	AnalysisURL  string   `mapstructure:"analysis_url" validate:"required,url"`
	STUNServers  []string `mapstructure:"stun_servers" validate:"min=2"`
	StatusAddr   string   `mapstructure:"status_addr"`

	ReconnectDelay  time.Duration `mapstructure:"reconnect_delay" validate:"gt=0"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout" validate:"gt=0"`

	CaptureWidth     int     `mapstructure:"capture_width" validate:"gt=0"`
	CaptureHeight    int     `mapstructure:"capture_height" validate:"gt=0"`
	CaptureFrameRate float32 `mapstructure:"capture_framerate" validate:"gt=0"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("liveclass")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("signaling_url", "ws://localhost:5000/ws")
	v.SetDefault("analysis_url", "http://localhost:8000/predict")
	v.SetDefault("stun_servers", []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
	})
	v.SetDefault("status_addr", ":8090")
	v.SetDefault("reconnect_delay", "3s")
	v.SetDefault("retry_delay", "5s")
	v.SetDefault("analysis_timeout", "15s")
	v.SetDefault("capture_width", 640)
	v.SetDefault("capture_height", 480)
	v.SetDefault("capture_framerate", 30)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
