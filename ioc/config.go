package ioc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Quote     QuoteConfig     `mapstructure:"quote"`
	Cex       CexConfig       `mapstructure:"cex"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Narrative NarrativeConfig `mapstructure:"narrative"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Server    ServerConfig    `mapstructure:"server"`
}

type MonitorConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// 凭证沿用原有的环境变量名
var envBindings = map[string]string{
	"notify.email.sender":    "SENDER_EMAIL",
	"notify.email.password":  "SENDER_PASSWORD",
	"notify.sms.account_sid": "TWILIO_ACCOUNT_SID",
	"notify.sms.auth_token":  "TWILIO_AUTH_TOKEN",
	"notify.sms.from":        "TWILIO_PHONE_NUMBER",
	"llm.openai.api_key":     "OPENAI_API_KEY",
	"llm.gemini.api_key":     "GEMINI_API_KEY",
	"cex.binance.api_key":    "BINANCE_API_KEY",
	"cex.binance.api_secret": "BINANCE_API_SECRET",
}

// InitViper builds a viper instance from an optional YAML file plus the
// process environment (a .env file in the working directory is loaded first).
func InitViper(file string) *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			panic(err)
		}
	}

	if file == "" {
		return v
	}
	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		return v
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("quote.provider", "yahoo")
	v.SetDefault("quote.timeout", 10*time.Second)
	v.SetDefault("notify.email.host", "smtp.gmail.com")
	v.SetDefault("notify.email.port", 465)
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.openai.model", "gpt-4")
	v.SetDefault("monitor.interval", 60*time.Second)
	v.SetDefault("monitor.probe_timeout", 15*time.Second)
	v.SetDefault("server.addr", ":8080")
}

func LoadConfig(v *viper.Viper) Config {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("fatal error decode config: %w", err))
	}
	return cfg
}
