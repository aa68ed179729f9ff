package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"DEBUG"`
	DBAddress string `yaml:"db_address" env:"DB_ADDRESS" env-required:"true"`

	HTTP struct {
		Address string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
		Timeout time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	} `yaml:"http"`

	Rollover struct {
		At string `yaml:"at" env:"ROLLOVER_AT" env-default:"18:00"`
	} `yaml:"rollover"`

	Push struct {
		AppID  string `yaml:"app_id" env:"PUSH_APP_ID"`
		APIKey string `yaml:"api_key" env:"PUSH_API_KEY"`
	} `yaml:"push"`
}

func MustLoad(configPath string) Config {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read env: %s", err)
		}
		return cfg
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				log.Fatalf("cannot read env: %s", err)
			}
			return cfg
		}
		log.Fatalf("cannot read config %q: %s", configPath, err)
	}

	return cfg
}
