// Package config loads server and client settings from the environment,
// with an optional .env file for local runs.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Server struct {
	Addr string `env:"CHAT_ADDR" env-default:":8080"`
}

type Client struct {
	ServerURL string `env:"CHAT_SERVER_URL" env-default:"ws://localhost:8080/ws"`
	Name      string `env:"CHAT_NAME"`
}

func LoadServer() (Server, error) {
	loadDotEnv()
	var cfg Server
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Server{}, fmt.Errorf("read server config: %w", err)
	}
	return cfg, nil
}

func LoadClient() (Client, error) {
	loadDotEnv()
	var cfg Client
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Client{}, fmt.Errorf("read client config: %w", err)
	}
	return cfg, nil
}

func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}
