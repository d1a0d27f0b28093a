package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "./config/config.yaml"

func configPath() string {
	if p := getEnv("WALLET_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// .env is optional
func loadDotEnv() {
	_ = godotenv.Load()
}

func getEnv(key string) string {
	return os.Getenv(key)
}

func readYAML(path string, cfg *Config) error {
	filename, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	yamlFile, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}
	return nil
}
