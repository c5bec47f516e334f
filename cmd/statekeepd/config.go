package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the subset of serve's flags a --config YAML file
// may supply. Flags passed on the command line always win over the
// file, matched by cmd.Flags().Changed.
type fileConfig struct {
	Port        int    `yaml:"port"`
	DBPath      string `yaml:"db_path"`
	KVBackend   string `yaml:"kv_backend"`
	AdminSocket string `yaml:"admin_socket"`
	HTTPAddr    string `yaml:"http_addr"`
	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
