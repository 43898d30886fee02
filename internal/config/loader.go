// Package config loads the service configuration from a YAML file and
// overrides individual values from the environment. Fields opt in to an
// override with an `env` struct tag:
//
//	Port int `yaml:"port" env:"CONTENT_CLOUD_PORT"`
//
// A .env.local file, then a .env file, are read into the process
// environment before overrides apply, so local secrets never need to
// live in config.yml.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, fills in defaults, and applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	for _, envFile := range []string{".env.local", ".env"} {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideStruct(reflect.ValueOf(&cfg).Elem())
	return &cfg, nil
}

// GetConfigPath returns CONFIG_PATH from the environment, or defaultPath.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}

// overrideStruct walks the config sections and replaces any tagged field
// whose environment variable is set and non-empty.
func overrideStruct(v reflect.Value) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			overrideStruct(field)
			continue
		}

		envName := t.Field(i).Tag.Get("env")
		if envName == "" {
			continue
		}
		if raw := os.Getenv(envName); raw != "" {
			setField(field, raw)
		}
	}
}

// setField parses raw into the field. Config carries only strings, ints,
// durations, and bools; a value that fails to parse leaves the field as
// loaded from YAML.
func setField(field reflect.Value, raw string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(raw); err == nil {
				field.SetInt(int64(d))
			}
			return
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Bool:
		raw = strings.ToLower(strings.TrimSpace(raw))
		field.SetBool(raw == "true" || raw == "1" || raw == "yes")
	}
}
