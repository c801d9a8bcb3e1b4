package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates the service configuration.
type Config struct {
	Server ServerConfig
	Chat   ChatConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Chat: chat}, nil
}

// ServerConfig describes the HTTP server.
type ServerConfig struct {
	Addr string
}

// loadServerConfig parses the listen address.
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5002"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":5002" or "127.0.0.1:5002" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ChatConfig tunes the realtime chat hub.
type ChatConfig struct {
	// SubscriberBuffer bounds each connection's delivery queue. A
	// subscriber that falls this far behind misses messages.
	SubscriberBuffer int
}

func loadChatConfig() (ChatConfig, error) {
	buffer := 32
	if override, err := parseOptionalIntEnv("CHAT_SUBSCRIBER_BUFFER"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ChatConfig{}, fmt.Errorf("CHAT_SUBSCRIBER_BUFFER must be positive, got %d", *override)
		}
		buffer = *override
	}

	return ChatConfig{SubscriberBuffer: buffer}, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
