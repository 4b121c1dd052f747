package server

import (
	"net"
	"os"
	"strconv"
)

const (
	defaultHost       = "127.0.0.1"
	defaultPort       = 1337
	defaultSendBuffer = 256
)

// Config holds the runtime settings for the chat service.
type Config struct {
	// Host and Port locate the TCP listener.
	Host string
	Port int
	// HTTPAddr is the WebSocket gateway listen address. Empty disables the
	// gateway.
	HTTPAddr string
	// AllowedOrigins restricts WebSocket upgrades by Origin header. Empty
	// allows every origin.
	AllowedOrigins []string
	// SendBuffer is the per-session outgoing frame buffer. A session whose
	// buffer fills up is torn down like any dead peer.
	SendBuffer int
}

// NewConfig creates a Config populated with default values.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Host:       defaultHost,
		Port:       defaultPort,
		SendBuffer: defaultSendBuffer,
	}
}

// NewConfigFromEnv creates a Config from environment variables, falling back
// to defaults when a variable is unset or unparseable.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if host := os.Getenv("CHAT_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("CHAT_PORT"); port != "" {
		cfg.Port = parseIntValue(port, cfg.Port)
	}
	if addr := os.Getenv("CHAT_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if buffer := os.Getenv("CHAT_SEND_BUFFER"); buffer != "" {
		cfg.SendBuffer = parseIntValue(buffer, cfg.SendBuffer)
	}

	return &cfg
}

// sanitize replaces zero values with defaults so a partially filled Config
// still yields a working server.
func (c *Config) sanitize() {
	if c.Host == "" {
		c.Host = defaultHost
	}
	// Port 0 is kept as-is: it asks the OS for an ephemeral port.
	if c.Port < 0 || c.Port > 65535 {
		c.Port = defaultPort
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
}

// Addr returns the TCP listen address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}
