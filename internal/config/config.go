package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultAddr         = ":8000"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultReapInterval = 30 * time.Second
	DefaultSendBuffer   = 64

	// MinStaleAfter matches the websocket pong wait. Pongs are the only
	// traffic an idle connected client sends, so a shorter window would
	// expire healthy clients.
	MinStaleAfter = 60 * time.Second
)

// DefaultICEServers are handed to browsers that ask the server how to reach
// their peer.
var DefaultICEServers = []ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
	{URLs: []string{"stun:stun1.l.google.com:19302"}},
}

type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// StaleAfter expires clients that sent nothing for this long. Zero
	// disables expiry, otherwise it must be at least MinStaleAfter.
	StaleAfter   time.Duration `yaml:"stale_after"`
	ReapInterval time.Duration `yaml:"reap_interval"`

	// SendBuffer is the number of outbound frames queued per websocket
	// before notifications are dropped.
	SendBuffer int `yaml:"send_buffer"`

	// AllowedOrigins limits websocket upgrades. Empty allows every origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	ICEServers []ICEServer `yaml:"ice_servers"`
}

type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username"`
	Credential string   `yaml:"credential"`
}

// Options carries command line overrides. Zero values are ignored.
type Options struct {
	File       string
	Addr       string
	LogLevel   string
	LogFormat  string
	StaleAfter time.Duration
}

func Default() *Config {
	return &Config{
		Addr:         DefaultAddr,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		ReapInterval: DefaultReapInterval,
		SendBuffer:   DefaultSendBuffer,
		ICEServers:   append([]ICEServer(nil), DefaultICEServers...),
	}
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. YAML file named by Options.File or DUET_CONFIG
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := Default()

	file := opts.File
	if file == "" {
		file = os.Getenv("DUET_CONFIG")
	}
	if file != "" {
		if err := cfg.loadFile(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	if opts.StaleAfter != 0 {
		cfg.StaleAfter = opts.StaleAfter
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	// PORT is what most hosting platforms set.
	if port := os.Getenv("PORT"); port != "" {
		c.Addr = ":" + port
	}
	if addr := os.Getenv("DUET_ADDR"); addr != "" {
		c.Addr = addr
	}
	if level := os.Getenv("DUET_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if format := os.Getenv("DUET_LOG_FORMAT"); format != "" {
		c.LogFormat = format
	}
	if stale := os.Getenv("DUET_STALE_AFTER"); stale != "" {
		d, err := time.ParseDuration(stale)
		if err != nil {
			return fmt.Errorf("DUET_STALE_AFTER: %w", err)
		}
		c.StaleAfter = d
	}
	if urls := os.Getenv("DUET_ICE_SERVERS"); urls != "" {
		c.ICEServers = nil
		for _, u := range strings.Split(urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.ICEServers = append(c.ICEServers, ICEServer{URLs: []string{u}})
			}
		}
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q: want console or json", c.LogFormat))
	}
	if c.StaleAfter < 0 {
		errs = append(errs, fmt.Errorf("stale_after %s is negative", c.StaleAfter))
	}
	if c.StaleAfter > 0 && c.StaleAfter < MinStaleAfter {
		errs = append(errs, fmt.Errorf("stale_after %s must be 0 or at least %s", c.StaleAfter, MinStaleAfter))
	}
	if c.StaleAfter > 0 && c.ReapInterval <= 0 {
		errs = append(errs, errors.New("reap_interval must be positive when stale_after is set"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("send_buffer %d must be positive", c.SendBuffer))
	}
	for i, server := range c.WebRTCICEServers() {
		if err := validateICEServer(server); err != nil {
			errs = append(errs, fmt.Errorf("ice_servers[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// WebRTCICEServers returns the ICE servers in the shape browsers expect in
// RTCConfiguration.iceServers.
func (c *Config) WebRTCICEServers() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, s := range c.ICEServers {
		server := webrtc.ICEServer{
			URLs:     s.URLs,
			Username: strings.TrimSpace(s.Username),
		}
		if strings.TrimSpace(s.Credential) != "" {
			server.Credential = s.Credential
		}
		out = append(out, server)
	}
	return out
}

func validateICEServer(server webrtc.ICEServer) error {
	if len(server.URLs) == 0 {
		return errors.New("missing urls")
	}

	requiresTurnCreds := false
	for _, raw := range server.URLs {
		url := strings.TrimSpace(raw)
		switch {
		case url == "":
			return errors.New("urls must not contain empty entries")
		case strings.HasPrefix(url, "stun:"), strings.HasPrefix(url, "stuns:"):
		case strings.HasPrefix(url, "turn:"), strings.HasPrefix(url, "turns:"):
			requiresTurnCreds = true
		default:
			return fmt.Errorf("unsupported url scheme: %q", url)
		}
	}

	if requiresTurnCreds {
		if server.Username == "" {
			return errors.New("turn urls require username")
		}
		if cred, ok := server.Credential.(string); !ok || cred == "" {
			return errors.New("turn urls require credential")
		}
	}
	return nil
}
