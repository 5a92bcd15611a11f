package service

import (
	"net/url"
	"strings"
	"time"
)

type ID string

type Status int

const (
	StatusUnknown Status = iota
	StatusUp
	StatusDown
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUp:
		return "UP"
	case StatusDown:
		return "DOWN"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

const (
	DefaultPath     = "/"
	DefaultInterval = 30 * time.Second
	MinInterval     = time.Second
)

type Config struct {
	Name     string        `json:"name"`
	BaseURL  string        `json:"url"`
	Path     string        `json:"path"`
	Interval time.Duration `json:"interval"`
}

func (c Config) ID() ID { return ID(c.Name) }

// TargetURL joins the base URL and the path with exactly one slash between them.
func (c Config) TargetURL() string {
	base := strings.TrimRight(c.BaseURL, "/")
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// Outcome is the classified result of one probe.
type Outcome struct {
	Timestamp time.Time     `json:"timestamp"`
	Status    Status        `json:"status"`
	Latency   time.Duration `json:"latency"`
	Code      int           `json:"code"`
	Detail    string        `json:"detail,omitempty"`
}

// Record is one persisted entry as read from a config store, before validation.
// Err is set when the entry could not be decoded at all.
type Record struct {
	Index         int
	Name          string
	URL           string
	Path          string
	CheckInterval int
	Err           error
}

func RecordOf(i int, c Config) Record {
	return Record{
		Index:         i,
		Name:          c.Name,
		URL:           c.BaseURL,
		Path:          c.Path,
		CheckInterval: int(c.Interval / time.Second),
	}
}

// Normalize trims the fields, applies defaults and prefixes a scheme-less base URL with http://.
func Normalize(c Config) Config {
	c.Name = strings.TrimSpace(c.Name)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		c.BaseURL = "http://" + c.BaseURL
	}
	return c
}

// Validate normalizes c and rejects configs the registry cannot monitor.
func Validate(c Config) (Config, error) {
	c = Normalize(c)
	if c.Name == "" {
		return c, invalid(c, "name", "is required")
	}
	if c.BaseURL == "" {
		return c, invalid(c, "url", "is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" {
		return c, invalid(c, "url", "must be scheme://host[:port]")
	}
	if c.Interval < MinInterval {
		return c, invalid(c, "check_interval", "must be at least 1s")
	}
	if c.Interval%time.Second != 0 {
		return c, invalid(c, "check_interval", "must be whole seconds")
	}
	return c, nil
}

func invalid(c Config, field, reason string) *ConfigError {
	return &ConfigError{Index: -1, Name: c.Name, Field: field, Reason: reason}
}

// FromRecord validates a persisted record.
func FromRecord(r Record) (Config, error) {
	if r.Err != nil {
		return Config{}, &ConfigError{Index: r.Index, Name: r.Name, Reason: r.Err.Error()}
	}
	c, err := Validate(Config{
		Name:     r.Name,
		BaseURL:  r.URL,
		Path:     r.Path,
		Interval: time.Duration(r.CheckInterval) * time.Second,
	})
	if ce, ok := err.(*ConfigError); ok {
		ce.Index = r.Index
	}
	return c, err
}
