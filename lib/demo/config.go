package demo

// Config holds demo site settings.
type Config struct {
	Addr     string `toml:"addr"`
	PageSize int    `toml:"page_size"`
	Videos   int    `toml:"videos"`
	XSRFKey  string `toml:"xsrf_key"`
	ReadOnly bool   `toml:"read_only"`
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		Addr:     "127.0.0.1:8080",
		PageSize: 12,
		Videos:   40,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.Videos < 0 {
		c.Videos = 0
	}
	return c
}
