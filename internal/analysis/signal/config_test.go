package signal

import "testing"

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := Normalize(Config{})
	def := DefaultConfig()
	if cfg != def {
		t.Fatalf("empty config should normalize to defaults: %+v", cfg)
	}
	cfg = Normalize(Config{ZWindow: 24, QHi: 0.9})
	if cfg.ZWindow != 24 || cfg.QHi != 0.9 {
		t.Fatalf("explicit values must survive normalize")
	}
	if cfg.KSL != def.KSL || cfg.RiskPct != def.RiskPct {
		t.Fatalf("unset values must pick up defaults")
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted quantiles", func(c *Config) { c.QLo = 0.9; c.QHi = 0.1 }},
		{"zero z window", func(c *Config) { c.ZWindow = -1 }},
		{"zero quantile window", func(c *Config) { c.QuantileWindow = -5 }},
		{"negative alpha", func(c *Config) { c.Alpha = -0.2 }},
		{"winsor p too high", func(c *Config) { c.WinsorP = 0.5 }},
		{"negative stop multiple", func(c *Config) { c.KSL = -1 }},
		{"risk pct out of range", func(c *Config) { c.RiskPct = 1.5 }},
		{"coverage above one", func(c *Config) { c.MinCoverage = 1.2 }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}
