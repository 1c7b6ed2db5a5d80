package signal

import "fmt"

// Config collects every tunable of the signal engine. Zero values are filled
// by Normalize with the defaults recommended for hourly or 15m bars with at
// least 1000 bars of quantile history.
type Config struct {
	// ZWindow is the rolling z-score window (bars).
	ZWindow int `json:"z_window,omitempty" toml:"z_window" yaml:"z_window"`
	// QuantileWindow is the adaptive-threshold lookback (bars).
	QuantileWindow int `json:"quantile_window,omitempty" toml:"quantile_window" yaml:"quantile_window"`
	// MinCoverage is the fraction of the quantile window that must hold
	// defined scores before thresholds are produced.
	MinCoverage float64 `json:"min_coverage,omitempty" toml:"min_coverage" yaml:"min_coverage"`

	// WinsorP clips the long/short-ratio tails at [p, 1-p].
	WinsorP float64 `json:"winsor_p,omitempty" toml:"winsor_p" yaml:"winsor_p"`

	// Alpha, Beta, Gamma weight the ratio level, ratio delta and price
	// momentum inside the composite score; Eta scales the volume boost.
	Alpha float64 `json:"alpha,omitempty" toml:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta,omitempty" toml:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma,omitempty" toml:"gamma" yaml:"gamma"`
	Eta   float64 `json:"eta,omitempty" toml:"eta" yaml:"eta"`

	// QLo, QHi are the short/long decision quantiles; CapQ feeds sizing.
	QLo  float64 `json:"q_lo,omitempty" toml:"q_lo" yaml:"q_lo"`
	QHi  float64 `json:"q_hi,omitempty" toml:"q_hi" yaml:"q_hi"`
	CapQ float64 `json:"cap_q,omitempty" toml:"cap_q" yaml:"cap_q"`

	// MinZLSR and MinZDLSR are the noise floors on the z-scores a signal
	// must clear.
	MinZLSR  float64 `json:"min_z_lsr,omitempty" toml:"min_z_lsr" yaml:"min_z_lsr"`
	MinZDLSR float64 `json:"min_z_dlsr,omitempty" toml:"min_z_dlsr" yaml:"min_z_dlsr"`

	// ATRPeriod drives the risk levels; EntryC, KSL, KTP are the ATR
	// multiples for entry offset, stop loss and trailing take-profit.
	ATRPeriod int     `json:"atr_period,omitempty" toml:"atr_period" yaml:"atr_period"`
	EntryC    float64 `json:"entry_c,omitempty" toml:"entry_c" yaml:"entry_c"`
	KSL       float64 `json:"k_sl,omitempty" toml:"k_sl" yaml:"k_sl"`
	KTP       float64 `json:"k_tp,omitempty" toml:"k_tp" yaml:"k_tp"`

	// RiskPct is the account fraction risked per trade; PointValue the
	// contract multiplier.
	RiskPct    float64 `json:"risk_pct,omitempty" toml:"risk_pct" yaml:"risk_pct"`
	PointValue float64 `json:"point_value,omitempty" toml:"point_value" yaml:"point_value"`

	// EMAFast, EMASlow define the trend gate.
	EMAFast int `json:"ema_fast,omitempty" toml:"ema_fast" yaml:"ema_fast"`
	EMASlow int `json:"ema_slow,omitempty" toml:"ema_slow" yaml:"ema_slow"`
}

// DefaultConfig returns the reference parameter set.
func DefaultConfig() Config {
	return Config{
		ZWindow:        48,
		QuantileWindow: 1000,
		MinCoverage:    0.6,
		WinsorP:        0.05,
		Alpha:          0.55,
		Beta:           0.35,
		Gamma:          0.10,
		Eta:            0.25,
		QLo:            0.20,
		QHi:            0.80,
		CapQ:           0.99,
		MinZLSR:        0.8,
		MinZDLSR:       0.6,
		ATRPeriod:      14,
		EntryC:         0.3,
		KSL:            1.5,
		KTP:            2.0,
		RiskPct:        0.0075,
		PointValue:     1.0,
		EMAFast:        21,
		EMASlow:        55,
	}
}

// Normalize fills zero-valued fields with defaults.
func Normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.ZWindow <= 0 {
		cfg.ZWindow = def.ZWindow
	}
	if cfg.QuantileWindow <= 0 {
		cfg.QuantileWindow = def.QuantileWindow
	}
	if cfg.MinCoverage <= 0 {
		cfg.MinCoverage = def.MinCoverage
	}
	if cfg.WinsorP == 0 {
		cfg.WinsorP = def.WinsorP
	}
	if cfg.Alpha == 0 && cfg.Beta == 0 && cfg.Gamma == 0 {
		cfg.Alpha, cfg.Beta, cfg.Gamma = def.Alpha, def.Beta, def.Gamma
	}
	if cfg.Eta == 0 {
		cfg.Eta = def.Eta
	}
	if cfg.QLo == 0 {
		cfg.QLo = def.QLo
	}
	if cfg.QHi == 0 {
		cfg.QHi = def.QHi
	}
	if cfg.CapQ == 0 {
		cfg.CapQ = def.CapQ
	}
	if cfg.MinZLSR == 0 {
		cfg.MinZLSR = def.MinZLSR
	}
	if cfg.MinZDLSR == 0 {
		cfg.MinZDLSR = def.MinZDLSR
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.EntryC == 0 {
		cfg.EntryC = def.EntryC
	}
	if cfg.KSL == 0 {
		cfg.KSL = def.KSL
	}
	if cfg.KTP == 0 {
		cfg.KTP = def.KTP
	}
	if cfg.RiskPct == 0 {
		cfg.RiskPct = def.RiskPct
	}
	if cfg.PointValue == 0 {
		cfg.PointValue = def.PointValue
	}
	if cfg.EMAFast <= 0 {
		cfg.EMAFast = def.EMAFast
	}
	if cfg.EMASlow <= 0 {
		cfg.EMASlow = def.EMASlow
	}
	return cfg
}

// Validate rejects parameter combinations that would produce silently
// nonsensical output. Call after Normalize.
func (c Config) Validate() error {
	if c.ZWindow <= 0 {
		return fmt.Errorf("signal config: z_window must be positive, got %d", c.ZWindow)
	}
	if c.QuantileWindow <= 0 {
		return fmt.Errorf("signal config: quantile_window must be positive, got %d", c.QuantileWindow)
	}
	if c.MinCoverage <= 0 || c.MinCoverage > 1 {
		return fmt.Errorf("signal config: min_coverage must be in (0, 1], got %v", c.MinCoverage)
	}
	if c.WinsorP < 0 || c.WinsorP >= 0.5 {
		return fmt.Errorf("signal config: winsor_p must be in [0, 0.5), got %v", c.WinsorP)
	}
	if c.Alpha < 0 || c.Beta < 0 || c.Gamma < 0 || c.Eta < 0 {
		return fmt.Errorf("signal config: fusion weights must be non-negative")
	}
	if c.QLo <= 0 || c.QLo >= 1 || c.QHi <= 0 || c.QHi >= 1 {
		return fmt.Errorf("signal config: quantiles must be in (0, 1), got q_lo=%v q_hi=%v", c.QLo, c.QHi)
	}
	if c.QLo > c.QHi {
		return fmt.Errorf("signal config: q_lo %v exceeds q_hi %v", c.QLo, c.QHi)
	}
	if c.CapQ <= 0 || c.CapQ > 1 {
		return fmt.Errorf("signal config: cap_q must be in (0, 1], got %v", c.CapQ)
	}
	if c.ATRPeriod <= 0 {
		return fmt.Errorf("signal config: atr_period must be positive, got %d", c.ATRPeriod)
	}
	if c.EntryC < 0 || c.KSL <= 0 || c.KTP < 0 {
		return fmt.Errorf("signal config: risk coefficients out of range (entry_c=%v k_sl=%v k_tp=%v)", c.EntryC, c.KSL, c.KTP)
	}
	if c.RiskPct <= 0 || c.RiskPct >= 1 {
		return fmt.Errorf("signal config: risk_pct must be in (0, 1), got %v", c.RiskPct)
	}
	if c.PointValue <= 0 {
		return fmt.Errorf("signal config: point_value must be positive, got %v", c.PointValue)
	}
	if c.EMAFast <= 0 || c.EMASlow <= 0 {
		return fmt.Errorf("signal config: ema periods must be positive")
	}
	if c.MinZLSR < 0 || c.MinZDLSR < 0 {
		return fmt.Errorf("signal config: z-score floors must be non-negative")
	}
	return nil
}
