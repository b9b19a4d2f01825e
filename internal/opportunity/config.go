package opportunity

// WinRates are the assumed win probabilities fed to Kelly sizing
type WinRates struct {
	Momentum           float64 `yaml:"momentum" validate:"gt=0,lt=1"`
	MeanReversion      float64 `yaml:"mean_reversion" validate:"gt=0,lt=1"`
	SupportBounce      float64 `yaml:"support_bounce" validate:"gt=0,lt=1"`
	ResistanceBreakout float64 `yaml:"resistance_breakout" validate:"gt=0,lt=1"`
	VolumeAnomaly      float64 `yaml:"volume_anomaly" validate:"gt=0,lt=1"`
	EventDrift         float64 `yaml:"event_drift" validate:"gt=0,lt=1"`
}

// For returns the win rate of t
func (w WinRates) For(t Type) float64 {
	switch t {
	case Momentum:
		return w.Momentum
	case MeanReversion:
		return w.MeanReversion
	case SupportBounce:
		return w.SupportBounce
	case ResistanceBreakout:
		return w.ResistanceBreakout
	case VolumeAnomaly:
		return w.VolumeAnomaly
	default:
		return w.EventDrift
	}
}

// Filters are the minimums every candidate must meet
type Filters struct {
	MinConfidence     float64 `yaml:"min_confidence"`
	MinRiskReward     float64 `yaml:"min_risk_reward"`
	MinExpectedReturn float64 `yaml:"min_expected_return"`
	MinKellySize      float64 `yaml:"min_kelly_size"`
}

// MomentumConfig configures the streak detector
type MomentumConfig struct {
	MinStreak          int     `yaml:"min_streak" validate:"gte=1"`
	MinVolumeRatio     float64 `yaml:"min_volume_ratio"`
	ReversalStreak     int     `yaml:"reversal_streak" validate:"gte=2"`
	CapitulationVolume float64 `yaml:"capitulation_volume"`
	ReversalRSI        float64 `yaml:"reversal_rsi"`
	TargetATR          float64 `yaml:"target_atr"`
	HoldingDays        int     `yaml:"holding_days" validate:"gte=1"`
}

// MeanReversionConfig configures the oversold detector
type MeanReversionConfig struct {
	Lookback    int     `yaml:"lookback" validate:"gte=5"`
	MaxZScore   float64 `yaml:"max_z_score"`
	MaxRSI      float64 `yaml:"max_rsi"`
	HoldingDays int     `yaml:"holding_days" validate:"gte=1"`
}

// SupportBounceConfig configures the support bounce detector
type SupportBounceConfig struct {
	ProximityPct float64 `yaml:"proximity_pct"`
	WickRatio    float64 `yaml:"wick_ratio"`
	TargetATR    float64 `yaml:"target_atr"`
	HoldingDays  int     `yaml:"holding_days" validate:"gte=1"`
}

// BreakoutConfig configures the resistance breakout detector
type BreakoutConfig struct {
	ProximityPct   float64 `yaml:"proximity_pct"`
	CrossSessions  int     `yaml:"cross_sessions" validate:"gte=1"`
	MinVolumeRatio float64 `yaml:"min_volume_ratio"`
	TargetATR      float64 `yaml:"target_atr"`
	HoldingDays    int     `yaml:"holding_days" validate:"gte=1"`
}

// VolumeAnomalyConfig configures the volume spike detector
type VolumeAnomalyConfig struct {
	Baseline      int     `yaml:"baseline" validate:"gte=5"`
	MinZScore     float64 `yaml:"min_z_score"`
	FlatBaselineZ float64 `yaml:"flat_baseline_z" validate:"gtefield=MinZScore"` // z for any rise over a constant baseline
	TargetATR     float64 `yaml:"target_atr"`
	HoldingDays   int     `yaml:"holding_days" validate:"gte=1"`
}

// EventDriftConfig configures the earnings and dividend detector
type EventDriftConfig struct {
	PostEarningsDays int     `yaml:"post_earnings_days" validate:"gte=1"`
	DividendMinDays  int     `yaml:"dividend_min_days" validate:"gte=0"`
	DividendMaxDays  int     `yaml:"dividend_max_days" validate:"gtefield=DividendMinDays"`
	TargetATR        float64 `yaml:"target_atr"`
	HoldingDays      int     `yaml:"holding_days" validate:"gte=1"`
}

// Config holds the scanner configuration
type Config struct {
	MinBars         int     `yaml:"min_bars" validate:"gte=20"`
	TopN            int     `yaml:"top_n" validate:"gte=1"`
	StopATRMultiple float64 `yaml:"stop_atr_multiple" validate:"gt=0"`
	KellyFraction   float64 `yaml:"kelly_fraction" validate:"gt=0,lte=1"`
	MaxPositionPct  float64 `yaml:"max_position_pct" validate:"gt=0,lte=100"`

	WinRates WinRates `yaml:"win_rates"`
	Filters  Filters  `yaml:"filters"`

	Momentum      MomentumConfig      `yaml:"momentum"`
	MeanReversion MeanReversionConfig `yaml:"mean_reversion"`
	SupportBounce SupportBounceConfig `yaml:"support_bounce"`
	Breakout      BreakoutConfig      `yaml:"breakout"`
	VolumeAnomaly VolumeAnomalyConfig `yaml:"volume_anomaly"`
	EventDrift    EventDriftConfig    `yaml:"event_drift"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MinBars:         30,
		TopN:            5,
		StopATRMultiple: 2.0,
		KellyFraction:   0.25,
		MaxPositionPct:  15,

		WinRates: WinRates{
			Momentum:           0.58,
			MeanReversion:      0.60,
			SupportBounce:      0.62,
			ResistanceBreakout: 0.55,
			VolumeAnomaly:      0.56,
			EventDrift:         0.57,
		},
		Filters: Filters{
			MinConfidence:     50,
			MinRiskReward:     1.2,
			MinExpectedReturn: 0.6,
			MinKellySize:      2,
		},

		Momentum: MomentumConfig{
			MinStreak:          2,
			MinVolumeRatio:     1.2,
			ReversalStreak:     3,
			CapitulationVolume: 1.5,
			ReversalRSI:        35,
			TargetATR:          3,
			HoldingDays:        5,
		},
		MeanReversion: MeanReversionConfig{
			Lookback:    20,
			MaxZScore:   -2,
			MaxRSI:      30,
			HoldingDays: 7,
		},
		SupportBounce: SupportBounceConfig{
			ProximityPct: 2,
			WickRatio:    1.5,
			TargetATR:    3,
			HoldingDays:  7,
		},
		Breakout: BreakoutConfig{
			ProximityPct:   1.5,
			CrossSessions:  3,
			MinVolumeRatio: 1.3,
			TargetATR:      3,
			HoldingDays:    10,
		},
		VolumeAnomaly: VolumeAnomalyConfig{
			Baseline:      30,
			MinZScore:     3,
			FlatBaselineZ: 6,
			TargetATR:     2.5,
			HoldingDays:   5,
		},
		EventDrift: EventDriftConfig{
			PostEarningsDays: 10,
			DividendMinDays:  3,
			DividendMaxDays:  15,
			TargetATR:        2.5,
			HoldingDays:      10,
		},
	}
}
