package predict

// Config holds the ensemble weights and confidence heuristics
type Config struct {
	MinBars int     `yaml:"min_bars" validate:"gte=30"`
	Weights Weights `yaml:"weights"`

	WeightShift         float64 `yaml:"weight_shift"`
	DivergenceShift     float64 `yaml:"divergence_shift"`
	WeightFloor         float64 `yaml:"weight_floor" validate:"gte=0,lt=0.25"`
	BreakoutVolumeRatio float64 `yaml:"breakout_volume_ratio"`
	BreakoutMovePct     float64 `yaml:"breakout_move_pct"`
	DivergenceSessions  int     `yaml:"divergence_sessions" validate:"gte=2"`
	TrendADX            float64 `yaml:"trend_adx"`

	BaseConfidence       float64 `yaml:"base_confidence" validate:"gte=0,lte=100"`
	VolatilityPenalty    float64 `yaml:"volatility_penalty"`
	MaxVolatilityPenalty float64 `yaml:"max_volatility_penalty"`
	AgreementBoost       float64 `yaml:"agreement_boost"`
	MaxAgreementBoost    float64 `yaml:"max_agreement_boost"`
	StayCashCap          float64 `yaml:"stay_cash_cap" validate:"gte=0,lte=100"`

	TrendThreshold      int     `yaml:"trend_threshold" validate:"gte=1,lte=16"`
	StrongScore         float64 `yaml:"strong_score"`
	ActionScore         float64 `yaml:"action_score"`
	StrongMinConfidence float64 `yaml:"strong_min_confidence"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MinBars: 50,
		Weights: Weights{Regression: 0.30, EMA: 0.25, SMA: 0.20, VWAP: 0.25},

		WeightShift:         0.05,
		DivergenceShift:     0.10,
		WeightFloor:         0.05,
		BreakoutVolumeRatio: 1.5,
		BreakoutMovePct:     1,
		DivergenceSessions:  10,
		TrendADX:            25,

		BaseConfidence:       50,
		VolatilityPenalty:    5,
		MaxVolatilityPenalty: 25,
		AgreementBoost:       3,
		MaxAgreementBoost:    20,
		StayCashCap:          50,

		TrendThreshold:      4,
		StrongScore:         40,
		ActionScore:         15,
		StrongMinConfidence: 40,
	}
}
