// Package levels detects swing-point support/resistance levels and classic pivot points.
package levels

import (
	"fmt"
	"math"
	"sort"
	"time"

	"stockscope/pkg/model"
)

// Type is the side of price a level sits on
type Type uint8

const (
	Support Type = iota
	Resistance
)

func (t Type) String() string {
	if t == Resistance {
		return "resistance"
	}
	return "support"
}

// MarshalText implements encoding.TextMarshaler
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Type) UnmarshalText(b []byte) error {
	switch string(b) {
	case "support":
		*t = Support
	case "resistance":
		*t = Resistance
	default:
		return fmt.Errorf("unknown level type %q", b)
	}
	return nil
}

// Level is a price zone built from clustered swing points
type Level struct {
	Price      float64   `json:"price"`
	Strength   float64   `json:"strength"` // 0-100
	Type       Type      `json:"type"`
	Touches    int       `json:"touches"`
	LastTouch  time.Time `json:"last_touch"`
	Historical bool      `json:"is_historical"`
}

// Pivots holds classic floor-trader pivot points
type Pivots struct {
	Pivot float64 `json:"pivot"`
	R1    float64 `json:"r1"`
	R2    float64 `json:"r2"`
	R3    float64 `json:"r3"`
	S1    float64 `json:"s1"`
	S2    float64 `json:"s2"`
	S3    float64 `json:"s3"`
}

// Analysis is the result of Analyze
type Analysis struct {
	Price             float64 `json:"price"`
	Pivots            Pivots  `json:"pivots"`
	Levels            []Level `json:"levels"` // strongest first
	NearestSupport    *Level  `json:"nearest_support,omitempty"`
	NearestResistance *Level  `json:"nearest_resistance,omitempty"`
}

// Config holds level detection parameters
type Config struct {
	SwingWindow         int     `yaml:"swing_window" validate:"gte=1"`
	Tolerance           float64 `yaml:"tolerance" validate:"gt=0,lt=1"` // relative cluster width
	MinTouches          int     `yaml:"min_touches" validate:"gte=2"`
	Lookback            int     `yaml:"lookback" validate:"gte=10"`
	HistoricalThreshold int     `yaml:"historical_threshold"`
	TouchScore          float64 `yaml:"touch_score"`
	MaxTouchScore       float64 `yaml:"max_touch_score"`
	VolumeScore         float64 `yaml:"volume_score"`
	MaxRecencyScore     float64 `yaml:"max_recency_score"`
	StrongLevel         float64 `yaml:"strong_level"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		SwingWindow:         5,
		Tolerance:           0.015,
		MinTouches:          2,
		Lookback:            120,
		HistoricalThreshold: 90,
		TouchScore:          15,
		MaxTouchScore:       60,
		VolumeScore:         20,
		MaxRecencyScore:     20,
		StrongLevel:         60,
	}
}

// Analyzer finds support and resistance levels
type Analyzer struct {
	config Config
}

// NewAnalyzer creates a new level analyzer
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{config: cfg}
}

// Analyze returns pivots and ranked levels for bars
func (a *Analyzer) Analyze(bars []model.Bar) Analysis {
	if len(bars) == 0 {
		return Analysis{}
	}

	last := bars[len(bars)-1]
	result := Analysis{
		Price:  last.Close,
		Pivots: CalculatePivots(last),
	}

	window := model.Last(bars, a.config.Lookback)
	highs, lows := SwingPoints(window, a.config.SwingWindow)
	points := append(highs, lows...)
	if len(points) == 0 {
		return result
	}

	historical := len(window) > a.config.HistoricalThreshold
	lastDate := window[len(window)-1].Date
	firstDate := window[0].Date

	for _, c := range cluster(points, a.config.Tolerance) {
		if len(c.points) < a.config.MinTouches {
			continue
		}
		lvl := Level{
			Price:      c.mean(),
			Touches:    len(c.points),
			LastTouch:  c.lastTouch(),
			Historical: historical,
		}
		lvl.Strength = a.strength(lvl, firstDate, lastDate)
		if lvl.Price < last.Close {
			lvl.Type = Support
		} else {
			lvl.Type = Resistance
		}
		result.Levels = append(result.Levels, lvl)
	}

	sort.SliceStable(result.Levels, func(i, j int) bool {
		if result.Levels[i].Strength != result.Levels[j].Strength {
			return result.Levels[i].Strength > result.Levels[j].Strength
		}
		return result.Levels[i].Price < result.Levels[j].Price
	})

	for i := range result.Levels {
		lvl := &result.Levels[i]
		switch lvl.Type {
		case Support:
			if result.NearestSupport == nil || lvl.Price > result.NearestSupport.Price {
				result.NearestSupport = lvl
			}
		case Resistance:
			if result.NearestResistance == nil || lvl.Price < result.NearestResistance.Price {
				result.NearestResistance = lvl
			}
		}
	}

	return result
}

// strength = capped touch contribution + fixed volume contribution + recency
func (a *Analyzer) strength(lvl Level, first, last time.Time) float64 {
	score := math.Min(float64(lvl.Touches)*a.config.TouchScore, a.config.MaxTouchScore)
	score += a.config.VolumeScore

	span := last.Sub(first).Hours()
	if span > 0 {
		age := last.Sub(lvl.LastTouch).Hours()
		score += a.config.MaxRecencyScore * math.Max(0, 1-age/span)
	} else {
		score += a.config.MaxRecencyScore
	}
	return math.Min(score, 100)
}

// CalculatePivots returns classic pivots from a single session
func CalculatePivots(b model.Bar) Pivots {
	p := (b.High + b.Low + b.Close) / 3
	return Pivots{
		Pivot: p,
		R1:    2*p - b.Low,
		S1:    2*p - b.High,
		R2:    p + (b.High - b.Low),
		S2:    p - (b.High - b.Low),
		R3:    b.High + 2*(p-b.Low),
		S3:    b.Low - 2*(b.High-p),
	}
}

// SwingPoint is a local extreme
type SwingPoint struct {
	Price float64
	Date  time.Time
	High  bool
}

// SwingPoints returns bars that strictly dominate their +/- window neighbours
func SwingPoints(bars []model.Bar, window int) (highs, lows []SwingPoint) {
	if window < 1 {
		return nil, nil
	}
	for i := window; i < len(bars)-window; i++ {
		isHigh, isLow := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if bars[j].High >= bars[i].High {
				isHigh = false
			}
			if bars[j].Low <= bars[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, SwingPoint{Price: bars[i].High, Date: bars[i].Date, High: true})
		}
		if isLow {
			lows = append(lows, SwingPoint{Price: bars[i].Low, Date: bars[i].Date})
		}
	}
	return highs, lows
}

type priceCluster struct {
	points []SwingPoint
	sum    float64
}

func (c *priceCluster) mean() float64 {
	return c.sum / float64(len(c.points))
}

func (c *priceCluster) lastTouch() time.Time {
	var t time.Time
	for _, p := range c.points {
		if p.Date.After(t) {
			t = p.Date
		}
	}
	return t
}

// cluster groups points by price, joining a point to the running cluster
// while it sits within tolerance of the cluster mean.
func cluster(points []SwingPoint, tolerance float64) []*priceCluster {
	sorted := make([]SwingPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	var clusters []*priceCluster
	var cur *priceCluster
	for _, p := range sorted {
		if cur != nil && math.Abs(p.Price-cur.mean())/cur.mean() <= tolerance {
			cur.points = append(cur.points, p)
			cur.sum += p.Price
			continue
		}
		cur = &priceCluster{points: []SwingPoint{p}, sum: p.Price}
		clusters = append(clusters, cur)
	}
	return clusters
}
