package predict

import (
	"math"

	"stockscope/internal/indicator"
	"stockscope/pkg/model"
)

// maxTrendScore is the sum of all vote weights below
const maxTrendScore = 16

// tally is the weighted indicator vote
type tally struct {
	score   int
	bullish int // votes, unweighted
	bearish int
}

func (t *tally) vote(bull, bear bool, weight int) {
	switch {
	case bull:
		t.score += weight
		t.bullish++
	case bear:
		t.score -= weight
		t.bearish++
	}
}

func (e *Ensemble) tally(bars []model.Bar, set indicator.Set, reg indicator.Regression) tally {
	var t tally
	price := set.Price

	t.vote(price > set.SMA20, price < set.SMA20, 2)
	t.vote(set.SMA20 > set.SMA50, set.SMA20 < set.SMA50, 2)
	t.vote(price > set.EMA12, price < set.EMA12, 1)
	t.vote(set.MACD > set.MACDSignal, set.MACD < set.MACDSignal, 2)
	t.vote(set.MACD > 0, set.MACD < 0, 1)
	t.vote(set.RSI > 55, set.RSI < 45, 2)
	t.vote(set.StochasticK < 20, set.StochasticK > 80, 1)

	obv := indicator.OBVSeries(bars)
	if len(obv) > 5 {
		delta := obv[len(obv)-1] - obv[len(obv)-6]
		t.vote(delta > 0, delta < 0, 1)
	}

	t.vote(set.MFI < 20, set.MFI > 80, 1)
	t.vote(price > set.VWAP, price < set.VWAP, 1)
	t.vote(reg.Slope > 0, reg.Slope < 0, 2)
	return t
}

func (e *Ensemble) trend(score int) model.Trend {
	switch {
	case score >= e.config.TrendThreshold:
		return model.Bullish
	case score <= -e.config.TrendThreshold:
		return model.Bearish
	default:
		return model.Neutral
	}
}

// baseConfidence applies the volatility penalty and the agreement and RSI
// boosts to the base confidence
func (e *Ensemble) baseConfidence(set indicator.Set, t tally, delta float64) float64 {
	conf := e.config.BaseConfidence
	conf -= math.Min(set.Volatility20*e.config.VolatilityPenalty, e.config.MaxVolatilityPenalty)

	var agreeing int
	switch {
	case delta > 0:
		agreeing = t.bullish
	case delta < 0:
		agreeing = t.bearish
	}
	conf += math.Min(float64(agreeing)*e.config.AgreementBoost, e.config.MaxAgreementBoost)

	switch rsi := set.RSI; {
	case rsi > 80 || rsi < 20:
		conf += 10
	case rsi > 70 || rsi < 30:
		conf += 5
	}
	return conf
}

func (e *Ensemble) recommend(trendScore int, changePct, confidence float64) Recommendation {
	score := float64(trendScore)/maxTrendScore*50 + clamp(changePct*10, -50, 50)

	var rec Recommendation
	switch {
	case score >= e.config.StrongScore:
		rec = StrongBuy
	case score >= e.config.ActionScore:
		rec = Buy
	case score <= -e.config.StrongScore:
		rec = StrongSell
	case score <= -e.config.ActionScore:
		rec = Sell
	default:
		rec = Hold
	}

	if confidence < e.config.StrongMinConfidence {
		switch rec {
		case StrongBuy:
			rec = Buy
		case StrongSell:
			rec = Sell
		}
	}
	return rec
}
