// Package indicators implements the technical indicators fed into the
// decision agent. All functions operate on price series ordered oldest
// first and return NaN-free results; callers check the ok flag instead.
package indicators

import "math"

// RSI computes the relative strength index over the given period using
// Wilder's smoothing. It needs at least period+1 prices.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// EMA computes the exponential moving average of the full series with
// the standard 2/(period+1) smoothing factor, seeded with the simple
// average of the first period values.
func EMA(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	var seed float64
	for i := 0; i < period; i++ {
		seed += prices[i]
	}
	ema := seed / float64(period)
	k := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
	}
	return ema, true
}

// emaSeries returns the EMA at every index starting from period-1.
func emaSeries(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	out := make([]float64, 0, len(prices)-period+1)
	var seed float64
	for i := 0; i < period; i++ {
		seed += prices[i]
	}
	ema := seed / float64(period)
	out = append(out, ema)
	k := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// MACDResult holds the MACD line, signal line and histogram at the
// most recent price.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the moving average convergence divergence with the
// conventional fast/slow/signal periods (12, 26, 9 unless overridden).
func MACD(prices []float64, fast, slow, signal int) (MACDResult, bool) {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return MACDResult{}, false
	}
	if len(prices) < slow+signal {
		return MACDResult{}, false
	}
	fastSeries := emaSeries(prices, fast)
	slowSeries := emaSeries(prices, slow)
	offset := len(fastSeries) - len(slowSeries)
	macdLine := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}
	signalSeries := emaSeries(macdLine, signal)
	if len(signalSeries) == 0 {
		return MACDResult{}, false
	}
	macd := macdLine[len(macdLine)-1]
	sig := signalSeries[len(signalSeries)-1]
	return MACDResult{MACD: macd, Signal: sig, Histogram: macd - sig}, true
}

// Volatility computes the sample standard deviation of simple returns
// over the trailing window. Returns zero when the window cannot be
// filled or a price is non-positive.
func Volatility(prices []float64, window int) (float64, bool) {
	if window <= 1 || len(prices) < window+1 {
		return 0, false
	}
	start := len(prices) - window - 1
	returns := make([]float64, 0, window)
	for i := start + 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			return 0, false
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(sq / float64(len(returns)-1))
	return sd, true
}

// PriceChangePct returns the percentage change between the first and
// last price of the series.
func PriceChangePct(prices []float64) (float64, bool) {
	if len(prices) < 2 || prices[0] <= 0 {
		return 0, false
	}
	return (prices[len(prices)-1]/prices[0] - 1) * 100, true
}
