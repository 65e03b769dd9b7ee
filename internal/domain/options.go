package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RiskProfile is the closed set of risk appetites a pro user may choose.
type RiskProfile string

const (
	RiskConservative RiskProfile = "conservative"
	RiskModerate     RiskProfile = "moderate"
	RiskAggressive   RiskProfile = "aggressive"
)

// RiskProfiles lists every accepted risk profile in display order.
func RiskProfiles() []RiskProfile {
	return []RiskProfile{RiskConservative, RiskModerate, RiskAggressive}
}

// ParseRiskProfile accepts an empty value as "not set".
func ParseRiskProfile(v string) (RiskProfile, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", nil
	}
	for _, rp := range RiskProfiles() {
		if string(rp) == v {
			return rp, nil
		}
	}
	return "", fmt.Errorf("%w: unknown risk profile %q", ErrInvalidInput, v)
}

// Label returns the display label for the risk profile.
func (r RiskProfile) Label() string {
	return titleCaser().String(string(r))
}

// TradingStyle identifies one of the named strategies the analysis can be tuned to.
type TradingStyle string

const (
	StyleSmartMoneyConcepts  TradingStyle = "smart-money-concepts"
	StyleLiquiditySweep      TradingStyle = "liquidity-sweep"
	StylePullbackRetracement TradingStyle = "pullback-retracement"
	StyleScalpingEMA         TradingStyle = "scalping-ema"
	StyleVolatilityBreakout  TradingStyle = "volatility-breakout"
	StyleBreakoutRetest      TradingStyle = "breakout-retest"
	StyleSqueezeMomentum     TradingStyle = "squeeze-momentum"
	StyleMeanReversion       TradingStyle = "mean-reversion"
	StyleMomentumSwing       TradingStyle = "momentum-swing"
	StyleTrendFollowing      TradingStyle = "trend-following"
	StyleTrendReversal       TradingStyle = "trend-reversal"
	StyleDivergencePlay      TradingStyle = "divergence-play"
	StyleContinuationPattern TradingStyle = "continuation-pattern"
	StyleRangeBound          TradingStyle = "range-bound"
)

var tradingStyles = []TradingStyle{
	StyleSmartMoneyConcepts,
	StyleLiquiditySweep,
	StylePullbackRetracement,
	StyleScalpingEMA,
	StyleVolatilityBreakout,
	StyleBreakoutRetest,
	StyleSqueezeMomentum,
	StyleMeanReversion,
	StyleMomentumSwing,
	StyleTrendFollowing,
	StyleTrendReversal,
	StyleDivergencePlay,
	StyleContinuationPattern,
	StyleRangeBound,
}

// TradingStyles returns a copy of the accepted styles in display order.
func TradingStyles() []TradingStyle {
	out := make([]TradingStyle, len(tradingStyles))
	copy(out, tradingStyles)
	return out
}

// ParseTradingStyle accepts an empty value as "not set".
func ParseTradingStyle(v string) (TradingStyle, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", nil
	}
	for _, s := range tradingStyles {
		if string(s) == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown trading style %q", ErrInvalidInput, v)
}

// Label turns "smart-money-concepts" into "Smart Money Concepts". The EMA
// acronym keeps its casing.
func (s TradingStyle) Label() string {
	words := strings.Split(string(s), "-")
	c := titleCaser()
	for i, w := range words {
		if w == "ema" {
			words[i] = "EMA"
			continue
		}
		words[i] = c.String(w)
	}
	return strings.Join(words, " ")
}

// Timeframe is a chart candle interval.
type Timeframe string

var timeframes = []Timeframe{"1m", "5m", "15m", "30m", "1H", "2H", "4H", "6H", "12H", "1D", "3D", "1W"}

// Timeframes returns the accepted intervals in display order.
func Timeframes() []Timeframe {
	out := make([]Timeframe, len(timeframes))
	copy(out, timeframes)
	return out
}

// ParseTimeframe canonicalises lower-case hour/day/week aliases ("4h" -> "4H").
// Minute intervals stay lower-case; "1M" is rejected rather than guessed.
func ParseTimeframe(v string) (Timeframe, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: timeframe is required", ErrInvalidInput)
	}
	canon := v
	if n := len(v); n > 1 {
		switch v[n-1] {
		case 'h', 'd', 'w':
			canon = v[:n-1] + strings.ToUpper(v[n-1:])
		}
	}
	for _, tf := range timeframes {
		if string(tf) == canon {
			return tf, nil
		}
	}
	return "", fmt.Errorf("%w: unknown timeframe %q", ErrInvalidInput, v)
}

func titleCaser() cases.Caser {
	return cases.Title(language.Und)
}
