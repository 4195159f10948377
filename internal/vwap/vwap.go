// Package vwap computes depth-aware fill estimates over normalized order
// book sides. All functions are pure; prices are $1-payout probabilities and
// share quantities may be fractional.
package vwap

import (
	"math"

	"github.com/mselser95/predict-agent/pkg/types"
)

// FeeParams describes a venue fee schedule. The flat component is FeeBps;
// the optional curve adds CurveRate*fillFraction^CurveExp on top, where
// fillFraction is the cumulative portion of the requested shares filled
// after the level is consumed. A zero value means no fees.
type FeeParams struct {
	FeeBps    float64
	CurveRate float64
	CurveExp  float64
}

// rate returns the per-share fee rate at cumulative fill fraction f.
func (p FeeParams) rate(f float64) float64 {
	r := p.FeeBps / 10000
	if p.CurveRate != 0 {
		r += p.CurveRate * math.Pow(f, p.CurveExp)
	}
	return r
}

// Estimate is the outcome of walking one book side for a target quantity.
// For buys TotalAllIn adds fees and slippage to the notional; for sells it
// subtracts them from the proceeds.
type Estimate struct {
	AvgPrice      float64
	TotalNotional float64
	TotalFees     float64
	TotalSlippage float64
	TotalAllIn    float64
	AvgAllIn      float64
	LevelsUsed    int
}

// EstimateBuy walks asks (ascending) until shares are consumed and returns
// the cost estimate, or nil when shares is non-positive or depth is
// insufficient.
func EstimateBuy(asks []types.Level, shares float64, fees FeeParams, slippageBps float64) *Estimate {
	est := walk(asks, shares, fees, slippageBps)
	if est == nil {
		return nil
	}
	est.TotalAllIn = est.TotalNotional + est.TotalFees + est.TotalSlippage
	est.AvgAllIn = est.TotalAllIn / shares
	return est
}

// EstimateSell walks bids (descending) until shares are consumed and returns
// the proceeds estimate, or nil when shares is non-positive or depth is
// insufficient.
func EstimateSell(bids []types.Level, shares float64, fees FeeParams, slippageBps float64) *Estimate {
	est := walk(bids, shares, fees, slippageBps)
	if est == nil {
		return nil
	}
	est.TotalAllIn = est.TotalNotional - est.TotalFees - est.TotalSlippage
	est.AvgAllIn = est.TotalAllIn / shares
	return est
}

func walk(levels []types.Level, shares float64, fees FeeParams, slippageBps float64) *Estimate {
	if shares <= 0 || len(levels) == 0 {
		return nil
	}

	est := &Estimate{}
	remaining := shares

	for _, l := range levels {
		if remaining <= 0 {
			break
		}
		take := math.Min(remaining, l.Shares)
		if take <= 0 {
			continue
		}
		remaining -= take

		filled := (shares - remaining) / shares
		est.TotalNotional += take * l.Price
		est.TotalFees += take * l.Price * fees.rate(filled)
		est.TotalSlippage += take * l.Price * slippageBps / 10000
		est.LevelsUsed++
	}

	if remaining > 1e-9 {
		return nil
	}

	est.AvgPrice = est.TotalNotional / shares
	return est
}

// MaxBuySharesForLimit returns the largest whole-share quantity n for which
// the raw buy VWAP stays within maxDeviationBps of bestAsk, walking the ask
// levels. Zero when even the first share violates the limit.
func MaxBuySharesForLimit(asks []types.Level, bestAsk float64, maxDeviationBps float64) float64 {
	if len(asks) == 0 || bestAsk <= 0 {
		return 0
	}
	limit := bestAsk * (1 + maxDeviationBps/10000)

	var notional, taken float64
	for _, l := range asks {
		if l.Price <= limit {
			// The running average stays within the limit through this
			// whole level.
			notional += l.Shares * l.Price
			taken += l.Shares
			continue
		}
		// avg(n) = (notional + price*(n-taken)) / n <= limit
		// solves to n <= (price*taken - notional) / (price - limit).
		n := (l.Price*taken - notional) / (l.Price - limit)
		if n <= taken {
			break
		}
		if n < taken+l.Shares {
			taken = n
			break
		}
		// The whole level fits under the limit; keep walking.
		notional += l.Shares * l.Price
		taken += l.Shares
	}

	return math.Floor(taken)
}

// SumDepth sums the share quantities of a side.
func SumDepth(levels []types.Level) float64 {
	var sum float64
	for _, l := range levels {
		sum += l.Shares
	}
	return sum
}
