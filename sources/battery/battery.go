// Package battery implements the trivial Battery Status API source. Raw
// values change every second and would destroy any cross-call stability,
// so every observable field is rounded before being returned.
package battery

import (
	"context"
	"math"
)

// host is the subset of browserhost.Host this package depends on.
type host interface {
	EvalAwait(ctx context.Context, js string, out any) error
}

// Info is the frozen, per-call result.
type Info struct {
	Supported bool

	LevelObservable bool
	Level           float64 // rounded to the nearest 1/20 (5%)

	ChargingTimeObservable bool
	ChargingTimeSeconds    float64 // rounded to the nearest 60 seconds

	DischargingTimeObservable bool
	DischargingTimeSeconds    float64 // rounded to the nearest 60 seconds
}

type batteryResult struct {
	Supported       bool    `json:"supported"`
	Level           float64 `json:"level"`
	ChargingTime    float64 `json:"chargingTime"`
	DischargingTime float64 `json:"dischargingTime"`
	ChargingFinite  bool    `json:"chargingFinite"`
	DischargeFinite bool    `json:"dischargingFinite"`
}

// GetBatteryInfo awaits navigator.getBattery() (when present) and rounds
// its fields for stability. Never returns an error: an absent API or a
// throwing host downgrades every field to unobservable.
func GetBatteryInfo(ctx context.Context, h host) Info {
	var res batteryResult
	if err := h.EvalAwait(ctx, batteryJS, &res); err != nil || !res.Supported {
		return Info{Supported: false}
	}

	info := Info{Supported: true}
	info.LevelObservable = true
	info.Level = roundToFraction(res.Level, 20)

	if res.ChargingFinite {
		info.ChargingTimeObservable = true
		info.ChargingTimeSeconds = roundToNearest(res.ChargingTime, 60)
	}
	if res.DischargeFinite {
		info.DischargingTimeObservable = true
		info.DischargingTimeSeconds = roundToNearest(res.DischargingTime, 60)
	}
	return info
}

// roundToFraction rounds v to the nearest 1/denominator.
func roundToFraction(v float64, denominator float64) float64 {
	return math.Round(v*denominator) / denominator
}

// roundToNearest rounds v to the nearest multiple of step.
func roundToNearest(v, step float64) float64 {
	return math.Round(v/step) * step
}

const batteryJS = `
(function() {
  if (!navigator.getBattery) {
    return Promise.resolve({ supported: false, level: 0, chargingTime: 0, dischargingTime: 0, chargingFinite: false, dischargingFinite: false });
  }
  return navigator.getBattery().then(function(b) {
    return {
      supported: true,
      level: b.level,
      chargingTime: isFinite(b.chargingTime) ? b.chargingTime : 0,
      dischargingTime: isFinite(b.dischargingTime) ? b.dischargingTime : 0,
      chargingFinite: isFinite(b.chargingTime),
      dischargingFinite: isFinite(b.dischargingTime)
    };
  }).catch(function() {
    return { supported: false, level: 0, chargingTime: 0, dischargingTime: 0, chargingFinite: false, dischargingFinite: false };
  });
})()
`
