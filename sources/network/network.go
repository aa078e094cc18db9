// Package network implements the trivial NetworkInformation source,
// trying the vendor-prefixed connection object variants in a fixed order.
package network

import (
	"context"
	"math"
)

// host is the subset of browserhost.Host this package depends on.
type host interface {
	Eval(ctx context.Context, js string, out any) error
}

// Info is the frozen, per-call result.
type Info struct {
	Supported bool

	EffectiveType string
	Downlink      float64
	RTTObservable bool
	RTTMillis     float64 // rounded to the nearest 25ms
	SaveData      bool
}

type networkResult struct {
	Supported     bool    `json:"supported"`
	EffectiveType string  `json:"effectiveType"`
	Downlink      float64 `json:"downlink"`
	RTT           float64 `json:"rtt"`
	RTTFinite     bool    `json:"rttFinite"`
	SaveData      bool    `json:"saveData"`
}

// GetNetworkInformation reads navigator.connection (or one of its
// vendor-prefixed predecessors) and rounds rtt for stability. Never
// returns an error.
func GetNetworkInformation(ctx context.Context, h host) Info {
	var res networkResult
	if err := h.Eval(ctx, networkJS, &res); err != nil || !res.Supported {
		return Info{Supported: false}
	}

	info := Info{
		Supported:     true,
		EffectiveType: res.EffectiveType,
		Downlink:      res.Downlink,
		SaveData:      res.SaveData,
	}
	if res.RTTFinite {
		info.RTTObservable = true
		info.RTTMillis = math.Round(res.RTT/25) * 25
	}
	return info
}

const networkJS = `
(function() {
  var c = navigator.connection || navigator.mozConnection || navigator.webkitConnection;
  if (!c) {
    return { supported: false, effectiveType: '', downlink: 0, rtt: 0, rttFinite: false, saveData: false };
  }
  return {
    supported: true,
    effectiveType: c.effectiveType || '',
    downlink: typeof c.downlink === 'number' ? c.downlink : 0,
    rtt: typeof c.rtt === 'number' ? c.rtt : 0,
    rttFinite: typeof c.rtt === 'number' && isFinite(c.rtt),
    saveData: !!c.saveData
  };
})()
`
