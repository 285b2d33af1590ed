package headless

import (
	"fmt"

	"github.com/JakeFAU/baseline-analyzer/internal/audit"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// timingScript resolves with navigation and paint timings in milliseconds.
const timingScript = `new Promise(resolve => {
  const nav = performance.getEntriesByType('navigation')[0] || {};
  const paint = performance.getEntriesByName('first-contentful-paint')[0];
  let lcp = 0, cls = 0;
  try {
    new PerformanceObserver(list => { for (const e of list.getEntries()) lcp = e.startTime; })
      .observe({type: 'largest-contentful-paint', buffered: true});
    new PerformanceObserver(list => { for (const e of list.getEntries()) if (!e.hadRecentInput) cls += e.value; })
      .observe({type: 'layout-shift', buffered: true});
  } catch (e) {}
  setTimeout(() => resolve({
    ttfb: nav.responseStart || 0,
    domContentLoaded: nav.domContentLoadedEventEnd || 0,
    load: nav.loadEventEnd || 0,
    fcp: paint ? paint.startTime : 0,
    lcp: lcp,
    cls: cls,
  }), 250);
})`

// Timings are the values read from the page. Zero means not measured,
// except for CLS.
type Timings struct {
	TTFB             float64 `json:"ttfb"`
	DOMContentLoaded float64 `json:"domContentLoaded"`
	Load             float64 `json:"load"`
	FCP              float64 `json:"fcp"`
	LCP              float64 `json:"lcp"`
	CLS              float64 `json:"cls"`
}

// threshold bands a metric: at or below good earns full weight, at or
// below poor earns half.
type threshold struct {
	weight     int
	good, poor float64
}

var (
	fcpBand  = threshold{weight: 25, good: 1800, poor: 3000}
	lcpBand  = threshold{weight: 35, good: 2500, poor: 4000}
	clsBand  = threshold{weight: 25, good: 0.1, poor: 0.25}
	ttfbBand = threshold{weight: 15, good: 800, poor: 1800}
)

func (t threshold) earned(v float64) int {
	switch {
	case v <= t.good:
		return t.weight
	case v <= t.poor:
		return t.weight / 2
	default:
		return 0
	}
}

// Score converts timings into a 0..100 performance score. Unmeasured
// timings are left out of both the earned and the possible weight.
func Score(t Timings) int {
	var earned, possible int
	add := func(band threshold, v float64, measured bool) {
		if !measured {
			return
		}
		possible += band.weight
		earned += band.earned(v)
	}
	add(fcpBand, t.FCP, t.FCP > 0)
	add(lcpBand, t.LCP, t.LCP > 0)
	add(ttfbBand, t.TTFB, t.TTFB > 0)
	add(clsBand, t.CLS, true)
	return baseline.Clamp(baseline.RoundDiv(100*float64(earned), float64(possible)))
}

// Metrics renders the timings as audit display values.
func (t Timings) Metrics() map[string]string {
	m := audit.EmptyMetrics()
	if t.FCP > 0 {
		m["fcp"] = seconds(t.FCP)
	}
	if t.LCP > 0 {
		m["lcp"] = seconds(t.LCP)
	}
	if t.Load > 0 {
		m["tti"] = seconds(t.Load)
	}
	if t.TTFB > 0 {
		m["ttfb"] = fmt.Sprintf("%.0f ms", t.TTFB)
	}
	m["cls"] = fmt.Sprintf("%.3f", t.CLS)
	return m
}

func seconds(ms float64) string {
	return fmt.Sprintf("%.1f s", ms/1000)
}
