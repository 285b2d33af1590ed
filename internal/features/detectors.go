package features

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Detector returns the evidence that a crawl uses a feature, one string per
// match site. No evidence means the feature is missing. Detectors are pure.
type Detector func(crawl baseline.CrawlResult, f Feature) []string

// styleRule finds a feature in linked stylesheet bodies and inline styles.
type styleRule struct {
	patterns []*regexp.Regexp
	label    string
}

func (r styleRule) detect(crawl baseline.CrawlResult, _ Feature) []string {
	var ev evidence
	for _, page := range crawl.Pages {
		for _, sheet := range page.Stylesheets {
			if anyMatch(r.patterns, sheet.Content) {
				ev.add("%s detected in stylesheet: %s", r.label, sheet.Href)
			}
		}
		if anyMatch(r.patterns, page.InlineStyles) {
			ev.add("%s detected in inline styles", r.label)
		}
	}
	return ev.list
}

// scriptRule finds a feature in script bodies. Each pattern carries its own
// evidence prefix.
type scriptRule []scriptPattern

type scriptPattern struct {
	re     *regexp.Regexp
	prefix string
}

func (r scriptRule) detect(crawl baseline.CrawlResult, _ Feature) []string {
	var ev evidence
	for _, page := range crawl.Pages {
		for _, script := range page.Scripts {
			for _, p := range r {
				if p.re.MatchString(script.Content) {
					ev.add("%s: %s", p.prefix, script.Src)
				}
			}
		}
	}
	return ev.list
}

var (
	serviceWorkerScripts = scriptRule{scriptPat(`navigator\.serviceWorker`, "Service Worker registration detected")}
	serviceWorkerFile    = compile(`sw\.js|service-worker\.js|serviceworker\.js`)[0]
	webpSource           = compile(`\.webp$`)[0]
)

// registry maps catalog ids to their dedicated detectors.
var registry = map[string]Detector{
	"css-grid": styleRule{
		patterns: compile(`display:\s*grid`, `grid-template`, `grid-area`, `grid-column`, `grid-row`),
		label:    "CSS Grid",
	}.detect,
	"css-flexbox": styleRule{
		patterns: compile(`display:\s*flex`, `flex-direction`, `justify-content`, `align-items`, `flex-wrap`),
		label:    "Flexbox",
	}.detect,
	"css-custom-properties": detectCustomProperties,
	"es6-modules":           detectModules,
	"fetch": scriptRule{
		scriptPat(`fetch\s*\(`, "Fetch API usage detected in script"),
	}.detect,
	"service-workers": detectServiceWorkers,
	"web-components": scriptRule{
		scriptPat(`customElements\.define`, "Custom Elements detected"),
		scriptPat(`attachShadow`, "Shadow DOM detected"),
	}.detect,
	"intersection-observer": scriptRule{
		scriptPat(`IntersectionObserver`, "Intersection Observer detected"),
	}.detect,
	"webp":  detectWebP,
	"http2": detectHTTP2,
}

// DetectorFor returns the dedicated detector for id, or the generic name
// search.
func DetectorFor(id string) Detector {
	if d, ok := registry[id]; ok {
		return d
	}
	return detectByName
}

// Detect runs the detector registered for f.
func Detect(crawl baseline.CrawlResult, f Feature) []string {
	return DetectorFor(f.ID)(crawl, f)
}

var customProperty = compile(`--[\w-]+\s*:`, `var\(--[\w-]+\)`)

func detectCustomProperties(crawl baseline.CrawlResult, _ Feature) []string {
	var ev evidence
	for _, page := range crawl.Pages {
		for _, sheet := range page.Stylesheets {
			if anyMatch(customProperty, sheet.Content) {
				ev.add("CSS Custom Properties detected in: %s", sheet.Href)
			}
		}
		if anyMatch(customProperty, page.InlineStyles) {
			ev.add("CSS Custom Properties detected in inline styles")
		}
	}
	return ev.list
}

func detectModules(crawl baseline.CrawlResult, _ Feature) []string {
	var ev evidence
	for _, page := range crawl.Pages {
		for _, script := range page.Scripts {
			if strings.EqualFold(script.Type, "module") || strings.Contains(strings.ToLower(script.Src), "type=module") {
				ev.add("ES6 modules detected: %s", script.Src)
			}
		}
	}
	return ev.list
}

func detectServiceWorkers(crawl baseline.CrawlResult, f Feature) []string {
	ev := evidence{list: serviceWorkerScripts.detect(crawl, f)}
	for _, page := range crawl.Pages {
		for _, link := range page.Links {
			if serviceWorkerFile.MatchString(link.Href) {
				ev.add("Service Worker file detected: %s", link.Href)
			}
		}
	}
	return ev.list
}

func detectWebP(crawl baseline.CrawlResult, _ Feature) []string {
	var ev evidence
	for _, page := range crawl.Pages {
		for _, img := range page.Images {
			if webpSource.MatchString(img.Src) {
				ev.add("WebP image detected: %s", img.Src)
			}
		}
	}
	return ev.list
}

func detectHTTP2(crawl baseline.CrawlResult, _ Feature) []string {
	var ev evidence
	for _, page := range crawl.Pages {
		proto := strings.ToLower(page.Protocol)
		if strings.Contains(proto, "h2") || strings.HasPrefix(proto, "http/2") {
			ev.add("HTTP/2 detected for: %s", page.URL)
		}
	}
	return ev.list
}

// detectByName looks for the feature name in script text. Features without a
// spec URL are never detected this way.
func detectByName(crawl baseline.CrawlResult, f Feature) []string {
	name := strings.ToLower(f.Name)
	if f.Spec == "" || name == "" {
		return nil
	}
	var ev evidence
	for _, page := range crawl.Pages {
		for _, script := range page.Scripts {
			if strings.Contains(strings.ToLower(script.Content), name) {
				ev.add("%s usage detected in script", f.Name)
			}
		}
	}
	return ev.list
}

// evidence collects distinct strings in first-seen order.
type evidence struct {
	list []string
	seen map[string]bool
}

func (e *evidence) add(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if e.seen == nil {
		e.seen = make(map[string]bool)
		for _, prior := range e.list {
			e.seen[prior] = true
		}
	}
	if e.seen[s] {
		return
	}
	e.seen[s] = true
	e.list = append(e.list, s)
}

// compile builds case-insensitive patterns; CSS property names and the
// script identifiers detected here match regardless of case.
func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile("(?i)" + p)
	}
	return out
}

func scriptPat(pattern, prefix string) scriptPattern {
	return scriptPattern{re: compile(pattern)[0], prefix: prefix}
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	if text == "" {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
