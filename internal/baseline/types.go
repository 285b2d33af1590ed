package baseline

import (
	"time"
)

// ResponseHeaders is the subset of response headers the evaluators inspect.
type ResponseHeaders struct {
	ContentEncoding         string `json:"contentEncoding,omitempty"`
	CacheControl            string `json:"cacheControl,omitempty"`
	ContentSecurityPolicy   string `json:"contentSecurityPolicy,omitempty"`
	StrictTransportSecurity string `json:"strictTransportSecurity,omitempty"`
	XFrameOptions           string `json:"xFrameOptions,omitempty"`
	XContentTypeOptions     string `json:"xContentTypeOptions,omitempty"`
	ContentLength           int64  `json:"contentLength,omitempty"`
}

// Heading is one h1..h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	HasID bool   `json:"hasId"`
}

// Image is one img element.
type Image struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	HasAlt  bool   `json:"hasAlt"`
	Loading string `json:"loading"`
	Width   string `json:"width,omitempty"`
	Height  string `json:"height,omitempty"`
}

// Link is one anchor carrying an href.
type Link struct {
	Href       string `json:"href"`
	Text       string `json:"text"`
	IsExternal bool   `json:"isExternal"`
	HasTitle   bool   `json:"hasTitle"`
	Target     string `json:"target"`
}

// InlineScriptSrc marks scripts without a src attribute.
const InlineScriptSrc = "inline"

// Script is one script element. Content holds the inline body or, when the
// crawler hydrated it, the fetched body.
type Script struct {
	Src     string `json:"src"`
	Async   bool   `json:"async"`
	Defer   bool   `json:"defer"`
	Type    string `json:"type"`
	Content string `json:"-"`
}

// IsInline reports whether the script body lives in the document.
func (s Script) IsInline() bool {
	return s.Src == InlineScriptSrc
}

// Stylesheet is one link[rel=stylesheet]. Content is set when fetched.
type Stylesheet struct {
	Href    string `json:"href"`
	Media   string `json:"media"`
	Content string `json:"-"`
}

// Form is one form element.
type Form struct {
	Action    string `json:"action"`
	Method    string `json:"method"`
	UsesHTTPS bool   `json:"usesHttps"`
}

// Button is one button element.
type Button struct {
	Text      string `json:"text"`
	AriaLabel string `json:"ariaLabel,omitempty"`
	Labeled   bool   `json:"labeled"`
}

// Input is one form control that expects a label.
type Input struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Labeled bool   `json:"labeled"`
}

// PageFacts is the structured extraction of one fetched HTML page.
// It is built once by the extractor and treated as read-only afterwards.
type PageFacts struct {
	URL        string          `json:"url"`
	FinalURL   string          `json:"finalUrl"`
	StatusCode int             `json:"statusCode"`
	LoadTimeMs int64           `json:"loadTimeMs"`
	Protocol   string          `json:"protocol,omitempty"`
	FetchedAt  time.Time       `json:"fetchedAt"`
	Headers    ResponseHeaders `json:"headers"`

	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	HasViewport     bool   `json:"hasViewport"`
	Viewport        string `json:"viewport,omitempty"`
	Canonical       string `json:"canonical,omitempty"`
	HasRobotsMeta   bool   `json:"hasRobotsMeta"`
	Lang            string `json:"lang,omitempty"`

	Headings    []Heading    `json:"headings"`
	Images      []Image      `json:"images"`
	Links       []Link       `json:"links"`
	Scripts     []Script     `json:"scripts"`
	Stylesheets []Stylesheet `json:"stylesheets"`
	Forms       []Form       `json:"forms"`
	Buttons     []Button     `json:"buttons"`
	Inputs      []Input      `json:"inputs"`

	InlineStyles      string   `json:"-"`
	SkipLinks         int      `json:"skipLinks"`
	Landmarks         []string `json:"landmarks"`
	SemanticElements  []string `json:"semanticElements"`
	MixedContent      bool     `json:"mixedContent"`
	FocusableElements int      `json:"focusableElements"`
	ContentLength     int      `json:"contentLength"`
}

// IsHTTPS reports whether the page was served over TLS.
func (p PageFacts) IsHTTPS() bool {
	return schemeOf(p.effectiveURL()) == "https"
}

// CountHeadings returns the number of headings at the given level.
func (p PageFacts) CountHeadings(level int) int {
	n := 0
	for _, h := range p.Headings {
		if h.Level == level {
			n++
		}
	}
	return n
}

func (p PageFacts) effectiveURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// FetchFailure records one page that could not be fetched during a crawl.
type FetchFailure struct {
	URL       string    `json:"url"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// CrawlResult owns the ordered pages of one crawl. Page 0 is always the entry URL.
type CrawlResult struct {
	EntryURL string         `json:"entryUrl"`
	Pages    []PageFacts    `json:"pages"`
	Errors   []FetchFailure `json:"errors"`
	Duration time.Duration  `json:"duration"`
}

// Entry returns the entry page, if it was fetched.
func (c CrawlResult) Entry() (PageFacts, bool) {
	if len(c.Pages) == 0 {
		return PageFacts{}, false
	}
	return c.Pages[0], true
}

// Empty reports whether no page was fetched.
func (c CrawlResult) Empty() bool {
	return len(c.Pages) == 0
}
