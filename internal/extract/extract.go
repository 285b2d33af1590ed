// Package extract turns a fetched HTML document into baseline.PageFacts.
package extract

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

var (
	landmarkElements = []string{"main", "nav", "header", "footer", "aside", "section"}
	semanticElements = []string{"main", "nav", "header", "footer", "aside", "section", "article"}
)

const (
	focusableSelector = "a, button, input, select, textarea, [tabindex]"
	mixedSelector     = `a[href^="http://"], link[href^="http://"], [src^="http://"]`
	inputSelector     = "input, textarea, select"
)

// Page parses resp.Body and builds the page facts for resp.
func Page(resp baseline.FetchResponse) (baseline.PageFacts, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return baseline.PageFacts{}, fmt.Errorf("parse html: %w", err)
	}

	pageURL := resp.FinalURL
	if pageURL == "" {
		pageURL = resp.URL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return baseline.PageFacts{}, fmt.Errorf("parse page url: %w", err)
	}

	viewport := doc.Find(`meta[name="viewport"]`).First()
	canonical := attr(doc.Find(`link[rel="canonical"]`).First(), "href")
	description := attr(doc.Find(`meta[name="description"]`).First(), "content")
	lang := attr(doc.Find("html").First(), "lang")

	facts := baseline.PageFacts{
		URL:               resp.URL,
		FinalURL:          pageURL,
		StatusCode:        resp.StatusCode,
		LoadTimeMs:        resp.Duration.Milliseconds(),
		Protocol:          resp.Protocol,
		FetchedAt:         resp.FetchedAt,
		Headers:           headersOf(resp.Headers),
		Title:             strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription:   description,
		HasViewport:       viewport.Length() > 0,
		Viewport:          attr(viewport, "content"),
		Canonical:         canonical,
		HasRobotsMeta:     doc.Find(`meta[name="robots"]`).Length() > 0,
		Lang:              lang,
		Headings:          headings(doc),
		Images:            images(doc, base),
		Links:             links(doc, base),
		Scripts:           scripts(doc, base),
		Stylesheets:       stylesheets(doc, base),
		Forms:             forms(doc, base),
		Buttons:           buttons(doc),
		Inputs:            inputs(doc),
		InlineStyles:      inlineStyles(doc),
		SkipLinks:         doc.Find(`a[href^="#"]`).Length(),
		Landmarks:         present(doc, landmarkElements),
		SemanticElements:  present(doc, semanticElements),
		FocusableElements: doc.Find(focusableSelector).Length(),
		ContentLength:     len(resp.Body),
	}
	facts.MixedContent = strings.EqualFold(base.Scheme, "https") && doc.Find(mixedSelector).Length() > 0
	return facts, nil
}

// Title returns the trimmed document title, or "" when body has none.
func Title(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func headersOf(h http.Header) baseline.ResponseHeaders {
	if h == nil {
		return baseline.ResponseHeaders{}
	}
	out := baseline.ResponseHeaders{
		ContentEncoding:         h.Get("Content-Encoding"),
		CacheControl:            h.Get("Cache-Control"),
		ContentSecurityPolicy:   h.Get("Content-Security-Policy"),
		StrictTransportSecurity: h.Get("Strict-Transport-Security"),
		XFrameOptions:           h.Get("X-Frame-Options"),
		XContentTypeOptions:     h.Get("X-Content-Type-Options"),
	}
	if raw := h.Get("Content-Length"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			out.ContentLength = n
		}
	}
	return out
}

func headings(doc *goquery.Document) []baseline.Heading {
	var out []baseline.Heading
	for level := 1; level <= 6; level++ {
		doc.Find("h" + strconv.Itoa(level)).Each(func(_ int, s *goquery.Selection) {
			id, _ := s.Attr("id")
			out = append(out, baseline.Heading{
				Level: level,
				Text:  strings.TrimSpace(s.Text()),
				HasID: id != "",
			})
		})
	}
	return out
}

func images(doc *goquery.Document, base *url.URL) []baseline.Image {
	var out []baseline.Image
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := resolve(base, attr(s, "src"))
		alt := attr(s, "alt")
		loading := strings.ToLower(attr(s, "loading"))
		if loading == "" {
			loading = "eager"
		}
		out = append(out, baseline.Image{
			Src:     src,
			Alt:     alt,
			HasAlt:  alt != "",
			Loading: loading,
			Width:   attr(s, "width"),
			Height:  attr(s, "height"),
		})
	})
	return out
}

func links(doc *goquery.Document, base *url.URL) []baseline.Link {
	var out []baseline.Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(attr(s, "href"))
		if href == "" {
			return
		}
		if _, err := url.Parse(href); err != nil {
			return
		}
		target := attr(s, "target")
		if target == "" {
			target = "_self"
		}
		out = append(out, baseline.Link{
			Href:       href,
			Text:       strings.TrimSpace(s.Text()),
			IsExternal: !baseline.IsInternalHref(base, href),
			HasTitle:   attr(s, "title") != "",
			Target:     target,
		})
	})
	return out
}

func scripts(doc *goquery.Document, base *url.URL) []baseline.Script {
	var out []baseline.Script
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		_, async := s.Attr("async")
		_, deferred := s.Attr("defer")
		scriptType := strings.TrimSpace(attr(s, "type"))
		if scriptType == "" {
			scriptType = "text/javascript"
		}
		script := baseline.Script{
			Src:   baseline.InlineScriptSrc,
			Async: async,
			Defer: deferred,
			Type:  scriptType,
		}
		if raw, has := s.Attr("src"); has {
			script.Src, _ = resolve(base, raw)
		} else {
			script.Content = s.Text()
		}
		out = append(out, script)
	})
	return out
}

func stylesheets(doc *goquery.Document, base *url.URL) []baseline.Stylesheet {
	var out []baseline.Stylesheet
	doc.Find(`link[rel~="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := resolve(base, attr(s, "href"))
		media := attr(s, "media")
		if media == "" {
			media = "all"
		}
		out = append(out, baseline.Stylesheet{Href: href, Media: media})
	})
	return out
}

func forms(doc *goquery.Document, base *url.URL) []baseline.Form {
	var out []baseline.Form
	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		action := strings.TrimSpace(attr(s, "action"))
		method := strings.ToUpper(attr(s, "method"))
		if method == "" {
			method = http.MethodGet
		}
		secure := action == "" || strings.HasPrefix(strings.ToLower(action), "https://")
		if !secure {
			if resolved, ok := resolve(base, action); ok {
				secure = strings.HasPrefix(resolved, "https://")
			}
		}
		out = append(out, baseline.Form{Action: action, Method: method, UsesHTTPS: secure})
	})
	return out
}

func buttons(doc *goquery.Document) []baseline.Button {
	var out []baseline.Button
	doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		aria := strings.TrimSpace(attr(s, "aria-label"))
		out = append(out, baseline.Button{
			Text:      text,
			AriaLabel: aria,
			Labeled:   text != "" || aria != "",
		})
	})
	return out
}

func inputs(doc *goquery.Document) []baseline.Input {
	labelFor := make(map[string]bool)
	doc.Find("label[for]").Each(func(_ int, s *goquery.Selection) {
		labelFor[attr(s, "for")] = true
	})

	var out []baseline.Input
	doc.Find(inputSelector).Each(func(_ int, s *goquery.Selection) {
		kind := goquery.NodeName(s)
		if kind == "input" {
			kind = strings.ToLower(attr(s, "type"))
			if kind == "" {
				kind = "text"
			}
			switch kind {
			case "hidden", "submit", "button", "reset", "image":
				return
			}
		}
		id := attr(s, "id")
		labeled := (id != "" && labelFor[id]) ||
			strings.TrimSpace(attr(s, "aria-label")) != "" ||
			strings.TrimSpace(attr(s, "aria-labelledby")) != "" ||
			s.ParentsFiltered("label").Length() > 0
		out = append(out, baseline.Input{Type: kind, ID: id, Labeled: labeled})
	})
	return out
}

func inlineStyles(doc *goquery.Document) string {
	var b strings.Builder
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.Text())
		b.WriteByte('\n')
	})
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		b.WriteString(attr(s, "style"))
		b.WriteByte('\n')
	})
	return b.String()
}

func present(doc *goquery.Document, elements []string) []string {
	var out []string
	for _, el := range elements {
		if doc.Find(el).Length() > 0 {
			out = append(out, el)
		}
	}
	return out
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

// resolve makes raw absolute against base. Empty or malformed references
// resolve to "" and false; callers keep the element and drop only the URL.
func resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base == nil {
		return ref.String(), true
	}
	return base.ResolveReference(ref).String(), true
}
