package collyfetcher

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Colly's response hook only sees status, headers and body. These headers
// carry the negotiated protocol and the post-redirect URL from the transport
// to the hook and are stripped before headers leave the fetcher.
const (
	protocolHeader = "X-Baseline-Protocol"
	finalURLHeader = "X-Baseline-Final-Url"
)

type metaTransport struct {
	base http.RoundTripper
}

func (t *metaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("meta transport received nil request")
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("meta transport roundtrip: %w", err)
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set(protocolHeader, resp.Proto)
	resp.Header.Set(finalURLHeader, req.URL.String())
	return resp, nil
}

type responseMeta struct {
	protocol string
	finalURL string
	headers  http.Header
}

func takeMeta(h *http.Header) responseMeta {
	if h == nil {
		return responseMeta{headers: http.Header{}}
	}
	headers := h.Clone()
	meta := responseMeta{
		protocol: headers.Get(protocolHeader),
		finalURL: headers.Get(finalURLHeader),
		headers:  headers,
	}
	headers.Del(protocolHeader)
	headers.Del(finalURLHeader)
	return meta
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
}
