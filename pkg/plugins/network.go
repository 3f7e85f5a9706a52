package plugins

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"

	"github.com/odvcencio/synthetics/pkg/browser"
	"github.com/odvcencio/synthetics/pkg/journey"
)

// Network records every request/response observed on the session. Entries
// are kept in the order their requests were first seen.
type Network struct {
	mu      sync.Mutex
	lc      lifecycle
	entries []*journey.NetworkInfo
	byID    map[network.RequestID]*journey.NetworkInfo
}

// NewNetwork creates an unattached network collector.
func NewNetwork() *Network {
	return &Network{byID: make(map[network.RequestID]*journey.NetworkInfo)}
}

func (n *Network) Kind() Kind { return KindNetwork }

// Start listens for network events and enables the Network domain.
func (n *Network) Start(ctx context.Context, session browser.Session) error {
	n.mu.Lock()
	err := n.lc.begin()
	n.mu.Unlock()
	if err != nil {
		return err
	}

	session.Listen(n.handle)
	if err := network.Enable().Do(browser.WithSession(ctx, session)); err != nil {
		n.mu.Lock()
		n.lc.stopped = true
		n.mu.Unlock()
		return &browser.ProtocolError{Method: network.CommandEnable, Err: err}
	}
	return nil
}

// Stop detaches the collector and returns everything captured so far.
// The collector cannot be restarted; later calls return an empty slice.
func (n *Network) Stop() []journey.NetworkInfo {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.lc.end(); err != nil {
		return []journey.NetworkInfo{}
	}

	out := make([]journey.NetworkInfo, 0, len(n.entries))
	for _, e := range n.entries {
		out = append(out, *e)
	}
	n.entries = nil
	n.byID = make(map[network.RequestID]*journey.NetworkInfo)
	return out
}

// Len returns the number of requests captured so far.
func (n *Network) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

func (n *Network) handle(ev any) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.lc.active() {
		return
	}

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		n.onRequest(e)
	case *network.EventResponseReceived:
		if entry, ok := n.byID[e.RequestID]; ok {
			applyResponse(entry, e.Response)
		}
	case *network.EventLoadingFinished:
		if entry, ok := n.byID[e.RequestID]; ok {
			entry.LoadEndTime = micros(e.Timestamp)
			entry.TransferSize = int64(e.EncodedDataLength)
		}
	case *network.EventLoadingFailed:
		if entry, ok := n.byID[e.RequestID]; ok {
			entry.LoadEndTime = micros(e.Timestamp)
			entry.FailureText = e.ErrorText
		}
	}
}

func (n *Network) onRequest(e *network.EventRequestWillBeSent) {
	// A redirect reuses the request id: close out the previous hop with
	// the redirect response, then track the new hop as its own entry.
	if prev, ok := n.byID[e.RequestID]; ok && e.RedirectResponse != nil {
		applyResponse(prev, e.RedirectResponse)
		prev.LoadEndTime = micros(e.Timestamp)
	}

	entry := &journey.NetworkInfo{
		Type:                string(e.Type),
		IsNavigationRequest: string(e.RequestID) == string(e.LoaderID) && e.Type == network.ResourceTypeDocument,
		RequestSentTime:     micros(e.Timestamp),
	}
	if e.Request != nil {
		entry.URL = e.Request.URL
		entry.Method = e.Request.Method
		entry.Request = journey.Request{
			URL:     e.Request.URL,
			Method:  e.Request.Method,
			Headers: headers(e.Request.Headers),
		}
	}

	n.entries = append(n.entries, entry)
	n.byID[e.RequestID] = entry
}

func applyResponse(entry *journey.NetworkInfo, r *network.Response) {
	if r == nil {
		return
	}
	entry.Status = r.Status
	entry.Response = &journey.Response{
		URL:             r.URL,
		Status:          r.Status,
		StatusText:      r.StatusText,
		Headers:         headers(r.Headers),
		MimeType:        r.MimeType,
		RemoteIPAddress: r.RemoteIPAddress,
		RemotePort:      r.RemotePort,
		Protocol:        r.Protocol,
		FromDiskCache:   r.FromDiskCache,
	}
}

func headers(h network.Headers) map[string]any {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func micros(t *cdp.MonotonicTime) int64 {
	if t == nil {
		return 0
	}
	return t.Time().UnixMicro()
}
