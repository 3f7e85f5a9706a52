package journey

// NetworkInfo is one captured request/response pair.
type NetworkInfo struct {
	URL                 string    `json:"url"`
	Method              string    `json:"method,omitempty"`
	Type                string    `json:"type,omitempty"`
	Status              int64     `json:"status,omitempty"`
	IsNavigationRequest bool      `json:"isNavigationRequest"`
	RequestSentTime     int64     `json:"requestSentTime,omitempty"`
	LoadEndTime         int64     `json:"loadEndTime,omitempty"`
	TransferSize        int64     `json:"transferSize,omitempty"`
	FailureText         string    `json:"failureText,omitempty"`
	Request             Request   `json:"request"`
	Response            *Response `json:"response,omitempty"`
}

// Request summarizes an outgoing request.
type Request struct {
	URL     string         `json:"url,omitempty"`
	Method  string         `json:"method,omitempty"`
	Headers map[string]any `json:"headers,omitempty"`
}

// Response summarizes the response to a request.
type Response struct {
	URL             string         `json:"url,omitempty"`
	Status          int64          `json:"status,omitempty"`
	StatusText      string         `json:"statusText,omitempty"`
	Headers         map[string]any `json:"headers,omitempty"`
	MimeType        string         `json:"mimeType,omitempty"`
	RemoteIPAddress string         `json:"remoteIPAddress,omitempty"`
	RemotePort      int64          `json:"remotePort,omitempty"`
	Protocol        string         `json:"protocol,omitempty"`
	FromDiskCache   bool           `json:"fromDiskCache,omitempty"`
}

// FilmStrip is one visual snapshot taken from the trace. Snapshot is the
// base64 image payload and Ts the trace timestamp in microseconds.
type FilmStrip struct {
	Snapshot string `json:"snapshot"`
	Name     string `json:"name"`
	Ts       int64  `json:"ts"`
}

// CollectorOutput is the merged telemetry of one journey. Both fields are
// always non-nil once produced by NewCollectorOutput.
type CollectorOutput struct {
	FilmStrips  []FilmStrip   `json:"filmstrips"`
	NetworkInfo []NetworkInfo `json:"networkinfo"`
}

// NewCollectorOutput returns an output with empty, non-nil sequences.
func NewCollectorOutput() CollectorOutput {
	return CollectorOutput{
		FilmStrips:  []FilmStrip{},
		NetworkInfo: []NetworkInfo{},
	}
}
