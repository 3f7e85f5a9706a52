package plugins

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/tracing"
	"github.com/mailru/easyjson"
	"go.uber.org/mock/gomock"
)

// eventFeed delivers protocol events to every listener registered on a
// mock session, the way a real session's event loop does.
type eventFeed struct {
	mu        sync.Mutex
	listeners []func(any)
}

func (f *eventFeed) add(fn func(any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *eventFeed) emit(ev any) {
	f.mu.Lock()
	listeners := append([]func(any){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// newMockSession returns a session whose Listen registrations feed from
// the returned eventFeed. Execute expectations are left to the test.
func newMockSession(t *testing.T) (*MockSession, *eventFeed) {
	t.Helper()
	ctrl := gomock.NewController(t)
	session := NewMockSession(ctrl)
	feed := &eventFeed{}
	session.EXPECT().Listen(gomock.Any()).Do(func(fn func(any)) { feed.add(fn) }).AnyTimes()
	return session, feed
}

// allowCommand accepts any number of calls to method.
func allowCommand(session *MockSession, method string) {
	session.EXPECT().Execute(gomock.Any(), method, gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

// completeTraceOnEnd makes Tracing.end flush events then signal completion.
func completeTraceOnEnd(session *MockSession, feed *eventFeed, events ...string) {
	session.EXPECT().Execute(gomock.Any(), tracing.CommandEnd, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, _ easyjson.Marshaler, _ easyjson.Unmarshaler) error {
			raw := make([]easyjson.RawMessage, 0, len(events))
			for _, e := range events {
				raw = append(raw, easyjson.RawMessage(e))
			}
			feed.emit(&tracing.EventDataCollected{Value: raw})
			feed.emit(&tracing.EventTracingComplete{})
			return nil
		})
}

func screenshotEventJSON(ts int64, snapshot string) string {
	return fmt.Sprintf(`{"name":"Screenshot","cat":"disabled-by-default-devtools.screenshot","ts":%d,"args":{"snapshot":%q}}`, ts, snapshot)
}

func monotonic(us int64) *cdp.MonotonicTime {
	t := cdp.MonotonicTime(time.UnixMicro(us))
	return &t
}

func requestEvent(id, loader, url string, typ network.ResourceType, ts int64) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{
		RequestID: network.RequestID(id),
		LoaderID:  cdp.LoaderID(loader),
		Request:   &network.Request{URL: url, Method: "GET"},
		Type:      typ,
		Timestamp: monotonic(ts),
	}
}

func responseEvent(id, url string, status int64) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		RequestID: network.RequestID(id),
		Response:  &network.Response{URL: url, Status: status, MimeType: "text/html"},
	}
}
