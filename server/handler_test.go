package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/salesmesh/core"
	"github.com/hupe1980/salesmesh/runner"
	"github.com/hupe1980/salesmesh/session"
)

type scriptedCapability struct {
	name string
	fn   func(ctx context.Context, inv core.Invocation, l core.ActivityListener) (string, error)
}

func (c *scriptedCapability) Name() string { return c.name }

func (c *scriptedCapability) Invoke(ctx context.Context, inv core.Invocation, l core.ActivityListener) (string, error) {
	return c.fn(ctx, inv, l)
}

func newTestServer(fn func(ctx context.Context, inv core.Invocation, l core.ActivityListener) (string, error)) *httptest.Server {
	capability := &scriptedCapability{name: "sales-assistant", fn: fn}
	r := runner.New(capability, session.NewInMemoryRegistry(), nil)
	return httptest.NewServer(New(r).Handler())
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

const validBody = `{
	"query": "Give me ideas to build relationships at Panda Health",
	"user_company": "Acme",
	"target_account": "Panda Health"
}`

func TestHandleAssist_StreamsEvents(t *testing.T) {
	ts := newTestServer(func(ctx context.Context, inv core.Invocation, l core.ActivityListener) (string, error) {
		callID := core.NewID()
		l.OnFunctionCall("get_customer_docs", callID, map[string]any{"query": "Panda Health"})
		l.OnFunctionResult("get_customer_docs", callID, "org chart")
		l.OnContent("Start with procurement.")
		return "Start with procurement.", nil
	})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/assist", validBody)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var body strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		body.Write(buf[:n])
		if err != nil {
			break
		}
	}
	out := body.String()

	pos := -1
	for _, label := range []string{"thread_info", "function_call", "function_result", "content", "stream_complete"} {
		idx := strings.Index(out, "event:"+label)
		require.GreaterOrEqual(t, idx, 0, "missing record %q in:\n%s", label, out)
		assert.Greater(t, idx, pos, "record %q out of order", label)
		pos = idx
	}
	assert.Contains(t, out, `"query":"Panda Health"`)
}

func TestHandleAssist_MalformedRequest(t *testing.T) {
	ts := newTestServer(func(ctx context.Context, inv core.Invocation, l core.ActivityListener) (string, error) {
		return "never reached", nil
	})
	defer ts.Close()

	for _, body := range []string{
		`{"thread_id": "t"}`,
		`{"query": "q", "target_account": "Panda Health"}`,
		`{"query": "q", "user_company": "Acme"}`,
		`not json`,
	} {
		resp := postJSON(t, ts.URL+"/v1/assist", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", body)
		resp.Body.Close()
	}
}

func TestHandleAssist_FailedTurnStillWellFormed(t *testing.T) {
	ts := newTestServer(func(ctx context.Context, inv core.Invocation, l core.ActivityListener) (string, error) {
		return "", errors.New("model unavailable")
	})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/assist", validBody)
	defer resp.Body.Close()

	// The turn fails, the transport does not: a well-formed stream ending in
	// stream_complete, no out-of-band error channel needed.
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		body.Write(buf[:n])
		if err != nil {
			break
		}
	}
	out := body.String()
	assert.Contains(t, out, "event:error")
	assert.Contains(t, out, "model unavailable")
	assert.Contains(t, out, "event:stream_complete")
}

func TestHandleAssist_ConcurrentSameThreadConflict(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	ts := newTestServer(func(ctx context.Context, inv core.Invocation, l core.ActivityListener) (string, error) {
		close(started)
		<-gate
		l.OnContent("done")
		return "done", nil
	})
	defer ts.Close()

	body := strings.Replace(validBody, `"query"`, `"thread_id": "shared", "query"`, 1)

	firstDone := make(chan *http.Response, 1)
	go func() {
		firstDone <- postJSON(t, ts.URL+"/v1/assist", body)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first turn did not start")
	}

	second := postJSON(t, ts.URL+"/v1/assist", body)
	assert.Equal(t, http.StatusConflict, second.StatusCode)
	second.Body.Close()

	close(gate)
	first := <-firstDone
	assert.Equal(t, http.StatusOK, first.StatusCode)
	first.Body.Close()
}

func TestHandleAssistSync_ReturnsCollectedAnswer(t *testing.T) {
	ts := newTestServer(func(ctx context.Context, inv core.Invocation, l core.ActivityListener) (string, error) {
		l.OnContent("Start with ")
		l.OnContent("procurement.")
		return "Start with procurement.", nil
	})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/assist/sync", validBody)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "Start with procurement.", payload["data"])
	assert.NotEmpty(t, payload["thread_id"])
}

func TestHandleAssistSync_FailedTurn(t *testing.T) {
	ts := newTestServer(func(ctx context.Context, inv core.Invocation, l core.ActivityListener) (string, error) {
		return "", errors.New("model unavailable")
	})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/assist/sync", validBody)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Contains(t, payload["error"], "model unavailable")
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
