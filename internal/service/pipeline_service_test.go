package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logsight-backend/config"
	"logsight-backend/internal/geoip"
	"logsight-backend/internal/metrics"
	"logsight-backend/internal/model"
	"logsight-backend/internal/service"
)

// newLookupStub serves canned ip-api responses keyed by looked-up address.
// Unknown addresses get a fail response.
func newLookupStub(t *testing.T, responses map[string]string, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt64(calls, 1)
		}
		ip := strings.TrimPrefix(r.URL.Path, "/json/")
		body, ok := responses[ip]
		if !ok {
			body = `{"status":"fail","message":"no record"}`
		}
		fmt.Fprint(w, body)
	}))
}

// newPipeline builds a pipeline with a fresh cache against the stub URL.
func newPipeline(baseURL string) service.PipelineService {
	cfg := &config.Config{}
	cfg.Lookup.BaseURL = baseURL
	cfg.Lookup.Timeout = 2 * time.Second
	cfg.Pipeline.LookupConcurrency = 4
	m := metrics.New(prometheus.NewRegistry())
	geo := geoip.NewClient(cfg, m)
	return service.NewPipelineService(cfg, geo, nil, m)
}

const sshSample = `Oct 10 10:00:00 host sshd[123]: Failed password for invalid user root from 10.0.0.5 port 4444

Oct 10 10:00:05 host sshd[124]: Accepted password for alice from 10.0.0.6 port 5555 ssh2
Oct 10 10:00:07 host pam_unix(sshd:session): session opened for user alice by (uid=0)
`

func TestRun_SSHKeyValueDocument(t *testing.T) {
	server := newLookupStub(t, map[string]string{
		"10.0.0.5": `{"status":"success","country":"United States","city":"New York","isp":"ExampleNet","query":"10.0.0.5"}`,
		"10.0.0.6": `{"status":"fail","message":"private range","query":"10.0.0.6"}`,
	}, nil)
	defer server.Close()

	pipeline := newPipeline(server.URL)
	result, err := pipeline.Run(context.Background(), sshSample, model.EncodingKeyValue)
	require.NoError(t, err)

	expected := strings.Join([]string{
		`sshd_event="Failed password", pid="123", user="invalid user root", src_ip="10.0.0.5", country="United States", city="New York", isp="ExampleNet", status="success"`,
		`sshd_event="Accepted password", pid="124", user="alice", src_ip="10.0.0.6", country="Unknown", city="Unknown", status="api_error", message="private range"`,
		`sshd_event="session opened", user="alice", service="sshd"`,
	}, "\n")
	assert.Equal(t, expected, string(result.Document))
	assert.Equal(t, 3, result.EventsParsed)
	assert.Equal(t, 2, result.UniqueIPs)
	assert.Equal(t, ".txt", result.Extension)
}

func TestRun_HTTPJSONRoundTrip(t *testing.T) {
	server := newLookupStub(t, map[string]string{
		"1.2.3.4": `{"status":"success","country":"Canada","city":"Toronto","isp":"Bell","query":"1.2.3.4"}`,
	}, nil)
	defer server.Close()

	input := `1.2.3.4 - bob [10/Oct/2000:13:55:36] "GET /x HTTP/1.0" 200 2326`

	pipeline := newPipeline(server.URL)
	result, err := pipeline.Run(context.Background(), input, model.EncodingJSON)
	require.NoError(t, err)
	assert.Equal(t, ".json", result.Extension)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(result.Document, &parsed))
	assert.Equal(t, map[string]string{
		"src_ip":      "1.2.3.4",
		"ident":       "bob",
		"timestamp":   "10/Oct/2000:13:55:36",
		"request":     "GET /x HTTP/1.0",
		"status_code": "200",
		"size":        "2326",
		"country":     "Canada",
		"city":        "Toronto",
		"isp":         "Bell",
		"status":      "success",
	}, parsed)
	assert.NotContains(t, parsed, "query")
}

func TestRun_OutputOrderMatchesSourceOrder(t *testing.T) {
	// Completion order is scrambled by per-key delays; record order must not be.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := strings.TrimPrefix(r.URL.Path, "/json/")
		if ip == "10.0.0.1" {
			time.Sleep(80 * time.Millisecond)
		}
		fmt.Fprintf(w, `{"status":"success","country":"C-%s","city":"X","isp":"Y"}`, ip)
	}))
	defer server.Close()

	input := strings.Join([]string{
		`10.0.0.1 - - [10/Oct/2000:13:55:36] "GET /a HTTP/1.0" 200 1`,
		`10.0.0.2 - - [10/Oct/2000:13:55:37] "GET /b HTTP/1.0" 200 2`,
		`10.0.0.3 - - [10/Oct/2000:13:55:38] "GET /c HTTP/1.0" 200 3`,
	}, "\n")

	pipeline := newPipeline(server.URL)
	result, err := pipeline.Run(context.Background(), input, model.EncodingJSON)
	require.NoError(t, err)

	lines := strings.Split(string(result.Document), "\n")
	require.Len(t, lines, 3)
	for i, expectedIP := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		var parsed map[string]string
		require.NoError(t, json.Unmarshal([]byte(lines[i]), &parsed))
		assert.Equal(t, expectedIP, parsed["src_ip"])
	}
}

func TestRun_OneLookupPerUniqueKey(t *testing.T) {
	var calls int64
	server := newLookupStub(t, map[string]string{
		"10.0.0.1": `{"status":"success","country":"A","city":"B","isp":"C"}`,
		"10.0.0.2": `{"status":"success","country":"D","city":"E","isp":"F"}`,
	}, &calls)
	defer server.Close()

	// Five events, two unique addresses.
	input := strings.Join([]string{
		`10.0.0.1 - - [10/Oct/2000:13:55:36] "GET / HTTP/1.0" 200 1`,
		`10.0.0.2 - - [10/Oct/2000:13:55:37] "GET / HTTP/1.0" 200 1`,
		`10.0.0.1 - - [10/Oct/2000:13:55:38] "GET / HTTP/1.0" 200 1`,
		`10.0.0.1 - - [10/Oct/2000:13:55:39] "GET / HTTP/1.0" 200 1`,
		`10.0.0.2 - - [10/Oct/2000:13:55:40] "GET / HTTP/1.0" 200 1`,
	}, "\n")

	pipeline := newPipeline(server.URL)
	result, err := pipeline.Run(context.Background(), input, model.EncodingKeyValue)
	require.NoError(t, err)
	assert.Equal(t, 5, result.EventsParsed)
	assert.Equal(t, 2, result.UniqueIPs)
	assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
}

func TestRun_IdempotentAcrossColdCaches(t *testing.T) {
	server := newLookupStub(t, map[string]string{
		"10.0.0.5": `{"status":"success","country":"United States","city":"New York","isp":"ExampleNet"}`,
		"10.0.0.6": `{"status":"success","country":"Norway","city":"Oslo","isp":"Telenor"}`,
	}, nil)
	defer server.Close()

	first, err := newPipeline(server.URL).Run(context.Background(), sshSample, model.EncodingJSON)
	require.NoError(t, err)
	second, err := newPipeline(server.URL).Run(context.Background(), sshSample, model.EncodingJSON)
	require.NoError(t, err)

	assert.Equal(t, first.Document, second.Document)
}

func TestRun_DropsUnmatchedLines(t *testing.T) {
	server := newLookupStub(t, map[string]string{
		"10.0.0.5": `{"status":"success","country":"A","city":"B","isp":"C"}`,
	}, nil)
	defer server.Close()

	input := strings.Join([]string{
		"Oct 10 10:00:00 host sshd[123]: Failed password for invalid user root from 10.0.0.5 port 4444",
		"Oct 10 10:00:01 host sshd[123]: Received disconnect from 10.0.0.5 port 4444",
		"some noise the grammar does not know",
	}, "\n")

	pipeline := newPipeline(server.URL)
	result, err := pipeline.Run(context.Background(), input, model.EncodingKeyValue)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EventsParsed)
	assert.Equal(t, 1, strings.Count(string(result.Document), "sshd_event"))
}

func TestRun_LookupFailureDoesNotAbortRun(t *testing.T) {
	// Transport failure for every key: records degrade to Unknown sentinels.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	pipeline := newPipeline(server.URL)
	result, err := pipeline.Run(context.Background(), sshSample, model.EncodingKeyValue)
	require.NoError(t, err)
	assert.Contains(t, string(result.Document), `country="Unknown"`)
	assert.Contains(t, string(result.Document), `status="network_error"`)
}

func TestRun_EmptyInput(t *testing.T) {
	pipeline := newPipeline("http://127.0.0.1:0")

	for _, input := range []string{"", "\n\n", "   \n\t\n"} {
		_, err := pipeline.Run(context.Background(), input, model.EncodingKeyValue)
		assert.ErrorIs(t, err, service.ErrEmptyInput)
	}
}

func TestRun_UnknownLogType(t *testing.T) {
	pipeline := newPipeline("http://127.0.0.1:0")

	_, err := pipeline.Run(context.Background(), "hello world", model.EncodingKeyValue)
	assert.ErrorIs(t, err, service.ErrUnknownLogType)
}
