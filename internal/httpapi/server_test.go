package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/money"
	"github.com/Eran5102/Valuation-sub003/internal/resultcache"
	"github.com/Eran5102/Valuation-sub003/internal/telemetry"
	"github.com/Eran5102/Valuation-sub003/internal/waterfall"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RateLimitPerSecond = 1000
	cfg.RateLimitBurst = 1000
	return NewServer(cfg, resultcache.New(), telemetry.NewMetricsRegistry(), zerolog.Nop())
}

func simpleCapTable() captable.CapTable {
	return captable.CapTable{ShareClasses: []captable.ShareClass{
		{ID: "common", Kind: captable.Common, Name: "Common", SharesOutstanding: 8_000_000, ConversionRatio: money.NewFromInt(1)},
		{
			ID: "seriesA", Kind: captable.Preferred, Name: "Series A",
			SharesOutstanding: 2_000_000, PricePerShare: money.NewFromInt(1), ConversionRatio: money.NewFromInt(1),
			PreferenceType: captable.NonParticipating, LPMultiple: money.NewFromInt(1), SeniorityRank: 0,
		},
	}}
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleAnalyze_ReturnsBreakpoints(t *testing.T) {
	s := testServer(t)
	body, err := json.Marshal(analyzeRequest{CapTable: simpleCapTable()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var result waterfall.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Breakpoints)
	assert.NotEmpty(t, result.VerificationHash)
}

func TestHandleAnalyze_InvalidBodyReturns400(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDistribute_ReturnsPayouts(t *testing.T) {
	s := testServer(t)
	body, err := json.Marshal(distributeRequest{CapTable: simpleCapTable(), ExitValue: money.NewFromInt(10_000_000)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/distribute", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var dist waterfall.DistributionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dist))
	assert.NotEmpty(t, dist.Payouts)
}

func TestHandleNotFound(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitMiddleware_Returns429WhenExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerSecond = 1
	cfg.RateLimitBurst = 1
	s := NewServer(cfg, resultcache.New(), telemetry.NewMetricsRegistry(), zerolog.Nop())

	req1 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	s.router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	s.router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
}

// TestHandleStream_UpgradesAndStreamsResult exercises the real middleware
// chain over an actual network listener (httptest.NewServer), since
// httptest.NewRecorder's ResponseWriter never implements http.Hijacker and
// would mask the exact defect this test guards against: loggingMiddleware's
// statusRecorder wrapper must delegate Hijack to the underlying writer or
// every websocket upgrade fails.
func TestHandleStream_UpgradesAndStreamsResult(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
	body, err := json.Marshal(analyzeRequest{CapTable: simpleCapTable()})
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "websocket upgrade must succeed through loggingMiddleware")
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, body))

	sawResult := false
	for !sawResult {
		var evt streamEvent
		require.NoError(t, conn.ReadJSON(&evt))
		require.NotEqual(t, "error", evt.Type, evt.Error)
		if evt.Type == "result" {
			require.NotNil(t, evt.Result)
			assert.NotEmpty(t, evt.Result.Breakpoints)
			sawResult = true
		}
	}
}
