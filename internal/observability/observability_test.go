package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/session-auth/internal/queue"
)

func TestSetupLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("production", &buf)
	logger.Info().Str("k", "v").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "production", line["env"])
	assert.Equal(t, "v", line["k"])
}

func TestSetupLogger_DevelopmentIsConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("development", &buf)
	logger.Debug().Msg("dbg")

	out := buf.String()
	assert.Contains(t, out, "dbg")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("production", &buf)

	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http_request", line["message"])
	assert.Equal(t, "/ping", line["uri"])
	assert.EqualValues(t, 204, line["status"])
}

func TestInitSentry_EmptyDSN(t *testing.T) {
	assert.NoError(t, InitSentry("", "test"))
}

func TestSentryNotifier(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://key@example.com/1",
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
			return nil
		},
	})
	require.NoError(t, err)
	n := &SentryNotifier{Hub: sentry.NewHub(client, sentry.NewScope())}

	require.NoError(t, n.Notify(context.Background(), queue.SecurityEvent{
		Type: queue.EventTokenReuse, UserID: "u1", TokenID: "t1", Revoked: 2,
	}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "security event: token_reuse", ev.Message)
	assert.Equal(t, sentry.LevelWarning, ev.Level)
	assert.Equal(t, "token_reuse", ev.Tags["event_type"])
	assert.Equal(t, "u1", ev.User.ID)
}
