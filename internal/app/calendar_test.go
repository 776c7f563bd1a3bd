package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

func newTestGoogle(t *testing.T) *GoogleCalendar {
	t.Helper()
	g := NewGoogleCalendar("client-id", "client-secret", "http://localhost/oauth2callback",
		t.TempDir(), []byte("state-key"), DefaultPolicy(), nil)
	require.NotNil(t, g)
	return g
}

func TestNewGoogleCalendarUnconfigured(t *testing.T) {
	assert.Nil(t, NewGoogleCalendar("", "secret", "http://x", "Keys", nil, DefaultPolicy(), nil))
}

func TestTokenPath(t *testing.T) {
	g := &GoogleCalendar{TokenDir: "Keys"}
	assert.Equal(t, filepath.Join("Keys", "alice.token"), g.TokenPath("alice@example.com"))
	assert.Equal(t, filepath.Join("Keys", "evil.token"), g.TokenPath("../../evil@example.com"))
}

func TestTokenRoundTrip(t *testing.T) {
	g := newTestGoogle(t)
	_, err := g.loadToken("a@example.com")
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}
	require.NoError(t, g.saveToken("a@example.com", tok))
	info, err := os.Stat(g.TokenPath("a@example.com"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := g.loadToken("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)
}

func TestStateRoundTrip(t *testing.T) {
	g := newTestGoogle(t)
	state, err := g.signState("a@example.com")
	require.NoError(t, err)

	email, err := g.verifyState(state)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	other := newTestGoogle(t)
	other.stateKey = []byte("different")
	_, err = other.verifyState(state)
	assert.Error(t, err)
}

func TestConvertEvent(t *testing.T) {
	g := newTestGoogle(t)
	got := g.convertEvent(&calendar.Event{
		Summary: "Standup",
		Start:   &calendar.EventDateTime{DateTime: "2025-01-07T04:30:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2025-01-07T05:30:00Z"},
		Attendees: []*calendar.EventAttendee{
			{Email: "a@example.com"}, {Email: "a@example.com"}, {Email: ""}, {Email: "b@example.com"},
		},
	})
	assert.Equal(t, CalendarEvent{
		StartTime:    "2025-01-07T10:00:00",
		EndTime:      "2025-01-07T11:00:00",
		NumAttendees: 2,
		Attendees:    []string{"a@example.com", "b@example.com"},
		Summary:      "Standup",
	}, got)

	allDay := g.convertEvent(&calendar.Event{
		Summary: "Holiday",
		Start:   &calendar.EventDateTime{Date: "2025-01-08"},
		End:     &calendar.EventDateTime{Date: "2025-01-09"},
	})
	assert.Equal(t, "2025-01-08T00:00:00", allDay.StartTime)
	assert.Equal(t, "2025-01-09T00:00:00", allDay.EndTime)
	assert.Equal(t, []string{"SELF"}, allDay.Attendees)
	assert.Equal(t, 1, allDay.NumAttendees)
}

func TestGoogleBusyIntervals(t *testing.T) {
	var gotQuery url.Values
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"status":"confirmed","summary":"Standup",
			 "start":{"dateTime":"2025-01-07T10:00:00+05:30"},"end":{"dateTime":"2025-01-07T11:00:00+05:30"}},
			{"status":"cancelled","summary":"Dropped",
			 "start":{"dateTime":"2025-01-07T12:00:00+05:30"},"end":{"dateTime":"2025-01-07T13:00:00+05:30"}}
		]}`))
	}))
	defer srv.Close()

	g := newTestGoogle(t)
	g.Endpoint = srv.URL + "/"
	require.NoError(t, g.saveToken("a@example.com", &oauth2.Token{
		AccessToken: "at",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	evs, err := g.BusyIntervals(context.Background(), "a@example.com", day(2025, 1, 6, 0, 0), day(2025, 1, 13, 0, 0))
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "Standup", evs[0].Summary)
	assert.Equal(t, "2025-01-07T10:00:00", evs[0].StartTime)

	assert.Equal(t, "Bearer at", gotAuth)
	assert.Equal(t, "true", gotQuery.Get("singleEvents"))
	assert.Equal(t, "startTime", gotQuery.Get("orderBy"))
	assert.Equal(t, "2025-01-06T00:00:00+05:30", gotQuery.Get("timeMin"))
}

func TestGoogleBusyIntervalsWithoutToken(t *testing.T) {
	g := newTestGoogle(t)
	_, err := g.BusyIntervals(context.Background(), "nobody@example.com", day(2025, 1, 6, 0, 0), day(2025, 1, 13, 0, 0))
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestGoogleOnboardingHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := newTestGoogle(t)
	a := &App{Google: g}
	r := gin.New()
	r.GET("/auth", a.GoogleAuthHandler)
	r.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	get := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}

	assert.Equal(t, http.StatusBadRequest, get("/auth").Code)

	w := get("/auth?email=a@example.com")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		AuthURL string `json:"auth_url"`
		State   string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.AuthURL, "client_id=client-id")
	assert.Contains(t, body.AuthURL, "access_type=offline")
	email, err := g.verifyState(body.State)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	assert.Equal(t, http.StatusBadRequest, get("/oauth2callback?state="+body.State).Code, "missing code")
	assert.Equal(t, http.StatusBadRequest, get("/oauth2callback?code=abc&state=forged").Code, "bad state")
}

func TestGoogleHandlersUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := &App{}
	r := gin.New()
	r.GET("/auth", a.GoogleAuthHandler)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth?email=a@example.com", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
