package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"meeting-scheduler/internal/logging"
)

// ErrNoToken means the attendee never completed the OAuth onboarding.
var ErrNoToken = errors.New("no calendar token for attendee")

const stateTTL = 10 * time.Minute

// GoogleCalendar reads attendees' primary calendars with per-attendee OAuth
// tokens stored as <TokenDir>/<local-part>.token.
type GoogleCalendar struct {
	Config   *oauth2.Config
	TokenDir string
	// Endpoint overrides the Calendar API base URL.
	Endpoint string

	policy   Policy
	stateKey []byte
	log      *zap.Logger
}

// NewGoogleCalendar returns nil when the OAuth client is not configured.
func NewGoogleCalendar(clientID, clientSecret, redirectURL, tokenDir string, stateKey []byte, policy Policy, log *zap.Logger) *GoogleCalendar {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GoogleCalendar{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		TokenDir: tokenDir,
		policy:   policy,
		stateKey: stateKey,
		log:      log,
	}
}

// TokenPath is where the token of email is stored.
func (g *GoogleCalendar) TokenPath(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return filepath.Join(g.TokenDir, filepath.Base(local)+".token")
}

func (g *GoogleCalendar) loadToken(email string) (*oauth2.Token, error) {
	data, err := os.ReadFile(g.TokenPath(email))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}
	return &tok, nil
}

func (g *GoogleCalendar) saveToken(email string, tok *oauth2.Token) error {
	if err := os.MkdirAll(g.TokenDir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(g.TokenPath(email), data, 0o600)
}

// BusyIntervals lists single events of the attendee's primary calendar
// between start and end, ordered by start time.
func (g *GoogleCalendar) BusyIntervals(ctx context.Context, attendee string, start, end time.Time) ([]CalendarEvent, error) {
	tok, err := g.loadToken(attendee)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithHTTPClient(g.Config.Client(ctx, tok))}
	if g.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.Endpoint))
	}
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	events, err := srv.Events.List("primary").
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	out := make([]CalendarEvent, 0, len(events.Items))
	for _, item := range events.Items {
		if item.Status == "cancelled" {
			continue
		}
		out = append(out, g.convertEvent(item))
	}
	g.log.Debug("calendar events fetched", logging.Email(attendee), zap.Int("count", len(out)))
	return out, nil
}

func (g *GoogleCalendar) convertEvent(item *calendar.Event) CalendarEvent {
	seen := make(map[string]struct{}, len(item.Attendees))
	var attendees []string
	for _, a := range item.Attendees {
		if a.Email == "" {
			continue
		}
		if _, ok := seen[a.Email]; ok {
			continue
		}
		seen[a.Email] = struct{}{}
		attendees = append(attendees, a.Email)
	}
	if len(attendees) == 0 {
		attendees = []string{"SELF"}
	}
	return CalendarEvent{
		StartTime:    g.eventTime(item.Start),
		EndTime:      g.eventTime(item.End),
		NumAttendees: len(attendees),
		Attendees:    attendees,
		Summary:      item.Summary,
	}
}

// eventTime renders a timed or all-day boundary in the business location.
func (g *GoogleCalendar) eventTime(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return FormatTimestamp(t.In(g.policy.loc()))
		}
		return dt.DateTime
	}
	if dt.Date != "" {
		return dt.Date + "T00:00:00"
	}
	return ""
}

func (g *GoogleCalendar) signState(email string) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}).SignedString(g.stateKey)
}

func (g *GoogleCalendar) verifyState(state string) (string, error) {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return g.stateKey, nil
	})
	if err != nil {
		return "", err
	}
	return token.Claims.GetSubject()
}

// GoogleAuthHandler starts onboarding of ?email= and returns the consent URL.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	email := strings.TrimSpace(c.Query("email"))
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter required"})
		return
	}

	state, err := a.Google.signState(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create state"})
		return
	}
	url := a.Google.Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	c.JSON(http.StatusOK, gin.H{
		"auth_url": url,
		"state":    state,
	})
}

// GoogleOAuth2CallbackHandler exchanges the code and stores the token for
// the attendee named in the signed state.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}
	email, err := a.Google.verifyState(c.Query("state"))
	if err != nil || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}

	token, err := a.Google.Config.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}
	if err := a.Google.saveToken(email, token); err != nil {
		a.log().Error("storing calendar token failed", logging.Email(email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store token"})
		return
	}

	a.log().Info("calendar connected", logging.Email(email))
	c.JSON(http.StatusOK, gin.H{
		"message": "Authorization successful",
		"email":   email,
	})
}
