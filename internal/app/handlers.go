package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, err error) {
	var se *SchedulingError
	if !errors.As(err, &se) {
		se = newError(CodeInternal, "", err.Error(), err)
	}
	c.JSON(se.Code.HTTPStatus(), se)
}

// POST /api/schedule
func (a *App) ScheduleHandler(c *gin.Context) {
	var req MeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, newError(CodeInvalidRequest, req.RequestID, err.Error(), err))
		return
	}
	res, err := a.Orchestrator.Schedule(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type extractReq struct {
	EmailContent string `json:"email_content" binding:"required"`
	Datetime     string `json:"datetime"`
}

// POST /api/extract
func (a *App) ExtractHandler(c *gin.Context) {
	var req extractReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a.Orchestrator.Extractor().Extract(req.EmailContent, req.Datetime))
}

type slotsReq struct {
	Attendees    []string `json:"attendees" binding:"required,min=1,dive,email"`
	Start        string   `json:"start" binding:"required"`
	End          string   `json:"end" binding:"required"`
	DurationMins int      `json:"duration_mins" binding:"required,min=1"`
	PreferredDay string   `json:"preferred_day,omitempty"`
}

// POST /api/slots
// Ranks candidate slots for the attendees without scheduling anything.
func (a *App) SlotsHandler(c *gin.Context) {
	var req slotsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	policy := a.Orchestrator.Policy()
	window, ok := parseRange(c, policy, req.Start, req.End)
	if !ok {
		return
	}
	if req.DurationMins > policy.BusinessDayMinutes() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_mins longer than a business day"})
		return
	}
	var preferred *time.Time
	if req.PreferredDay != "" {
		day, err := policy.ParseTimestamp(req.PreferredDay)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preferred_day"})
			return
		}
		preferred = &day
	}

	av, err := a.Orchestrator.Aggregator().Aggregate(c.Request.Context(), req.Attendees, window)
	if err != nil {
		writeError(c, newError(CodeCancelled, "", "request cancelled", err))
		return
	}
	slots := policy.Search(av, window, req.DurationMins, preferred)
	if slots == nil {
		slots = []CandidateSlot{}
	}
	c.JSON(http.StatusOK, gin.H{
		"slots":                slots,
		"availability_summary": av.Summary(),
	})
}

// GET /api/availability?attendees=a@x,b@y&from=ISO&to=ISO
func (a *App) AvailabilityHandler(c *gin.Context) {
	var attendees []string
	for _, s := range strings.Split(c.Query("attendees"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			attendees = append(attendees, s)
		}
	}
	if len(attendees) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attendees required"})
		return
	}
	window, ok := parseRange(c, a.Orchestrator.Policy(), c.Query("from"), c.Query("to"))
	if !ok {
		return
	}
	av, err := a.Orchestrator.Aggregator().Aggregate(c.Request.Context(), attendees, window)
	if err != nil {
		writeError(c, newError(CodeCancelled, "", "request cancelled", err))
		return
	}
	c.JSON(http.StatusOK, av.Summary())
}

// GET /healthz
func (a *App) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"text_service": a.Orchestrator.ServiceMode().Available(),
	})
}

func parseRange(c *gin.Context, policy Policy, fromStr, toStr string) (TimeWindow, bool) {
	if fromStr == "" || toStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to required (ISO8601)"})
		return TimeWindow{}, false
	}
	from, err := policy.ParseTimestamp(fromStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return TimeWindow{}, false
	}
	to, err := policy.ParseTimestamp(toStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return TimeWindow{}, false
	}
	if !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
		return TimeWindow{}, false
	}
	return TimeWindow{Start: from, End: to}, true
}
