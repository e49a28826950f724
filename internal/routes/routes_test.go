package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"calendar-service/internal/config"
	"calendar-service/internal/ratelimit"
	"calendar-service/internal/storage"
	"calendar-service/internal/token"
)

const testSecret = "routes-test-secret"

func newTestServer(t *testing.T) (*gin.Engine, storage.Provider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.Cfg = &config.Config{
		Secret:                  testSecret,
		RSVPTokenTTL:            72,
		AuthTokenTTL:            24,
		DefaultCalendarName:     "My Calendar",
		MaxOccurrencesPerSeries: 1000,
		RSVPRateLimit:           100,
	}

	provider := storage.NewProvider(&config.Storage{
		SQLite: &config.SQLiteStorage{Path: ":memory:"},
	})
	if provider == nil {
		t.Fatal("failed to create in-memory provider")
	}
	t.Cleanup(func() { provider.Close() })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("Storage", provider)
		c.Next()
	})
	r.Use(ErrorHandler())

	public := r.Group("/calendar")
	PublicRSVPRoutes(public, ratelimit.NewLimiter(100, time.Minute))

	api := r.Group("/calendar")
	api.Use(RequireAuth())
	CalendarRoutes(api)
	EventRoutes(api.Group("/events"))
	FreeBusyRoutes(api)
	ICSRoutes(api)
	CommentRoutes(api)
	ReminderRoutes(api)
	RSVPRoutes(api)

	return r, provider
}

func bearerFor(t *testing.T, userID int64) string {
	t.Helper()
	claim := token.NewPrincipalClaim(userID, fmt.Sprintf("user%d@example.com", userID), "user", time.Hour)
	signed, err := token.Generate(testSecret, claim)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func doJSON(t *testing.T, r *gin.Engine, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v (data %s)", err, env.Data)
		}
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/calendar", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAutoProvisionIsIdempotent(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	body := `{"contextType":"PERSONAL","contextId":1}`

	var first storage.Calendar
	w := doJSON(t, r, http.MethodPost, "/calendar/auto-provision", auth, body)
	if w.Code != http.StatusOK && w.Code != http.StatusCreated {
		t.Fatalf("auto-provision failed: %d %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &first)
	if !first.IsSystem {
		t.Error("provisioned calendar should be a system calendar")
	}
	if first.IsDeletable {
		t.Error("provisioned calendar should not be deletable")
	}
	if first.Name != "My Calendar" {
		t.Errorf("provisioned calendar should take the configured name, got %q", first.Name)
	}

	var second storage.Calendar
	w = doJSON(t, r, http.MethodPost, "/calendar/auto-provision", auth, body)
	if w.Code != http.StatusOK && w.Code != http.StatusCreated {
		t.Fatalf("repeat auto-provision failed: %d %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &second)
	if first.ID != second.ID {
		t.Fatalf("repeat provisioning created a second calendar: %d then %d", first.ID, second.ID)
	}
}

func TestDeleteProtectedCalendar(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)

	var cal storage.Calendar
	w := doJSON(t, r, http.MethodPost, "/calendar/auto-provision", auth, `{"contextType":"PERSONAL","contextId":1}`)
	decodeData(t, w, &cal)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/calendar/%d", cal.ID), auth, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("deleting a protected calendar should 403, got %d: %s", w.Code, w.Body.String())
	}
}

// Patching without isPrimary leaves the flag alone; an explicit false
// demotes the calendar.
func TestPatchDemotesPrimary(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)
	if !cal.IsPrimary {
		t.Fatalf("provisioned calendar should start primary")
	}

	var patched storage.Calendar
	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/calendar/%d", cal.ID), auth, `{"name":"Renamed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("rename failed: %d %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &patched)
	if !patched.IsPrimary {
		t.Error("patch without isPrimary should keep the calendar primary")
	}

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/calendar/%d", cal.ID), auth, `{"isPrimary":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("demote failed: %d %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &patched)
	if patched.IsPrimary {
		t.Error("patch with isPrimary false should demote the calendar")
	}
}

func TestCalendarAccessRequiresMembership(t *testing.T) {
	r, _ := newTestServer(t)

	// User 1 provisions their personal calendar; user 2 must not create
	// events in user 1's personal context.
	var cal storage.Calendar
	w := doJSON(t, r, http.MethodPost, "/calendar/auto-provision", bearerFor(t, 1), `{"contextType":"PERSONAL","contextId":1}`)
	decodeData(t, w, &cal)

	body := fmt.Sprintf(`{"calendarId":%d,"title":"Intrusion","startAt":"2024-01-10T10:00:00Z","endAt":"2024-01-10T11:00:00Z"}`, cal.ID)
	w = doJSON(t, r, http.MethodPost, "/calendar/events", bearerFor(t, 2), body)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d: %s", w.Code, w.Body.String())
	}
}

func createTestEvent(t *testing.T, r *gin.Engine, auth string, calendarID int64, extra string) storage.Event {
	t.Helper()
	body := fmt.Sprintf(`{"calendarId":%d,"title":"Meeting","startAt":"2024-01-08T09:00:00Z","endAt":"2024-01-08T10:00:00Z"%s}`, calendarID, extra)
	w := doJSON(t, r, http.MethodPost, "/calendar/events", auth, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create event failed: %d %s", w.Code, w.Body.String())
	}
	var ev storage.Event
	decodeData(t, w, &ev)
	return ev
}

func provisionCalendar(t *testing.T, r *gin.Engine, auth string) storage.Calendar {
	t.Helper()
	var cal storage.Calendar
	w := doJSON(t, r, http.MethodPost, "/calendar/auto-provision", auth, `{"contextType":"PERSONAL","contextId":1}`)
	if w.Code != http.StatusOK && w.Code != http.StatusCreated {
		t.Fatalf("auto-provision failed: %d %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &cal)
	return cal
}

func TestEventWindowExpandsSeries(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)

	createTestEvent(t, r, auth, cal.ID, `,"recurrenceRule":"FREQ=WEEKLY"`)

	w := doJSON(t, r, http.MethodGet,
		"/calendar/events?start=2024-01-01T00:00:00Z&end=2024-02-01T00:00:00Z", auth, "")
	if w.Code != http.StatusOK {
		t.Fatalf("window query failed: %d %s", w.Code, w.Body.String())
	}
	var occurrences []struct {
		ID                int64     `json:"id"`
		OccurrenceStartAt time.Time `json:"occurrenceStartAt"`
	}
	decodeData(t, w, &occurrences)
	if len(occurrences) != 4 {
		t.Fatalf("expected 4 weekly occurrences in January window, got %d", len(occurrences))
	}
	for i := 1; i < len(occurrences); i++ {
		gap := occurrences[i].OccurrenceStartAt.Sub(occurrences[i-1].OccurrenceStartAt)
		if gap != 7*24*time.Hour {
			t.Errorf("occurrences %d and %d are %v apart", i-1, i, gap)
		}
	}
}

func TestDeleteSingleOccurrence(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)

	ev := createTestEvent(t, r, auth, cal.ID, `,"recurrenceRule":"FREQ=WEEKLY"`)

	path := fmt.Sprintf("/calendar/events/%d?editMode=THIS&occurrenceStartAt=2024-01-15T09:00:00Z", ev.ID)
	w := doJSON(t, r, http.MethodDelete, path, auth, "")
	if w.Code != http.StatusOK {
		t.Fatalf("occurrence delete failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet,
		"/calendar/events?start=2024-01-01T00:00:00Z&end=2024-02-01T00:00:00Z", auth, "")
	var occurrences []struct {
		OccurrenceStartAt time.Time `json:"occurrenceStartAt"`
	}
	decodeData(t, w, &occurrences)
	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences after cancelling one, got %d", len(occurrences))
	}
	cancelled := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	for _, occ := range occurrences {
		if occ.OccurrenceStartAt.Equal(cancelled) {
			t.Error("cancelled occurrence still present")
		}
	}
}

func TestEditModeRequiredForSeries(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)

	ev := createTestEvent(t, r, auth, cal.ID, `,"recurrenceRule":"FREQ=DAILY"`)

	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/calendar/events/%d", ev.ID), auth, `{"title":"Renamed"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("series edit without editMode should 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStaleVersionConflict(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)

	ev := createTestEvent(t, r, auth, cal.ID, "")

	body := fmt.Sprintf(`{"title":"First writer","version":%d}`, ev.Version)
	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/calendar/events/%d", ev.ID), auth, body)
	if w.Code != http.StatusOK {
		t.Fatalf("first update failed: %d %s", w.Code, w.Body.String())
	}

	// Same expected version again: the row has moved on.
	body = fmt.Sprintf(`{"title":"Second writer","version":%d}`, ev.Version)
	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/calendar/events/%d", ev.ID), auth, body)
	if w.Code != http.StatusConflict {
		t.Fatalf("stale update should 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRSVPLinkIsIdempotent(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)
	ev := createTestEvent(t, r, auth, cal.ID, "")

	claim := token.NewRSVPClaim(ev.ID, "guest@example.com", time.Hour)
	signed, err := token.Generate(testSecret, claim)
	if err != nil {
		t.Fatalf("sign RSVP token: %v", err)
	}

	var first, second storage.Attendee
	w := doJSON(t, r, http.MethodGet, "/calendar/rsvp?token="+signed+"&response=ACCEPTED", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("RSVP failed: %d %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &first)
	if first.Response != storage.ResponseAccepted {
		t.Fatalf("expected ACCEPTED, got %s", first.Response)
	}

	// Clicking the same link again replaces, never duplicates.
	w = doJSON(t, r, http.MethodGet, "/calendar/rsvp?token="+signed+"&response=DECLINED", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("repeat RSVP failed: %d %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &second)
	if first.ID != second.ID {
		t.Fatalf("repeat RSVP created a second attendee row: %d then %d", first.ID, second.ID)
	}
	if second.Response != storage.ResponseDeclined {
		t.Fatalf("expected DECLINED after second click, got %s", second.Response)
	}
}

func TestRSVPRejectsAuthToken(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)
	ev := createTestEvent(t, r, auth, cal.ID, "")
	_ = ev

	// A bearer token must not pass as an RSVP capability.
	raw := strings.TrimPrefix(auth, "Bearer ")
	w := doJSON(t, r, http.MethodGet, "/calendar/rsvp?token="+raw+"&response=ACCEPTED", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("auth token on RSVP endpoint should 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRSVPRateLimit(t *testing.T) {
	newTestServer(t)

	// Fresh engine with a tight limiter.
	tight := gin.New()
	tight.Use(ErrorHandler())
	PublicRSVPRoutes(tight.Group("/calendar"), ratelimit.NewLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		w := doJSON(t, tight, http.MethodGet, "/calendar/rsvp?token=garbage&response=ACCEPTED", "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("request %d: expected 401 for garbage token, got %d", i, w.Code)
		}
	}
	w := doJSON(t, tight, http.MethodGet, "/calendar/rsvp?token=garbage&response=ACCEPTED", "", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the limit, got %d: %s", w.Code, w.Body.String())
	}
}

func TestICSRoundTripOverHTTP(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)
	createTestEvent(t, r, auth, cal.ID, "")

	w := doJSON(t, r, http.MethodGet,
		"/calendar/events/export?start=2024-01-01T00:00:00Z&end=2024-02-01T00:00:00Z", auth, "")
	if w.Code != http.StatusOK {
		t.Fatalf("export failed: %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("expected text/calendar content type, got %q", ct)
	}
	exported := w.Body.String()
	if !strings.Contains(exported, "BEGIN:VEVENT") || !strings.Contains(exported, "SUMMARY:Meeting") {
		t.Fatalf("export missing event data: %s", exported)
	}

	// Import the export into a second user's calendar.
	auth2 := bearerFor(t, 2)
	var cal2 storage.Calendar
	resp := doJSON(t, r, http.MethodPost, "/calendar/auto-provision", auth2, `{"contextType":"PERSONAL","contextId":2}`)
	decodeData(t, resp, &cal2)

	importBody, _ := json.Marshal(map[string]any{"calendarId": cal2.ID, "icsContent": exported})
	resp = doJSON(t, r, http.MethodPost, "/calendar/events/import", auth2, string(importBody))
	if resp.Code != http.StatusCreated {
		t.Fatalf("import failed: %d %s", resp.Code, resp.Body.String())
	}
	var result struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	decodeData(t, resp, &result)
	if result.Imported != 1 || result.Skipped != 0 {
		t.Fatalf("expected 1 imported / 0 skipped, got %d / %d", result.Imported, result.Skipped)
	}
}

func TestFreeBusyMergesOverlaps(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)

	// Two overlapping events merge into one busy block.
	createTestEvent(t, r, auth, cal.ID, "")
	body := fmt.Sprintf(`{"calendarId":%d,"title":"Overlap","startAt":"2024-01-08T09:30:00Z","endAt":"2024-01-08T10:30:00Z"}`, cal.ID)
	w := doJSON(t, r, http.MethodPost, "/calendar/events", auth, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("second event failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet,
		"/calendar/freebusy?start=2024-01-08T00:00:00Z&end=2024-01-09T00:00:00Z", auth, "")
	if w.Code != http.StatusOK {
		t.Fatalf("freebusy failed: %d %s", w.Code, w.Body.String())
	}
	var data struct {
		Busy []struct {
			BusyStart time.Time `json:"busyStart"`
			BusyEnd   time.Time `json:"busyEnd"`
		} `json:"busy"`
	}
	decodeData(t, w, &data)
	if len(data.Busy) != 1 {
		t.Fatalf("expected one merged busy interval, got %d", len(data.Busy))
	}
	wantStart := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC)
	if !data.Busy[0].BusyStart.Equal(wantStart) || !data.Busy[0].BusyEnd.Equal(wantEnd) {
		t.Fatalf("merged interval [%v, %v), want [%v, %v)",
			data.Busy[0].BusyStart, data.Busy[0].BusyEnd, wantStart, wantEnd)
	}
}

func TestConflictCheck(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)
	createTestEvent(t, r, auth, cal.ID, "")

	w := doJSON(t, r, http.MethodGet,
		"/calendar/events/conflicts?start=2024-01-08T09:30:00Z&end=2024-01-08T10:30:00Z", auth, "")
	var data struct {
		HasConflicts bool `json:"hasConflicts"`
	}
	decodeData(t, w, &data)
	if !data.HasConflicts {
		t.Fatal("overlapping candidate slot should report a conflict")
	}

	w = doJSON(t, r, http.MethodGet,
		"/calendar/events/conflicts?start=2024-01-08T12:00:00Z&end=2024-01-08T13:00:00Z", auth, "")
	decodeData(t, w, &data)
	if data.HasConflicts {
		t.Fatal("free candidate slot should not report a conflict")
	}
}

func TestEventGetsCalendarDefaultReminder(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)
	ev := createTestEvent(t, r, auth, cal.ID, "")

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/calendar/events/%d/reminders", ev.ID), auth, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list reminders failed: %d %s", w.Code, w.Body.String())
	}
	var reminders []storage.Reminder
	decodeData(t, w, &reminders)
	if len(reminders) != 1 {
		t.Fatalf("expected one default reminder, got %d", len(reminders))
	}
	if reminders[0].MinutesBefore != cal.DefaultReminderMinutes {
		t.Errorf("reminder should inherit the calendar default %d, got %d",
			cal.DefaultReminderMinutes, reminders[0].MinutesBefore)
	}
}

func TestCommentLifecycle(t *testing.T) {
	r, _ := newTestServer(t)
	auth := bearerFor(t, 1)
	cal := provisionCalendar(t, r, auth)
	ev := createTestEvent(t, r, auth, cal.ID, "")

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/calendar/events/%d/comments", ev.ID), auth, `{"content":"Bring slides"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create comment failed: %d %s", w.Code, w.Body.String())
	}
	var comment storage.EventComment
	decodeData(t, w, &comment)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/calendar/events/%d/comments", ev.ID), auth, "")
	var comments []storage.EventComment
	decodeData(t, w, &comments)
	if len(comments) != 1 || comments[0].Content != "Bring slides" {
		t.Fatalf("unexpected comments: %+v", comments)
	}

	// Another context member cannot delete someone else's comment.
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/calendar/events/%d/comments/%d", ev.ID, comment.ID), auth, "")
	if w.Code != http.StatusOK {
		t.Fatalf("author delete failed: %d %s", w.Code, w.Body.String())
	}
}
