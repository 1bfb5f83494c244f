package status

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
	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/ksred/tradeplan/internal/database/dbtest"
	"github.com/ksred/tradeplan/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testAccount = "IB:U1234567"

var session = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func seed(t *testing.T) *gorm.DB {
	t.Helper()
	db, _ := dbtest.Open(t)
	_, err := catalog.NewService(db).Initialize(context.Background(), catalog.InitOptions{
		Force:     true,
		PlanCount: 1,
		Accounts:  []string{testAccount, "IB:U7654321"},
		Times:     []string{"09:33", "10:00"},
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(&types.ScheduleMaster{}).
		Where("Account = ? AND Hour = ? AND Minute = ?", testAccount, 9, 33).
		Update("IsActive", 1).Error)
	return db
}

func logAt(t *testing.T, db *gorm.DB, clock string, pl float64) {
	t.Helper()
	at, err := time.Parse("15:04", clock)
	require.NoError(t, err)
	ts := session.Add(time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute)
	require.NoError(t, db.Create(&types.DailyLog{LogDate: TimeToTicks(ts), PL: pl, PremiumSold: 1.25}).Error)
}

func router(t *testing.T, db *gorm.DB, backupDir string) *gin.Engine {
	t.Helper()
	h := NewGinHandlers(NewService(db, backupDir))
	h.now = func() time.Time { return session.Add(17 * time.Hour) }

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func get(t *testing.T, r *gin.Engine, target string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestTicksRoundTrip(t *testing.T) {
	assert.Equal(t, int64(0), TimeToTicks(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(638396640000000000), TimeToTicks(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	at := time.Date(2024, 3, 15, 9, 33, 12, 500, time.UTC)
	assert.True(t, at.Equal(TicksToTime(TimeToTicks(at))))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow, w)

	w, err = ParseWindow("10:00", "")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Hour, w.From)
	assert.Equal(t, DefaultWindow.To, w.To)

	_, err = ParseWindow("12:00", "11:00")
	assert.Error(t, err)
	_, err = ParseWindow("noon", "")
	assert.Error(t, err)
}

func TestPnL(t *testing.T) {
	db := seed(t)
	logAt(t, db, "09:19", -100)
	logAt(t, db, "09:30", 10)
	logAt(t, db, "10:00", -5)
	logAt(t, db, "11:00", 20)
	logAt(t, db, "12:00", -5)
	logAt(t, db, "16:50", 3)
	logAt(t, db, "16:51", 99)

	summary, err := NewService(db, "").PnL(context.Background(), session, DefaultWindow, true)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-15", summary.Date)
	assert.Equal(t, 5, summary.Entries)
	assert.Equal(t, -5.0, summary.Lowest.PL)
	assert.Equal(t, session.Add(10*time.Hour), summary.Lowest.Time, "ties keep the earliest entry")
	assert.Equal(t, 20.0, summary.Highest.PL)
	assert.Equal(t, 3.0, summary.Final.PL)
	assert.Equal(t, session.Add(16*time.Hour+50*time.Minute), summary.Final.Time)
	assert.Len(t, summary.Series, 5)
}

func TestPnLWithoutEntries(t *testing.T) {
	db := seed(t)
	_, err := NewService(db, "").PnL(context.Background(), session, DefaultWindow, false)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestStatusHandler(t *testing.T) {
	db := seed(t)
	require.NoError(t, db.Model(&types.TradeTemplate{}).Where("Name = ?", "CALL SPREAD (10:00) P1").Update("IsDeleted", 1).Error)

	backupDir := t.TempDir()
	for _, name := range []string{"data_backup_20240101_090000.zip", "data_backup_20240315_093005.zip", "data_backup_20240401_090000.db3"} {
		require.NoError(t, os.WriteFile(filepath.Join(backupDir, name), nil, 0o600))
	}

	code, body := get(t, router(t, db, backupDir), "/api/v1/status")
	require.Equal(t, http.StatusOK, code)

	var summary Summary
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	assert.Equal(t, Summary{
		Conditions:       int64(len(catalog.ConditionSpecs)),
		Templates:        3,
		DeletedTemplates: 1,
		Schedules:        8,
		ActiveSchedules:  2,
		LatestBackup:     "data_backup_20240315_093005.zip",
	}, summary)
}

func TestListSchedulesHandler(t *testing.T) {
	r := router(t, seed(t), "")

	code, body := get(t, r, "/api/v1/schedules?active=true")
	require.Equal(t, http.StatusOK, code)
	var views []ScheduleView
	require.NoError(t, json.Unmarshal(body.Data, &views))
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, testAccount, v.Account)
		assert.Equal(t, 1, v.IsActive)
		assert.Equal(t, 9, v.Hour)
		assert.Equal(t, 33, v.Minute)
	}
	assert.Equal(t, "CALL SPREAD (09:33) P1", views[0].Template)

	code, body = get(t, r, "/api/v1/schedules?account=7654321")
	require.Equal(t, http.StatusOK, code)
	views = nil
	require.NoError(t, json.Unmarshal(body.Data, &views))
	assert.Len(t, views, 4)

	code, body = get(t, r, "/api/v1/schedules?active=sometimes")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)

	code, _ = get(t, r, "/api/v1/schedules?account=bogus")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetTemplateHandler(t *testing.T) {
	r := router(t, seed(t), "")

	code, body := get(t, r, "/api/v1/templates/"+url.PathEscape("PUT SPREAD (09:33) P1"))
	require.Equal(t, http.StatusOK, code)
	var template types.TradeTemplate
	require.NoError(t, json.Unmarshal(body.Data, &template))
	assert.Equal(t, "PUT SPREAD (09:33) P1", template.Name)

	code, body = get(t, r, "/api/v1/templates/"+url.PathEscape("PUT SPREAD (11:00) P1"))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestPnLHandler(t *testing.T) {
	db := seed(t)
	logAt(t, db, "09:30", 10)
	logAt(t, db, "10:30", 4)
	r := router(t, db, "")

	code, body := get(t, r, "/api/v1/pnl")
	require.Equal(t, http.StatusOK, code)
	var summary PnLSummary
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	assert.Equal(t, "2024-03-15", summary.Date)
	assert.Equal(t, 4.0, summary.Final.PL)
	assert.Empty(t, summary.Series)

	code, body = get(t, r, "/api/v1/pnl?date=2024-03-15&from=10:00&series=true")
	require.Equal(t, http.StatusOK, code)
	summary = PnLSummary{}
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	assert.Equal(t, 1, summary.Entries)
	assert.Len(t, summary.Series, 1)

	code, _ = get(t, r, "/api/v1/pnl?date=2024-03-16")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get(t, r, "/api/v1/pnl?date=15/03/2024")
	assert.Equal(t, http.StatusBadRequest, code)
}
