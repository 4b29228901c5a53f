package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/v1/transactions?"+rawQuery, nil)
	return c
}

func TestResolveWindow_ExplicitRange(t *testing.T) {
	c := windowContext(t, "start=2024-03-01&end=2024-03-10")

	start, end, err := resolveWindow(c)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), start)
	// end date is inclusive, so the half-open interval extends one day past it
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), end)
}

func TestResolveWindow_StartWithoutEnd(t *testing.T) {
	c := windowContext(t, "start=2024-03-01")

	_, _, err := resolveWindow(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end is required")
}

func TestResolveWindow_EndWithoutStart(t *testing.T) {
	c := windowContext(t, "end=2024-03-10")

	_, _, err := resolveWindow(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start is required")
}

func TestResolveWindow_MalformedDate(t *testing.T) {
	c := windowContext(t, "start=March+1&end=2024-03-10")

	_, _, err := resolveWindow(c)
	assert.Error(t, err)
}

func TestResolveWindow_DefaultsToMonth(t *testing.T) {
	c := windowContext(t, "")

	start, end, err := resolveWindow(c)
	require.NoError(t, err)

	now := time.Now()
	assert.Equal(t, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), start)
	assert.WithinDuration(t, now, end, time.Minute)
}

func TestResolveWindow_UnknownPeriod(t *testing.T) {
	c := windowContext(t, "time_period=fortnight")

	_, _, err := resolveWindow(c)
	assert.Error(t, err)
}
