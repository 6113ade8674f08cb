package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/mafuth/drive-to-iftar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type challengeStatusResponse struct {
	Active    bool   `json:"active"`
	Target    int    `json:"target"`
	Collected int    `json:"collected"`
	Window    string `json:"window"`
}

func TestChallengeHandler_StatusAndCollect(t *testing.T) {
	ts := testutil.NewTestServer(t)
	auth := testutil.NewUserBuilder().AsGuest().BuildAndAuthenticate(t, ts)

	// Fresh user inside the window: active, nothing collected.
	resp := testutil.DoJSON(t, ts, http.MethodGet, "/challenge/status", auth.AccessToken, nil)
	var status challengeStatusResponse
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertJSONResponse(t, resp, &status)
	resp.Body.Close()

	assert.True(t, status.Active)
	assert.GreaterOrEqual(t, status.Target, 10)
	assert.LessOrEqual(t, status.Target, 100)
	assert.Equal(t, 0, status.Collected)
	assert.Equal(t, "01:00 - 24:00", status.Window)

	// Collect a few dates.
	resp = testutil.DoJSON(t, ts, http.MethodPost, "/challenge/collect", auth.AccessToken, map[string]int{
		"count": 3,
	})
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var collectResult map[string]any
	testutil.AssertJSONResponse(t, resp, &collectResult)
	resp.Body.Close()
	assert.Equal(t, float64(3), collectResult["collected"])

	// Empty body defaults to a single date.
	resp = testutil.DoJSON(t, ts, http.MethodPost, "/challenge/collect", auth.AccessToken, nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertJSONResponse(t, resp, &collectResult)
	resp.Body.Close()
	assert.Equal(t, float64(4), collectResult["collected"])

	// Status reflects the running total.
	resp = testutil.DoJSON(t, ts, http.MethodGet, "/challenge/status", auth.AccessToken, nil)
	testutil.AssertJSONResponse(t, resp, &status)
	resp.Body.Close()
	assert.Equal(t, 4, status.Collected)
}

func TestChallengeHandler_CollectValidation(t *testing.T) {
	ts := testutil.NewTestServer(t)
	auth := testutil.NewUserBuilder().AsGuest().BuildAndAuthenticate(t, ts)

	resp := testutil.DoJSON(t, ts, http.MethodPost, "/challenge/collect", auth.AccessToken, map[string]int{
		"count": -2,
	})
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
}

func TestChallengeHandler_CollectOutsideWindow(t *testing.T) {
	ts := testutil.NewTestServer(t)
	auth := testutil.NewUserBuilder().AsGuest().BuildAndAuthenticate(t, ts)

	// Advance to 00:30 local the next day, before the window opens.
	ts.Clock.Advance(9*time.Hour + 30*time.Minute)

	resp := testutil.DoJSON(t, ts, http.MethodPost, "/challenge/collect", auth.AccessToken, map[string]int{
		"count": 1,
	})
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "window closed")
}

func TestChallengeHandler_Leaderboard(t *testing.T) {
	ts := testutil.NewTestServer(t)

	day := "2026-02-19"
	testutil.NewUserBuilder().WithUsername("gatherer").WithChallengeProgress(day, 20).Build(t, ts.DB.DB)
	testutil.NewUserBuilder().WithUsername("snacker").WithChallengeProgress(day, 5).Build(t, ts.DB.DB)
	testutil.NewUserBuilder().WithUsername("hoarder").WithChallengeProgress(day, 42).Build(t, ts.DB.DB)
	testutil.NewUserBuilder().WithUsername("fourth").WithChallengeProgress(day, 1).Build(t, ts.DB.DB)

	resp := testutil.DoJSON(t, ts, http.MethodGet, "/challenge/leaderboard", "", nil)
	defer resp.Body.Close()

	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var entries []struct {
		Username string `json:"username"`
		Dates    int    `json:"dates"`
	}
	testutil.AssertJSONResponse(t, resp, &entries)
	require.Len(t, entries, 3, "leaderboard is top three only")
	assert.Contains(t, entries[0].Username, "hoarder")
	assert.Equal(t, 42, entries[0].Dates)
	assert.Contains(t, entries[1].Username, "gatherer")
	assert.Contains(t, entries[2].Username, "snacker")
}
