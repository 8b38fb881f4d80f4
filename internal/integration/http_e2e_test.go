package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	server "ratings_dashboard/internal/adapters/http_server"
	redisad "ratings_dashboard/internal/adapters/redis"
	"ratings_dashboard/internal/adapters/tabular"
	"ratings_dashboard/internal/app"
)

// ---------- helpers ----------

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func writeXLSX(t *testing.T, dir, name string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, name)))
}

func getJSON(t *testing.T, url string, dst any) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	if dst != nil && res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(dst))
	}
	return res
}

type monthly struct {
	Months []string `json:"months"`
	Brands []string `json:"brands"`
	Points []struct {
		Month         string   `json:"month"`
		Brand         string   `json:"brand"`
		AverageRating *float64 `json:"average_rating"`
	} `json:"points"`
}

// ---------- the test ----------

func TestHTTP_EndToEnd_MonthlyAndFlagged(t *testing.T) {
	dir := t.TempDir()
	ember := writeCSV(t, dir, "ember_deduped.csv",
		"\ufeffBrand,Date,Rating,Title,Review,MgmtFlag\n"+
			"Ember,2024-01-03T10:00:00Z,4,Great,On time,No\n"+
			"Ember,2024-03-15,5,,\"Driver was rude, bus was cold\",Yes\n"+
			"Ember,garbage,3,,,No\n")
	writeXLSX(t, dir, "citylink_deduped.xlsx", [][]any{
		{"Brand", "Date", "Rating"},
		{"Citylink", "2024-02-10", 2},
		{"Citylink", "2024-02-20", 3},
	})
	writeCSV(t, dir, "legacy_deduped.csv", "Brand,Review\nMegabus,no dates here\n")

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	finder := tabular.NewFinder(dir, []string{"*_deduped.csv", "*_deduped.xlsx"})
	q := app.NewQueryService(finder, app.NewLoader(tabular.NewReader(), 2), cache, time.Minute, 0)

	srv := server.New(5 * time.Second)
	srv.MountHandlers(&server.Handlers{Q: q})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// monthly series spans Jan..Mar for both brands
	var m monthly
	res := getJSON(t, ts.URL+"/v1/ratings/monthly", &m)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{"2024-01-01", "2024-02-01", "2024-03-01"}, m.Months)
	assert.Equal(t, []string{"Citylink", "Ember"}, m.Brands)
	require.Len(t, m.Points, 6)
	assert.Nil(t, m.Points[0].AverageRating, "Citylink has no January data")
	assert.Equal(t, 2.5, *m.Points[1].AverageRating)
	assert.Equal(t, 2.5, *m.Points[2].AverageRating, "Citylink carried into March")
	assert.Equal(t, 4.0, *m.Points[4].AverageRating, "Ember carried into February")
	assert.Equal(t, 5.0, *m.Points[5].AverageRating)

	keys := mr.Keys()
	require.Len(t, keys, 1)

	// flagged reviews, with full default range
	var flagged struct {
		Count int `json:"count"`
		Items []struct {
			Title   string `json:"title"`
			Excerpt string `json:"excerpt"`
		} `json:"items"`
	}
	res = getJSON(t, ts.URL+"/v1/reviews/flagged", &flagged)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 1, flagged.Count)
	assert.Equal(t, "No Title", flagged.Items[0].Title)
	assert.Equal(t, "Driver was rude, bus was cold", flagged.Items[0].Excerpt)

	res = getJSON(t, ts.URL+"/v1/reviews/flagged?from=2024-04-01&to=2024-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// a changed file produces a new key and evicts the old one
	require.NoError(t, os.WriteFile(ember, []byte("Brand,Date,Rating\nEmber,2024-01-03,1\nEmber,2024-01-04,2\n"), 0o644))
	res = getJSON(t, ts.URL+"/v1/ratings/monthly", &m)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{"2024-01-01", "2024-02-01"}, m.Months)
	newKeys := mr.Keys()
	require.Len(t, newKeys, 1)
	assert.NotEqual(t, keys[0], newKeys[0])

	// the flag column is gone from every qualifying file now
	res = getJSON(t, ts.URL+"/v1/reviews/flagged", nil)
	assert.Equal(t, http.StatusNotImplemented, res.StatusCode)
	assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))
}

func TestHTTP_EndToEnd_NoFiles(t *testing.T) {
	finder := tabular.NewFinder(t.TempDir(), []string{"*_deduped.csv"})
	q := app.NewQueryService(finder, app.NewLoader(tabular.NewReader(), 1), redisad.New(miniredis.RunT(t).Addr(), "", 0), time.Minute, 0)

	srv := server.New(5 * time.Second)
	srv.MountHandlers(&server.Handlers{Q: q})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	res := getJSON(t, ts.URL+"/v1/ratings/monthly", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	var summary struct {
		Rows  int   `json:"rows"`
		Files []any `json:"files"`
	}
	res = getJSON(t, fmt.Sprintf("%s/v1/dataset", ts.URL), &summary)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Zero(t, summary.Rows)
	assert.Empty(t, summary.Files)
}
