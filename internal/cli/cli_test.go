package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmmishra/clickboard/internal/analytics"
	"github.com/scmmishra/clickboard/internal/db"
	"github.com/scmmishra/clickboard/internal/fakeapi"
	"github.com/scmmishra/clickboard/internal/models"
)

// upstream serves two links: one human, one mostly robot.
func upstream(t *testing.T) {
	t.Helper()
	database, err := db.Open(db.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	docs := &fakeapi.Link{Workspace: "ws", Slug: "docs", Domain: "s.co", Destination: "https://example.com/docs", Name: "Product Documentation"}
	probe := &fakeapi.Link{Workspace: "ws", Slug: "probe", Domain: "s.co", Destination: "https://example.com/health", Name: "Uptime Probe"}
	require.NoError(t, fakeapi.CreateLink(database, docs))
	require.NoError(t, fakeapi.CreateLink(database, probe))

	at := time.Now().Add(-48 * time.Hour)
	require.NoError(t, fakeapi.BatchInsertClicks(database, []analytics.Click{
		{LinkID: docs.ID, ClickedAt: at, Country: "DE"},
		{LinkID: docs.ID, ClickedAt: at, Country: "DE"},
		{LinkID: docs.ID, ClickedAt: at, Country: "US"},
		{LinkID: probe.ID, ClickedAt: at, Country: "US", IsBot: true},
	}))

	srv := httptest.NewServer((&fakeapi.Server{DB: database, APIKey: "secret"}).Routes())
	t.Cleanup(srv.Close)

	t.Setenv("CLICKBOARD_CONFIG", "")
	t.Setenv("CLICKBOARD_API_URL", srv.URL)
	t.Setenv("CLICKBOARD_API_KEY", "secret")
	t.Setenv("CLICKBOARD_WORKSPACE_ID", "ws")
	t.Setenv("CLICKBOARD_AUTH_MODE", "bearer")
	t.Setenv("CLICKBOARD_TIMEZONE", "UTC")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExport_CSVToStdout(t *testing.T) {
	upstream(t)

	out, err := run(t, "export", "--with-country")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "robot link is filtered by default")
	assert.Equal(t, []string{"Name", "Today", "30 Day", "Total", "Country"}, records[0])
	assert.Equal(t, "Product Documentation", records[1][0])
	assert.Equal(t, "3", records[1][3])
	assert.Equal(t, "DE", records[1][4])
}

func TestExport_JSONToFileWithFilters(t *testing.T) {
	upstream(t)
	path := filepath.Join(t.TempDir(), "reports.json")

	_, err := run(t, "export", "-f", "json", "-o", path, "--all-traffic", "--country", "us", "--sort", "name")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows []models.LinkStat
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Uptime Probe", rows[0].Name)
	assert.True(t, rows[0].IsRobot)
}

func TestExport_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "unknown format", args: []string{"export", "-f", "xml"}},
		{name: "bad sort", args: []string{"export", "--sort", "clicks"}},
		{name: "reversed range", args: []string{"export", "--from", "2024-05-10", "--to", "2024-05-01"}},
		{name: "missing workspace", args: []string{"export"}, env: map[string]string{"CLICKBOARD_WORKSPACE_ID": ""}},
		{name: "wrong key", args: []string{"export"}, env: map[string]string{"CLICKBOARD_API_KEY": "nope"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			upstream(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := run(t, tc.args...)
			assert.Error(t, err)
		})
	}
}

func TestWriteFile_ReturnsWriteAndCloseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "Name\n")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name\n", string(data))

	boom := errors.New("disk full")
	assert.ErrorIs(t, writeFile(path, func(io.Writer) error { return boom }), boom)

	// Closing the file inside write makes the deferred Close fail.
	err = writeFile(path, func(w io.Writer) error { return w.(*os.File).Close() })
	assert.ErrorContains(t, err, "close "+path)

	assert.Error(t, writeFile(filepath.Join(t.TempDir(), "missing", "out.csv"), func(io.Writer) error { return nil }))
}

func TestFakeAPI_RequiresKey(t *testing.T) {
	t.Setenv("CLICKBOARD_API_KEY", "")
	_, err := run(t, "fakeapi", "--db", db.Memory)
	assert.ErrorContains(t, err, "CLICKBOARD_API_KEY is required")
}

func TestSeedIfRequested(t *testing.T) {
	database, err := db.Open(db.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cmd := newFakeAPICmd()
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)
	require.NoError(t, cmd.Flags().Parse([]string{"--seed-workspace", "demo", "--seed-days", "3"}))

	require.NoError(t, seedIfRequested(cmd, database))
	assert.Contains(t, errOut.String(), `seeded 10 links`)

	links, total, err := fakeapi.ListLinks(database, fakeapi.LinkQuery{Workspace: "demo", Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Len(t, links, 10)
}
