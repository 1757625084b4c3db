package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/modules/scan"
	testutil "github.com/aristath/spreadscan/internal/testing"
)

type recordingUploader struct {
	mu   sync.Mutex
	keys []string
	body map[string][]byte
	err  error
}

func (u *recordingUploader) Upload(_ context.Context, key string, body []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	if u.body == nil {
		u.body = make(map[string][]byte)
	}
	u.keys = append(u.keys, key)
	u.body[key] = body
	return nil
}

func runScan(t *testing.T) *scan.Result {
	t.Helper()

	source := testutil.NewMockPriceSource(testutil.PriceRows(testutil.NewCalendarFixtures()))
	s := scan.NewScanner(source, nil, zerolog.Nop())
	s.SetClock(func() time.Time { return testutil.Day(9) })

	res, err := s.Execute(context.Background(), scan.Definition{
		Name:      "cl",
		Contract:  "CL",
		Type:      domain.ModeCalendar,
		DataRange: []string{"2021-01-01", "2021-12-31"},
		Legs:      [][]string{{"F", "H", "0", "0", "A"}, {"+1", "H", "0", "0", "B"}},
		Filters:   []scan.FilterDef{{Type: "settle", Mode: "absolute", Range: [][]float64{{-10, 10}}}},
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	return res
}

func TestNewSnapshot(t *testing.T) {
	res := runScan(t)
	snap := NewSnapshot(res)

	assert.Equal(t, res.RunID, snap.RunID)
	assert.Equal(t, "calendar", snap.Type)
	assert.Equal(t, 3, snap.Combinations)
	require.Len(t, snap.Matches, 2)

	m := snap.Matches[0]
	assert.Equal(t, "+F0 -G0", m.AggregateID)
	assert.Equal(t, []string{"+F21 -G21"}, m.PlotIDs)
	require.NotNil(t, m.Latest)
	assert.Equal(t, 5.0, m.Latest.Settle)
	require.Len(t, m.Stats, 1)
	assert.Equal(t, "settle", m.Stats[0].Name)
	assert.Equal(t, 5.0, m.Stats[0].Median)
}

func TestArchive_StoreAndLoad(t *testing.T) {
	res := runScan(t)
	uploader := &recordingUploader{}
	a := New(t.TempDir(), uploader, zerolog.Nop())

	path, err := a.Store(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, "cl-"+res.RunID+".msgpack", filepath.Base(path))

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, snap.RunID)
	assert.True(t, snap.Start.Equal(res.Start))
	require.Len(t, snap.Matches, 2)
	assert.Equal(t, "+G0 -H0", snap.Matches[1].AggregateID)
	assert.Equal(t, 10.0, snap.Matches[1].Latest.Settle)
	assert.Equal(t, domain.SideShort, snap.Matches[1].Legs[1].Side)

	require.Equal(t, []string{ObjectKey("cl", res.RunID)}, uploader.keys)
	assert.Equal(t, "scans/cl/"+res.RunID+".msgpack", uploader.keys[0])

	paths, err := a.List("cl")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths)

	paths, err = a.List("ng")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestArchive_LocalOnly(t *testing.T) {
	a := New(filepath.Join(t.TempDir(), "nested"), nil, zerolog.Nop())

	path, err := a.Store(context.Background(), runScan(t))
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestArchive_UploadFailureKeepsLocalCopy(t *testing.T) {
	a := New(t.TempDir(), &recordingUploader{err: errors.New("bucket gone")}, zerolog.Nop())

	path, err := a.Store(context.Background(), runScan(t))
	assert.Error(t, err)
	assert.FileExists(t, path)
}

func TestArchive_RequiresRunID(t *testing.T) {
	a := New(t.TempDir(), nil, zerolog.Nop())

	_, err := a.Store(context.Background(), &scan.Result{Name: "cl"})
	assert.Error(t, err)
}

func TestArchive_ListMissingDirectory(t *testing.T) {
	a := New(filepath.Join(t.TempDir(), "missing"), nil, zerolog.Nop())

	paths, err := a.List("")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLoad_Corrupt(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.msgpack"))
	assert.Error(t, err)
}

func TestS3Uploader_Upload(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	u, err := NewS3Uploader(context.Background(), S3Config{
		Bucket:          "archive",
		Region:          "auto",
		Endpoint:        server.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
	}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, u.Upload(context.Background(), "scans/cl/run.msgpack", []byte("payload")))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/archive/scans/cl/run.msgpack", path)
	assert.Contains(t, string(body), "payload")
}

func TestNewS3Uploader_RequiresBucket(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), S3Config{Region: "auto"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestArchive_Latest(t *testing.T) {
	a := New(t.TempDir(), nil, zerolog.Nop())

	latest, err := a.Latest("cl")
	require.NoError(t, err)
	assert.Nil(t, latest)

	older := runScan(t)
	newer := runScan(t)
	newer.StartedAt = older.StartedAt.Add(time.Hour)

	_, err = a.Store(context.Background(), newer)
	require.NoError(t, err)
	_, err = a.Store(context.Background(), older)
	require.NoError(t, err)

	latest, err = a.Latest("cl")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.RunID, latest.RunID)
}

func TestScanName(t *testing.T) {
	assert.Equal(t, "cl-calendars", scanName("cl-calendars-0b6f3c1e-8a2d-4c55-9e0f-2b7a9d4e1f63.msgpack"))
	assert.Equal(t, "cl", scanName("cl.msgpack"))
}

func TestArchive_Prune(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, nil, zerolog.Nop())
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	write := func(name, id string, age time.Duration) string {
		path := filepath.Join(dir, name+"-"+id+".msgpack")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		mod := now.Add(-age)
		require.NoError(t, os.Chtimes(path, mod, mod))
		return path
	}

	day := 24 * time.Hour
	var cl []string
	for i := 0; i < 5; i++ {
		id := "00000000-0000-0000-0000-00000000000" + string(rune('0'+i))
		cl = append(cl, write("cl", id, time.Duration(i*30)*day))
	}
	// a single old snapshot of another scan is always kept
	ng := write("ng", "10000000-0000-0000-0000-000000000000", 400*day)

	deleted, err := a.Prune(now.Add(-45 * day))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	for i, path := range cl {
		_, err := os.Stat(path)
		if i < MinSnapshotsToKeep {
			assert.NoError(t, err, "snapshot %d should be kept", i)
		} else {
			assert.True(t, os.IsNotExist(err), "snapshot %d should be deleted", i)
		}
	}
	_, err = os.Stat(ng)
	assert.NoError(t, err)
}
