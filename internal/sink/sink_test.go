package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lolstats/internal/metrics"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetrics() *metrics.Metrics { return metrics.New() }

func TestWriteSnapshotPrettyPrints(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ranked")

	path, err := WriteSnapshot(dir, "p-1", []byte(`[{"tier":"GOLD","wins":3}]`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "p-1.json"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n    {\n        \"tier\": \"GOLD\",\n        \"wins\": 3\n    }\n]\n", string(b))

	// 두 번째 실행은 덮어쓴다
	_, err = WriteSnapshot(dir, "p-1", []byte(`[]`))
	require.NoError(t, err)
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not remain")
}

func TestWriteSnapshotRejectsInvalidJSON(t *testing.T) {
	_, err := WriteSnapshot(t.TempDir(), "p-1", []byte(`{"tier":`))
	require.Error(t, err)
}

func TestCSVAppenderWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "matches.csv")
	header := []string{"matchId", "kills"}

	a := NewCSVAppender(path, header)
	require.NoError(t, a.Append([]string{"NA1_1", "3"}))
	require.NoError(t, a.Append([]string{"NA1_2", "5"}))

	// 새 실행 (새 appender) 도 헤더를 다시 쓰지 않는다
	b := NewCSVAppender(path, header)
	require.NoError(t, b.Append([]string{"NA1_1", "3"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "matchId,kills\nNA1_1,3\nNA1_2,5\nNA1_1,3\n", string(data))
}

func TestCSVAppenderQuotesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.csv")
	a := NewCSVAppender(path, []string{"gameVersion", "championName"})
	require.NoError(t, a.Append([]string{"14.9.1, hotfix", `Kai"Sa`}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gameVersion,championName\n\"14.9.1, hotfix\",\"Kai\"\"Sa\"\n", string(data))
}

func TestCSVAppenderHeaderMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.csv")
	require.NoError(t, NewCSVAppender(path, []string{"a", "b"}).Append([]string{"1", "2"}))

	err := NewCSVAppender(path, []string{"a", "c"}).Append([]string{"1", "2"})
	require.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestCSVAppenderRowWidth(t *testing.T) {
	a := NewCSVAppender(filepath.Join(t.TempDir(), "m.csv"), []string{"a", "b"})
	require.Error(t, a.Append([]string{"only-one"}))
}

func TestCSVAppenderEmptyExistingFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, NewCSVAppender(path, []string{"a"}).Append([]string{"1"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))
}

func TestEncodeSnapshotsJSONLGZ(t *testing.T) {
	records := []SnapshotRecord{
		{Kind: KindRanked, PUUID: "p-1", Data: json.RawMessage(`[]`)},
		{Kind: KindMastery, PUUID: "p-1", Data: json.RawMessage(`[{"championId":1}]`)},
	}
	data, err := NewEncoder().EncodeSnapshotsJSONLGZ(records)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(gunzip(t, data)), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"kind":"ranked","puuid":"p-1","data":[]}`, lines[0])
	assert.JSONEq(t, `{"kind":"mastery","puuid":"p-1","data":[{"championId":1}]}`, lines[1])
}

func TestFilenameAndKey(t *testing.T) {
	now := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	name := NewFilename(now, "host1", KindMatches, "csv")

	sec, ok := extractUnixFromFilename(name)
	require.True(t, ok)
	assert.Equal(t, now.Unix(), sec)
	assert.True(t, strings.HasSuffix(name, ".matches.csv.gz"), name)

	key := BuildS3Key("lolstats", KindMatches, now, name)
	assert.Equal(t, "lolstats/matches/dt=2024-05-01/"+name, key)

	_, ok = extractUnixFromFilename("garbage.csv.gz")
	assert.False(t, ok)
}

func TestS3UploaderRetries(t *testing.T) {
	cfg := testConfig(t)
	p := &fakePutter{failFirst: 2}
	u := fastUploader(cfg, p)

	require.NoError(t, u.UploadBytesWithRetryCtx(context.Background(), "k", []byte("body")))
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, []byte("body"), p.objects["k"])
	assert.Equal(t, int64(2), atomic.LoadInt64(&u.metrics.ArchivePutErrorsTotal))
	assert.Equal(t, int64(1), atomic.LoadInt64(&u.metrics.ArchiveUploadsTotal))
}

func TestS3UploaderGivesUp(t *testing.T) {
	cfg := testConfig(t)
	p := &fakePutter{failAll: true}
	u := fastUploader(cfg, p)

	err := u.UploadBytesWithRetryCtx(context.Background(), "k", []byte("body"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 unavailable")
	assert.Equal(t, cfg.S3AppRetries, p.calls)
}

func TestSpoolSaveAndDrain(t *testing.T) {
	cfg := testConfig(t)
	p := &fakePutter{}
	m := newMetrics()
	s, err := NewSpool(cfg, m, fastUploader(cfg, p))
	require.NoError(t, err)

	now := time.Now()
	name := NewFilename(now, "host1", KindMatches, "csv")
	key := BuildS3Key(cfg.ArchivePrefix, KindMatches, now, name)
	require.NoError(t, s.Save(key, gzipString(t, "matchId\nNA1_1\n")))
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.SpoolFilesCurrent))

	n, err := s.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{key}, p.Keys())
	assert.Equal(t, int64(0), atomic.LoadInt64(&m.SpoolFilesCurrent))
	assert.Equal(t, int64(0), atomic.LoadInt64(&m.SpoolSizeBytes))

	entries, err := os.ReadDir(cfg.SpoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSpoolExpiresOldFiles(t *testing.T) {
	cfg := testConfig(t)
	p := &fakePutter{}
	m := newMetrics()
	s, err := NewSpool(cfg, m, fastUploader(cfg, p))
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	name := NewFilename(old, "host1", KindMatches, "csv")
	require.NoError(t, s.Save(BuildS3Key("lolstats", KindMatches, old, name), gzipString(t, "x\n")))

	_, err = s.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, p.Keys())
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.SpoolFilesExpiredTotal))
}

func TestSpoolCapacityRemovesOldest(t *testing.T) {
	cfg := testConfig(t)
	data := gzipString(t, strings.Repeat("row\n", 100))
	cfg.SpoolMaxSizeBytes = int64(len(data))*2 + 1
	m := newMetrics()
	s, err := NewSpool(cfg, m, fastUploader(cfg, &fakePutter{}))
	require.NoError(t, err)

	base := time.Now()
	var names []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		name := NewFilename(at, "host1", KindMatches, "csv")
		names = append(names, name)
		require.NoError(t, s.Save(BuildS3Key("lolstats", KindMatches, at, name), data))
	}

	_, err = os.Stat(filepath.Join(cfg.SpoolDir, names[0]))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, int64(2), atomic.LoadInt64(&m.SpoolFilesCurrent))
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.SpoolFilesExpiredTotal))
}

func TestSpoolInvalidGoesToInvalidPrefix(t *testing.T) {
	cfg := testConfig(t)
	p := &fakePutter{}
	s, err := NewSpool(cfg, newMetrics(), fastUploader(cfg, p))
	require.NoError(t, err)

	name := NewFilename(time.Now(), "host1", KindMatches, "csv")
	require.NoError(t, s.Save("lolstats/matches/dt=2024-05-01/"+name, []byte("not gzip")))

	_, err = s.Drain(context.Background())
	require.NoError(t, err)
	keys := p.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "lolstats/spool_invalid/"), keys[0])
}

func TestNewSpoolRestoresStateAndRemovesOrphanMeta(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SpoolDir, "1_h_000001.matches.csv.gz"), []byte("12345"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SpoolDir, "2_h_000002.matches.csv.gz"+metaSuffix), []byte(`{}`), 0o600))

	m := newMetrics()
	_, err := NewSpool(cfg, m, fastUploader(cfg, &fakePutter{}))
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&m.SpoolFilesCurrent))
	assert.Equal(t, int64(5), atomic.LoadInt64(&m.SpoolSizeBytes))
	_, err = os.Stat(filepath.Join(cfg.SpoolDir, "2_h_000002.matches.csv.gz"+metaSuffix))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestArchiverUploadsAndSpoolsOnFailure(t *testing.T) {
	cfg := testConfig(t)
	csvPath := filepath.Join(t.TempDir(), "matches.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("matchId\nNA1_1\n"), 0o644))
	snapshots := []SnapshotRecord{{Kind: KindRanked, PUUID: "p-1", Data: json.RawMessage(`[]`)}}

	p := &fakePutter{failAll: true}
	m := newMetrics()
	a, err := NewArchiver(cfg, m, fastUploader(cfg, p))
	require.NoError(t, err)

	// S3 가 죽어 있으면 두 아카이브 모두 spool 로 간다
	require.NoError(t, a.Run(context.Background(), snapshots, csvPath))
	assert.Empty(t, p.Keys())
	assert.Equal(t, int64(2), atomic.LoadInt64(&m.SpoolFilesCurrent))

	// 다음 실행: spool 먼저 비우고 새 아카이브도 올린다
	p.SetFailAll(false)
	require.NoError(t, a.Run(context.Background(), snapshots, csvPath))
	assert.Len(t, p.Keys(), 4)
	assert.Equal(t, int64(0), atomic.LoadInt64(&m.SpoolFilesCurrent))

	var csvKeys int
	for _, k := range p.Keys() {
		if strings.HasPrefix(k, "lolstats/matches/dt=") {
			csvKeys++
			assert.Equal(t, "matchId\nNA1_1\n", gunzip(t, p.objects[k]))
		}
	}
	assert.Equal(t, 2, csvKeys)
}

func TestArchiverMissingCSVIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	p := &fakePutter{}
	a, err := NewArchiver(cfg, newMetrics(), fastUploader(cfg, p))
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background(), nil, filepath.Join(t.TempDir(), "none.csv")))
	assert.Empty(t, p.Keys())
}
