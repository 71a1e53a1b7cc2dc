// internal/sink/spool.go
package sink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"lolstats/internal/config"
	"lolstats/internal/metrics"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

const metaSuffix = ".meta.json"

// Uploader 는 spool 이 재업로드에 쓰는 인터페이스 (*S3Uploader).
type Uploader interface {
	UploadBytesWithRetryCtx(ctx context.Context, key string, body []byte) error
}

// spoolMeta 는 data 파일 옆에 저장되는 메타 정보.
type spoolMeta struct {
	Key string `json:"key"` // 원래 올리려던 S3 key
}

// Spool
//
// S3 업로드에 실패한 아카이브를 로컬 디렉토리에 보관했다가
// 다음 실행의 아카이브 단계에서 다시 올린다.
//   - 파일명 prefix 의 unix timestamp 로 TTL(SpoolMaxAge) 판단
//   - 전체 용량이 SpoolMaxSizeBytes 를 넘으면 가장 오래된 파일부터 삭제
type Spool struct {
	cfg      config.Config
	metrics  *metrics.Metrics
	uploader Uploader
	now      func() time.Time

	sizeBytes int64
}

// NewSpool 은 spool 디렉토리를 만들고 기존 파일을 스캔해 용량/개수를 복원한다.
// data 파일 없이 남은 meta 파일은 지운다.
func NewSpool(cfg config.Config, m *metrics.Metrics, up Uploader) (*Spool, error) {
	if err := os.MkdirAll(cfg.SpoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("spool dir %s: %w", cfg.SpoolDir, err)
	}

	s := &Spool{cfg: cfg, metrics: m, uploader: up, now: time.Now}

	entries, err := os.ReadDir(cfg.SpoolDir)
	if err != nil {
		return nil, err
	}

	var total, count int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, metaSuffix) {
			dataName := strings.TrimSuffix(name, metaSuffix)
			if _, err := os.Stat(filepath.Join(cfg.SpoolDir, dataName)); errors.Is(err, os.ErrNotExist) {
				_ = os.Remove(filepath.Join(cfg.SpoolDir, name))
			}
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		if info, err := e.Info(); err == nil {
			total += info.Size()
			count++
		}
	}

	atomic.StoreInt64(&s.sizeBytes, total)
	atomic.StoreInt64(&m.SpoolSizeBytes, total)
	atomic.StoreInt64(&m.SpoolFilesCurrent, count)
	return s, nil
}

// Save 는 업로드 실패한 gzip 아카이브를 spool 에 저장한다.
// 용량을 확보하지 못하면 버리고 nil 을 반환한다 (dropped 카운터 증가).
func (s *Spool) Save(key string, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	size := int64(len(data))
	if !s.ensureCapacity(size) {
		log.Error().Str("key", key).Int64("bytes", size).Msg("spool full, dropping archive")
		atomic.AddInt64(&s.metrics.SpoolFilesDroppedTotal, 1)
		return nil
	}

	dataPath := filepath.Join(s.cfg.SpoolDir, filepath.Base(key))
	if err := os.WriteFile(dataPath, data, 0o600); err != nil {
		return err
	}
	meta, _ := json.Marshal(spoolMeta{Key: key})
	_ = os.WriteFile(dataPath+metaSuffix, meta, 0o600)

	atomic.AddInt64(&s.sizeBytes, size)
	atomic.AddInt64(&s.metrics.SpoolSizeBytes, size)
	atomic.AddInt64(&s.metrics.SpoolFilesCurrent, 1)
	atomic.AddInt64(&s.metrics.SpoolFilesEnqueuedTotal, 1)
	return nil
}

// ensureCapacity 는 incoming 바이트가 들어갈 때까지 가장 오래된 파일을 지운다.
// 지울 파일이 더 없으면 false.
func (s *Spool) ensureCapacity(incoming int64) bool {
	max := s.cfg.SpoolMaxSizeBytes
	if max <= 0 {
		return true
	}
	if incoming > max {
		return false
	}

	for atomic.LoadInt64(&s.sizeBytes)+incoming > max {
		oldest := s.pickOldest()
		if oldest == "" {
			return false
		}
		s.remove(oldest)
		atomic.AddInt64(&s.metrics.SpoolFilesExpiredTotal, 1)
		log.Warn().Str("file", oldest).Msg("spool capacity, removed oldest")
	}
	return true
}

// Drain 은 spool 이 빌 때까지 가장 오래된 파일부터 재업로드한다.
// 업로드가 한 번 실패하면 나머지는 다음 실행으로 미룬다. 처리한 파일 수를 반환한다.
func (s *Spool) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		done, err := s.ProcessOne(ctx)
		if err != nil {
			return n, err
		}
		if done {
			return n, nil
		}
		n++
	}
}

// ProcessOne
//
// 가장 오래된 data 파일 1개를 처리한다.
//   - TTL 초과: 삭제
//   - gzip 첫 줄이 비정상: <prefix>/spool_invalid/ 로 업로드
//   - 정상: meta 에 저장된 원래 key 로 업로드
//
// spool 이 비어 있으면 done=true.
func (s *Spool) ProcessOne(ctx context.Context) (done bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	name := s.pickOldest()
	if name == "" {
		return true, nil
	}
	dataPath := filepath.Join(s.cfg.SpoolDir, name)

	if s.cfg.SpoolMaxAge > 0 {
		if sec, ok := extractUnixFromFilename(name); ok {
			age := s.now().Sub(time.Unix(sec, 0))
			if age > s.cfg.SpoolMaxAge {
				s.remove(name)
				atomic.AddInt64(&s.metrics.SpoolFilesExpiredTotal, 1)
				log.Info().Str("file", name).Dur("age", age).Msg("spool TTL expired, deleted")
				return false, nil
			}
		}
	}

	data, err := os.ReadFile(dataPath)
	if err != nil {
		s.remove(name)
		return false, nil
	}

	key := s.readKey(dataPath + metaSuffix)
	if key == "" || !validGzip(data) {
		key = BuildS3Key(s.cfg.ArchivePrefix, "spool_invalid", s.now(), name)
	}

	if err := s.uploader.UploadBytesWithRetryCtx(ctx, key, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("spool reupload failed")
		return false, err
	}

	s.remove(name)
	atomic.AddInt64(&s.metrics.SpoolFilesReuploadedTotal, 1)
	log.Info().Str("key", key).Msg("spool reupload success")
	return false, nil
}

func (s *Spool) readKey(metaPath string) string {
	b, err := os.ReadFile(metaPath)
	if err != nil {
		return ""
	}
	var meta spoolMeta
	if json.Unmarshal(b, &meta) != nil {
		return ""
	}
	return meta.Key
}

// remove 는 data/meta 파일을 지우고 용량/개수를 갱신한다.
func (s *Spool) remove(name string) {
	dataPath := filepath.Join(s.cfg.SpoolDir, name)
	if info, err := os.Stat(dataPath); err == nil {
		atomic.AddInt64(&s.sizeBytes, -info.Size())
		atomic.AddInt64(&s.metrics.SpoolSizeBytes, -info.Size())
	}
	_ = os.Remove(dataPath)
	_ = os.Remove(dataPath + metaSuffix)
	atomic.AddInt64(&s.metrics.SpoolFilesCurrent, -1)
}

// pickOldest 는 파일명(= timestamp) 정렬 기준 가장 오래된 data 파일.
// ReadDir 결과 순서는 보장되지 않으므로 직접 정렬한다.
func (s *Spool) pickOldest() string {
	entries, err := os.ReadDir(s.cfg.SpoolDir)
	if err != nil {
		return ""
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, metaSuffix) || strings.HasPrefix(name, ".") {
			continue
		}
		files = append(files, name)
	}
	if len(files) == 0 {
		return ""
	}
	sort.Strings(files)
	return files[0]
}

// validGzip 은 gzip 을 풀어 첫 줄이 비어 있지 않은지 본다.
func validGzip(data []byte) bool {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return false
	}
	defer gz.Close()

	line, err := bufio.NewReader(gz).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return false
	}
	return len(bytes.TrimSpace(line)) > 0
}

// extractUnixFromFilename: "<unix>_<instance>_<counter>...." 에서 unix 초를 읽는다.
func extractUnixFromFilename(name string) (int64, bool) {
	idx := strings.IndexByte(name, '_')
	if idx <= 0 {
		return 0, false
	}
	sec, err := strconv.ParseInt(name[:idx], 10, 64)
	if err != nil || sec <= 0 {
		return 0, false
	}
	return sec, true
}
