// internal/sink/file_util.go
package sink

import (
	"fmt"
	"sync/atomic"
	"time"
)

// 아카이브 / spool 파일명 규칙:
//
//	<unix>_<instance>_<counter>.<kind>.<ext>.gz
//
// 예:
//
//	1764721594_laptop_000042.matches.csv.gz
//
// unix 가 맨 앞이므로 문자열 정렬이 곧 시간 순 정렬이다.
// spool 은 이 성질로 가장 오래된 파일을 먼저 재업로드하고 TTL 을 판단한다.
var globalCounter uint64

// NextCounter 는 0 ~ 999999 를 순환하는 원자적 순번.
func NextCounter() uint64 {
	return atomic.AddUint64(&globalCounter, 1) % 1_000_000
}

// NewFilename 은 now 시각 기준 새 파일명을 만든다.
func NewFilename(now time.Time, instanceID, kind, ext string) string {
	return fmt.Sprintf("%d_%s_%06d.%s.%s.gz", now.Unix(), instanceID, NextCounter(), kind, ext)
}

// BuildS3Key
//
//	<prefix>/<kind>/dt=<YYYY-MM-DD>/<filename>
//
// Athena / Glue 에서 kind + 날짜 파티션으로 읽을 수 있게 한다. 날짜는 UTC.
func BuildS3Key(prefix, kind string, now time.Time, filename string) string {
	return fmt.Sprintf("%s/%s/dt=%s/%s", prefix, kind, now.UTC().Format("2006-01-02"), filename)
}
