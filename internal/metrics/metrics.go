package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics 는 한 번의 수집 실행 동안 쌓이는 카운터 모음이다.
// 모든 필드는 sync/atomic 으로만 갱신/조회한다.
type Metrics struct {
	// ======================
	// Riot API
	// ======================

	// APIRequestsTotal
	// - 실제로 전송한 HTTP 요청 수 (429 재시도 포함).
	APIRequestsTotal int64

	// APIThrottledTotal
	// - 429 Too Many Requests 응답 수.
	// - 리미터 설정이 실제 키 한도보다 느슨하면 이 값이 올라간다.
	APIThrottledTotal int64

	// APIThrottleWaitSeconds
	// - Retry-After 로 잠든 시간의 합 (초).
	APIThrottleWaitSeconds int64

	// LimiterWaitMillis
	// - 로컬 rate limiter 가 요청을 막고 있던 시간의 합 (ms).
	LimiterWaitMillis int64

	// APIRequestErrorsTotal
	// - 429 이외의 non-2xx 응답, 또는 전송 자체 실패 횟수.
	APIRequestErrorsTotal int64

	// ======================
	// 파이프라인
	// ======================

	AccountsProcessedTotal int64
	MatchesFetchedTotal    int64
	MatchesAppendedTotal   int64 // CSV 에 행으로 추가된 매치 수
	MatchesSkippedTotal    int64 // 게임 시간이 짧거나 계정이 참가자에 없어서 제외
	SnapshotsWrittenTotal  int64 // ranked / mastery JSON 스냅샷 파일 수

	// ======================
	// 아카이브 (S3 + 로컬 spool)
	// ======================

	ArchiveUploadsTotal       int64
	ArchivePutErrorsTotal     int64 // PutObject 시도 실패 수 (재시도마다 +1)
	SpoolFilesEnqueuedTotal   int64
	SpoolFilesReuploadedTotal int64
	SpoolFilesDroppedTotal    int64
	SpoolFilesExpiredTotal    int64
	SpoolFilesCurrent         int64
	SpoolSizeBytes            int64
}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) String() string {
	var sb strings.Builder
	sb.Grow(512)

	fmt.Fprintf(&sb, "api_requests_total=%d\n", atomic.LoadInt64(&m.APIRequestsTotal))
	fmt.Fprintf(&sb, "api_throttled_total=%d\n", atomic.LoadInt64(&m.APIThrottledTotal))
	fmt.Fprintf(&sb, "api_throttle_wait_seconds=%d\n", atomic.LoadInt64(&m.APIThrottleWaitSeconds))
	fmt.Fprintf(&sb, "limiter_wait_millis=%d\n", atomic.LoadInt64(&m.LimiterWaitMillis))
	fmt.Fprintf(&sb, "api_request_errors_total=%d\n", atomic.LoadInt64(&m.APIRequestErrorsTotal))

	fmt.Fprintf(&sb, "accounts_processed_total=%d\n", atomic.LoadInt64(&m.AccountsProcessedTotal))
	fmt.Fprintf(&sb, "matches_fetched_total=%d\n", atomic.LoadInt64(&m.MatchesFetchedTotal))
	fmt.Fprintf(&sb, "matches_appended_total=%d\n", atomic.LoadInt64(&m.MatchesAppendedTotal))
	fmt.Fprintf(&sb, "matches_skipped_total=%d\n", atomic.LoadInt64(&m.MatchesSkippedTotal))
	fmt.Fprintf(&sb, "snapshots_written_total=%d\n", atomic.LoadInt64(&m.SnapshotsWrittenTotal))

	fmt.Fprintf(&sb, "archive_uploads_total=%d\n", atomic.LoadInt64(&m.ArchiveUploadsTotal))
	fmt.Fprintf(&sb, "archive_put_errors_total=%d\n", atomic.LoadInt64(&m.ArchivePutErrorsTotal))
	fmt.Fprintf(&sb, "spool_files_enqueued_total=%d\n", atomic.LoadInt64(&m.SpoolFilesEnqueuedTotal))
	fmt.Fprintf(&sb, "spool_files_reuploaded_total=%d\n", atomic.LoadInt64(&m.SpoolFilesReuploadedTotal))
	fmt.Fprintf(&sb, "spool_files_dropped_total=%d\n", atomic.LoadInt64(&m.SpoolFilesDroppedTotal))
	fmt.Fprintf(&sb, "spool_files_expired_total=%d\n", atomic.LoadInt64(&m.SpoolFilesExpiredTotal))
	fmt.Fprintf(&sb, "spool_files_current=%d\n", atomic.LoadInt64(&m.SpoolFilesCurrent))
	fmt.Fprintf(&sb, "spool_size_bytes=%d\n", atomic.LoadInt64(&m.SpoolSizeBytes))

	return sb.String()
}
