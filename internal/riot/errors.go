package riot

import (
	"fmt"
	"time"
)

// RequestError 는 429 를 제외한 non-2xx 응답이다.
// 호출자에게 그대로 전달되어 현재 계정 처리(와 실행 전체)를 중단시킨다.
type RequestError struct {
	Method     string
	URL        string // api_key 는 제거된 URL
	StatusCode int
	Body       string // 응답 본문 앞부분 (최대 2KB)
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("riot: %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("riot: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// ThrottledError 는 429 Too Many Requests 응답이다.
// Match 는 이 에러를 RetryAfter 만큼 잠든 뒤 재시도하고,
// 그 외 경로(페이지 조회 등)에서는 RequestError 처럼 전파된다.
type ThrottledError struct {
	*RequestError
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.RequestError.Error(), e.RetryAfter)
}

func (e *ThrottledError) Unwrap() error {
	return e.RequestError
}
