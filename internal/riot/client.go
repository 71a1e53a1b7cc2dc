package riot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"lolstats/internal/config"
	"lolstats/internal/metrics"

	json "github.com/goccy/go-json"
)

// maxErrorBody 는 RequestError 에 담는 응답 본문 최대 길이.
const maxErrorBody = 2048

// Routing 은 API 별로 사용하는 라우팅 값 묶음.
type Routing struct {
	Region   string // account-v1
	Match    string // match-v5
	Platform string // league-v4, champion-mastery-v4
}

// RetryPolicy 는 Match 의 429 재시도 정책.
type RetryPolicy struct {
	// MaxAttempts 는 요청 시도 상한 (첫 시도 포함). 0 이면 무제한.
	MaxAttempts int
	// DefaultRetryAfter 는 Retry-After 헤더가 없거나 읽을 수 없을 때 대기 시간.
	DefaultRetryAfter time.Duration
}

// Client
//
// Riot REST API 클라이언트. 모든 요청은 GET 이고 api_key 쿼리 파라미터로 인증한다.
// Limiter 는 Client 가 소유하며, 같은 라우팅 값을 쓰는 요청끼리 예산을 공유한다.
type Client struct {
	apiKey  string
	baseURL string // "%s" 자리에 라우팅 값
	routing Routing
	retry   RetryPolicy
	http    *http.Client
	limiter *Limiter
	clock   Clock
	metrics *metrics.Metrics
}

type Option func(*Client)

// WithHTTPClient 는 기본 http.Client 를 교체한다.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock 은 리미터와 429 대기에 쓸 시계를 교체한다.
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithLimiter 는 외부에서 만든 Limiter 를 공유한다.
func WithLimiter(l *Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func NewClient(cfg config.Config, m *metrics.Metrics, opts ...Option) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURLTemplate, "/"),
		routing: Routing{
			Region:   cfg.RegionRouting,
			Match:    cfg.MatchRegionRouting,
			Platform: cfg.PlatformRouting,
		},
		retry: RetryPolicy{
			MaxAttempts:       cfg.RetryMaxAttempts,
			DefaultRetryAfter: cfg.RetryAfterDefault,
		},
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		metrics: m,
	}
	if c.retry.DefaultRetryAfter <= 0 {
		c.retry.DefaultRetryAfter = 120 * time.Second
	}
	for _, o := range opts {
		o(c)
	}
	if c.clock == nil {
		c.clock = RealClock()
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	if c.limiter == nil {
		c.limiter = NewLimiter(Limits{
			ShortLimit:  cfg.ShortLimit,
			ShortWindow: cfg.ShortWindow,
			LongLimit:   cfg.LongLimit,
			LongWindow:  cfg.LongWindow,
		}, c.clock)
	}
	return c
}

// Limiter 는 Client 가 쓰는 리미터를 반환한다.
func (c *Client) Limiter() *Limiter { return c.limiter }

// get
//
// 리미터 통과 → GET 1회. 재시도는 하지 않는다.
//   - 2xx: 본문 반환
//   - 429: *ThrottledError
//   - 그 외: *RequestError
func (c *Client) get(ctx context.Context, routing, path string, query url.Values) ([]byte, error) {
	slept, err := c.limiter.Wait(ctx, routing)
	atomic.AddInt64(&c.metrics.LimiterWaitMillis, slept.Milliseconds())
	if err != nil {
		return nil, err
	}

	if query == nil {
		query = url.Values{}
	}
	public := fmt.Sprintf(c.baseURL, routing) + path
	if len(query) > 0 {
		public += "?" + query.Encode()
	}
	query.Set("api_key", c.apiKey)
	full := fmt.Sprintf(c.baseURL, routing) + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("riot: build request %s: %w", public, err)
	}
	req.Header.Set("Accept", "application/json")

	atomic.AddInt64(&c.metrics.APIRequestsTotal, 1)
	resp, err := c.http.Do(req)
	if err != nil {
		atomic.AddInt64(&c.metrics.APIRequestErrorsTotal, 1)
		// *url.Error 는 api_key 가 포함된 URL 을 들고 있으므로 풀어서 감싼다.
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return nil, fmt.Errorf("riot: GET %s: %w", public, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("riot: read %s: %w", public, err)
		}
		return body, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	reqErr := &RequestError{
		Method:     http.MethodGet,
		URL:        public,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		atomic.AddInt64(&c.metrics.APIThrottledTotal, 1)
		return nil, &ThrottledError{
			RequestError: reqErr,
			RetryAfter:   parseRetryAfter(resp.Header.Get("Retry-After"), c.clock.Now(), c.retry.DefaultRetryAfter),
		}
	}

	atomic.AddInt64(&c.metrics.APIRequestErrorsTotal, 1)
	return nil, reqErr
}

func (c *Client) getJSON(ctx context.Context, routing, path string, query url.Values, out any) ([]byte, error) {
	body, err := c.get(ctx, routing, path, query)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("riot: decode %s: %w", path, err)
	}
	return body, nil
}

// parseRetryAfter
//
// Retry-After 헤더 값을 대기 시간으로 바꾼다.
//   - 정수: 초 단위
//   - HTTP-date: now 기준 남은 시간
//   - 없음 / 해석 불가 / 0 이하: def
func parseRetryAfter(v string, now time.Time, def time.Duration) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return def
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return def
}
