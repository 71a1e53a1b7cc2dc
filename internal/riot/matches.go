package riot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"lolstats/internal/model"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// PageSize 는 match-v5 ids 조회 한 번에 요청하는 최대 개수.
const PageSize = 100

// MatchIDQuery 는 매치 ID 목록 조회 조건.
type MatchIDQuery struct {
	StartTime time.Time // 이 시각 이후의 매치만 (zero 면 조건 없음)
	Type      string    // "ranked", "normal" 등. 빈 값이면 전체
}

// MatchIDs
//
// start=0,100,200... 로 페이지를 넘기며 빈 페이지가 올 때까지 모은다.
// 응답 순서(최신순)를 그대로 유지한다.
//
// 재시도는 하지 않는다. 페이지 요청이 실패하면 (429 포함) 그대로 반환한다.
func (c *Client) MatchIDs(ctx context.Context, puuid string, q MatchIDQuery) ([]string, error) {
	path := "/lol/match/v5/matches/by-puuid/" + url.PathEscape(puuid) + "/ids"

	var all []string
	for start := 0; ; start += PageSize {
		params := url.Values{}
		params.Set("start", strconv.Itoa(start))
		params.Set("count", strconv.Itoa(PageSize))
		if !q.StartTime.IsZero() {
			params.Set("startTime", strconv.FormatInt(q.StartTime.Unix(), 10))
		}
		if q.Type != "" {
			params.Set("type", q.Type)
		}

		var page []string
		if _, err := c.getJSON(ctx, c.routing.Match, path, params, &page); err != nil {
			return nil, fmt.Errorf("match ids page start=%d: %w", start, err)
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
	}
}

// Match
//
// 매치 1건의 상세 정보를 가져온다.
//  1. match 라우팅 리미터 통과
//  2. GET
//  3. 429 → Retry-After (없으면 기본값) 만큼 잠든 뒤 1 부터 다시
//  4. 그 외 non-2xx → *RequestError
//
// RetryPolicy.MaxAttempts 가 0 이면 429 재시도 횟수 제한이 없다.
func (c *Client) Match(ctx context.Context, matchID string) (*model.Match, error) {
	path := "/lol/match/v5/matches/" + url.PathEscape(matchID)

	for attempt := 1; ; attempt++ {
		body, err := c.get(ctx, c.routing.Match, path, nil)
		if err == nil {
			var m model.Match
			if err := json.Unmarshal(body, &m); err != nil {
				return nil, fmt.Errorf("riot: decode match %s: %w", matchID, err)
			}
			if m.Metadata.MatchID == "" {
				m.Metadata.MatchID = matchID
			}
			return &m, nil
		}

		var te *ThrottledError
		if !errors.As(err, &te) {
			return nil, err
		}
		if c.retry.MaxAttempts > 0 && attempt >= c.retry.MaxAttempts {
			return nil, fmt.Errorf("match %s: gave up after %d attempts: %w", matchID, attempt, err)
		}

		log.Warn().
			Str("match_id", matchID).
			Int("attempt", attempt).
			Dur("retry_after", te.RetryAfter).
			Msg("rate limit hit, retrying")

		atomic.AddInt64(&c.metrics.APIThrottleWaitSeconds, int64(te.RetryAfter/time.Second))
		if err := c.clock.Sleep(ctx, te.RetryAfter); err != nil {
			return nil, err
		}
	}
}
