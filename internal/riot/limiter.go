package riot

import (
	"context"
	"sync"
	"time"
)

// Limits 는 라우팅 지역 하나에 적용되는 2단계 요청 예산이다.
type Limits struct {
	ShortLimit  int
	ShortWindow time.Duration
	LongLimit   int
	LongWindow  time.Duration
}

// DefaultLimits 는 개발용 API 키 한도 (20 req / 1s, 100 req / 120s).
func DefaultLimits() Limits {
	return Limits{
		ShortLimit:  20,
		ShortWindow: time.Second,
		LongLimit:   100,
		LongWindow:  120 * time.Second,
	}
}

// Clock 은 현재 시각과 잠들기를 추상화한다. 테스트에서 가짜 시계로 바꾼다.
type Clock interface {
	Now() time.Time
	// Sleep 은 d 만큼 기다린다. ctx 가 먼저 끝나면 ctx.Err() 를 반환한다.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock 은 time 패키지 기반 Clock.
func RealClock() Clock { return realClock{} }

// Limiter
//
// 라우팅 지역별 요청 시각 로그(오름차순)를 들고 있는 sliding-log 리미터.
// 같은 지역을 쓰는 모든 호출이 하나의 예산을 공유한다.
//
// 불변 조건: 어떤 ShortWindow 구간에도 ShortLimit 개,
// 어떤 LongWindow 구간에도 LongLimit 개를 넘는 기록이 없다.
// 읽기-정리-추가는 mu 아래에서 하고, 잠드는 동안에는 락을 잡지 않는다.
type Limiter struct {
	limits Limits
	clock  Clock

	mu   sync.Mutex
	logs map[string][]time.Time
}

func NewLimiter(limits Limits, clock Clock) *Limiter {
	if clock == nil {
		clock = RealClock()
	}
	return &Limiter{
		limits: limits,
		clock:  clock,
		logs:   make(map[string][]time.Time),
	}
}

// Wait 는 region 으로 요청을 보내도 두 예산을 넘지 않을 때까지 막은 뒤
// 현재 시각을 기록하고 반환한다. 잠든 시간의 합을 돌려준다.
// 실패하는 경우는 ctx 취소뿐이다.
func (l *Limiter) Wait(ctx context.Context, region string) (time.Duration, error) {
	var slept time.Duration
	for {
		d := l.reserve(region)
		if d <= 0 {
			return slept, nil
		}
		if err := l.clock.Sleep(ctx, d); err != nil {
			return slept, err
		}
		slept += d
	}
}

// reserve 는 지금 요청이 가능하면 기록하고 0 을, 아니면 기다려야 할 시간을 반환한다.
func (l *Limiter) reserve(region string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	log := l.evict(region, now)

	var wait time.Duration

	// short window: 최근 ShortWindow 안의 기록 중 가장 오래된 것이 빠질 때까지
	shortCut := now.Add(-l.limits.ShortWindow)
	first := len(log)
	for i, t := range log {
		if t.After(shortCut) {
			first = i
			break
		}
	}
	if first < len(log) && len(log)-first >= l.limits.ShortLimit {
		wait = log[first].Add(l.limits.ShortWindow).Sub(now)
	}

	// long window: 정리 후에도 LongLimit 개면 가장 오래된 기록이 빠질 때까지
	if len(log) > 0 && len(log) >= l.limits.LongLimit {
		if w := log[0].Add(l.limits.LongWindow).Sub(now); w > wait {
			wait = w
		}
	}

	if wait > 0 {
		return wait
	}

	l.logs[region] = append(log, now)
	return 0
}

// evict 는 LongWindow 보다 오래된 기록을 버린다.
func (l *Limiter) evict(region string, now time.Time) []time.Time {
	log := l.logs[region]
	cut := now.Add(-l.limits.LongWindow)
	i := 0
	for i < len(log) && !log[i].After(cut) {
		i++
	}
	if i > 0 {
		log = append(log[:0], log[i:]...)
		l.logs[region] = log
	}
	return log
}

// Len 은 region 의 현재 로그 길이 (LongWindow 정리 전 값).
func (l *Limiter) Len(region string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.logs[region])
}
