// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"lolstats/internal/config"
	"lolstats/internal/metrics"
	"lolstats/internal/model"
	"lolstats/internal/riot"
	"lolstats/internal/sink"

	"github.com/rs/zerolog/log"
)

// API 는 파이프라인이 쓰는 Riot API 호출 묶음. *riot.Client 가 구현한다.
type API interface {
	Account(ctx context.Context, gameName, tagLine string) (model.Account, error)
	RankedStats(ctx context.Context, puuid string) (model.RankedStats, error)
	Masteries(ctx context.Context, puuid string) (model.MasterySnapshot, error)
	MatchIDs(ctx context.Context, puuid string, q riot.MatchIDQuery) ([]string, error)
	Match(ctx context.Context, matchID string) (*model.Match, error)
}

var _ API = (*riot.Client)(nil)

// Result 는 한 번의 실행 결과.
// 에러로 중단된 경우에도 그 전까지 처리한 내용이 담긴다.
type Result struct {
	Accounts  []AccountResult
	Snapshots []sink.SnapshotRecord
	CSVPath   string
}

// Pipeline
//
// 설정된 계정을 순서대로 처리한다.
//
//	account → ranked 스냅샷 → mastery 스냅샷 → match id 목록 → match 별 CSV 행
//
// 어느 단계든 실패하면 실행 전체를 중단한다. 이미 추가된 CSV 행은 그대로 남는다.
type Pipeline struct {
	cfg     config.Config
	api     API
	metrics *metrics.Metrics
	flat    Flattener
	csv     *sink.CSVAppender
	out     io.Writer // 콘솔 표 출력
	now     func() time.Time
}

// New 는 파이프라인을 만든다. out 이 nil 이면 stdout 에 표를 쓴다.
func New(cfg config.Config, api API, m *metrics.Metrics, out io.Writer) (*Pipeline, error) {
	flat, err := NewFlattener(cfg.CSVMode)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.New()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Pipeline{
		cfg:     cfg,
		api:     api,
		metrics: m,
		flat:    flat,
		csv:     sink.NewCSVAppender(cfg.MatchesCSV, flat.Header()),
		out:     out,
		now:     time.Now,
	}, nil
}

func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{CSVPath: p.cfg.MatchesCSV}

	for _, dir := range []string{p.cfg.RankedDir, p.cfg.MasteryDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	for _, acc := range p.cfg.Accounts {
		ar, err := p.runAccount(ctx, acc, &res)
		res.Accounts = append(res.Accounts, ar)
		if err != nil {
			return res, fmt.Errorf("account %s: %w", acc, err)
		}
		atomic.AddInt64(&p.metrics.AccountsProcessedTotal, 1)
	}

	writeRunSummary(p.out, res.Accounts)
	return res, nil
}

func (p *Pipeline) runAccount(ctx context.Context, acc config.Account, res *Result) (AccountResult, error) {
	ar := AccountResult{Account: acc.String()}

	log.Info().Str("account", ar.Account).Msg("getting account data")
	account, err := p.api.Account(ctx, acc.GameName, acc.TagLine)
	if err != nil {
		return ar, err
	}
	puuid := account.PUUID
	ar.PUUID = puuid

	// ranked
	log.Info().Str("puuid", puuid).Msg("getting ranked stats")
	ranked, err := p.api.RankedStats(ctx, puuid)
	if err != nil {
		return ar, err
	}
	for _, e := range ranked.Entries {
		ar.Queues = append(ar.Queues, e.QueueType)
	}
	if err := p.snapshot(res, sink.KindRanked, p.cfg.RankedDir, puuid, ranked.Raw); err != nil {
		return ar, err
	}

	// mastery
	log.Info().Str("puuid", puuid).Msg("getting champion mastery")
	mastery, err := p.api.Masteries(ctx, puuid)
	if err != nil {
		return ar, err
	}
	if err := p.snapshot(res, sink.KindMastery, p.cfg.MasteryDir, puuid, mastery.Raw); err != nil {
		return ar, err
	}
	writeMasteryTable(p.out, ar.Account, mastery.Masteries)

	// matches
	ids, err := p.api.MatchIDs(ctx, puuid, riot.MatchIDQuery{
		StartTime: p.now().Add(-p.cfg.Lookback),
		Type:      p.cfg.MatchType,
	})
	if err != nil {
		return ar, err
	}
	ar.MatchIDs = len(ids)
	log.Info().Str("puuid", puuid).Int("count", len(ids)).Msg("match ids fetched")

	for i, id := range ids {
		log.Info().Str("match_id", id).Msgf("getting %d/%d match data", i+1, len(ids))

		m, err := p.api.Match(ctx, id)
		if err != nil {
			return ar, err
		}
		atomic.AddInt64(&p.metrics.MatchesFetchedTotal, 1)

		appended, err := p.appendMatch(id, puuid, m)
		if err != nil {
			return ar, err
		}
		if appended {
			ar.Appended++
		} else {
			ar.Skipped++
		}
	}
	return ar, nil
}

// appendMatch 는 매치를 CSV 에 추가한다. 제외된 매치면 false.
func (p *Pipeline) appendMatch(id, puuid string, m *model.Match) (bool, error) {
	if m.Info.GameDuration < p.cfg.MinGameDuration {
		log.Info().
			Str("match_id", id).
			Int64("game_duration", m.Info.GameDuration).
			Msg("not a full game, skipping")
		atomic.AddInt64(&p.metrics.MatchesSkippedTotal, 1)
		return false, nil
	}

	rows := p.flat.Rows(id, puuid, m)
	if len(rows) == 0 {
		log.Warn().Str("match_id", id).Str("puuid", puuid).Msg("account not in participants, skipping")
		atomic.AddInt64(&p.metrics.MatchesSkippedTotal, 1)
		return false, nil
	}
	for _, row := range rows {
		if err := p.csv.Append(row); err != nil {
			return false, fmt.Errorf("append match %s: %w", id, err)
		}
	}
	atomic.AddInt64(&p.metrics.MatchesAppendedTotal, 1)
	return true, nil
}

func (p *Pipeline) snapshot(res *Result, kind, dir, puuid string, raw []byte) error {
	path, err := sink.WriteSnapshot(dir, puuid, raw)
	if err != nil {
		return err
	}
	atomic.AddInt64(&p.metrics.SnapshotsWrittenTotal, 1)
	log.Debug().Str("kind", kind).Str("path", path).Msg("snapshot written")

	res.Snapshots = append(res.Snapshots, sink.SnapshotRecord{Kind: kind, PUUID: puuid, Data: raw})
	return nil
}
