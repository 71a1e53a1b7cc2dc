package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lolstats/internal/config"
	"lolstats/internal/logger"
	"lolstats/internal/metrics"
	"lolstats/internal/pipeline"
	"lolstats/internal/riot"
	"lolstats/internal/server"
	"lolstats/internal/sink"

	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

// run 은 종료 코드를 반환한다.
func run() int {

	// ====================================================================
	// Config & Logger & Metrics
	// ====================================================================
	//
	// - Config: .env + 환경변수 (API 키, 라우팅, 출력 폴더, 계정 최대 5개)
	// - Logger: zerolog, 모든 로그에 service / instance 필드
	// - Metrics: 실행 종료 시 로그로 남기고 METRICS_ADDR 가 있으면 /metrics 로 노출
	// ====================================================================
	cfg := config.MustLoad()
	logger.Init(cfg)
	m := metrics.New()

	// SIGINT / SIGTERM 이면 진행 중인 대기(rate limit, Retry-After)를 끊고 종료한다.
	// 이미 추가된 CSV 행은 남는다.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srvCtx, cancel := context.WithCancel(context.Background())
		done, err := server.Serve(srvCtx, cfg.MetricsAddr, server.NewHandler(m).Routes())
		if err != nil {
			log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server listen")
			cancel()
			return 1
		}
		defer func() {
			cancel()
			<-done
		}()
	}

	// ====================================================================
	// 수집
	// ====================================================================
	//
	// 계정 → ranked → mastery → match id → match 순서로 하나씩 처리한다.
	// Riot API 요청은 모두 라우팅 값별 rate limiter 를 통과한다.
	// ====================================================================
	client := riot.NewClient(cfg, m)

	p, err := pipeline.New(cfg, client, m, os.Stdout)
	if err != nil {
		log.Error().Err(err).Msg("pipeline init")
		return 1
	}

	res, runErr := p.Run(ctx)
	if runErr != nil {
		log.Error().Err(runErr).Msg("collection aborted")
	}

	// ====================================================================
	// 아카이브 (ARCHIVE_BUCKET 설정 시)
	// ====================================================================
	//
	// 실패해서 중단된 실행이라도 그때까지 저장된 스냅샷과 CSV 는 올린다.
	// 업로드 실패분은 spool 에 남고 다음 실행에서 다시 올린다.
	// ====================================================================
	if cfg.ArchiveEnabled() {
		archive(cfg, m, res)
	}

	log.Info().Msg("metrics\n" + m.String())

	if runErr != nil {
		return 1
	}
	log.Info().Int("accounts", len(res.Accounts)).Msg("collection complete")
	return 0
}

func archive(cfg config.Config, m *metrics.Metrics, res pipeline.Result) {
	// 수집이 signal 로 끊겼어도 아카이브는 끝까지 시도한다.
	ctx := context.Background()

	up, err := sink.NewS3Uploader(ctx, cfg, m)
	if err != nil {
		log.Error().Err(err).Msg("s3 uploader init")
		return
	}
	a, err := sink.NewArchiver(cfg, m, up)
	if err != nil {
		log.Error().Err(err).Msg("archiver init")
		return
	}
	if err := a.Run(ctx, res.Snapshots, res.CSVPath); err != nil {
		log.Error().Err(err).Msg("archive")
	}
}
