// internal/sink/archive.go
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"lolstats/internal/config"
	"lolstats/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Archiver
//
// 실행이 끝난 뒤 결과물을 S3 로 보관한다.
//  1. 이전 실행에서 spool 에 남은 파일 재업로드
//  2. 이번 실행의 JSON 스냅샷 → JSONL.gz 업로드
//  3. matches.csv 전체 → csv.gz 업로드
//
// 업로드가 실패한 아카이브는 spool 에 저장되고 다음 실행에서 다시 시도한다.
// 로컬 파일(스냅샷, CSV)은 건드리지 않는다.
type Archiver struct {
	cfg      config.Config
	uploader Uploader
	spool    *Spool
	encoder  *Encoder
	now      func() time.Time
}

func NewArchiver(cfg config.Config, m *metrics.Metrics, up Uploader) (*Archiver, error) {
	spool, err := NewSpool(cfg, m, up)
	if err != nil {
		return nil, err
	}
	return &Archiver{
		cfg:      cfg,
		uploader: up,
		spool:    spool,
		encoder:  NewEncoder(),
		now:      time.Now,
	}, nil
}

// Run 은 위 1~3 을 수행한다. 업로드 실패는 spool 로 넘기므로 에러가 아니다.
// 인코딩 / 로컬 파일 읽기 실패만 반환한다.
func (a *Archiver) Run(ctx context.Context, snapshots []SnapshotRecord, csvPath string) error {
	if n, err := a.spool.Drain(ctx); err != nil {
		log.Warn().Err(err).Int("reuploaded", n).Msg("spool drain stopped")
	} else if n > 0 {
		log.Info().Int("reuploaded", n).Msg("spool drained")
	}

	var errs []error

	if len(snapshots) > 0 {
		data, err := a.encoder.EncodeSnapshotsJSONLGZ(snapshots)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode snapshots: %w", err))
		} else {
			a.upload(ctx, "snapshots", "jsonl", data)
		}
	}

	if csvPath != "" {
		if err := a.archiveFile(ctx, csvPath); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (a *Archiver) archiveFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := a.encoder.EncodeReaderGZ(f)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	a.upload(ctx, KindMatches, "csv", data)
	return nil
}

func (a *Archiver) upload(ctx context.Context, kind, ext string, data []byte) {
	now := a.now()
	name := NewFilename(now, a.cfg.InstanceID, kind, ext)
	key := BuildS3Key(a.cfg.ArchivePrefix, kind, now, name)

	if err := a.uploader.UploadBytesWithRetryCtx(ctx, key, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("archive upload failed, saving to spool")
		if err2 := a.spool.Save(key, data); err2 != nil {
			log.Error().Err(err2).Str("key", key).Msg("spool save failed")
		}
		return
	}
	log.Info().Str("key", key).Int("bytes", len(data)).Msg("archive uploaded")
}
