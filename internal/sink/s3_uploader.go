// internal/sink/s3_uploader.go
package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"lolstats/internal/config"
	"lolstats/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfgLib "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter 는 S3Uploader 가 사용하는 s3.Client 메서드. 테스트에서 가짜로 바꾼다.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader
//
// gzip 아카이브 바이트를 ARCHIVE_BUCKET 으로 올린다.
// SDK 자체 retry 는 끄고 (NopRetryer) 재시도 횟수는
// S3_APP_RETRIES 하나로만 제어한다. 시도마다 S3_TIMEOUT 을 건다.
type S3Uploader struct {
	cfg     config.Config
	metrics *metrics.Metrics
	client  ObjectPutter

	backoff    time.Duration // 첫 재시도 대기
	maxBackoff time.Duration
}

// NewS3Uploader 는 기본 AWS 자격 증명 체인으로 s3.Client 를 만든다.
func NewS3Uploader(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*S3Uploader, error) {
	var opts []func(*awsCfgLib.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsCfgLib.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsCfgLib.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	// RetryMaxAttempts=0 은 SDK 기본값(3회)이라 retryer 자체를 끈다.
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
	})
	return NewS3UploaderWithClient(cfg, m, client), nil
}

func NewS3UploaderWithClient(cfg config.Config, m *metrics.Metrics, client ObjectPutter) *S3Uploader {
	return &S3Uploader{
		cfg:        cfg,
		metrics:    m,
		client:     client,
		backoff:    200 * time.Millisecond,
		maxBackoff: 2 * time.Second,
	}
}

// UploadBytesWithRetryCtx
//
// body 를 key 로 업로드한다. 실패하면 backoff 를 두 배씩 늘리며 (최대 maxBackoff)
// S3AppRetries 번까지 시도하고 마지막 에러를 반환한다.
// 매 시도마다 bytes.Reader 를 새로 만든다.
func (u *S3Uploader) UploadBytesWithRetryCtx(ctx context.Context, key string, body []byte) error {
	var lastErr error
	backoff := u.backoff
	attempts := u.cfg.S3AppRetries
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := u.putObject(ctx, key, body)
		if err == nil {
			atomic.AddInt64(&u.metrics.ArchiveUploadsTotal, 1)
			return nil
		}
		lastErr = err
		atomic.AddInt64(&u.metrics.ArchivePutErrorsTotal, 1)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > u.maxBackoff {
				backoff = u.maxBackoff
			}
		}
	}
	return fmt.Errorf("s3 put %s: %w", key, lastErr)
}

// putObject 는 PutObject 1회. 시도당 timeout 은 S3Timeout.
func (u *S3Uploader) putObject(ctx context.Context, key string, body []byte) error {
	timeout := u.cfg.S3Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := u.client.PutObject(ctx2, &s3.PutObjectInput{
		Bucket:          aws.String(u.cfg.ArchiveBucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentLength:   aws.Int64(int64(len(body))),
		ContentEncoding: aws.String("gzip"),
	})
	return err
}
