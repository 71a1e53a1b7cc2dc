package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"lolstats/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// fakePutter 는 처음 failFirst 번의 PutObject 를 실패시키는 가짜 S3.
type fakePutter struct {
	mu        sync.Mutex
	failFirst int
	failAll   bool
	calls     int
	objects   map[string][]byte
}

func (p *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failAll || p.calls <= p.failFirst {
		return nil, errors.New("s3 unavailable")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if p.objects == nil {
		p.objects = map[string][]byte{}
	}
	p.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (p *fakePutter) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.objects))
	for k := range p.objects {
		keys = append(keys, k)
	}
	return keys
}

func (p *fakePutter) SetFailAll(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAll = v
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		InstanceID:        "host1",
		ArchiveBucket:     "bucket",
		ArchivePrefix:     "lolstats",
		S3Timeout:         time.Second,
		S3AppRetries:      3,
		SpoolDir:          t.TempDir(),
		SpoolMaxAge:       24 * time.Hour,
		SpoolMaxSizeBytes: 1 << 20,
	}
}

func fastUploader(cfg config.Config, p *fakePutter) *S3Uploader {
	u := NewS3UploaderWithClient(cfg, newMetrics(), p)
	u.backoff = time.Millisecond
	u.maxBackoff = 2 * time.Millisecond
	return u
}

func gunzip(t *testing.T, data []byte) string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()
	out, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(out)
}

func gzipString(t *testing.T, s string) []byte {
	t.Helper()
	data, err := NewEncoder().EncodeReaderGZ(bytes.NewReader([]byte(s)))
	require.NoError(t, err)
	return data
}
