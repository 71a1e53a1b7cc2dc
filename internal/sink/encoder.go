package sink

import (
	"io"

	"lolstats/internal/pool"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// Encoder 는 아카이브 업로드용 gzip 직렬화를 담당한다.
//   - 스냅샷 묶음: JSONL → gzip
//   - matches.csv: 파일 내용 그대로 → gzip
//
// 결과는 항상 새 []byte 로 복사해서 반환한다. 풀 버퍼를 그대로 넘기면
// 다음 인코딩에서 내용이 덮어써진다.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// EncodeSnapshotsJSONLGZ 는 스냅샷 레코드를 한 줄에 하나씩 JSON 으로 쓰고 gzip 한다.
func (e *Encoder) EncodeSnapshotsJSONLGZ(records []SnapshotRecord) ([]byte, error) {
	return e.gzip(func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for i := range records {
			if err := enc.Encode(&records[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// EncodeReaderGZ 는 r 의 내용을 그대로 gzip 한다.
func (e *Encoder) EncodeReaderGZ(r io.Reader) ([]byte, error) {
	return e.gzip(func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

func (e *Encoder) gzip(write func(io.Writer) error) ([]byte, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	gz := pool.GzipPool.Get().(*gzip.Writer)
	gz.Reset(buf)
	defer pool.GzipPool.Put(gz)

	if err := write(gz); err != nil {
		_ = gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	return data, nil
}
