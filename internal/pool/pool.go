package pool

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// ---------------------------------------------------------------
// 아카이브 인코딩(JSONL → gzip, CSV → gzip)에 쓰는 재사용 풀.
// 실행 한 번에 계정 수 × 2 개 정도의 스냅샷과 CSV 하나를 압축하지만,
// spool 재업로드 검증에서도 같은 버퍼를 쓰므로 풀로 묶어둔다.
// ---------------------------------------------------------------

var (
	// BufferPool:
	//   - gzip 결과를 담는 임시 버퍼 (초기 용량 256KB)
	//   - MaxBufferCap 을 넘는 버퍼는 풀로 돌려보내지 않는다
	BufferPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 256*1024))
		},
	}

	// GzipPool:
	//   - gzip.Writer 재사용
	//   - 아카이브는 다시 읽을 일이 적으므로 압축률 우선 (DefaultCompression)
	GzipPool = sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(nil, gzip.DefaultCompression)
			return w
		},
	}
)

// 풀에 되돌려줄 최대 버퍼 용량. matches.csv 는 수 MB 가 될 수 있다.
const MaxBufferCap = 4 * 1024 * 1024 // 4MB

// PutBuffer:
//   - MaxBufferCap 이하이면 Reset 후 풀에 반환
//   - 그보다 크면 GC 에 맡긴다
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= MaxBufferCap {
		buf.Reset()
		BufferPool.Put(buf)
	}
}

// GetBuffer 는 비어 있는 버퍼를 꺼낸다.
func GetBuffer() *bytes.Buffer {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}
