// internal/sink/csv.go
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// ErrHeaderMismatch 는 기존 CSV 파일의 헤더가 현재 출력 모드의 컬럼과 다를 때.
// 다른 CSV_MODE 로 만든 파일에 이어 쓰는 것을 막는다.
var ErrHeaderMismatch = errors.New("csv header does not match existing file")

// CSVAppender
//
// append-only CSV. 파일이 없거나 비어 있을 때만 헤더를 쓴다.
// 이전 실행과 겹치는 매치도 중복 제거 없이 그대로 추가된다.
type CSVAppender struct {
	path   string
	header []string

	checked bool // 기존 파일 헤더 검사 완료 여부
}

func NewCSVAppender(path string, header []string) *CSVAppender {
	return &CSVAppender{path: path, header: header}
}

func (a *CSVAppender) Path() string { return a.path }

// Append 는 행 하나를 추가한다. 매 호출마다 열고 닫으므로
// 실행이 중간에 죽어도 이미 추가된 행은 남는다.
func (a *CSVAppender) Append(row []string) error {
	if len(row) != len(a.header) {
		return fmt.Errorf("csv %s: row has %d columns, header has %d", a.path, len(row), len(a.header))
	}
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	writeHeader, err := a.needsHeader()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(a.header); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Write(row); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// needsHeader 는 파일이 없거나 비어 있으면 true.
// 이미 데이터가 있으면 첫 줄이 현재 헤더와 같은지 한 번 확인한다.
func (a *CSVAppender) needsHeader() (bool, error) {
	info, err := os.Stat(a.path)
	if errors.Is(err, os.ErrNotExist) {
		a.checked = true
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		a.checked = true
		return true, nil
	}
	if a.checked {
		return false, nil
	}

	f, err := os.Open(a.path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	existing, err := csv.NewReader(f).Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("csv %s: read header: %w", a.path, err)
	}
	if !slices.Equal(existing, a.header) {
		return false, fmt.Errorf("csv %s: %w", a.path, ErrHeaderMismatch)
	}
	a.checked = true
	return false, nil
}
