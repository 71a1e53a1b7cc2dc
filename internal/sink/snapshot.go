// internal/sink/snapshot.go
package sink

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// 스냅샷 종류. 아카이브 JSONL 의 "kind" 값과 S3 key 경로에 쓰인다.
const (
	KindRanked  = "ranked"
	KindMastery = "mastery"
	KindMatches = "matches"
)

// SnapshotRecord
// ------------------------------------------------------------
// 한 번의 실행에서 저장한 JSON 스냅샷 1건.
// 아카이브 단계에서 JSONL 한 줄로 직렬화된다.
type SnapshotRecord struct {
	Kind  string          `json:"kind"`
	PUUID string          `json:"puuid"`
	Data  json.RawMessage `json:"data"`
}

// WriteSnapshot 은 raw JSON 을 들여쓰기해서 <dir>/<puuid>.json 에 저장한다.
// 같은 계정의 이전 스냅샷은 덮어쓴다. 임시 파일에 쓴 뒤 rename 하므로
// 중간에 죽어도 반쯤 쓰인 파일이 남지 않는다.
func WriteSnapshot(dir, puuid string, raw []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot dir %s: %w", dir, err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(raw), "", "    "); err != nil {
		return "", fmt.Errorf("snapshot %s: invalid json: %w", puuid, err)
	}
	pretty.WriteByte('\n')

	path := filepath.Join(dir, puuid+".json")
	tmp, err := os.CreateTemp(dir, "."+puuid+"-*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(pretty.Bytes()); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}
