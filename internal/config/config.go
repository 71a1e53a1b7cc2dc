// internal/config/config.go
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxAccounts 는 GAME_NAME_n / TAG_LINE_n 으로 설정 가능한 최대 계정 수.
const MaxAccounts = 5

// CSV 출력 모드
const (
	CSVModePerspective  = "perspective"  // 추적 계정 1명 기준 1행
	CSVModeParticipants = "participants" // 매치당 1행, 참가자 10명을 가로로 펼침
)

// Account 는 설정된 Riot ID (게임명 + 태그).
type Account struct {
	GameName string
	TagLine  string
}

func (a Account) String() string {
	return a.GameName + "#" + a.TagLine
}

// Config
//
// 수집기 실행에 필요한 모든 설정 값.
// 프로세스 시작 시 Load() 로 한 번 초기화되고 이후에는 읽기 전용이다.
type Config struct {

	// ---------------------------
	// Riot API
	// ---------------------------

	APIKey             string // RIOT_API_KEY (api_key 쿼리 파라미터로 전송)
	RegionRouting      string // account-v1 라우팅 (예: americas)
	MatchRegionRouting string // match-v5 라우팅, rate limit 예산의 키
	PlatformRouting    string // league-v4 / champion-mastery-v4 플랫폼 (예: na1)
	BaseURLTemplate    string // "%s" 자리에 라우팅 값이 들어간다

	HTTPTimeout       time.Duration
	RetryMaxAttempts  int           // 429 재시도 상한 (0 = 무제한)
	RetryAfterDefault time.Duration // Retry-After 헤더가 없을 때 대기 시간

	// ---------------------------
	// Rate limit (2단계 윈도우)
	// ---------------------------

	ShortLimit  int
	ShortWindow time.Duration
	LongLimit   int
	LongWindow  time.Duration

	// ---------------------------
	// 수집 대상 / 출력
	// ---------------------------

	Accounts        []Account
	MasteryDir      string        // CM_FOLDER
	RankedDir       string        // RANKED_STATS_FOLDER
	MatchesCSV      string        // append-only CSV 경로
	CSVMode         string        // perspective | participants
	MatchType       string        // match-v5 type 필터 (예: ranked), 빈 값이면 전체
	Lookback        time.Duration // 지금 기준 몇 시간 전 매치부터 수집할지
	MinGameDuration int64         // 이 값(초) 미만의 게임은 제외

	// ---------------------------
	// 로그 / 운영
	// ---------------------------

	ServiceName string
	InstanceID  string
	LogLevel    string
	LogPretty   bool
	LogSampleN  uint32
	MetricsAddr string // 비어 있으면 /metrics 서버를 띄우지 않는다

	// ---------------------------
	// S3 아카이브 + 로컬 spool
	// ---------------------------

	ArchiveBucket     string // 비어 있으면 아카이브 비활성화
	AWSRegion         string
	ArchivePrefix     string
	S3Timeout         time.Duration
	S3AppRetries      int
	SpoolDir          string
	SpoolMaxAge       time.Duration
	SpoolMaxSizeBytes int64
}

// ArchiveEnabled 는 S3 아카이브를 수행해야 하는지 여부.
func (c Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// Load
//
// .env 파일(있으면)과 환경 변수에서 Config 를 만든다.
// 필수 값 누락 / 형식 오류는 모두 모아서 하나의 에러로 반환한다.
func Load() (Config, error) {
	// .env 가 없어도 에러가 아니다. 이미 설정된 환경 변수가 우선한다.
	_ = godotenv.Load()

	e := &env{}
	cfg := Config{
		APIKey:             e.must("RIOT_API_KEY"),
		RegionRouting:      e.must("REGION_ROUTING"),
		MatchRegionRouting: e.must("MATCH_REGION_ROUTING"),
		PlatformRouting:    e.must("PLATFORM_ROUTING"),
		BaseURLTemplate:    e.str("API_BASE_URL_TEMPLATE", "https://%s.api.riotgames.com"),

		HTTPTimeout:       e.dur("HTTP_TIMEOUT", 10*time.Second),
		RetryMaxAttempts:  e.int("RETRY_MAX_ATTEMPTS", 0),
		RetryAfterDefault: e.dur("RETRY_AFTER_DEFAULT", 120*time.Second),

		ShortLimit:  e.int("RATE_SHORT_LIMIT", 20),
		ShortWindow: e.dur("RATE_SHORT_WINDOW", time.Second),
		LongLimit:   e.int("RATE_LONG_LIMIT", 100),
		LongWindow:  e.dur("RATE_LONG_WINDOW", 120*time.Second),

		Accounts:        e.accounts(),
		MasteryDir:      e.must("CM_FOLDER"),
		RankedDir:       e.must("RANKED_STATS_FOLDER"),
		MatchesCSV:      e.str("MATCHES_CSV", "matches.csv"),
		CSVMode:         strings.ToLower(e.str("CSV_MODE", CSVModePerspective)),
		MatchType:       e.str("MATCH_TYPE", ""),
		Lookback:        e.dur("LOOKBACK", 30*8*24*time.Hour),
		MinGameDuration: e.int64("MIN_GAME_DURATION", 1000),

		ServiceName: e.str("SERVICE_NAME", "lolstats"),
		InstanceID:  fallbackInstanceID(),
		LogLevel:    e.str("LOG_LEVEL", "info"),
		LogPretty:   e.bool("LOG_PRETTY", true),
		LogSampleN:  uint32(e.int("LOG_SAMPLE_N", 0)),
		MetricsAddr: e.str("METRICS_ADDR", ""),

		ArchiveBucket:     e.str("ARCHIVE_BUCKET", ""),
		AWSRegion:         e.str("AWS_REGION", ""),
		ArchivePrefix:     strings.TrimSuffix(e.str("ARCHIVE_PREFIX", "lolstats"), "/"),
		S3Timeout:         e.dur("S3_TIMEOUT", 10*time.Second),
		S3AppRetries:      e.int("S3_APP_RETRIES", 3),
		SpoolDir:          e.str("SPOOL_DIR", "spool"),
		SpoolMaxAge:       e.dur("SPOOL_MAX_AGE", 7*24*time.Hour),
		SpoolMaxSizeBytes: e.int64("SPOOL_MAX_SIZE_BYTES", 256<<20),
	}

	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad 는 Load 실패 시 즉시 종료한다 (fail-fast).
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("[FATAL] invalid configuration: %v", err)
	}
	return cfg
}

func (c Config) validate() error {
	var errs []error
	if len(c.Accounts) == 0 {
		errs = append(errs, errors.New("no accounts configured (GAME_NAME_1 / TAG_LINE_1)"))
	}
	if c.CSVMode != CSVModePerspective && c.CSVMode != CSVModeParticipants {
		errs = append(errs, fmt.Errorf("invalid CSV_MODE %q", c.CSVMode))
	}
	if c.ShortLimit <= 0 || c.LongLimit <= 0 || c.ShortWindow <= 0 || c.LongWindow <= 0 {
		errs = append(errs, errors.New("rate limit values must be positive"))
	}
	if c.RetryMaxAttempts < 0 {
		errs = append(errs, errors.New("RETRY_MAX_ATTEMPTS must be >= 0"))
	}
	if !strings.Contains(c.BaseURLTemplate, "%s") {
		errs = append(errs, fmt.Errorf("API_BASE_URL_TEMPLATE %q has no %%s", c.BaseURLTemplate))
	}
	if c.ArchiveEnabled() && c.S3AppRetries <= 0 {
		errs = append(errs, errors.New("S3_APP_RETRIES must be > 0 when ARCHIVE_BUCKET is set"))
	}
	return errors.Join(errs...)
}

// env
//
// 환경 변수 파서. 에러를 바로 fatal 하지 않고 모아둔다.
type env struct {
	errs []error
}

func (e *env) must(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		e.errs = append(e.errs, fmt.Errorf("missing required env: %s", key))
	}
	return v
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid int env %s=%q: %w", key, v, err))
		return def
	}
	return n
}

func (e *env) int64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid int64 env %s=%q: %w", key, v, err))
		return def
	}
	return n
}

func (e *env) dur(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid duration env %s=%q: %w", key, v, err))
		return def
	}
	return d
}

func (e *env) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid bool env %s=%q: %w", key, v, err))
		return def
	}
	return b
}

// accounts 는 GAME_NAME_1..5 / TAG_LINE_1..5 를 읽는다.
// 게임명이 비어 있는 슬롯은 건너뛰고, 게임명만 있고 태그가 없으면 에러.
func (e *env) accounts() []Account {
	var out []Account
	for i := 1; i <= MaxAccounts; i++ {
		name := strings.TrimSpace(os.Getenv(fmt.Sprintf("GAME_NAME_%d", i)))
		tag := strings.TrimSpace(os.Getenv(fmt.Sprintf("TAG_LINE_%d", i)))
		if name == "" {
			continue
		}
		if tag == "" {
			e.errs = append(e.errs, fmt.Errorf("GAME_NAME_%d is set but TAG_LINE_%d is empty", i, i))
			continue
		}
		out = append(out, Account{GameName: name, TagLine: tag})
	}
	return out
}

// fallbackInstanceID
//
// 아카이브 파일명에 들어가는 실행 호스트 식별자.
//   - 기본: hostname
//   - fallback: 12자리 랜덤 hex
func fallbackInstanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	var b [6]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
