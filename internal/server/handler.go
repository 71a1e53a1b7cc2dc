package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"lolstats/internal/metrics"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	metrics *metrics.Metrics
}

func NewHandler(m *metrics.Metrics) *Handler {
	return &Handler{metrics: m}
}

// Routes
//
//   - /metrics : 수집 실행 중 카운터 (key=value 텍스트)
//   - /health  : 살아 있으면 "ok"
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", h.HandleMetrics)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// HandleMetrics 는 현재 카운터 값을 출력한다.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, h.metrics.String())
}

// Serve
//
// addr 에서 metrics 서버를 띄우고 ctx 가 끝나면 종료한다.
// 수집 실행과 같이 뜨는 부가 서버라서 listen 실패는 반환만 하고
// 실행 중 에러는 로그로 남긴다.
func Serve(ctx context.Context, addr string, h http.Handler) (<-chan struct{}, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server terminated")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("metrics server listening")
	return done, nil
}
