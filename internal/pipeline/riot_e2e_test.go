package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lolstats/internal/metrics"
	"lolstats/internal/riot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matchJSON = `{
	"metadata": {"matchId": "KR_1", "participants": ["puuid-faker"]},
	"info": {
		"gameId": 1, "gameDuration": 1700, "gameMode": "CLASSIC", "mapId": 11,
		"participants": [
			{"puuid": "puuid-faker", "teamId": 100, "win": false, "championName": "Azir", "kills": 3}
		]
	}
}`

// 실제 riot.Client 와 httptest 서버로 한 계정 전체 흐름을 돈다.
func TestRunWithRiotClient(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/asia/riot/account/v1/accounts/by-riot-id/"):
			_, _ = w.Write([]byte(`{"puuid":"puuid-faker","gameName":"Faker","tagLine":"KR1"}`))
		case strings.HasPrefix(r.URL.Path, "/kr/lol/league/v4/entries/by-puuid/"):
			_, _ = w.Write([]byte(`[{"queueType":"RANKED_SOLO_5x5","tier":"CHALLENGER"}]`))
		case strings.HasPrefix(r.URL.Path, "/kr/lol/champion-mastery/v4/"):
			_, _ = w.Write([]byte(`[{"championId":268,"championLevel":7,"championPoints":500000}]`))
		case strings.HasSuffix(r.URL.Path, "/ids"):
			if r.URL.Query().Get("start") == "0" {
				_, _ = w.Write([]byte(`["KR_1"]`))
				return
			}
			_, _ = w.Write([]byte(`[]`))
		case r.URL.Path == "/asia/lol/match/v5/matches/KR_1":
			_, _ = w.Write([]byte(matchJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.APIKey = "RGAPI-test"
	cfg.RegionRouting = "asia"
	cfg.MatchRegionRouting = "asia"
	cfg.PlatformRouting = "kr"
	cfg.BaseURLTemplate = srv.URL + "/%s"
	cfg.HTTPTimeout = 5 * time.Second
	cfg.ShortLimit, cfg.ShortWindow = 20, time.Second
	cfg.LongLimit, cfg.LongWindow = 100, 120*time.Second

	m := metrics.New()
	client := riot.NewClient(cfg, m, riot.WithHTTPClient(srv.Client()))

	p, err := New(cfg, client, m, &bytes.Buffer{})
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, paths, 6, "account, ranked, mastery, two id pages, one match")
	assert.Equal(t, int64(6), m.APIRequestsTotal)
	require.Len(t, res.Accounts, 1)
	assert.Equal(t, 1, res.Accounts[0].Appended)

	records := readCSV(t, cfg.MatchesCSV)
	require.Len(t, records, 2)
	header, row := records[0], records[1]
	assert.Equal(t, "Azir", row[column(t, header, "championName")])
	assert.Equal(t, "False", row[column(t, header, "win")])
	assert.Equal(t, "NA", row[column(t, header, "gameType")])
	assert.Equal(t, "0", row[column(t, header, "gameStartTimestamp")])
}
