package pipeline

import (
	"fmt"
	"strconv"

	"lolstats/internal/config"
	"lolstats/internal/model"
)

// 응답에 값이 없을 때 문자열 컬럼에 채우는 값.
const missing = "NA"

// maxParticipants 는 participants 모드에서 펼치는 참가자 슬롯 수.
const maxParticipants = 10

// Flattener 는 매치 1건을 CSV 행으로 바꾼다.
// 입력 매치는 수정하지 않는다.
type Flattener interface {
	Header() []string
	// Rows 가 빈 slice 를 반환하면 이 매치는 CSV 에 쓰지 않는다.
	Rows(matchID, puuid string, m *model.Match) [][]string
}

// NewFlattener 는 CSV_MODE 에 맞는 Flattener 를 만든다.
func NewFlattener(mode string) (Flattener, error) {
	switch mode {
	case config.CSVModePerspective, "":
		return perspective{}, nil
	case config.CSVModeParticipants:
		return participants{}, nil
	default:
		return nil, fmt.Errorf("unknown csv mode %q", mode)
	}
}

var gameHeader = []string{
	"gameId", "gameStartTimestamp", "gameDuration", "gameMode",
	"gameType", "gameVersion", "mapId",
}

func gameColumns(info model.MatchInfo) []string {
	return []string{
		strconv.FormatInt(info.GameID, 10),
		strconv.FormatInt(info.GameStartTimestamp, 10),
		strconv.FormatInt(info.GameDuration, 10),
		str(info.GameMode),
		str(info.GameType),
		str(info.GameVersion),
		strconv.Itoa(info.MapID),
	}
}

// perspective: 추적 중인 계정 1명 기준, 매치당 1행.
type perspective struct{}

var perspectiveStats = []string{
	"teamId", "win", "timePlayed",
	"championName", "champExperience", "champLevel",
	"kills", "deaths", "assists", "kda",
	"doubleKills", "tripleKills", "quadraKills", "pentaKills",
	"largestKillingSpree", "largestMultiKill",
	"totalDamageDealt", "totalDamageDealtToChampions", "damageSelfMitigated",
	"totalDamageTaken", "physicalDamageDealtToChampions", "magicDamageDealtToChampions",
	"trueDamageDealtToChampions", "teamDamagePercentage",
	"goldEarned", "goldSpent", "goldPerMinute",
	"visionScore", "wardsPlaced", "wardsKilled", "wardTakedowns", "controlWardsPlaced",
	"turretKills", "inhibitorKills", "dragonKills", "baronKills",
	"timeCCingOthers", "totalTimeCCDealt", "totalHeal", "tookLargeDamageSurvived",
	"lane", "role",
}

func (perspective) Header() []string {
	h := []string{"matchId", "puuid"}
	h = append(h, gameHeader...)
	return append(h, perspectiveStats...)
}

func (perspective) Rows(matchID, puuid string, m *model.Match) [][]string {
	p := m.FindParticipant(puuid)
	if p == nil {
		return nil
	}

	kda := p.KDA
	if kda == 0 {
		kda = p.Challenges.KDA
	}

	row := []string{matchID, puuid}
	row = append(row, gameColumns(m.Info)...)
	row = append(row,
		optInt(p.TeamID),
		optBool(p.Win),
		i64(p.TimePlayed),
		str(p.ChampionName),
		i64(p.ChampExperience),
		strconv.Itoa(p.ChampLevel),
		strconv.Itoa(p.Kills),
		strconv.Itoa(p.Deaths),
		strconv.Itoa(p.Assists),
		f64(kda),
		strconv.Itoa(p.DoubleKills),
		strconv.Itoa(p.TripleKills),
		strconv.Itoa(p.QuadraKills),
		strconv.Itoa(p.PentaKills),
		strconv.Itoa(p.LargestKillingSpree),
		strconv.Itoa(p.LargestMultiKill),
		i64(p.TotalDamageDealt),
		i64(p.TotalDamageDealtToChampions),
		i64(p.DamageSelfMitigated),
		i64(p.TotalDamageTaken),
		i64(p.PhysicalDamageDealtToChampions),
		i64(p.MagicDamageDealtToChampions),
		i64(p.TrueDamageDealtToChampions),
		f64(p.Challenges.TeamDamagePercentage),
		i64(p.GoldEarned),
		i64(p.GoldSpent),
		f64(p.Challenges.GoldPerMinute),
		strconv.Itoa(p.VisionScore),
		strconv.Itoa(p.WardsPlaced),
		strconv.Itoa(p.WardsKilled),
		f64(p.Challenges.WardTakedowns),
		f64(p.Challenges.ControlWardsPlaced),
		strconv.Itoa(p.TurretKills),
		strconv.Itoa(p.InhibitorKills),
		strconv.Itoa(p.DragonKills),
		strconv.Itoa(p.BaronKills),
		i64(p.TimeCCingOthers),
		i64(p.TotalTimeCCDealt),
		i64(p.TotalHeal),
		f64(p.Challenges.TookLargeDamageSurvived),
		str(p.Lane),
		str(p.Role),
	)
	return [][]string{row}
}

// participants: 매치당 1행, 참가자 10명의 챔피언/팀/포지션을 가로로 펼친다.
type participants struct{}

var participantFields = []string{"puuid", "championName", "teamId", "teamPosition", "win"}

func (participants) Header() []string {
	h := []string{"matchId"}
	h = append(h, gameHeader...)
	for n := 1; n <= maxParticipants; n++ {
		for _, f := range participantFields {
			h = append(h, fmt.Sprintf("p%d_%s", n, f))
		}
	}
	return h
}

func (participants) Rows(matchID, _ string, m *model.Match) [][]string {
	row := []string{matchID}
	row = append(row, gameColumns(m.Info)...)
	for n := 0; n < maxParticipants; n++ {
		if n >= len(m.Info.Participants) {
			row = append(row, missing, missing, "", missing, "")
			continue
		}
		p := m.Info.Participants[n]
		row = append(row,
			str(p.PUUID),
			str(p.ChampionName),
			optInt(p.TeamID),
			str(p.TeamPosition),
			optBool(p.Win),
		)
	}
	return [][]string{row}
}

func str(s string) string {
	if s == "" {
		return missing
	}
	return s
}

func i64(n int64) string { return strconv.FormatInt(n, 10) }

func f64(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// optInt / optBool: 값이 없으면 빈 칸 (null).
func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// 기존 matches.csv 와 같은 True/False 표기를 쓴다.
func optBool(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "True"
	}
	return "False"
}
