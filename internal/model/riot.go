// internal/model/riot.go
package model

import (
	json "github.com/goccy/go-json"
)

// Account
// ------------------------------------------------------------
// account-v1 by-riot-id 응답.
// PUUID 는 이후 ranked / mastery / match 조회의 키가 된다.
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// LeagueEntry 는 league-v4 entries/by-puuid 응답의 원소 (큐 하나).
type LeagueEntry struct {
	LeagueID     string `json:"leagueId"`
	PUUID        string `json:"puuid"`
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	HotStreak    bool   `json:"hotStreak"`
	Veteran      bool   `json:"veteran"`
	FreshBlood   bool   `json:"freshBlood"`
	Inactive     bool   `json:"inactive"`
}

// ChampionMastery 는 champion-mastery-v4 by-puuid 응답의 원소.
type ChampionMastery struct {
	PUUID                        string `json:"puuid"`
	ChampionID                   int    `json:"championId"`
	ChampionLevel                int    `json:"championLevel"`
	ChampionPoints               int64  `json:"championPoints"`
	LastPlayTime                 int64  `json:"lastPlayTime"`
	ChampionPointsSinceLastLevel int64  `json:"championPointsSinceLastLevel"`
	ChampionPointsUntilNextLevel int64  `json:"championPointsUntilNextLevel"`
	TokensEarned                 int    `json:"tokensEarned"`
}

// RankedStats
// ------------------------------------------------------------
// 디코딩된 엔트리와 원본 응답 바이트를 함께 보관한다.
// JSON 스냅샷은 Raw 를 그대로 저장하므로 모르는 필드도 잃지 않는다.
type RankedStats struct {
	Entries []LeagueEntry
	Raw     json.RawMessage
}

// MasterySnapshot 은 RankedStats 와 같은 방식으로 mastery 응답을 보관한다.
type MasterySnapshot struct {
	Masteries []ChampionMastery
	Raw       json.RawMessage
}

// Match
// ------------------------------------------------------------
// match-v5 matches/{matchId} 응답 중 CSV 로 펼치는 데 필요한 부분.
// 한 번 받아온 뒤에는 수정하지 않는다 (flatten 은 새 행을 만든다).
type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

type MatchInfo struct {
	GameID             int64         `json:"gameId"`
	GameStartTimestamp int64         `json:"gameStartTimestamp"`
	GameDuration       int64         `json:"gameDuration"`
	GameMode           string        `json:"gameMode"`
	GameType           string        `json:"gameType"`
	GameVersion        string        `json:"gameVersion"`
	MapID              int           `json:"mapId"`
	QueueID            int           `json:"queueId"`
	Participants       []Participant `json:"participants"`
}

// Participant
//
// TeamID / Win 은 응답에 없을 때 CSV 에 빈 칸(null)으로 남기기 위해 포인터.
// 나머지 숫자 필드는 없으면 0, 문자열은 flatten 단계에서 "NA" 로 채운다.
type Participant struct {
	PUUID           string `json:"puuid"`
	TeamID          *int   `json:"teamId"`
	Win             *bool  `json:"win"`
	TimePlayed      int64  `json:"timePlayed"`
	TeamPosition    string `json:"teamPosition"`
	Lane            string `json:"lane"`
	Role            string `json:"role"`
	ChampionID      int    `json:"championId"`
	ChampionName    string `json:"championName"`
	ChampExperience int64  `json:"champExperience"`
	ChampLevel      int    `json:"champLevel"`

	Kills               int     `json:"kills"`
	Deaths              int     `json:"deaths"`
	Assists             int     `json:"assists"`
	KDA                 float64 `json:"kda"`
	DoubleKills         int     `json:"doubleKills"`
	TripleKills         int     `json:"tripleKills"`
	QuadraKills         int     `json:"quadraKills"`
	PentaKills          int     `json:"pentaKills"`
	LargestKillingSpree int     `json:"largestKillingSpree"`
	LargestMultiKill    int     `json:"largestMultiKill"`

	TotalDamageDealt               int64 `json:"totalDamageDealt"`
	TotalDamageDealtToChampions    int64 `json:"totalDamageDealtToChampions"`
	DamageSelfMitigated            int64 `json:"damageSelfMitigated"`
	TotalDamageTaken               int64 `json:"totalDamageTaken"`
	PhysicalDamageDealtToChampions int64 `json:"physicalDamageDealtToChampions"`
	MagicDamageDealtToChampions    int64 `json:"magicDamageDealtToChampions"`
	TrueDamageDealtToChampions     int64 `json:"trueDamageDealtToChampions"`

	GoldEarned int64 `json:"goldEarned"`
	GoldSpent  int64 `json:"goldSpent"`

	VisionScore int `json:"visionScore"`
	WardsPlaced int `json:"wardsPlaced"`
	WardsKilled int `json:"wardsKilled"`

	TurretKills    int `json:"turretKills"`
	InhibitorKills int `json:"inhibitorKills"`
	DragonKills    int `json:"dragonKills"`
	BaronKills     int `json:"baronKills"`

	TimeCCingOthers  int64 `json:"timeCCingOthers"`
	TotalTimeCCDealt int64 `json:"totalTimeCCDealt"`
	TotalHeal        int64 `json:"totalHeal"`

	Challenges Challenges `json:"challenges"`
}

// Challenges 는 participant.challenges 중 사용하는 값만. 전부 float 로 받는다.
type Challenges struct {
	KDA                     float64 `json:"kda"`
	TeamDamagePercentage    float64 `json:"teamDamagePercentage"`
	GoldPerMinute           float64 `json:"goldPerMinute"`
	WardTakedowns           float64 `json:"wardTakedowns"`
	ControlWardsPlaced      float64 `json:"controlWardsPlaced"`
	TookLargeDamageSurvived float64 `json:"tookLargeDamageSurvived"`
}

// FindParticipant 는 puuid 에 해당하는 참가자를 찾는다. 없으면 nil.
func (m *Match) FindParticipant(puuid string) *Participant {
	for i := range m.Info.Participants {
		if m.Info.Participants[i].PUUID == puuid {
			return &m.Info.Participants[i]
		}
	}
	return nil
}
