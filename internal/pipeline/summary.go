package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"lolstats/internal/model"

	"github.com/olekukonko/tablewriter"
)

// topMasteries 는 콘솔 표에 보여줄 챔피언 수.
const topMasteries = 10

// AccountResult 는 계정 1개의 처리 결과. 실행 종료 시 요약 표의 한 행이 된다.
type AccountResult struct {
	Account  string
	PUUID    string
	Queues   []string // ranked 엔트리의 queueType
	MatchIDs int
	Appended int
	Skipped  int
}

func writeMasteryTable(w io.Writer, account string, masteries []model.ChampionMastery) {
	top := make([]model.ChampionMastery, len(masteries))
	copy(top, masteries)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].ChampionPoints > top[j].ChampionPoints
	})
	if len(top) > topMasteries {
		top = top[:topMasteries]
	}

	fmt.Fprintf(w, "Champion Mastery: %s\n", account)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"champion", "level", "points"})
	for _, m := range top {
		table.Append([]string{
			strconv.Itoa(m.ChampionID),
			strconv.Itoa(m.ChampionLevel),
			strconv.FormatInt(m.ChampionPoints, 10),
		})
	}
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	table.Render()
}

func writeRunSummary(w io.Writer, results []AccountResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"account", "puuid", "ranked", "match ids", "appended", "skipped"})
	for _, r := range results {
		queues := "-"
		if len(r.Queues) > 0 {
			queues = strings.Join(r.Queues, ",")
		}
		table.Append([]string{
			r.Account,
			shortPUUID(r.PUUID),
			queues,
			strconv.Itoa(r.MatchIDs),
			strconv.Itoa(r.Appended),
			strconv.Itoa(r.Skipped),
		})
	}
	table.Render()
}

// puuid 는 78자라 표에서는 앞부분만.
func shortPUUID(p string) string {
	if len(p) <= 12 {
		return p
	}
	return p[:12] + "…"
}
