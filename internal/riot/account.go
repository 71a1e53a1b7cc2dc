package riot

import (
	"context"
	"fmt"
	"net/url"

	"lolstats/internal/model"
)

// Account 는 Riot ID (게임명, 태그)를 PUUID 로 변환한다. (account-v1, region 라우팅)
func (c *Client) Account(ctx context.Context, gameName, tagLine string) (model.Account, error) {
	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s",
		url.PathEscape(gameName), url.PathEscape(tagLine))

	var acc model.Account
	if _, err := c.getJSON(ctx, c.routing.Region, path, nil, &acc); err != nil {
		return model.Account{}, err
	}
	if acc.PUUID == "" {
		return model.Account{}, fmt.Errorf("riot: account %s#%s: empty puuid", gameName, tagLine)
	}
	return acc, nil
}

// RankedStats 는 league-v4 entries/by-puuid 를 조회한다. (platform 라우팅)
func (c *Client) RankedStats(ctx context.Context, puuid string) (model.RankedStats, error) {
	path := "/lol/league/v4/entries/by-puuid/" + url.PathEscape(puuid)

	var out model.RankedStats
	raw, err := c.getJSON(ctx, c.routing.Platform, path, nil, &out.Entries)
	if err != nil {
		return model.RankedStats{}, err
	}
	out.Raw = raw
	return out, nil
}

// Masteries 는 champion-mastery-v4 by-puuid 를 조회한다. (platform 라우팅)
func (c *Client) Masteries(ctx context.Context, puuid string) (model.MasterySnapshot, error) {
	path := "/lol/champion-mastery/v4/champion-masteries/by-puuid/" + url.PathEscape(puuid)

	var out model.MasterySnapshot
	raw, err := c.getJSON(ctx, c.routing.Platform, path, nil, &out.Masteries)
	if err != nil {
		return model.MasterySnapshot{}, err
	}
	out.Raw = raw
	return out, nil
}
