package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("RIOT_API_KEY", "RGAPI-test")
	t.Setenv("REGION_ROUTING", "americas")
	t.Setenv("MATCH_REGION_ROUTING", "americas")
	t.Setenv("PLATFORM_ROUTING", "na1")
	t.Setenv("CM_FOLDER", "data/mastery")
	t.Setenv("RANKED_STATS_FOLDER", "data/ranked")
	t.Setenv("GAME_NAME_1", "Faker")
	t.Setenv("TAG_LINE_1", "KR1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "RGAPI-test", cfg.APIKey)
	assert.Equal(t, []Account{{GameName: "Faker", TagLine: "KR1"}}, cfg.Accounts)
	assert.Equal(t, 20, cfg.ShortLimit)
	assert.Equal(t, time.Second, cfg.ShortWindow)
	assert.Equal(t, 100, cfg.LongLimit)
	assert.Equal(t, 120*time.Second, cfg.LongWindow)
	assert.Equal(t, 120*time.Second, cfg.RetryAfterDefault)
	assert.Equal(t, 0, cfg.RetryMaxAttempts)
	assert.Equal(t, int64(1000), cfg.MinGameDuration)
	assert.Equal(t, 240*24*time.Hour, cfg.Lookback)
	assert.Equal(t, "matches.csv", cfg.MatchesCSV)
	assert.Equal(t, CSVModePerspective, cfg.CSVMode)
	assert.False(t, cfg.ArchiveEnabled())
	assert.NotEmpty(t, cfg.InstanceID)
}

func TestLoadAccountsSkipsEmptySlots(t *testing.T) {
	setRequired(t)
	t.Setenv("GAME_NAME_3", "Caps")
	t.Setenv("TAG_LINE_3", "EUW")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "Caps#EUW", cfg.Accounts[1].String())
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]struct {
		env  map[string]string
		want string
	}{
		"missing api key": {
			env:  map[string]string{"RIOT_API_KEY": ""},
			want: "RIOT_API_KEY",
		},
		"name without tag": {
			env:  map[string]string{"GAME_NAME_2": "Solo"},
			want: "TAG_LINE_2",
		},
		"bad duration": {
			env:  map[string]string{"LOOKBACK": "eight months"},
			want: "LOOKBACK",
		},
		"bad csv mode": {
			env:  map[string]string{"CSV_MODE": "wide"},
			want: "CSV_MODE",
		},
		"no accounts": {
			env:  map[string]string{"GAME_NAME_1": "", "TAG_LINE_1": ""},
			want: "no accounts",
		},
		"negative retries": {
			env:  map[string]string{"RETRY_MAX_ATTEMPTS": "-1"},
			want: "RETRY_MAX_ATTEMPTS",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadParticipantsMode(t *testing.T) {
	setRequired(t)
	t.Setenv("CSV_MODE", "Participants")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("ARCHIVE_BUCKET", "bucket")
	t.Setenv("ARCHIVE_PREFIX", "raw/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, CSVModeParticipants, cfg.CSVMode)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.True(t, cfg.ArchiveEnabled())
	assert.Equal(t, "raw", cfg.ArchivePrefix)
}
