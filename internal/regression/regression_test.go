package regression

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-hud-stats/internal/parser"
)

func TestFixturesMatch(t *testing.T) {
	rep, err := Run(parser.NewRegistry(), "winamax", filepath.Join("testdata", "winamax"))
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Files)
	assert.Equal(t, 2, rep.Hands)
	for _, m := range rep.Mismatches {
		t.Errorf("mismatch: %s", m)
	}
}

func copyFixture(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "winamax", name))
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestWrongExpectationsLandInHistogram(t *testing.T) {
	dir := t.TempDir()
	p := copyFixture(t, dir, "cash_cbet.txt")
	require.NoError(t, os.WriteFile(p+playersExt, []byte(`{
		"Carol": {"street0VPI": false, "totalProfit": 17, "noSuchColumn": 1},
		"Zed": {"street0VPI": true}
	}`), 0o644))
	require.NoError(t, os.WriteFile(p+handsExt, []byte(`{"seats": 6}`), 0o644))

	rep, err := Run(parser.NewRegistry(), "winamax", dir)
	require.NoError(t, err)

	require.Equal(t, 4, rep.Errors())
	assert.Equal(t, 4, rep.ByFile[p])
	assert.Equal(t, 1, rep.ByStat["street0VPI"])
	assert.Equal(t, 1, rep.ByStat["noSuchColumn"])
	assert.Equal(t, 1, rep.ByStat["player"])
	assert.Equal(t, 1, rep.ByStat["seats"])

	var vpip Mismatch
	for _, m := range rep.Mismatches {
		if m.Stat == "street0VPI" {
			vpip = m
		}
	}
	assert.Equal(t, "Carol", vpip.Player)
	assert.Equal(t, "false", vpip.Want)
	assert.Equal(t, "1", vpip.Got)
}

func TestParseFailureIsCounted(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "junk.txt")
	require.NoError(t, os.WriteFile(p, []byte("PokerStars Hand #1: not a winamax hand\n"), 0o644))

	rep, err := Run(parser.NewRegistry(), "winamax", dir)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Errors())
	assert.Equal(t, "Parse", rep.Mismatches[0].Stat)
	assert.Equal(t, []Counts{{Key: "Parse", Count: 1}}, rep.StatCounts())
}

func TestUnknownSite(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "cash_cbet.txt")
	_, err := Run(parser.NewRegistry(), "nosuchsite", dir)
	assert.Error(t, err)
}
