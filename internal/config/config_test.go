package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/SigHunter/pkg/search"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sighunter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, search.DefaultAlphabet, cfg.Search.Alphabet)
	assert.Equal(t, 6, cfg.Search.MaxLen)
	assert.Equal(t, 7, cfg.Search.DeepenTo)
	assert.Equal(t, 2, cfg.Search.Concurrent)

	model, err := cfg.CostModel()
	require.NoError(t, err)
	assert.Equal(t, "2000000000000", model.WeiPerGigaHash.String())
	assert.Equal(t, "300000000000000", model.SubmitCost.String())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
search:
  alphabet: "abc_"
  max_len: 4
  deepen_to: 5
  concurrent_searches: 3
cost:
  submit_cost: "42"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc_", cfg.Search.Alphabet)
	assert.Equal(t, 4, cfg.Search.MaxLen)
	assert.Equal(t, 5, cfg.Search.DeepenTo)
	assert.Equal(t, 3, cfg.Search.Concurrent)
	assert.Equal(t, 4, cfg.AlphabetSet().Len())

	// untouched fields keep their defaults
	model, err := cfg.CostModel()
	require.NoError(t, err)
	assert.Equal(t, "2000000000000", model.WeiPerGigaHash.String())
	assert.Equal(t, "42", model.SubmitCost.String())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero max_len":        "search:\n  max_len: 0\n",
		"deepen below bound":  "search:\n  max_len: 6\n  deepen_to: 3\n",
		"zero concurrency":    "search:\n  concurrent_searches: 0\n",
		"invalid alphabet":    "search:\n  alphabet: \"a(b\"\n",
		"duplicate alphabet":  "search:\n  alphabet: \"aab\"\n",
		"malformed yaml":      "search: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCostModelRejectsNonIntegers(t *testing.T) {
	cfg := Default()
	cfg.Cost.WeiPerGigaHash = "1.5e9"
	_, err := cfg.CostModel()
	assert.Error(t, err)

	cfg = Default()
	cfg.Cost.SubmitCost = "-1"
	_, err = cfg.CostModel()
	assert.Error(t, err)
}
