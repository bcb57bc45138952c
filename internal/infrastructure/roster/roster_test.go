package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navwatch/internal/domain/model"
)

func TestParseJSONObjectKeepsOrder(t *testing.T) {
	doc := `{"VESAF": {"name": "VinaCapital Equity"}, "dcds": "Dragon Capital", "BVFED": {}}`
	funds, err := ParseJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []Fund{
		{Code: "VESAF", Name: "VinaCapital Equity"},
		{Code: "DCDS", Name: "Dragon Capital"},
		{Code: "BVFED"},
	}, funds)
}

func TestParseJSONArray(t *testing.T) {
	funds, err := ParseJSON([]byte(`["DCDS", {"code": "vesaf", "name": "V"}, "DCDS"]`))
	require.NoError(t, err)
	assert.Equal(t, []model.FundCode{"DCDS", "VESAF"}, Codes(funds))
}

func TestParseJSONErrors(t *testing.T) {
	for _, doc := range []string{``, `42`, `[]`, `{"": 1}`, `[1]`, `{"A": `} {
		_, err := ParseJSON([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestParseYAML(t *testing.T) {
	funds, err := ParseYAML([]byte("VESAF: VinaCapital\nDCDS:\n  name: Dragon\n"))
	require.NoError(t, err)
	assert.Equal(t, []Fund{{Code: "VESAF", Name: "VinaCapital"}, {Code: "DCDS", Name: "Dragon"}}, funds)

	funds, err = ParseYAML([]byte("funds:\n  - dcds\n  - code: VESAF\n    name: V\n"))
	require.NoError(t, err)
	assert.Equal(t, []model.FundCode{"DCDS", "VESAF"}, Codes(funds))

	_, err = ParseYAML([]byte(""))
	assert.Error(t, err)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "funds.json")
	yamlPath := filepath.Join(dir, "funds.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`["DCDS"]`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte("- VESAF\n"), 0o644))

	funds, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []model.FundCode{"DCDS"}, Codes(funds))

	funds, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []model.FundCode{"VESAF"}, Codes(funds))

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
