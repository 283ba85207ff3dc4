package resolver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/address-resolver/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goldenCase một file trong testdata/golden
type goldenCase struct {
	Raw    string `json:"raw"`
	Expect struct {
		Status       parser.Status `json:"status"`
		Reason       parser.Reason `json:"reason"`
		ProvinceCode string        `json:"province_code"`
		WardCode     string        `json:"ward_code"`
		WardName     string        `json:"ward_name"`
	} `json:"expect"`
}

func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "golden", "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	br := newTestResolver(t, 1)
	cat := testCatalog(t)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(file)
			require.NoError(t, err)

			var gc goldenCase
			require.NoError(t, json.Unmarshal(data, &gc))

			row := br.ResolveOne(1, gc.Raw, cat)
			assert.Equal(t, gc.Expect.Status, row.Result.Status)
			assert.Equal(t, gc.Expect.Reason, row.Result.Reason)
			assert.Equal(t, gc.Expect.ProvinceCode, row.Result.ProvinceCode)
			assert.Equal(t, gc.Expect.WardCode, row.Result.WardCode)
			assert.Equal(t, gc.Expect.WardName, row.WardName)
		})
	}
}
