package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dominv "github.com/jhoicas/kardex-api/internal/domain/inventory"
)

func TestFolioDayPrefix(t *testing.T) {
	day := time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "MR-20250131", dominv.FolioDayPrefix(dominv.DefaultFolioPrefix, day))
}

func TestFolioDayPrefix_UsaDiaUTC(t *testing.T) {
	// 20:30 del 31 en Bogotá (UTC-5) ya es 1 de febrero en UTC
	bogota := time.FixedZone("COT", -5*60*60)
	local := time.Date(2025, 1, 31, 20, 30, 0, 0, bogota)
	assert.Equal(t, "MR-20250201", dominv.FolioDayPrefix(dominv.DefaultFolioPrefix, local))

	// 23:00 UTC del 31 visto desde UTC+3 es el 1 de febrero local, pero el folio sigue en el 31
	moscow := time.FixedZone("MSK", 3*60*60)
	assert.Equal(t, "MR-20250131", dominv.FolioDayPrefix(dominv.DefaultFolioPrefix, time.Date(2025, 2, 1, 2, 0, 0, 0, moscow)))
}

func TestNextFolio(t *testing.T) {
	cases := []struct {
		max  string
		want string
	}{
		{"", "MR-20250131-001"},
		{"MR-20250131-001", "MR-20250131-002"},
		{"MR-20250131-099", "MR-20250131-100"},
		{"MR-20250131-999", "MR-20250131-1000"},
		{"MR-20250131-1000", "MR-20250131-1001"},
	}
	for _, tc := range cases {
		got, err := dominv.NextFolio("MR-20250131", tc.max)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "siguiente de %q", tc.max)
	}
}

func TestNextFolio_Invalido(t *testing.T) {
	_, err := dominv.NextFolio("MR-20250131", "MR-20250130-004")
	assert.Error(t, err, "folio de otro día")

	_, err = dominv.NextFolio("MR-20250131", "MR-20250131-abc")
	assert.Error(t, err, "consecutivo no numérico")
}

func TestFolioSeq(t *testing.T) {
	assert.Equal(t, 7, dominv.FolioSeq("MR-20250131-007"))
	assert.Equal(t, 1000, dominv.FolioSeq("MR-20250131-1000"))
	assert.Equal(t, 0, dominv.FolioSeq("sin-guion-final-x"))
	assert.Equal(t, 0, dominv.FolioSeq("MR"))
}
