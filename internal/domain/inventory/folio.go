package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultFolioPrefix prefijo de las solicitudes de material.
const DefaultFolioPrefix = "MR"

// FolioDayPrefix devuelve el prefijo del día UTC, p. ej. "MR-20250131".
func FolioDayPrefix(prefix string, t time.Time) string {
	return prefix + "-" + t.UTC().Format("20060102")
}

// NextFolio calcula el siguiente folio del día a partir del mayor existente ("" si no hay ninguno).
// El consecutivo se rellena a 3 dígitos; después de 999 crece sin truncar.
func NextFolio(dayPrefix, maxFolio string) (string, error) {
	next := 1
	if maxFolio != "" {
		if !strings.HasPrefix(maxFolio, dayPrefix+"-") {
			return "", fmt.Errorf("folio %q fuera del prefijo %q", maxFolio, dayPrefix)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(maxFolio, dayPrefix+"-"))
		if err != nil {
			return "", fmt.Errorf("consecutivo de folio %q: %w", maxFolio, err)
		}
		next = n + 1
	}
	return fmt.Sprintf("%s-%03d", dayPrefix, next), nil
}

// FolioSeq extrae el consecutivo numérico de un folio; se usa para comparar folios de distinta longitud.
func FolioSeq(folio string) int {
	i := strings.LastIndex(folio, "-")
	if i < 0 {
		return 0
	}
	n, _ := strconv.Atoi(folio[i+1:])
	return n
}
