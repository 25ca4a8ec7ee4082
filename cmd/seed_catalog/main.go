// seed_catalog genera el script SQL del catálogo base (items, ubicaciones, usuarios y tickets)
// a partir del CSV exportado por el sistema de mantenimiento.
//
// Uso: go run ./cmd/seed_catalog [-charset iso-8859-1] [-out ruta.sql] catalogo.csv
// Por defecto escribe el script en la salida estándar.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jhoicas/kardex-api/internal/infrastructure/catalogseed"
)

func main() {
	charset := flag.String("charset", catalogseed.CharsetUTF8, "codificación del CSV (utf-8 | iso-8859-1)")
	outPath := flag.String("out", "", "archivo SQL de salida (por defecto stdout)")
	flag.Parse()

	csvPath := "catalogo.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}

	cat, err := catalogseed.ReadFile(csvPath, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := cat.WriteSQL(out); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Catálogo: %d items, %d ubicaciones, %d usuarios, %d tickets\n",
		len(cat.Items), len(cat.Locations), len(cat.Users), len(cat.Tickets))
}
