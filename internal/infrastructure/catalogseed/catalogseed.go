// Package catalogseed lee el catálogo base (items, ubicaciones, usuarios y tickets)
// desde un CSV exportado por el sistema de mantenimiento y lo vuelca al almacenamiento
// en memoria o a un script SQL para Postgres.
//
// Formato, una entidad por fila (las líneas que empiezan con # se ignoran):
//
//	item,<id>,<descripción>,<categoría>
//	location,<id>,<nombre>,<código>
//	user,<id>,<nombre>,<email>
//	ticket,<id>,<título>,<estado>
package catalogseed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

const (
	CharsetUTF8   = "utf-8"
	CharsetLatin1 = "iso-8859-1"
)

// Catalog entidades leídas del CSV, en el orden del archivo.
type Catalog struct {
	Items     []*entity.Item
	Locations []*entity.Location
	Users     []*entity.User
	Tickets   []*entity.Ticket
}

// Loader destino del catálogo. memory.Store lo implementa.
type Loader interface {
	AddItem(item *entity.Item) error
	AddLocation(loc *entity.Location) error
	AddUser(user *entity.User) error
	AddTicket(t *entity.Ticket) error
}

// ReadFile abre path y lo decodifica con el charset indicado.
func ReadFile(path, charset string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalogseed: abrir %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, charset)
}

// Read parsea el CSV. Los exportes del sistema legado vienen en ISO-8859-1.
func Read(r io.Reader, charset string) (*Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", CharsetUTF8, "utf8":
	case CharsetLatin1, "iso8859-1", "latin1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("catalogseed: charset no soportado %q", charset)
	}

	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	now := time.Now().UTC()
	cat := &Catalog{}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalogseed: %w", err)
		}
		line++
		if len(rec) < 3 {
			return nil, fmt.Errorf("catalogseed: registro %d: se esperan al menos 3 columnas", line)
		}
		kind := strings.ToLower(strings.TrimSpace(rec[0]))
		id := strings.TrimSpace(rec[1])
		name := strings.TrimSpace(rec[2])
		extra := ""
		if len(rec) > 3 {
			extra = strings.TrimSpace(rec[3])
		}
		if id == "" {
			return nil, fmt.Errorf("catalogseed: registro %d: id vacío", line)
		}
		switch kind {
		case "item":
			cat.Items = append(cat.Items, &entity.Item{ID: id, Description: name, Category: extra, Active: true, CreatedAt: now})
		case "location":
			cat.Locations = append(cat.Locations, &entity.Location{ID: id, Name: name, Code: extra})
		case "user":
			cat.Users = append(cat.Users, &entity.User{ID: id, Name: name, Email: extra, CreatedAt: now})
		case "ticket":
			status := entity.TicketStatus(strings.ToUpper(extra))
			if status == "" {
				status = entity.TicketStatusOpen
			}
			switch status {
			case entity.TicketStatusOpen, entity.TicketStatusInProgress, entity.TicketStatusDone, entity.TicketStatusCanceled:
			default:
				return nil, fmt.Errorf("catalogseed: registro %d: estado de ticket inválido %q", line, extra)
			}
			cat.Tickets = append(cat.Tickets, &entity.Ticket{ID: id, Title: name, Status: status, CreatedAt: now, UpdatedAt: now})
		default:
			return nil, fmt.Errorf("catalogseed: registro %d: tipo desconocido %q", line, rec[0])
		}
	}
	return cat, nil
}

// LoadInto registra todas las entidades en dst.
func (c *Catalog) LoadInto(dst Loader) error {
	for _, it := range c.Items {
		if err := dst.AddItem(it); err != nil {
			return err
		}
	}
	for _, l := range c.Locations {
		if err := dst.AddLocation(l); err != nil {
			return err
		}
	}
	for _, u := range c.Users {
		if err := dst.AddUser(u); err != nil {
			return err
		}
	}
	for _, t := range c.Tickets {
		if err := dst.AddTicket(t); err != nil {
			return err
		}
	}
	return nil
}

// WriteSQL escribe upserts idempotentes para las tablas de catálogo.
func (c *Catalog) WriteSQL(w io.Writer) error {
	var b strings.Builder
	b.WriteString("-- Catálogo base del kardex\n\n")

	if len(c.Items) > 0 {
		b.WriteString("INSERT INTO items (id, description, category, active) VALUES\n")
		for i, it := range c.Items {
			fmt.Fprintf(&b, "  ('%s', '%s', '%s', TRUE)%s\n", escapeSQL(it.ID), escapeSQL(it.Description), escapeSQL(it.Category), sep(i, len(c.Items)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET description = EXCLUDED.description, category = EXCLUDED.category;\n\n")
	}
	if len(c.Locations) > 0 {
		b.WriteString("INSERT INTO locations (id, name, code) VALUES\n")
		for i, l := range c.Locations {
			fmt.Fprintf(&b, "  ('%s', '%s', '%s')%s\n", escapeSQL(l.ID), escapeSQL(l.Name), escapeSQL(l.Code), sep(i, len(c.Locations)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, code = EXCLUDED.code;\n\n")
	}
	if len(c.Users) > 0 {
		b.WriteString("INSERT INTO users (id, name, email) VALUES\n")
		for i, u := range c.Users {
			fmt.Fprintf(&b, "  ('%s', '%s', '%s')%s\n", escapeSQL(u.ID), escapeSQL(u.Name), escapeSQL(u.Email), sep(i, len(c.Users)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email;\n\n")
	}
	if len(c.Tickets) > 0 {
		b.WriteString("INSERT INTO tickets (id, title, status) VALUES\n")
		for i, t := range c.Tickets {
			fmt.Fprintf(&b, "  ('%s', '%s', '%s')%s\n", escapeSQL(t.ID), escapeSQL(t.Title), t.Status, sep(i, len(c.Tickets)))
		}
		// El estado de un ticket existente no se pisa: lo gobierna el cierre.
		b.WriteString("ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title;\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sep(i, n int) string {
	if i < n-1 {
		return ","
	}
	return ""
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
