package catalogseed

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

const sample = `# catálogo de prueba
item,ITM-1,Cable THW 12,Eléctrico
item,ITM-2,Cinta aislante,
location,LOC-A,Almacén central,AC
user,USR-1,Juan Pérez,juan@example.com
ticket,TCK-1,Cambio de luminarias,in_progress
ticket,TCK-2,Fuga en baño,
`

type recorder struct {
	items     []*entity.Item
	locations []*entity.Location
	users     []*entity.User
	tickets   []*entity.Ticket
}

func (r *recorder) AddItem(i *entity.Item) error { r.items = append(r.items, i); return nil }
func (r *recorder) AddLocation(l *entity.Location) error { r.locations = append(r.locations, l); return nil }
func (r *recorder) AddUser(u *entity.User) error { r.users = append(r.users, u); return nil }
func (r *recorder) AddTicket(t *entity.Ticket) error { r.tickets = append(r.tickets, t); return nil }

func TestRead_UTF8(t *testing.T) {
	cat, err := Read(strings.NewReader(sample), CharsetUTF8)
	require.NoError(t, err)

	require.Len(t, cat.Items, 2)
	assert.Equal(t, "Cable THW 12", cat.Items[0].Description)
	assert.Equal(t, "Eléctrico", cat.Items[0].Category)
	assert.True(t, cat.Items[0].Active)
	require.Len(t, cat.Locations, 1)
	assert.Equal(t, "AC", cat.Locations[0].Code)
	require.Len(t, cat.Users, 1)
	assert.Equal(t, "juan@example.com", cat.Users[0].Email)
	require.Len(t, cat.Tickets, 2)
	assert.Equal(t, entity.TicketStatusInProgress, cat.Tickets[0].Status)
	assert.Equal(t, entity.TicketStatusOpen, cat.Tickets[1].Status)
}

func TestRead_Latin1(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String("location,LOC-B,Bodega Señalización,BS\n")
	require.NoError(t, err)

	cat, err := Read(strings.NewReader(encoded), CharsetLatin1)
	require.NoError(t, err)
	require.Len(t, cat.Locations, 1)
	assert.Equal(t, "Bodega Señalización", cat.Locations[0].Name)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(strings.NewReader("item,A,B\n"), "ebcdic")
	assert.Error(t, err)

	_, err = Read(strings.NewReader("pallet,A,B\n"), CharsetUTF8)
	assert.ErrorContains(t, err, "tipo desconocido")

	_, err = Read(strings.NewReader("item,,B\n"), CharsetUTF8)
	assert.ErrorContains(t, err, "id vacío")

	_, err = Read(strings.NewReader("ticket,T,B,ARCHIVED\n"), CharsetUTF8)
	assert.ErrorContains(t, err, "estado de ticket inválido")
}

func TestLoadInto(t *testing.T) {
	cat, err := Read(strings.NewReader(sample), CharsetUTF8)
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, cat.LoadInto(rec))
	assert.Len(t, rec.items, 2)
	assert.Len(t, rec.locations, 1)
	assert.Len(t, rec.users, 1)
	assert.Len(t, rec.tickets, 2)
}

func TestWriteSQL(t *testing.T) {
	cat, err := Read(strings.NewReader("item,ITM-9,Llave 1/2' inglesa,Herramienta\n"), CharsetUTF8)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cat.WriteSQL(&buf))
	out := buf.String()
	assert.Contains(t, out, "INSERT INTO items (id, description, category, active) VALUES")
	assert.Contains(t, out, "('ITM-9', 'Llave 1/2'' inglesa', 'Herramienta', TRUE)")
	assert.Contains(t, out, "ON CONFLICT (id) DO UPDATE")
	assert.NotContains(t, out, "INSERT INTO locations")
}
