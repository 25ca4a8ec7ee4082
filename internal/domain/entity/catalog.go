package entity

import "time"

// Item artículo del catálogo. El ledger solo necesita existencia y descripción para mostrar.
type Item struct {
	ID          string
	Description string
	Category    string
	Active      bool
	CreatedAt   time.Time
}

// Location almacén o ubicación física donde se guarda inventario.
type Location struct {
	ID   string
	Name string
	Code string
}
