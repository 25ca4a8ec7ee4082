package entity

import "time"

// User usuario que actúa sobre el inventario (técnico, almacenista).
// La autenticación vive fuera de este servicio; aquí solo se valida que exista.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}
