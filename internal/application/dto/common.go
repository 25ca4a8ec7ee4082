package dto

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StockShortageDTO una línea sin existencia suficiente.
type StockShortageDTO struct {
	ItemID     string `json:"item_id"`
	LocationID string `json:"location_id"`
	Available  string `json:"available"`
	Requested  string `json:"requested"`
	Shortfall  string `json:"shortfall"`
}

// InsufficientStockResponse cuerpo 409 cuando una o más líneas no alcanzan.
type InsufficientStockResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Lines   []StockShortageDTO `json:"lines"`
}
