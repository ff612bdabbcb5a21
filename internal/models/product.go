package models

// Lot represents a plot/lot from Odoo (product.template with the custom
// x_* schema extensions used by the sales map).
type Lot struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	DefaultCode  OdooString `json:"default_code"`
	ListPrice    float64    `json:"list_price"`
	QtyAvailable float64    `json:"qty_available"`
	Status       OdooString `json:"x_statu"` // disponible, reservado, vendido, cotizacion
	Area         float64    `json:"x_area"`
	Manzana      OdooString `json:"x_mz"`
	Etapa        OdooString `json:"x_etapa"`
	Lote         OdooString `json:"x_lote"`
	Cliente      OdooString `json:"x_cliente"`
}

// LotFields is the field selection for catalog reads
var LotFields = []string{
	"id", "name", "default_code", "list_price",
	"qty_available", "x_statu", "x_area",
	"x_mz", "x_etapa", "x_lote",
}

// LotStatuses maps portal status names to the ERP's x_statu values
var LotStatuses = map[string]string{
	"libre":      "disponible",
	"separado":   "reservado",
	"reservado":  "reservado",
	"vendido":    "vendido",
	"cotizacion": "cotizacion",
}
