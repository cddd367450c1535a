package model

// Table описывает стол зала.
type Table struct {
	ID        string `json:"id"`
	Number    string `json:"tableNumber"`
	Capacity  int    `json:"capacity"`
	Active    bool   `json:"isActive"`
	SessionID string `json:"currentSessionId,omitempty"`
}

// TableView описывает стол вместе с вычисленной занятостью и привязанными заказами.
type TableView struct {
	Table
	Occupied bool    `json:"occupied"`
	Orders   []Order `json:"bills"`
}

// Staff описывает сотрудника, доступного для назначения на заказ.
type Staff struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Shift string `json:"shift,omitempty"`
	Role  string `json:"role,omitempty"`
}
