package model

// Category описывает раздел меню.
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Sort int    `json:"sortOrder"`
}

// MenuItem описывает позицию меню.
type MenuItem struct {
	ID          string  `json:"id,omitempty"`
	CategoryID  string  `json:"categoryId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Available   bool    `json:"isAvailable"`
	Veg         bool    `json:"isVeg"`
}

// Menu содержит разделы и позиции меню ресторана.
type Menu struct {
	Categories []Category `json:"categories"`
	Items      []MenuItem `json:"items"`
}
