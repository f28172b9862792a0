package models

type MenuItem struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	ItemKey     string `json:"item_key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image"`
}
