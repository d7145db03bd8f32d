package domain

type Page struct {
	Number int `json:"page"`
	Size   int `json:"limit"`
}

// NewPage clamps the requested page into [1, ...] and the size into [1, max].
func NewPage(number, size, def, max int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = def
	}
	if size > max {
		size = max
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type PageResult[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func NewPageResult[T any](items []T, total int, p Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = (total + p.Size - 1) / p.Size
	}
	return PageResult[T]{Items: items, Total: total, Page: p.Number, Limit: p.Size, TotalPages: pages}
}
