package models

// Page одна страница списка с пагинацией на нашей стороне.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Paginate возвращает страницу с номером от 1. Номер вне диапазона прижимается к краю.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = 10
	}
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// Pages enumerates page numbers for the pager.
func (p Page[T]) Pages() []int {
	out := make([]int, p.TotalPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// FirstIndex and LastIndex describe the "Showing x–y of n" line.
func (p Page[T]) FirstIndex() int {
	if p.TotalItems == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + 1
}

func (p Page[T]) LastIndex() int {
	return (p.Page-1)*p.PageSize + len(p.Items)
}
