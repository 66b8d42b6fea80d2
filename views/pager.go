package views

import (
	"net/url"
	"strconv"

	"github.com/Dosada05/contest-hub/models"
)

// Pager полоса навигации под таблицей с пагинацией.
type Pager struct {
	Page       int
	TotalPages int
	TotalItems int
	First      int
	Last       int
	Links      []PageLink
	PrevHref   string
	NextHref   string
}

type PageLink struct {
	Number  int
	Href    string
	Current bool
}

// NewPager builds links for p. params are carried over to every link (search terms and
// the like); the page parameter is replaced.
func NewPager[T any](p models.Page[T], basePath string, params url.Values) Pager {
	href := func(n int) string {
		q := url.Values{}
		for k, v := range params {
			if k == "page" {
				continue
			}
			q[k] = v
		}
		if n > 1 {
			q.Set("page", strconv.Itoa(n))
		}
		if enc := q.Encode(); enc != "" {
			return basePath + "?" + enc
		}
		return basePath
	}

	pg := Pager{
		Page:       p.Page,
		TotalPages: p.TotalPages,
		TotalItems: p.TotalItems,
		First:      p.FirstIndex(),
		Last:       p.LastIndex(),
	}
	for _, n := range p.Pages() {
		pg.Links = append(pg.Links, PageLink{Number: n, Href: href(n), Current: n == p.Page})
	}
	if p.HasPrev() {
		pg.PrevHref = href(p.Page - 1)
	}
	if p.HasNext() {
		pg.NextHref = href(p.Page + 1)
	}
	return pg
}

// Multiple стоит ли показывать полосу.
func (p Pager) Multiple() bool {
	return p.TotalPages > 1
}
