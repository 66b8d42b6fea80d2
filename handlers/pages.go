package handlers

import "net/http"

// StaticPage рендерит страницу без данных, например about.
func (h *Responder) StaticPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, name, title, nil)
	}
}
