package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
)

type ContestHandler struct {
	contestService services.ContestService
	*Responder
}

func NewContestHandler(cs services.ContestService, resp *Responder) *ContestHandler {
	return &ContestHandler{contestService: cs, Responder: resp}
}

// Home обрабатывает GET /
func (h *ContestHandler) Home(w http.ResponseWriter, r *http.Request) {
	// секции независимы: ошибка одной не отменяет другую
	var (
		data              views.HomeData
		popErr, winnerErr error
		wg                sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		data.Popular, popErr = h.contestService.Popular(r.Context())
	}()
	go func() {
		defer wg.Done()
		data.Winners, winnerErr = h.contestService.RecentWinners(r.Context())
	}()
	wg.Wait()

	var toast *views.Flash
	for _, err := range []error{popErr, winnerErr} {
		if err != nil {
			h.logger.Warn("home page section unavailable", slog.Any("error", err))
			toast = &views.Flash{Kind: views.FlashError, Message: "Some contests could not be loaded. Please refresh the page."}
		}
	}
	h.renderToast(w, r, http.StatusOK, views.PageHome, "", data, toast)
}

// AllContests обрабатывает GET /all-contests?search=&type=
func (h *ContestHandler) AllContests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.ContestFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Type:   strings.TrimSpace(q.Get("type")),
	}
	data := views.AllContestsData{Search: filter.Search, Type: filter.Type, Types: models.ContestTypes}

	contests, err := h.contestService.ListConfirmed(r.Context(), filter)
	if err != nil {
		h.logger.Warn("contest list unavailable", slog.Any("error", err))
		h.renderToast(w, r, http.StatusOK, views.PageAllContests, "All Contests", data,
			&views.Flash{Kind: views.FlashError, Message: userMessage(err)})
		return
	}
	data.Contests = contests
	h.render(w, r, http.StatusOK, views.PageAllContests, "All Contests", data)
}

// Detail обрабатывает GET /contest/{id}
func (h *ContestHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	viewer := middleware.PrincipalFromContext(r.Context())

	detail, err := h.contestService.GetDetail(r.Context(), id, viewer)
	if err != nil {
		h.mapServiceErrorToView(w, r, err)
		return
	}

	var toast *views.Flash
	if detail.PaymentStatusErr != nil {
		toast = &views.Flash{Kind: views.FlashWarning, Message: "Your registration status could not be loaded. Please refresh the page."}
	}
	h.renderToast(w, r, http.StatusOK, views.PageContestDetail, detail.Contest.Name, views.ContestDetailData{Detail: detail}, toast)
}

// Register обрабатывает POST /contest/{id}/register и уводит браузер на страницу оплаты.
func (h *ContestHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	back := "/contest/" + id

	checkoutURL, err := h.contestService.Register(r.Context(), id, middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.mutationFailed(w, r, err, back)
		return
	}
	http.Redirect(w, r, checkoutURL, http.StatusSeeOther)
}

// Submit обрабатывает POST /contest/{id}/submit
func (h *ContestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	back := "/contest/" + id

	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, views.FlashError, "The submission form could not be read.", back)
		return
	}
	link := strings.TrimSpace(r.PostFormValue("submissionLink"))

	if err := h.contestService.Submit(r.Context(), id, middleware.PrincipalFromContext(r.Context()), link); err != nil {
		h.mutationFailed(w, r, err, back)
		return
	}
	h.redirectWithFlash(w, r, views.FlashSuccess, "Your task was submitted. Good luck!", back)
}
