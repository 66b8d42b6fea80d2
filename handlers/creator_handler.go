package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/models"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/views"
	"github.com/shopspring/decimal"
)

const (
	myContestsPath     = "/dashboard/my-contests"
	deadlineFormLayout = "2006-01-02T15:04"
)

type CreatorHandler struct {
	creatorService    services.CreatorService
	submissionService services.SubmissionService
	uploadsEnabled    bool
	now               func() time.Time
	*Responder
}

func NewCreatorHandler(cs services.CreatorService, ss services.SubmissionService, uploadsEnabled bool, resp *Responder) *CreatorHandler {
	return &CreatorHandler{
		creatorService:    cs,
		submissionService: ss,
		uploadsEnabled:    uploadsEnabled,
		now:               time.Now,
		Responder:         resp,
	}
}

// contestForm сырые поля формы и то, что из них удалось разобрать.
type contestForm struct {
	input      models.ContestInput
	price      string
	prizeMoney string
	deadline   string
	fields     map[string]string
}

func readContestForm(r *http.Request) contestForm {
	f := contestForm{
		input: models.ContestInput{
			Name:         r.PostFormValue("name"),
			Description:  r.PostFormValue("description"),
			Instructions: r.PostFormValue("instructions"),
			Image:        strings.TrimSpace(r.PostFormValue("image")),
			Type:         r.PostFormValue("type"),
		},
		price:      strings.TrimSpace(r.PostFormValue("price")),
		prizeMoney: strings.TrimSpace(r.PostFormValue("prizeMoney")),
		deadline:   strings.TrimSpace(r.PostFormValue("deadline")),
		fields:     map[string]string{},
	}

	if f.price == "" {
		f.input.Price = decimal.Zero
	} else if d, err := decimal.NewFromString(f.price); err == nil {
		f.input.Price = d
	} else {
		f.fields["price"] = "enter a valid amount"
	}
	if d, err := decimal.NewFromString(f.prizeMoney); err == nil {
		f.input.PrizeMoney = d
	} else {
		f.fields["prizeMoney"] = "enter a valid amount"
	}
	if f.deadline != "" {
		if t, err := time.ParseInLocation(deadlineFormLayout, f.deadline, time.UTC); err == nil {
			f.input.Deadline = t
		} else {
			f.fields["deadline"] = "enter a valid date and time"
		}
	}
	return f
}

// validate merges parse errors with the contest rules. With an upload pending the image
// URL may be empty.
func (f *contestForm) validate(now time.Time, uploading bool) bool {
	err := services.ValidateContestInput(f.input, now)
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		for field, msg := range verr.Fields {
			if field == "image" && uploading {
				continue
			}
			if _, exists := f.fields[field]; !exists {
				f.fields[field] = msg
			}
		}
	}
	return len(f.fields) == 0
}

func (h *CreatorHandler) formData(id string, f contestForm, errs views.FormErrors) views.ContestFormData {
	return views.ContestFormData{
		ID:             id,
		Input:          f.input,
		Price:          f.price,
		PrizeMoney:     f.prizeMoney,
		Deadline:       f.deadline,
		Types:          models.ContestTypes,
		UploadsEnabled: h.uploadsEnabled,
		Errors:         errs,
	}
}

func formTitle(id string) string {
	if id == "" {
		return "Add Contest"
	}
	return "Edit Contest"
}

// saveContest общий POST-поток форм создания и редактирования.
func (h *CreatorHandler) saveContest(w http.ResponseWriter, r *http.Request, id string, save func(models.ContestInput) error) {
	viewer := middleware.PrincipalFromContext(r.Context())
	back := myContestsPath
	if id == "" {
		back = "/dashboard/add-contest"
	}

	if err := parseForm(r); err != nil {
		h.redirectWithFlash(w, r, views.FlashError, "The contest form could not be read.", back)
		return
	}
	form := readContestForm(r)
	upload, closer, err := formImage(r, "imageFile")
	if err != nil {
		form.fields["image"] = "the uploaded image could not be read"
	}
	if closer != nil {
		defer closer.Close()
	}

	if !form.validate(h.now(), upload != nil) {
		h.render(w, r, http.StatusUnprocessableEntity, views.PageContestForm, formTitle(id),
			h.formData(id, form, views.FormErrors{Fields: form.fields}))
		return
	}

	if upload != nil {
		url, err := h.creatorService.UploadContestImage(r.Context(), viewer, *upload)
		if err != nil {
			h.logger.Warn("contest image upload failed", slog.Any("error", err))
			h.render(w, r, statusForFormError(err), views.PageContestForm, formTitle(id), h.formData(id, form, formErrors(err)))
			return
		}
		form.input.Image = url
	}

	if err := save(form.input); err != nil {
		switch {
		case errors.Is(err, services.ErrValidationFailed), errors.Is(err, services.ErrUpstream):
			h.logger.Warn("contest save failed", slog.String("contest_id", id), slog.Any("error", err))
			h.render(w, r, statusForFormError(err), views.PageContestForm, formTitle(id), h.formData(id, form, formErrors(err)))
		case errors.Is(err, services.ErrContestNotEditable):
			h.redirectWithFlash(w, r, views.FlashWarning, userMessage(err), myContestsPath)
		default:
			h.mutationFailed(w, r, err, back)
		}
		return
	}

	if id == "" {
		h.redirectWithFlash(w, r, views.FlashSuccess, "Contest added. It will go live once an admin confirms it.", myContestsPath)
		return
	}
	h.redirectWithFlash(w, r, views.FlashSuccess, "Contest updated.", myContestsPath)
}

func statusForFormError(err error) int {
	if errors.Is(err, services.ErrValidationFailed) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

// AddForm обрабатывает GET /dashboard/add-contest
func (h *CreatorHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.PageContestForm, "Add Contest", views.ContestFormData{
		Types:          models.ContestTypes,
		UploadsEnabled: h.uploadsEnabled,
	})
}

// Add обрабатывает POST /dashboard/add-contest
func (h *CreatorHandler) Add(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.PrincipalFromContext(r.Context())
	h.saveContest(w, r, "", func(in models.ContestInput) error {
		_, err := h.creatorService.CreateContest(r.Context(), viewer, in)
		return err
	})
}

// MyContests обрабатывает GET /dashboard/my-contests
func (h *CreatorHandler) MyContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.creatorService.MyContests(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("creator contests unavailable", slog.Any("error", err))
		h.renderToast(w, r, http.StatusOK, views.PageMyContests, "My Contests", views.MyContestsData{},
			&views.Flash{Kind: views.FlashError, Message: userMessage(err)})
		return
	}
	h.render(w, r, http.StatusOK, views.PageMyContests, "My Contests", views.MyContestsData{Contests: contests})
}

// EditForm обрабатывает GET /dashboard/my-contests/{id}/edit
func (h *CreatorHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	contest, err := h.creatorService.GetEditable(r.Context(), id, middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, services.ErrContestNotEditable) {
			h.redirectWithFlash(w, r, views.FlashWarning, userMessage(err), myContestsPath)
			return
		}
		h.mapServiceErrorToView(w, r, err)
		return
	}

	form := contestForm{
		input: models.ContestInput{
			Name:         contest.Name,
			Description:  contest.Description,
			Instructions: contest.Instructions,
			Image:        contest.Image,
			Type:         contest.Type,
			Price:        contest.Price,
			PrizeMoney:   contest.PrizeMoney,
			Deadline:     contest.Deadline,
		},
		price:      contest.Price.StringFixed(2),
		prizeMoney: contest.PrizeMoney.StringFixed(2),
		deadline:   views.DateTimeLocal(contest.Deadline),
	}
	h.render(w, r, http.StatusOK, views.PageContestForm, "Edit Contest", h.formData(id, form, views.FormErrors{}))
}

// Update обрабатывает POST /dashboard/my-contests/{id}/edit
func (h *CreatorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	viewer := middleware.PrincipalFromContext(r.Context())
	h.saveContest(w, r, id, func(in models.ContestInput) error {
		return h.creatorService.UpdateContest(r.Context(), id, viewer, in)
	})
}

// Delete обрабатывает POST /dashboard/my-contests/{id}/delete
func (h *CreatorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	if err := h.creatorService.DeleteContest(r.Context(), id, middleware.PrincipalFromContext(r.Context())); err != nil {
		h.mutationFailed(w, r, err, myContestsPath)
		return
	}
	h.redirectWithFlash(w, r, views.FlashSuccess, "Contest deleted.", myContestsPath)
}

// Submissions обрабатывает GET /dashboard/my-contests/{id}/submissions
func (h *CreatorHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	review, err := h.submissionService.Review(r.Context(), idParam(r, "id"), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.mapServiceErrorToView(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, views.PageSubmissions, "Submissions", views.SubmissionsData{Review: review})
}

// DeclareWinner обрабатывает POST /dashboard/my-contests/{id}/winner
func (h *CreatorHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	back := myContestsPath + "/" + id + "/submissions"

	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, views.FlashError, "The request could not be read.", back)
		return
	}
	registrationID := strings.TrimSpace(r.PostFormValue("registrationId"))

	err := h.submissionService.DeclareWinner(r.Context(), id, registrationID, middleware.PrincipalFromContext(r.Context()))
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, views.FlashSuccess, "Winner declared.", back)
	case errors.Is(err, services.ErrWinCountNotUpdated):
		h.logger.Warn("winner declared without win count update", slog.String("contest_id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, views.FlashWarning, userMessage(err), back)
	default:
		h.mutationFailed(w, r, err, back)
	}
}
