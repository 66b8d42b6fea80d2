package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/contest-hub/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func (h *Responder) errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		h.logger.Error("failed to write error response", slog.String("path", r.URL.Path), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h *Responder) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("internal server error", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	h.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (h *Responder) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

const maxFormMemory = 8 << 20

// parseForm принимает и urlencoded, и multipart.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

// formImage возвращает загруженное изображение из field или nil, если файл не выбран.
// Закрывает файл вызывающий.
func formImage(r *http.Request, field string) (*services.ImageUpload, io.Closer, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s file from form: %w", field, err)
	}
	return &services.ImageUpload{
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}, file, nil
}

func toInt(s string, def int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}

func pageParam(r *http.Request) int {
	page := toInt(r.URL.Query().Get("page"), 1)
	if page < 1 {
		return 1
	}
	return page
}

// idParam читает параметр пути. id в API непрозрачные строки.
func idParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}
