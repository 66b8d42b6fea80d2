// Package views встроенные HTML-шаблоны и рендерер для обработчиков страниц.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/Dosada05/contest-hub/models"
)

//go:embed templates static
var files embed.FS

// Имена страниц. Каждой соответствует templates/pages/<name>.html.
const (
	PageHome             = "home"
	PageAllContests      = "all_contests"
	PageAbout            = "about"
	PageLeaderboard      = "leaderboard"
	PageContestDetail    = "contest_detail"
	PageLogin            = "login"
	PageRegister         = "register"
	PageForgotPassword   = "forgot_password"
	PagePaymentSuccess   = "payment_success"
	PagePaymentCancel    = "payment_cancel"
	PageDashboard        = "dashboard"
	PageParticipated     = "participated"
	PageWinning          = "winning"
	PageProfile          = "profile"
	PageContestForm      = "contest_form"
	PageMyContests       = "my_contests"
	PageSubmissions      = "submissions"
	PageManageUsers      = "manage_users"
	PageManageContests   = "manage_contests"
	PageForbidden        = "forbidden"
	PageNotFound         = "not_found"
	PageError            = "error"
	layoutTemplateName   = "layout"
	templatesPagesFolder = "templates/pages"
)

// Flash одноразовый toast для следующей отрендеренной страницы.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
)

type NavItem struct {
	Label  string
	Href   string
	Active bool
}

// Page is the envelope every template receives.
type Page struct {
	Title       string
	Principal   *models.Principal
	Role        models.Role
	Flash       *Flash
	Nav         []NavItem
	CurrentPath string
	Data        any
}

// Renderer исполняет набор шаблонов. Страницы разбираются один раз при старте.
type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	base, err := template.New(layoutTemplateName).Funcs(Funcs()).ParseFS(files, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	entries, err := fs.ReadDir(files, templatesPagesFolder)
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(entries))}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".html")
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(files, path.Join(templatesPagesFolder, e.Name())); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render пишет страницу name. Вывод буферизуется, чтобы ошибка шаблона не оставила
// недописанный ответ.
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view %q is not defined", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutTemplateName, page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether a page template was loaded.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// StaticHandler serves the embedded stylesheet and scripts under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
