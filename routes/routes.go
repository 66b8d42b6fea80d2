package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/contest-hub/handlers"
	"github.com/Dosada05/contest-hub/middleware"
	"github.com/Dosada05/contest-hub/views"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handlers все обработчики, на которые ведёт дерево маршрутов.
type Handlers struct {
	Responder   *handlers.Responder
	Auth        *handlers.AuthHandler
	Contest     *handlers.ContestHandler
	Leaderboard *handlers.LeaderboardHandler
	Payment     *handlers.PaymentHandler
	Dashboard   *handlers.DashboardHandler
	Creator     *handlers.CreatorHandler
	Admin       *handlers.AdminHandler
	API         *handlers.APIHandler
	WebSocket   *handlers.WebSocketHandler
}

// Options сквозные зависимости дерева.
type Options struct {
	Sessions       middleware.SessionParser
	Roles          middleware.RoleResolver
	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	guards := middleware.NewGuards(opts.Roles, http.HandlerFunc(h.Responder.Forbidden), opts.Logger)

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.LoadSession(opts.Sessions, opts.Logger))

	router.NotFound(h.Responder.NotFound)
	router.MethodNotAllowed(h.Responder.NotFound)

	router.Handle("/static/*", views.StaticHandler())
	router.Get("/healthz", h.API.Health)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// вебсокет живёт дольше любого таймаута запроса
	router.Get("/ws/contests/{id}", h.WebSocket.ServeWs)

	router.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
		}

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   opts.AllowedOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type"},
				AllowCredentials: false,
				MaxAge:           300,
			}))
			r.Get("/contests/{id}/countdown", h.API.Countdown)
			r.Get("/leaderboard", h.Leaderboard.API)
		})

		// Публичные страницы
		r.Get("/", h.Contest.Home)
		r.Get("/all-contests", h.Contest.AllContests)
		r.Get("/about", h.Responder.StaticPage(views.PageAbout, "About"))
		r.Get("/leaderboard", h.Leaderboard.Page)
		r.Get("/contest/{id}", h.Contest.Detail)
		r.Get("/payment/cancel", h.Payment.Cancel)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", h.Auth.LoginForm)
			r.Post("/login", h.Auth.Login)
			r.Get("/register", h.Auth.RegisterForm)
			r.Post("/register", h.Auth.Register)
			r.Get("/forgot-password", h.Auth.ForgotPasswordForm)
			r.Post("/forgot-password", h.Auth.ForgotPassword)
			r.Get("/google", h.Auth.GoogleStart)
			r.Get("/google/callback", h.Auth.GoogleCallback)
			r.Post("/logout", h.Auth.Logout)
		})

		// Требуется вход
		r.Group(func(r chi.Router) {
			r.Use(middleware.PrivateRoute)

			r.Post("/contest/{id}/register", h.Contest.Register)
			r.Post("/contest/{id}/submit", h.Contest.Submit)
			r.Get("/payment/success", h.Payment.Success)

			r.Route("/dashboard", func(r chi.Router) {
				r.Use(guards.ResolveRole)

				r.Get("/", h.Dashboard.Overview)
				r.Get("/profile", h.Dashboard.Profile)
				r.Post("/profile", h.Dashboard.UpdateProfile)

				r.Group(func(r chi.Router) {
					r.Use(guards.UserRoute)
					r.Get("/participated-contests", h.Dashboard.Participated)
					r.Get("/winning", h.Dashboard.Winning)
				})

				r.Group(func(r chi.Router) {
					r.Use(guards.CreatorRoute)
					r.Get("/add-contest", h.Creator.AddForm)
					r.Post("/add-contest", h.Creator.Add)
					r.Get("/my-contests", h.Creator.MyContests)
					r.Get("/my-contests/{id}/edit", h.Creator.EditForm)
					r.Post("/my-contests/{id}/edit", h.Creator.Update)
					r.Post("/my-contests/{id}/delete", h.Creator.Delete)
					r.Get("/my-contests/{id}/submissions", h.Creator.Submissions)
					r.Post("/my-contests/{id}/winner", h.Creator.DeclareWinner)
				})

				r.Group(func(r chi.Router) {
					r.Use(guards.AdminRoute)
					r.Get("/users", h.Admin.Users)
					r.Post("/users/{id}/role", h.Admin.ChangeRole)
					r.Get("/contests", h.Admin.Contests)
					r.Post("/contests/{id}/status", h.Admin.ChangeStatus)
					r.Post("/contests/{id}/delete", h.Admin.DeleteContest)
				})
			})
		})
	})
}
