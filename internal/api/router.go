package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-av/internal/auth"
)

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Authenticated by ticket inside the handler.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.require(auth.PermEventsStream)).Post("/auth/ws-ticket", s.handleWSTicket)
			r.With(s.require(auth.PermHistoryRead)).Get("/history", s.handleListHistory)
			r.With(s.require(auth.PermDeviceAdmin)).Get("/audit", s.handleListAudit)

			r.Route("/devices", func(r chi.Router) {
				r.With(s.require(auth.PermDeviceRead)).Get("/", s.handleListDevices)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.require(auth.PermDeviceRead)).Get("/", s.handleGetDevice)
					r.With(s.require(auth.PermDeviceRead)).Get("/commands", s.handleListCommands)
					r.With(s.require(auth.PermCommandSend)).Post("/commands/{name}", s.handleSendCommand)

					r.With(s.require(auth.PermDeviceRead)).Get("/queue", s.handleGetQueue)
					r.With(s.require(auth.PermQueueClear)).Delete("/queue", s.handleClearQueue)
					r.With(s.require(auth.PermQueueManage)).Delete("/queue/{name}", s.handleWithdrawCommand)

					r.With(s.require(auth.PermDeviceAdmin)).Put("/dispatch", s.handleSetDispatch)
					r.With(s.require(auth.PermDeviceAdmin)).Put("/power", s.handleSetPower)

					r.With(s.require(auth.PermHistoryRead)).Get("/history", s.handleDeviceHistory)
				})
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": s.manager.Len(),
	})
}
