package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "paperjet/internal/api/context"
	"paperjet/internal/api/handlers"
	"paperjet/internal/api/middleware"
)

type Dependencies struct {
	GenerateHandler *handlers.GenerateHandler
	AdminHandler    *handlers.AdminHandler
	HealthHandler   *handlers.HealthHandler
	AdminMiddleware *middleware.AdminMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Generation path: the handler owns authorization so that the
	// ledger discipline stays in one place.
	router.POST("/api/v1/generate", wrap(deps.GenerateHandler.Handle))

	// Admin surface, behind the static operator token. Note there is no
	// reset/purge route: full wipes are a test-harness operation only.
	adminMid := deps.AdminMiddleware
	router.POST("/api/v1/admin/api-keys", chain(deps.AdminHandler.CreateAPIKey, adminMid.Handle))
	router.GET("/api/v1/admin/usage", chain(deps.AdminHandler.Usage, adminMid.Handle))
	router.PATCH("/api/v1/admin/quota", chain(deps.AdminHandler.SetQuota, adminMid.Handle))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
