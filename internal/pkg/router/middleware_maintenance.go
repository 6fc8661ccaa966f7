package router

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/shandysiswandi/phoneauth/internal/pkg/config"
)

// middlewareMaintenance answers 503 for every route listed in
// app.maintenance.endpoints, or for all routes when app.maintenance.all is set.
// The list is read per request so a config reload takes effect immediately.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg != nil {
				route := matchedRoutePath(r)
				if cfg.GetBool("app.maintenance.all") || lo.Contains(cfg.GetArray("app.maintenance.endpoints"), route) {
					writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
