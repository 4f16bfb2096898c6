package sweep

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/bnpl/internal/http/render"
	"github.com/MrJamesThe3rd/bnpl/internal/sweep"
)

type Handler struct {
	sweeper sweep.Sweeper
}

func NewHandler(sweeper sweep.Sweeper) *Handler {
	return &Handler{sweeper: sweeper}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.run)
}

type reportResponse struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.RunAgingSweepAll(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, reportResponse{
		Scanned: report.Scanned,
		Updated: report.Updated,
		Failed:  report.Failed,
	})
}
