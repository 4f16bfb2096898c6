package settlement

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/http/render"
	"github.com/MrJamesThe3rd/bnpl/internal/settlement"
)

const maxUploadSize = 10 << 20

type Handler struct {
	svc *settlement.Service
}

func NewHandler(svc *settlement.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importFile)
}

type resultResponse struct {
	Row          int               `json:"row"`
	CreditLineID uuid.UUID         `json:"credit_line_id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Reference    string            `json:"reference"`
	PaidOn       *time.Time        `json:"paid_on,omitempty"`
	Status       settlement.Status `json:"status"`
	Overpayment  int64             `json:"overpayment,omitempty"`
	Error        string            `json:"error,omitempty"`
}

type reportResponse struct {
	Profile          string           `json:"profile"`
	Encoding         string           `json:"encoding"`
	Applied          int              `json:"applied"`
	Duplicates       int              `json:"duplicates"`
	Failed           int              `json:"failed"`
	TotalApplied     int64            `json:"total_applied"`
	TotalOverpayment int64            `json:"total_overpayment"`
	Results          []resultResponse `json:"results"`
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		render.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		render.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	report, err := h.svc.Import(r.Context(), file)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			render.Error(w, r, err)
			return
		}

		render.BadRequest(w, err.Error())

		return
	}

	render.JSON(w, http.StatusOK, toReport(report))
}

func toReport(report *settlement.Report) reportResponse {
	resp := reportResponse{
		Profile:          report.Profile,
		Encoding:         report.Encoding,
		Applied:          report.Applied,
		Duplicates:       report.Duplicates,
		Failed:           report.Failed,
		TotalApplied:     report.TotalApplied,
		TotalOverpayment: report.TotalOverpayment,
		Results:          make([]resultResponse, 0, len(report.Results)),
	}

	for _, res := range report.Results {
		rr := resultResponse{
			Row:          res.Row.Num,
			CreditLineID: res.Row.LineID,
			Amount:       res.Row.Amount,
			Currency:     res.Row.Currency,
			Reference:    res.Row.Reference,
			Status:       res.Status,
			Overpayment:  res.Overpayment,
			Error:        res.Error,
		}

		if !res.Row.PaidOn.IsZero() {
			rr.PaidOn = new(res.Row.PaidOn)
		}

		resp.Results = append(resp.Results, rr)
	}

	return resp
}
