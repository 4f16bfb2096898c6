package creditline

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/http/render"
	"github.com/MrJamesThe3rd/bnpl/internal/underwriting"
)

type Handler struct {
	svc      *creditline.Service
	validate *validator.Validate
}

func NewHandler(svc *creditline.Service) *Handler {
	return &Handler{svc: svc, validate: render.NewValidator()}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.request)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/draws", h.draw)
	r.Post("/{id}/payments", h.pay)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/suspend", h.suspend)
	r.Post("/{id}/reactivate", h.reactivate)
	r.Post("/{id}/cancel", h.cancel)
}

type applicantRequest struct {
	CreditScore      int   `json:"credit_score" validate:"min=300,max=850"`
	KYCCompleted     bool  `json:"kyc_completed"`
	WalletBalance    int64 `json:"wallet_balance" validate:"gte=0"`
	AccountAgeMonths int   `json:"account_age_months" validate:"gte=0"`
}

type creditLineRequest struct {
	UserID        string           `json:"user_id" validate:"required,max=128"`
	Partner       string           `json:"partner" validate:"required,oneof=internal kueski konfio credijusto"`
	Currency      string           `json:"currency" validate:"omitempty,oneof=MXN USD"`
	Amount        int64            `json:"amount" validate:"gt=0"`
	TermDays      int              `json:"term_days" validate:"min=1,max=365"`
	MonthlyIncome int64            `json:"monthly_income" validate:"gte=0"`
	Purpose       string           `json:"purpose" validate:"max=500"`
	Applicant     applicantRequest `json:"applicant"`
}

func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	var req creditLineRequest
	if !render.Decode(w, r, h.validate, &req) {
		return
	}

	currency := creditline.CurrencyMXN
	if req.Currency != "" {
		currency = creditline.Currency(req.Currency)
	}

	res, err := h.svc.RequestCreditLine(r.Context(), creditline.RequestParams{
		UserID:        req.UserID,
		Partner:       creditline.Partner(req.Partner),
		Currency:      currency,
		Amount:        req.Amount,
		TermDays:      req.TermDays,
		MonthlyIncome: req.MonthlyIncome,
		Purpose:       req.Purpose,
		Applicant: underwriting.ApplicantSnapshot{
			CreditScore:      req.Applicant.CreditScore,
			KYCCompleted:     req.Applicant.KYCCompleted,
			WalletBalance:    req.Applicant.WalletBalance,
			AccountAgeMonths: req.Applicant.AccountAgeMonths,
		},
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := requestResponse{
		Approved:        res.Decision.Approved,
		RejectionReason: res.Decision.RejectionReason,
		Decision:        toDecision(res.Decision),
	}

	status := http.StatusOK

	if res.Line != nil {
		line := toLine(h.svc.Summarize(res.Line))
		resp.CreditLine = &line
		status = http.StatusCreated
	}

	render.JSON(w, status, resp)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := creditline.ListFilter{UserID: q.Get("user_id")}

	if s := q.Get("status"); s != "" {
		st := creditline.Status(s)
		if !st.Valid() {
			render.BadRequest(w, "unknown status")
			return
		}

		filter.Status = &st
	}

	if s := q.Get("partner"); s != "" {
		p := creditline.Partner(s)
		if !p.Valid() {
			render.BadRequest(w, "unknown partner")
			return
		}

		filter.Partner = &p
	}

	res, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := listResponse{
		CreditLines: make([]lineResponse, 0, len(res.Lines)),
		Stats: statsResponse{
			TotalCreditLines:     res.Stats.TotalLines,
			ActiveCreditLines:    res.Stats.ActiveLines,
			TotalMaxAmount:       res.Stats.TotalMaxAmount,
			TotalUsedAmount:      res.Stats.TotalUsedAmount,
			TotalAvailableAmount: res.Stats.TotalAvailableAmount,
		},
	}

	for _, s := range res.Lines {
		resp.CreditLines = append(resp.CreditLines, toLine(s))
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}

	sum, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toLine(sum))
}

type drawRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

func (h *Handler) draw(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}

	var req drawRequest
	if !render.Decode(w, r, h.validate, &req) {
		return
	}

	res, err := h.svc.DrawCredit(r.Context(), id, req.Amount)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, drawResponse{
		CreditLine:  toLine(h.svc.Summarize(res.Line)),
		Installment: toInstallment(res.Installment),
	})
}

type paymentRequest struct {
	Amount         int64  `json:"amount" validate:"gt=0"`
	Currency       string `json:"currency" validate:"omitempty,oneof=MXN USD"`
	TransactionRef string `json:"transaction_ref" validate:"max=128"`
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	if !render.Decode(w, r, h.validate, &req) {
		return
	}

	res, err := h.svc.ApplyPayment(r.Context(), id, req.Amount, creditline.Currency(req.Currency), req.TransactionRef)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	settled := res.Outcome.Settled
	if settled == nil {
		settled = []uuid.UUID{}
	}

	render.JSON(w, http.StatusOK, paymentResultResponse{
		CreditLine:          toLine(h.svc.Summarize(res.Line)),
		Payment:             toPayment(res.Outcome.Payment),
		Overpayment:         res.Outcome.Overpayment,
		SettledInstallments: settled,
	})
}

type approveRequest struct {
	Reviewer string `json:"reviewer" validate:"required,max=128"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}

	var req approveRequest
	if !render.Decode(w, r, h.validate, &req) {
		return
	}

	h.respondLine(w, r)(h.svc.Approve(r.Context(), id, req.Reviewer))
}

type suspendRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}

	var req suspendRequest
	if !render.Decode(w, r, h.validate, &req) {
		return
	}

	h.respondLine(w, r)(h.svc.Suspend(r.Context(), id, req.Reason))
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}

	h.respondLine(w, r)(h.svc.Reactivate(r.Context(), id))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}

	h.respondLine(w, r)(h.svc.Cancel(r.Context(), id))
}

func (h *Handler) respondLine(w http.ResponseWriter, r *http.Request) func(*creditline.CreditLine, error) {
	return func(line *creditline.CreditLine, err error) {
		if err != nil {
			render.Error(w, r, err)
			return
		}

		render.JSON(w, http.StatusOK, toLine(h.svc.Summarize(line)))
	}
}

func lineID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.BadRequest(w, "invalid id")
		return uuid.Nil, false
	}

	return id, true
}
