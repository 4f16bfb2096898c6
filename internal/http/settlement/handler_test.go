package settlement_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	handler "github.com/MrJamesThe3rd/bnpl/internal/http/settlement"
	"github.com/MrJamesThe3rd/bnpl/internal/settlement"
)

const lineID = "5b7c1f4e-8a0d-4d8e-9f57-3f0c2b8d6a11"

func upload(t *testing.T, srv *httptest.Server, field, content string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile(field, "settlement.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/settlements", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func newServer(t *testing.T, payments settlement.PaymentApplier) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Route("/settlements", handler.NewHandler(settlement.NewService(payments)).Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv
}

func TestHandler_Import(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payments := settlement.NewMockPaymentApplier(ctrl)
	id := uuid.MustParse(lineID)

	gomock.InOrder(
		payments.EXPECT().ApplyPayment(gomock.Any(), id, int64(1_100_00), creditline.CurrencyMXN, "r1").Return(&creditline.PaymentResult{
			Line: &creditline.CreditLine{},
			Outcome: creditline.PaymentOutcome{
				Payment: creditline.Payment{Amount: 1_100_00, Applied: 1_100_00},
			},
		}, nil),
		payments.EXPECT().ApplyPayment(gomock.Any(), id, int64(1_100_00), creditline.CurrencyMXN, "r1").Return(nil, creditline.ErrDuplicatePayment),
	)

	srv := newServer(t, payments)

	resp := upload(t, srv, "file", "credit_line_id,amount,reference,date\n"+
		lineID+",1100.00,r1,2024-03-15\n"+
		lineID+",1100.00,r1,2024-03-15\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Profile      string `json:"profile"`
		Applied      int    `json:"applied"`
		Duplicates   int    `json:"duplicates"`
		TotalApplied int64  `json:"total_applied"`
		Results      []struct {
			Row    int    `json:"row"`
			Status string `json:"status"`
			PaidOn string `json:"paid_on"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	assert.Equal(t, "internal", got.Profile)
	assert.Equal(t, 1, got.Applied)
	assert.Equal(t, 1, got.Duplicates)
	assert.Equal(t, int64(1_100_00), got.TotalApplied)
	require.Len(t, got.Results, 2)
	assert.Equal(t, 2, got.Results[0].Row)
	assert.Equal(t, "applied", got.Results[0].Status)
	assert.Equal(t, "2024-03-15T00:00:00Z", got.Results[0].PaidOn)
	assert.Equal(t, "duplicate", got.Results[1].Status)
}

func TestHandler_ImportRejected(t *testing.T) {
	type testCase struct {
		name    string
		field   string
		content string
	}

	tests := []testCase{
		{name: "missing file field", field: "upload", content: "credit_line_id,amount,reference\n"},
		{name: "unknown format", field: "file", content: "foo,bar\n1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			srv := newServer(t, settlement.NewMockPaymentApplier(ctrl))

			resp := upload(t, srv, tt.field, tt.content)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}
