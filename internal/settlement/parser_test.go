package settlement_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/bnpl/internal/settlement"
)

const (
	lineA = "0b6f1c2e-5a3d-4e8f-9c71-2d4b6a8e0f13"
	lineB = "7d2e9a41-3c6b-4f5e-8a19-b0c3d5e7f921"
)

func TestParser_Parse(t *testing.T) {
	type testCase struct {
		name        string
		content     string
		wantProfile string
		wantLen     int
		verify      func(t *testing.T, rows []settlement.Row)
		wantErr     bool
	}

	tests := []testCase{
		{
			name: "internal format",
			content: "credit_line_id,amount,reference,date\n" +
				lineA + ",\"1,250.50\",spei-001,2024-06-03\n" +
				lineB + ",99.99,spei-002,\n",
			wantProfile: "internal",
			wantLen:     2,
			verify: func(t *testing.T, rows []settlement.Row) {
				assert.Equal(t, uuid.MustParse(lineA), rows[0].LineID)
				assert.Equal(t, int64(1_250_50), rows[0].Amount)
				assert.Equal(t, "MXN", rows[0].Currency)
				assert.Equal(t, "spei-001", rows[0].Reference)
				assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), rows[0].PaidOn)
				assert.Equal(t, 2, rows[0].Num)

				assert.Equal(t, int64(99_99), rows[1].Amount)
				assert.True(t, rows[1].PaidOn.IsZero())
			},
		},
		{
			name: "credijusto with preamble and decimal comma",
			content: "Reporte de pagos;Junio 2024\n" +
				"\n" +
				"Línea;Importe;Folio;Fecha;Moneda\n" +
				lineA + ";1.234,56;F-9;03/06/2024;usd\n" +
				";1.234,56;;;\n",
			wantProfile: "credijusto",
			wantLen:     1,
			verify: func(t *testing.T, rows []settlement.Row) {
				assert.Equal(t, int64(1_234_56), rows[0].Amount)
				assert.Equal(t, "USD", rows[0].Currency)
				assert.Equal(t, 4, rows[0].Num)
			},
		},
		{
			name: "kueski columns in another order",
			content: "Referencia,Monto,Fecha Pago,ID Linea\n" +
				"K-1,$500.00,01/06/2024," + lineB + "\n",
			wantProfile: "kueski",
			wantLen:     1,
			verify: func(t *testing.T, rows []settlement.Row) {
				assert.Equal(t, uuid.MustParse(lineB), rows[0].LineID)
				assert.Equal(t, int64(500_00), rows[0].Amount)
				assert.Equal(t, "K-1", rows[0].Reference)
			},
		},
		{
			name:        "header only",
			content:     "line_id,paid_amount,payment_id\n",
			wantProfile: "konfio",
			wantLen:     0,
		},
		{
			name:    "unknown format",
			content: "foo,bar\n1,2\n",
			wantErr: true,
		},
		{
			name:    "empty file",
			content: "",
			wantErr: true,
		},
		{
			name:    "bad line id",
			content: "credit_line_id,amount,reference\nnot-a-uuid,10.00,r1\n",
			wantErr: true,
		},
		{
			name:    "negative amount",
			content: "credit_line_id,amount,reference\n" + lineA + ",-10.00,r1\n",
			wantErr: true,
		},
		{
			name:    "missing reference",
			content: "credit_line_id,amount,reference\n" + lineA + ",10.00,\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := settlement.NewParser().Parse(strings.NewReader(tt.content))

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantProfile, got.Profile)
			assert.Len(t, got.Rows, tt.wantLen)

			if tt.verify != nil {
				tt.verify(t, got.Rows)
			}
		})
	}
}

func TestParser_Latin1(t *testing.T) {
	// Windows-1252: í = 0xED.
	var buf bytes.Buffer
	buf.Write([]byte{'L', 0xED, 'n', 'e', 'a'})
	buf.WriteString(";Importe;Folio\n")
	buf.WriteString(lineA + ";10,00;F-1\n")

	got, err := settlement.NewParser().Parse(&buf)
	require.NoError(t, err)

	assert.Equal(t, "credijusto", got.Profile)
	assert.NotEqual(t, "UTF-8", got.Encoding)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, int64(10_00), got.Rows[0].Amount)
}

func TestParser_UTF8BOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("credit_line_id,amount,reference\n"+lineA+",1.00,r\n")...)

	got, err := settlement.NewParser().Parse(bytes.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "UTF-8", got.Encoding)
	assert.Equal(t, "internal", got.Profile)
	assert.Len(t, got.Rows, 1)
}
