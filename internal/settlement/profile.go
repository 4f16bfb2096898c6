package settlement

// decimalStyle is how a partner writes amounts.
type decimalStyle int

const (
	// decimalPoint is "1,234.56".
	decimalPoint decimalStyle = iota
	// decimalComma is "1.234,56".
	decimalComma
)

// Profile describes the column layout of one partner's settlement export.
// Adding a partner format is adding an entry to profiles.
type Profile struct {
	Name         string
	LineCol      string
	AmountCol    string
	ReferenceCol string
	DateCol      string // optional
	CurrencyCol  string // optional; Currency is used when absent
	DateLayout   string
	Decimal      decimalStyle
	Currency     string
}

// requiredCols returns the column names that must be present for this profile to match.
func (p Profile) requiredCols() []string {
	return []string{p.LineCol, p.AmountCol, p.ReferenceCol}
}

// profiles is tried in order during auto-detection. More specific profiles
// come first.
var profiles = []Profile{
	{
		Name:         "credijusto",
		LineCol:      "Línea",
		AmountCol:    "Importe",
		ReferenceCol: "Folio",
		DateCol:      "Fecha",
		CurrencyCol:  "Moneda",
		DateLayout:   "02/01/2006",
		Decimal:      decimalComma,
		Currency:     "MXN",
	},
	{
		Name:         "kueski",
		LineCol:      "ID Linea",
		AmountCol:    "Monto",
		ReferenceCol: "Referencia",
		DateCol:      "Fecha Pago",
		DateLayout:   "02/01/2006",
		Decimal:      decimalPoint,
		Currency:     "MXN",
	},
	{
		Name:         "konfio",
		LineCol:      "line_id",
		AmountCol:    "paid_amount",
		ReferenceCol: "payment_id",
		DateCol:      "paid_on",
		CurrencyCol:  "currency",
		DateLayout:   "2006-01-02",
		Decimal:      decimalPoint,
		Currency:     "MXN",
	},
	{
		Name:         "internal",
		LineCol:      "credit_line_id",
		AmountCol:    "amount",
		ReferenceCol: "reference",
		DateCol:      "date",
		CurrencyCol:  "currency",
		DateLayout:   "2006-01-02",
		Decimal:      decimalPoint,
		Currency:     "MXN",
	},
}
