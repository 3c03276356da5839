// Invoice PDF layout, A4 portrait:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Company name          │  INVOICE n° + issue date   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  BILLED TO: customer name + contact details                 │
//	│  POLICY: number + vehicle plate + billing period            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLE: Coverage | Monthly price                            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALS: billed days / AMOUNT DUE / due date                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: payment reference QR + notes                       │
//	└─────────────────────────────────────────────────────────────┘
package services

import (
	"fmt"
	"strings"
	"time"

	"billing-service/internal/models"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	pdfconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

var (
	colorAccent = &props.Color{Red: 21, Green: 67, Blue: 96}
	colorMuted  = &props.Color{Red: 110, Green: 110, Blue: 110}
)

// InvoiceDocumentView is everything the rendered document shows, assembled by
// the generator so the renderer stays free of storage lookups.
type InvoiceDocumentView struct {
	InvoiceID     string
	InvoiceNumber string
	IssuedDate    time.Time
	DueDate       time.Time
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Amount        decimal.Decimal
	Notes         string
	Customer      CustomerDetails
	Policy        PolicyDetails
	Lines         []CoverageLine
}

type CustomerDetails struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type PolicyDetails struct {
	PolicyNumber string
	VehiclePlate string
}

type CoverageLine struct {
	Name         string
	MonthlyPrice decimal.Decimal
}

// InvoicePDFRenderer renders invoice documents with Maroto.
type InvoicePDFRenderer struct {
	companyName string
}

func NewInvoicePDFRenderer(companyName string) *InvoicePDFRenderer {
	return &InvoicePDFRenderer{companyName: companyName}
}

// RenderInvoice builds the PDF and returns its bytes. Rendering failures are
// permanent: the same view renders the same document, so retrying cannot help.
func (r *InvoicePDFRenderer) RenderInvoice(view InvoiceDocumentView) ([]byte, error) {
	cfg := pdfconfig.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Invoice "+view.InvoiceNumber, true).
		WithAuthor(r.companyName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(r.headerRow(view))
	m.AddRows(line.NewRow(1, props.Line{Color: colorAccent, Thickness: 0.5}))
	m.AddRows(billedToRow(view.Customer))
	m.AddRows(policyRow(view))
	m.AddRows(line.NewRow(1, props.Line{Color: colorAccent, Thickness: 0.3}))

	m.AddRows(coverageHeaderRow())
	for _, coverageRow := range coverageLineRows(view.Lines) {
		m.AddRows(coverageRow)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorAccent, Thickness: 0.3}))
	m.AddRows(totalsRow(view))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorMuted, Thickness: 0.3}))
	for _, footerRow := range paymentFooterRows(view) {
		m.AddRows(footerRow)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, models.NewPermanentError(err, "failed to render invoice document %s", view.InvoiceNumber)
	}
	return doc.GetBytes(), nil
}

// headerRow: company name left, invoice number and dates right.
func (r *InvoicePDFRenderer) headerRow(view InvoiceDocumentView) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(r.companyName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorAccent, Top: 1,
			}),
			text.New("Automated monthly billing", props.Text{
				Size: 8, Top: 9, Color: colorMuted,
			}),
		),
		col.New(5).Add(
			text.New("INVOICE", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorAccent, Top: 1,
			}),
			text.New(view.InvoiceNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Issued: "+view.IssuedDate.UTC().Format(displayDateLayout), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorMuted,
			}),
		),
	)
}

// billedToRow: recipient block.
func billedToRow(customer CustomerDetails) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("BILLED TO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorAccent, Top: 1,
			}),
			text.New(customer.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Email: %s   |   Phone: %s   |   Address: %s",
				orDash(customer.Email),
				orDash(customer.Phone),
				orDash(customer.Address),
			), props.Text{Size: 8, Top: 12, Color: colorMuted}),
		),
	)
}

// policyRow: policy identity plus the billing period the amount covers.
func policyRow(view InvoiceDocumentView) core.Row {
	period := fmt.Sprintf("%s to %s",
		view.PeriodStart.UTC().Format(displayDateLayout),
		view.PeriodEnd.UTC().Format(displayDateLayout))

	return row.New(12).Add(
		col.New(12).Add(
			text.New("POLICY", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorAccent, Top: 1,
			}),
			text.New(fmt.Sprintf("Policy: %s   |   Vehicle: %s   |   Billing period: %s",
				orDash(view.Policy.PolicyNumber),
				orDash(view.Policy.VehiclePlate),
				period,
			), props.Text{Size: 8, Top: 7, Color: colorMuted}),
		),
	)
}

func coverageHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorAccent, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Coverage", 8, align.Left),
		h("Monthly price", 4, align.Right),
	)
}

func coverageLineRows(lines []CoverageLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(8).Add(text.New(
				l.Name,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(4).Add(text.New(
				"$"+formatAmount(l.MonthlyPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: billed day count and the prorated amount due.
func totalsRow(view InvoiceDocumentView) core.Row {
	start := DateOnly(view.PeriodStart)
	end := DateOnly(view.PeriodEnd)
	billedDays := int(end.Sub(start)/(24*time.Hour)) + 1

	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}

	return row.New(26).Add(
		col.New(3),
		col.New(4).Add(
			label("Billed days:"),
			label("Due date:"),
			text.New("AMOUNT DUE:", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right,
				Color: colorAccent, Right: 2,
			}),
		),
		col.New(4).Add(
			value(fmt.Sprintf("%d", billedDays)),
			value(view.DueDate.UTC().Format(displayDateLayout)),
			text.New("$"+formatAmount(view.Amount), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right,
				Color: colorAccent, Right: 1,
			}),
		),
		col.New(1),
	)
}

// paymentFooterRows: payment reference QR plus the notes block.
func paymentFooterRows(view InvoiceDocumentView) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("PAYMENT DETAILS", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorAccent, Top: 1,
			}),
		)),
	}

	reference := fmt.Sprintf("%s|%s|%s", view.InvoiceNumber, view.InvoiceID, view.Amount.StringFixed(2))
	rows = append(rows, row.New(40).Add(
		col.New(4).Add(code.NewQr(reference, props.Rect{
			Percent: 90,
			Center:  true,
		})),
		col.New(8).Add(
			text.New("Scan to pay with your invoice\nreference pre-filled.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorMuted,
			}),
			text.New("Reference: "+view.InvoiceNumber, props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 18, Left: 3, Color: colorAccent,
			}),
			text.New("Invoice ID: "+view.InvoiceID, props.Text{
				Size: 7, Top: 25, Left: 3, Color: colorMuted,
			}),
		),
	))

	if view.Notes != "" {
		rows = append(rows, row.New(8).Add(col.New(12).Add(
			text.New(view.Notes, props.Text{Size: 7, Color: colorMuted, Top: 2}),
		)))
	}

	return rows
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// formatAmount renders a decimal with two places and thousands separators.
// Ex: 1234.5 -> "1,234.50"
func formatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	if negative {
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	n := len(whole)
	if n > 3 {
		buf := make([]byte, 0, n+n/3)
		for i := 0; i < n; i++ {
			if i > 0 && (n-i)%3 == 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, whole[i])
		}
		whole = string(buf)
	}

	out := whole + "." + frac
	if negative {
		out = "-" + out
	}
	return out
}
