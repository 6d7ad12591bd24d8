package receipts

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"rentcars/internal/app/policies"
	"rentcars/internal/domain/shared/money"
)

const dateLayout = "Mon, 02 Jan 2006"

// Renderer lays out a booking receipt as a single A4 page.
type Renderer struct {
	Company string
	Support string
}

func (r Renderer) Render(receipt policies.Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking receipt "+receipt.BookingID, true)
	pdf.SetCreationDate(receipt.IssuedAt)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	company := r.Company
	if company == "" {
		company = "RentCars"
	}

	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(0, 12, tr(company+" booking receipt"))
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr("Issued "+receipt.IssuedAt.UTC().Format(time.RFC1123)))
	pdf.Ln(10)

	drawSectionTitle(pdf, "Booking")
	row(pdf, tr, "Booking ID", receipt.BookingID)
	row(pdf, tr, "Car", receipt.CarTitle)
	row(pdf, tr, "Driver", receipt.DriverName)
	row(pdf, tr, "Email", receipt.Email)
	pdf.Ln(4)

	drawSectionTitle(pdf, "Trip")
	row(pdf, tr, "Pickup", formatStop(receipt.Pickup, receipt.PickupLocation))
	row(pdf, tr, "Return", formatStop(receipt.Return, receipt.ReturnLocation))
	row(pdf, tr, "Rental days", fmt.Sprintf("%d", receipt.Days))
	pdf.Ln(4)

	drawSectionTitle(pdf, "Charges")
	cost := receipt.Cost
	amountRow(pdf, tr, "Rental", cost.Subtotal)
	if receipt.Insurance {
		amountRow(pdf, tr, "Insurance", cost.InsuranceFee)
	}
	amountRow(pdf, tr, "Tax", cost.Tax)
	amountRow(pdf, tr, "Refundable deposit", cost.Deposit)
	pdf.Line(10, pdf.GetY()+1, 200, pdf.GetY()+1)
	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(120, 8, "Total charged", "", 0, "L", false, 0, "")
	pdf.CellFormat(70, 8, tr(cost.Total.String()), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 9)
	pdf.MultiCell(0, 5, tr(fmt.Sprintf(
		"Payment reference %s. Free cancellation is available until 24 hours before pickup. The deposit is returned after the car is handed back.",
		receipt.PaymentAuthorizationID,
	)), "", "L", false)
	if r.Support != "" {
		pdf.Ln(2)
		pdf.MultiCell(0, 5, tr("Questions? Contact "+r.Support+"."), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipts: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.SetFillColor(235, 238, 245)
	pdf.CellFormat(0, 8, title, "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func row(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
}

func amountRow(pdf *gofpdf.Fpdf, tr func(string) string, label string, amount money.Money) {
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(120, 7, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(70, 7, tr(amount.String()), "", 1, "R", false, 0, "")
}

func formatStop(at time.Time, location string) string {
	when := at.UTC().Format(dateLayout)
	if location = strings.TrimSpace(location); location != "" {
		return when + ", " + location
	}
	return when
}
