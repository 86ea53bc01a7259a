package offerdoc

import (
	"bytes"
	"fmt"

	"venuepilot/models"

	"github.com/phpdave11/gofpdf"
)

// Renderer builds the offer PDF attached to offer emails. Everything on
// the page comes from structured state, nothing from conversation text.
type Renderer struct {
	VenueName string
}

func (r *Renderer) RenderOffer(ev *models.Event, client *models.Client, room *models.Room) ([]byte, error) {
	if ev.Offer == nil {
		return nil, fmt.Errorf("event %s has no offer to render", ev.ID)
	}
	o := ev.Offer

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, r.VenueName)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Event Offer")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Client", client.Name},
		{"Date", o.Date},
		{"Room", room.Name},
		{"Guests", fmt.Sprintf("%d", o.Guests)},
		{"Total price", fmt.Sprintf("%.2f %s", o.TotalPrice, o.Currency)},
	}
	if o.DepositRequired {
		rows = append(rows, [2]string{
			"Deposit", fmt.Sprintf("%.2f %s (%.0f%%)", o.DepositAmount, o.Currency, o.DepositPercent),
		})
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 8, row[0], "", 0, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "This offer is valid for 14 days. The booking becomes binding once the deposit has been received.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render offer pdf: %w", err)
	}
	return buf.Bytes(), nil
}
