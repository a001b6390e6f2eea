package printer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/cspsgo/internal/models"
)

// ReportDocument is everything printed on a report PDF
type ReportDocument struct {
	Report  *models.Report
	Mission *models.Mission
	Visit   *models.Visit    // optional
	Author  *models.UserAuth // optional
	// Link is encoded as a QR code in the footer when set
	Link string
}

// Renderer produces report PDFs
type Renderer struct {
	now func() time.Time
}

// NewRenderer creates a PDF renderer
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

var riskLabels = map[models.RiskLevel]string{
	models.RiskLevelLow:      "Faible",
	models.RiskLevelMedium:   "Moyen",
	models.RiskLevelHigh:     "Élevé",
	models.RiskLevelCritical: "Critique",
}

var typeLabels = map[models.MissionType]string{
	models.MissionTypeCSPS:   "Coordination SPS",
	models.MissionTypeAEU:    "AEU",
	models.MissionTypeDivers: "Divers",
}

const (
	pageMargin = 15.0
	lineHeight = 5.5
)

// RenderReport lays out the report on A4 pages
func (r *Renderer) RenderReport(doc ReportDocument) ([]byte, error) {
	if doc.Report == nil || doc.Mission == nil {
		return nil, fmt.Errorf("report and mission are required")
	}
	rep, m := doc.Report, doc.Mission

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 30)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr(rep.Title), false)
	pdf.SetAuthor("CSPS", false)

	var qrPng []byte
	if doc.Link != "" {
		png, err := qrcode.Encode(doc.Link, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("failed to encode QR code: %w", err)
		}
		qrPng = png
		pdf.RegisterImageOptionsReader("report_qr", gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}, bytes.NewReader(qrPng))
	}

	footer := rep.Footer
	printedAt := r.now().Format("02/01/2006 15:04")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-22)
		if qrPng != nil {
			pdf.ImageOptions("report_qr", 210-pageMargin-16, 297-24, 16, 16, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
		pdf.SetFont("Arial", "I", 8)
		if footer != "" {
			pdf.MultiCell(150, 4, tr(footer), "", "L", false)
		}
		pdf.SetX(pageMargin)
		pdf.CellFormat(150, 4, tr(fmt.Sprintf("Édité le %s - page %d/{nb}", printedAt, pdf.PageNo())), "", 0, "L", false, 0, "")
	})
	pdf.AliasNbPages("")

	pdf.AddPage()

	// Title block
	pdf.SetFont("Arial", "B", 16)
	pdf.MultiCell(0, 8, tr(rep.Title), "", "C", false)
	pdf.Ln(2)
	if rep.Header != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, lineHeight, tr(rep.Header), "", "C", false)
	}
	pdf.Ln(4)

	// Mission summary
	sectionTitle(pdf, tr, "Mission")
	rows := [][2]string{
		{"Client", m.Client},
		{"Référence client", m.RefClient},
		{"Adresse", m.Address},
		{"Date", m.Date.Format("02/01/2006") + " " + m.Time},
		{"Type", typeLabels[m.Type]},
		{"Référence affaire", m.RefBusiness},
		{"Contact", strings.TrimSpace(m.ContactFirstName + " " + m.ContactLastName)},
	}
	if doc.Author != nil {
		rows = append(rows, [2]string{"Coordonnateur", doc.Author.FullName()})
	}
	if doc.Visit != nil {
		rows = append(rows, [2]string{"Visite du", doc.Visit.VisitDate.Format("02/01/2006")})
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		keyValue(pdf, tr, row[0], row[1])
	}
	pdf.Ln(2)
	conformity(pdf, tr, rep.ConformityPercentage)
	pdf.Ln(4)

	if rep.Content != "" {
		sectionTitle(pdf, tr, "Compte rendu")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, lineHeight, tr(rep.Content), "", "J", false)
		pdf.Ln(3)
	}

	if rep.Observations != "" {
		sectionTitle(pdf, tr, "Observations")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, lineHeight, tr(rep.Observations), "", "J", false)
		pdf.Ln(3)
	}

	if doc.Visit != nil && len(doc.Visit.Photos) > 0 {
		sectionTitle(pdf, tr, fmt.Sprintf("Constats photographiques (%d)", len(doc.Visit.Photos)))
		for i, p := range doc.Visit.Photos {
			photoBlock(pdf, tr, i+1, p)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sectionTitle(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(0, 7, tr(title), "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func keyValue(pdf *gofpdf.Fpdf, tr func(string) string, key, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, lineHeight, tr(key), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, lineHeight, tr(value), "", "L", false)
}

// conformity draws the percentage with a proportional bar
func conformity(pdf *gofpdf.Fpdf, tr func(string) string, pct float64) {
	keyValue(pdf, tr, "Conformité", fmt.Sprintf("%.0f %%", pct))

	const barWidth = 120.0
	x, y := pdf.GetX()+45, pdf.GetY()+1
	pdf.SetDrawColor(160, 160, 160)
	pdf.Rect(x, y, barWidth, 4, "D")
	switch {
	case pct >= 80:
		pdf.SetFillColor(76, 175, 80)
	case pct >= 50:
		pdf.SetFillColor(255, 152, 0)
	default:
		pdf.SetFillColor(229, 57, 53)
	}
	if pct > 0 {
		pdf.Rect(x, y, barWidth*pct/100, 4, "F")
	}
	pdf.Ln(6)
}

func photoBlock(pdf *gofpdf.Fpdf, tr func(string) string, n int, p models.Photo) {
	pdf.SetFont("Arial", "B", 10)
	label := fmt.Sprintf("Photo %d", n)
	if p.Validated {
		label += " (validée)"
	}
	pdf.CellFormat(0, lineHeight, tr(label), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	if p.Comment != "" {
		pdf.MultiCell(0, 5, tr("Commentaire : "+p.Comment), "", "L", false)
	}
	if a := p.Analysis; a != nil {
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Risque : %s (confiance %.0f %%)", riskLabels[a.RiskLevel], a.Confidence*100)), "", "L", false)
		pdf.MultiCell(0, 5, tr("Constat : "+a.Observation), "", "L", false)
		if a.Recommendation != "" {
			pdf.MultiCell(0, 5, tr("Préconisation : "+a.Recommendation), "", "L", false)
		}
		if len(a.References) > 0 {
			pdf.MultiCell(0, 5, tr("Références : "+strings.Join(a.References, ", ")), "", "L", false)
		}
	}
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(0, 5, tr(p.URL), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
}
