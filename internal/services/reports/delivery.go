package reports

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/mailer"
	"github.com/xelth-com/cspsgo/internal/services/printer"
	"github.com/xelth-com/cspsgo/internal/workflow"
	"gorm.io/gorm"
)

// RenderPDF renders the report the actor may read
func (s *Service) RenderPDF(ctx context.Context, actor workflow.Actor, id string) ([]byte, *models.Report, error) {
	doc, err := s.loadDocument(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := s.renderer.RenderReport(*doc)
	if err != nil {
		return nil, nil, apperr.Upstream("generate report PDF", err)
	}
	return pdf, doc.Report, nil
}

// SendToClient renders, stores and emails the report, then moves it to
// envoye_client. Nothing is written when an external step fails.
func (s *Service) SendToClient(ctx context.Context, actor workflow.Actor, id, recipient string) (*models.Report, error) {
	if err := workflow.Require(actor, workflow.CapFinalizeReports); err != nil {
		return nil, err
	}

	doc, err := s.loadDocument(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	report := doc.Report
	if !workflow.CanTransitionReport(report.Status, models.ReportStatusSentToClient) {
		return nil, apperr.Validation("cannot send a report with status %s", report.Status)
	}

	to, err := pickRecipient(recipient, report.RecipientEmail, doc.Mission.ContactEmail)
	if err != nil {
		return nil, err
	}

	pdf, err := s.renderer.RenderReport(*doc)
	if err != nil {
		return nil, apperr.Upstream("generate report PDF", err)
	}

	filename := PDFFilename(doc.Mission, report)
	obj, err := s.files.Upload(ctx, pdf, path.Join("reports", report.MissionID), filename, "application/pdf")
	if err != nil {
		return nil, apperr.Upstream("store report PDF", err)
	}

	err = s.mail.Send(ctx, mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("Rapport de coordination SPS - %s", doc.Mission.Title),
		Body:    emailBody(doc),
		Attachments: []mailer.Attachment{{
			Filename:    filename,
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
	if err != nil {
		s.discard(ctx, obj.Key)
		return nil, apperr.Upstream("send report email", err)
	}

	var sent *models.Report
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sent, err = findScoped(tx, actor, id)
		if err != nil {
			return err
		}
		if sent.Status != models.ReportStatusSentToClient {
			if err := s.transition(tx, actor, sent, models.ReportStatusSentToClient); err != nil {
				return err
			}
		}
		sent.RecipientEmail = to
		sent.PDFURL = obj.URL
		if err := tx.Save(sent).Error; err != nil {
			return apperr.Internal("update report", err)
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, obj.Key)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"reportId": sent.ID, "to": to}).Info("Report sent to client")
	return sent, nil
}

// loadDocument gathers the report with its mission, visit and author
func (s *Service) loadDocument(ctx context.Context, actor workflow.Actor, id string) (*printer.ReportDocument, error) {
	db := s.db.WithContext(ctx)
	report, err := findScoped(db.Preload("Mission").Preload("Visit"), actor, id)
	if err != nil {
		return nil, err
	}
	if report.Mission == nil {
		return nil, apperr.NotFound("mission")
	}

	doc := &printer.ReportDocument{
		Report:  report,
		Mission: report.Mission,
		Visit:   report.Visit,
		Link:    strings.TrimRight(s.baseURL, "/") + "/api/reports/" + report.ID + "/pdf",
	}

	var author models.UserAuth
	err = db.First(&author, "id = ?", report.UserID).Error
	switch {
	case err == nil:
		doc.Author = &author
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.Internal("load report author", err)
	}
	return doc, nil
}

// pickRecipient returns the first non-empty address, which must be valid
func pickRecipient(candidates ...string) (string, error) {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		addr, err := mail.ParseAddress(c)
		if err != nil {
			return "", apperr.Validation("invalid recipient email %q", c)
		}
		return addr.Address, nil
	}
	return "", apperr.Validation("no recipient email: set recipientEmail or the mission contact email")
}

// PDFFilename is the download and attachment name of a report PDF
func PDFFilename(m *models.Mission, r *models.Report) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, m.Title)
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("rapport_%s_%s.pdf", name, id)
}

func emailBody(doc *printer.ReportDocument) string {
	m := doc.Mission
	var b strings.Builder
	b.WriteString("Bonjour,\n\n")
	fmt.Fprintf(&b, "Veuillez trouver ci-joint le rapport « %s » concernant la mission %s (%s, %s).\n",
		doc.Report.Title, m.Title, m.Address, m.Date.Format("02/01/2006"))
	fmt.Fprintf(&b, "Taux de conformité : %.0f %%.\n\n", doc.Report.ConformityPercentage)
	if doc.Author != nil {
		fmt.Fprintf(&b, "Cordialement,\n%s\n", doc.Author.FullName())
	} else {
		b.WriteString("Cordialement.\n")
	}
	return b.String()
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		s.log.WithField("key", key).Warnf("Failed to discard stored PDF: %v", err)
	}
}
