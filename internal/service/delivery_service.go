package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sales-report-api/internal/models"
	appErrors "github.com/noah-isme/sales-report-api/pkg/errors"
	"github.com/noah-isme/sales-report-api/pkg/mail"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "Your Sales Report"

var reportTableTemplate = template.Must(template.New("report").Parse(`<html><body>
<h2>{{.Title}}</h2>
{{if .Records}}<table border="1" cellpadding="4" cellspacing="0" style="border-collapse:collapse">
<thead><tr><th>ID</th><th>Date</th><th>Category</th><th>Amount</th><th>User</th><th>Region</th></tr></thead>
<tbody>{{range .Records}}<tr><td>{{.ID}}</td><td>{{.Date}}</td><td>{{.Category}}</td><td>{{.FormattedAmount}}</td><td>{{.User}}</td><td>{{.Region}}</td></tr>
{{end}}</tbody></table>{{else}}<p>No records matched.</p>{{end}}
{{if .Attachment}}<p>The full report is attached as {{.Attachment}}.</p>{{end}}
{{if .DownloadURL}}<p><a href="{{.DownloadURL}}">Download report</a>{{if .ExpiresAt}} (link valid until {{.ExpiresAt}}){{end}}</p>{{end}}
</body></html>`))

// DeliveryRequest describes one outbound report email.
type DeliveryRequest struct {
	To          string
	Records     []models.Report
	Artifact    *Artifact
	DownloadURL string
	LinkExpires time.Time
}

// DeliveryConfig holds the fixed message identity.
type DeliveryConfig struct {
	Subject string
}

// DeliveryService composes report emails and sends them synchronously.
type DeliveryService struct {
	sender  mail.Sender
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DeliveryConfig
}

// NewDeliveryService constructs a DeliveryService.
func NewDeliveryService(sender mail.Sender, metrics *MetricsService, cfg DeliveryConfig, logger *zap.Logger) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	return &DeliveryService{sender: sender, metrics: metrics, logger: logger, cfg: cfg}
}

// Dispatch builds and sends the email. Transport failures surface as
// DeliveryError and are not retried.
func (s *DeliveryService) Dispatch(ctx context.Context, req DeliveryRequest) error {
	if req.To == "" {
		return appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	msg, err := s.compose(req)
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to compose email")
	}

	err = s.sender.Send(ctx, msg)
	s.metrics.RecordDelivery(err)
	if err != nil {
		s.logger.Sugar().Warnw("report delivery failed", "to", req.To, "error", err)
		return appErrors.WrapAs(appErrors.ErrDelivery, err, "")
	}
	s.logger.Sugar().Infow("report delivered", "to", req.To, "records", len(req.Records), "attachment", msg.Attachments != nil)
	return nil
}

func (s *DeliveryService) compose(req DeliveryRequest) (mail.Message, error) {
	records := req.Records
	if records == nil {
		records = []models.Report{}
	}
	dump, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return mail.Message{}, fmt.Errorf("encode report data: %w", err)
	}

	text := bytes.NewBufferString("Report data:\n\n")
	text.Write(dump)
	text.WriteString("\n")
	if req.DownloadURL != "" {
		fmt.Fprintf(text, "\nDownload: %s\n", req.DownloadURL)
	}

	view := struct {
		Title       string
		Records     []models.Report
		Attachment  string
		DownloadURL string
		ExpiresAt   string
	}{Title: s.cfg.Subject, Records: req.Records, DownloadURL: req.DownloadURL}
	if !req.LinkExpires.IsZero() {
		view.ExpiresAt = req.LinkExpires.UTC().Format(time.RFC1123)
	}

	msg := mail.Message{To: req.To, Subject: s.cfg.Subject, Text: text.String()}
	if req.Artifact != nil {
		view.Attachment = req.Artifact.Filename
		msg.Attachments = []mail.Attachment{{
			Filename:    req.Artifact.Filename,
			ContentType: req.Artifact.ContentType,
			Data:        req.Artifact.Data,
		}}
	}

	html := &bytes.Buffer{}
	if err := reportTableTemplate.Execute(html, view); err != nil {
		return mail.Message{}, fmt.Errorf("render email body: %w", err)
	}
	msg.HTML = html.String()
	return msg, nil
}
