package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sales-report-api/pkg/errors"
	"github.com/noah-isme/sales-report-api/pkg/mail"
)

type stubSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *stubSender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubSender) messages() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Message(nil), s.sent...)
}

func TestDeliveryServiceDispatchRawData(t *testing.T) {
	sender := &stubSender{}
	svc := NewDeliveryService(sender, NewMetricsService(), DeliveryConfig{}, nil)

	err := svc.Dispatch(context.Background(), DeliveryRequest{To: "ops@example.com", Records: threeReports(t)})
	require.NoError(t, err)

	sent := sender.messages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "ops@example.com", msg.To)
	assert.Equal(t, DefaultSubject, msg.Subject)
	assert.Contains(t, msg.Text, `"category": "Sales"`)
	assert.Contains(t, msg.Text, `"amount": 1000`)
	assert.Contains(t, msg.HTML, "<td>1000.00</td>")
	assert.Contains(t, msg.HTML, "<td>North</td>")
	assert.Empty(t, msg.Attachments)
	assert.EqualValues(t, 1, svc.metrics.Snapshot().DeliveriesSent)
}

func TestDeliveryServiceDispatchArtifact(t *testing.T) {
	sender := &stubSender{}
	svc := NewDeliveryService(sender, nil, DeliveryConfig{Subject: "Weekly sales"}, nil)

	artifact := &Artifact{Filename: "sales_report.pdf", ContentType: ContentTypePDF, Data: []byte("%PDF-1.3")}
	err := svc.Dispatch(context.Background(), DeliveryRequest{
		To:          "ops@example.com",
		Records:     threeReports(t),
		Artifact:    artifact,
		DownloadURL: "http://localhost/api/exports/token",
	})
	require.NoError(t, err)

	msg := sender.messages()[0]
	assert.Equal(t, "Weekly sales", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "sales_report.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, ContentTypePDF, msg.Attachments[0].ContentType)
	assert.Contains(t, msg.Text, "Download: http://localhost/api/exports/token")
	assert.Contains(t, msg.HTML, `href="http://localhost/api/exports/token"`)
}

func TestDeliveryServiceEscapesHTML(t *testing.T) {
	sender := &stubSender{}
	svc := NewDeliveryService(sender, nil, DeliveryConfig{}, nil)
	records := threeReports(t)
	records[0].User = "<script>alert(1)</script>"

	require.NoError(t, svc.Dispatch(context.Background(), DeliveryRequest{To: "ops@example.com", Records: records}))
	assert.NotContains(t, sender.messages()[0].HTML, "<script>")
}

func TestDeliveryServiceTransportFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("535 authentication failed")}
	metrics := NewMetricsService()
	svc := NewDeliveryService(sender, metrics, DeliveryConfig{}, nil)

	err := svc.Dispatch(context.Background(), DeliveryRequest{To: "ops@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDelivery))
	assert.EqualValues(t, 1, metrics.Snapshot().DeliveriesFailed)
}

func TestDeliveryServiceRequiresRecipient(t *testing.T) {
	svc := NewDeliveryService(&stubSender{}, nil, DeliveryConfig{}, nil)
	err := svc.Dispatch(context.Background(), DeliveryRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
