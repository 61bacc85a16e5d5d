package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSMTPSenderSend(t *testing.T) {
	dialer := &recordingDialer{}
	sender := NewSMTPSenderWithDialer(dialer, "reports@example.com")

	err := sender.Send(context.Background(), Message{
		To:      "ops@example.com",
		Subject: "Your Sales Report",
		Text:    "Attached.",
		HTML:    "<p>Attached.</p>",
		Attachments: []Attachment{{
			Filename:    "sales_report.csv",
			ContentType: "text/csv",
			Data:        []byte("id\n1\n"),
		}},
	})
	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)

	msg := dialer.sent[0]
	assert.Equal(t, []string{"reports@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"ops@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Your Sales Report"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, `filename="sales_report.csv"`)
	assert.Contains(t, raw, "text/csv")
}

func TestSMTPSenderErrors(t *testing.T) {
	dialer := &recordingDialer{err: errors.New("connection refused")}
	sender := NewSMTPSenderWithDialer(dialer, "reports@example.com")

	err := sender.Send(context.Background(), Message{To: "ops@example.com"})
	assert.ErrorContains(t, err, "connection refused")

	err = sender.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNoRecipient)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sender.Send(ctx, Message{To: "ops@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
