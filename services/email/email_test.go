package emailsvc

import (
	"bytes"
	"log"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprende/academia/assets"
	"github.com/aprende/academia/core"
	"github.com/aprende/academia/testutil"
)

func newReceiptMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Ana Perez", Address: "ana.perez@example.com"}},
		Subject:      "You are enrolled in Go 101",
		TemplateName: "enrollment_receipt",
		TemplateData: map[string]interface{}{
			"StudentName":   "Ana Perez",
			"CourseTitle":   "Go 101",
			"PaymentID":     12,
			"Price":         "100.00",
			"Discount":      "20.00",
			"Amount":        "80.00",
			"PaymentMethod": "card",
			"PointsUsed":    0,
		},
	}
}

func TestConsoleService_SendMessages(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, logger)

	var out bytes.Buffer
	svc := NewConsoleService(conf, log.New(&out, "", 0), logger)
	svc.SendMessages(newReceiptMessage(), &core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"})
	svc.Wait()

	body := out.String()
	assert.Contains(t, body, "Subject: ["+conf.AppName+"] You are enrolled in Go 101")
	assert.Contains(t, body, `To: "Ana Perez" <ana.perez@example.com>`)
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "text/html; charset=utf-8")
	assert.Contains(t, body, "80.00")
	assert.NotContains(t, body, "dropped")
	assert.Equal(t, 1, strings.Count(body, "MIME-Version"))
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, logger)

	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(
		newReceiptMessage(),
		&core.EmailMessage{To: []mail.Address{{Address: "x@example.com"}}, TemplateName: "missing"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Go 101")
	assert.Contains(t, sent[0].HTMLContent, "Go 101")
}

func TestSendgridService_prepare(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewSendgridService(conf, testutil.NewLogger(conf))

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Ana Perez", Address: "ana.perez@example.com"}},
		Cc:          []mail.Address{{Address: "registrar@example.com"}},
		Subject:     "Hello",
		TextContent: "plain",
		HTMLContent: "<p>html</p>",
	}
	m := svc.prepare(msg)

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "["+conf.AppName+"] Hello", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "ana.perez@example.com", p.To[0].Address)
	require.Len(t, p.CC, 1)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
}
