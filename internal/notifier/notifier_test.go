package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/postcycle/internal/config"
	"github.com/ibeckermayer/postcycle/internal/report"
	"github.com/ibeckermayer/postcycle/internal/types"
)

type recordingSender struct {
	to, subject string
	sent        int
}

func (r *recordingSender) Send(to, subject, htmlBody, plainBody string) error {
	r.to, r.subject = to, subject
	r.sent++
	return nil
}

func TestSendReportOnFailureOnly(t *testing.T) {
	sender := &recordingSender{}
	n := New(sender, "ops@example.com", true)
	rendered := &report.Rendered{Subject: "s"}

	clean := types.CycleReport{Outcomes: []types.PostOutcome{{Channel: "twitter", Success: true}}}
	sent, err := n.SendReport(clean, rendered)
	require.NoError(t, err)
	assert.False(t, sent)

	failed := types.CycleReport{Outcomes: []types.PostOutcome{{Channel: "twitter", Error: types.KindNetwork}}}
	sent, err = n.SendReport(failed, rendered)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "ops@example.com", sender.to)
	assert.Equal(t, 1, sender.sent)
}

func TestSendReportAlways(t *testing.T) {
	sender := &recordingSender{}
	n := New(sender, "ops@example.com", false)
	sent, err := n.SendReport(types.CycleReport{}, &report.Rendered{Subject: "s"})
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestNewFromConfig(t *testing.T) {
	_, err := NewFromConfig(config.EmailConfig{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 25, ToAddr: "a@b.c"}, true)
	assert.NoError(t, err)

	_, err = NewFromConfig(config.EmailConfig{Provider: "carrier-pigeon"}, true)
	assert.Error(t, err)
}
