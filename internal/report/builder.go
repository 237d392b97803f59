// Package report renders cycle reports for operators.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ibeckermayer/postcycle/internal/types"
)

// Builder creates report emails from cycle reports
type Builder struct {
	location *time.Location
	template *template.Template
}

// New creates a report builder that shows times in loc (UTC when nil)
func New(loc *time.Location) (*Builder, error) {
	if loc == nil {
		loc = time.UTC
	}

	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		location: loc,
		template: tmpl,
	}, nil
}

// Rendered is a report ready for sending
type Rendered struct {
	Subject   string
	HTMLBody  string
	PlainBody string
}

// ReportData is the template data structure
type ReportData struct {
	Title     string
	Date      string
	CycleID   string
	Region    string
	Duration  string
	Trends    []string
	Media     string
	Channels  []ChannelData
	Succeeded int
	Failed    int
}

// ChannelData represents one outcome in the report template
type ChannelData struct {
	Channel    string
	Topic      string
	Status     string
	OK         bool
	ExternalID string
	ErrorKind  string
	Detail     string
	Message    string
	Notes      []string
}

// Build renders r
func (b *Builder) Build(r types.CycleReport) (*Rendered, error) {
	data := ReportData{
		Title:     "Posting cycle report",
		Date:      r.StartedAt.In(b.location).Format("Monday, January 2 15:04 MST"),
		CycleID:   r.CycleID,
		Region:    r.Region,
		Duration:  r.Duration().Round(time.Millisecond).String(),
		Trends:    r.Trends,
		Media:     mediaStatus(r),
		Channels:  make([]ChannelData, len(r.Outcomes)),
		Succeeded: r.Succeeded(),
		Failed:    r.Failed(),
	}

	for i, o := range r.Outcomes {
		ch := ChannelData{
			Channel:    o.Channel,
			Topic:      string(o.Topic),
			OK:         o.Success,
			Status:     "published",
			ExternalID: o.ExternalID,
			ErrorKind:  string(o.Error),
			Detail:     truncate(o.Detail, 300),
			Message:    o.Message,
		}
		if !o.Success {
			ch.Status = "failed"
		}
		if o.WithMedia {
			ch.Notes = append(ch.Notes, "with image")
		}
		if o.Fallback {
			ch.Notes = append(ch.Notes, "fallback text")
		}
		data.Channels[i] = ch
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Rendered{
		Subject:   subject(r, b.location),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
	}, nil
}

func subject(r types.CycleReport, loc *time.Location) string {
	status := "all published"
	if failed := r.Failed(); failed > 0 {
		status = fmt.Sprintf("%d of %d failed", failed, len(r.Outcomes))
	}
	return fmt.Sprintf("Posting cycle %s - %s", r.StartedAt.In(loc).Format("Jan 2 15:04"), status)
}

func mediaStatus(r types.CycleReport) string {
	switch {
	case r.UsedMedia:
		return "image attached"
	case r.MediaDowngraded:
		return "image staging failed, posted text-only"
	default:
		return "text-only"
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func buildPlainText(data ReportData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s\n%s\n", data.Title, data.Date))
	buf.WriteString(fmt.Sprintf("Cycle %s, region %s, took %s\n", data.CycleID, data.Region, data.Duration))
	buf.WriteString(fmt.Sprintf("Media: %s\n", data.Media))
	if len(data.Trends) > 0 {
		buf.WriteString(fmt.Sprintf("Trends: %v\n", data.Trends))
	}
	buf.WriteString("\n")

	for i, ch := range data.Channels {
		buf.WriteString(fmt.Sprintf("%d. %s [%s] %s\n", i+1, ch.Channel, ch.Status, ch.Topic))
		if ch.ExternalID != "" {
			buf.WriteString(fmt.Sprintf("   id: %s\n", ch.ExternalID))
		}
		if ch.ErrorKind != "" {
			buf.WriteString(fmt.Sprintf("   error (%s): %s\n", ch.ErrorKind, ch.Detail))
		}
		for _, n := range ch.Notes {
			buf.WriteString(fmt.Sprintf("   note: %s\n", n))
		}
		buf.WriteString("\n")
	}

	buf.WriteString(fmt.Sprintf("%d published, %d failed\n", data.Succeeded, data.Failed))
	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #2e7d32; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 5px; }
        .meta { color: #666; font-size: 13px; margin-bottom: 20px; }
        .channel { border-bottom: 1px solid #eee; padding: 15px 0; }
        .channel:last-child { border-bottom: none; }
        .name { font-weight: bold; color: #333; }
        .ok { color: #2e7d32; }
        .failed { color: #c62828; }
        .message { margin: 10px 0; line-height: 1.4; white-space: pre-wrap; }
        .error { color: #c62828; font-size: 13px; }
        .note { background: #e8f5e9; color: #2e7d32; padding: 2px 8px; border-radius: 12px; font-size: 12px; margin-right: 5px; }
        .trend { background: #e3f2fd; color: #1565c0; padding: 2px 8px; border-radius: 12px; font-size: 12px; margin-right: 5px; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>
        <div class="meta">Cycle {{.CycleID}} · {{.Region}} · {{.Duration}} · {{.Media}}</div>
        {{if .Trends}}<div>{{range .Trends}}<span class="trend">{{.}}</span>{{end}}</div>{{end}}

        {{range .Channels}}
        <div class="channel">
            <div class="name">{{.Channel}} <span class="{{if .OK}}ok{{else}}failed{{end}}">{{.Status}}</span></div>
            <div>{{.Topic}}</div>
            {{if .Message}}<div class="message">{{.Message}}</div>{{end}}
            {{if .ExternalID}}<div class="meta">id {{.ExternalID}}</div>{{end}}
            {{if .ErrorKind}}<div class="error">{{.ErrorKind}}: {{.Detail}}</div>{{end}}
            <div>{{range .Notes}}<span class="note">{{.}}</span>{{end}}</div>
        </div>
        {{end}}

        <div class="footer">
            {{.Succeeded}} published · {{.Failed}} failed · Generated by postcycle
        </div>
    </div>
</body>
</html>`
