// Package email renders and delivers the weekly KPI digest.
package email

import (
	"context"
	"fmt"
	"time"

	"leadboard_backend/internal/kpi"
	"leadboard_backend/platform/config"
)

// Sender delivers the weekly KPI digest.
type Sender interface {
	SendKPIDigest(ctx context.Context, weekStart time.Time, reports []kpi.ProjectReport) error
}

// NoopSender drops every digest. It is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendKPIDigest(context.Context, time.Time, []kpi.ProjectReport) error {
	return nil
}

// NewSender returns an SMTP sender when email is configured, otherwise a
// NoopSender.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.IsEmailEnabled() || len(cfg.GetDigestRecipients()) == 0 {
		return NoopSender{}, nil
	}
	if cfg.GetSMTPPort() <= 0 {
		return nil, fmt.Errorf("invalid SMTP_PORT %d", cfg.GetSMTPPort())
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
		cfg.GetDigestRecipients(),
	), nil
}

// SendKPIDigest mails one summary covering every report.
func (s *SMTPSender) SendKPIDigest(ctx context.Context, weekStart time.Time, reports []kpi.ProjectReport) error {
	if len(reports) == 0 || len(s.to) == 0 {
		return nil
	}
	subject, content, err := renderDigest(weekStart, reports)
	if err != nil {
		return err
	}
	return s.send(ctx, s.to, subject, content)
}

func renderDigest(weekStart time.Time, reports []kpi.ProjectReport) (string, string, error) {
	week := weekStart.Format("02/01/2006")
	data := digestEmailData{
		baseEmailData: baseEmailData{
			Title:      digestTitle,
			Heading:    digestTitle,
			Subheading: "Semana iniciada a " + week,
		},
		Projects: make([]digestProject, 0, len(reports)),
	}
	for _, r := range reports {
		project := digestProject{
			ProjectID:    r.ProjectID,
			Status:       string(r.Overall.Status),
			Leads14d:     r.Overall.Leads14d,
			Qualified14d: r.Overall.QualifiedLeads14d,
			Visits14d:    r.Overall.Visits14d,
			Proposals30d: r.Overall.Proposals30d,
			Units:        make([]digestUnit, 0, len(r.Units)),
		}
		for _, u := range r.Units {
			project.Units = append(project.Units, digestUnit{
				Code:                u.Code,
				Status:              string(u.Status),
				LeadToVisitRate:     u.LeadToVisitRate,
				VisitToProposalRate: u.VisitToProposalRate,
				Gap:                 formatGap(u.GapVsAsk),
			})
		}
		data.Projects = append(data.Projects, project)
	}

	content, err := renderEmailTemplate("kpi_digest.html", data)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectKPIDigestFmt, week), content, nil
}

func formatGap(gap *int) string {
	if gap == nil {
		return "-"
	}
	return fmt.Sprintf("%+d%%", *gap)
}
