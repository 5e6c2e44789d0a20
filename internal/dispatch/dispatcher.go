// Package dispatch sends per-page remediation requests to the AI remediation
// service, choosing between the code-fix and legacy payload shapes and
// tolerating partial failure across many independent sends.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/pkg/logger"
	"github.com/a11ykit/remedia/pkg/settle"
)

// Feature flags gating dispatch behavior.
const (
	// FlagAutoSuggest gates dispatch entirely: disabled means nothing is sent.
	FlagAutoSuggest = "a11y-auto-suggest"
	// FlagAutoFix gates the code-fix payload shape.
	FlagAutoFix = "a11y-auto-fix"
)

// CodeDomain keys code-snapshot lookups for this worker.
const CodeDomain = "accessibility"

// codeFixIssueTypes is the whitelist of rules the remediation service can
// patch directly in source. A page qualifies for the code-fix flow only when
// every one of its issues is on this list.
var codeFixIssueTypes = map[string]struct{}{
	"aria-allowed-attr":     {},
	"aria-prohibited-attr":  {},
	"aria-valid-attr-value": {},
	"button-name":           {},
	"image-alt":             {},
	"input-image-alt":       {},
	"label":                 {},
	"link-name":             {},
	"role-img-alt":          {},
	"svg-img-alt":           {},
}

// QueueClient sends one message to a queue.
type QueueClient interface {
	SendMessage(ctx context.Context, queueURL string, message any) error
}

// CodeInfo locates a code snapshot in the object store.
type CodeInfo struct {
	Bucket string `json:"codeBucket"`
	Path   string `json:"codePath"`
}

// CodeSource resolves the code snapshot for a site and domain. A nil or
// partial result means no snapshot is attached; it is never an error shape.
type CodeSource interface {
	GetCodeInfo(ctx context.Context, siteID, domain string) (*CodeInfo, error)
}

// FlagService answers per-site feature-flag checks.
type FlagService interface {
	IsAuditEnabledForSite(ctx context.Context, flag string, site models.Site) bool
}

// MetricsRecorder persists per-page dispatch counts so guidance replies can
// be validated against what was actually sent.
type MetricsRecorder interface {
	RecordDispatched(ctx context.Context, opportunityID, pageURL string, sent int) error
}

// Dispatcher fans remediation messages out to the queue, one per page.
type Dispatcher struct {
	queue    QueueClient
	code     CodeSource
	flags    FlagService
	metrics  MetricsRecorder
	queueURL string
	log      logger.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher. queueURL must be non-empty by the time
// Dispatch is called; it is validated there so config problems surface as a
// fatal, immediately-reported error.
func NewDispatcher(queue QueueClient, code CodeSource, flags FlagService, queueURL string, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		code:     code,
		flags:    flags,
		queueURL: queueURL,
		log:      log,
		now:      time.Now,
	}
}

// SetMetricsRecorder attaches an optional dispatch-count recorder. Recording
// is best-effort; failures are logged and never fail a dispatch.
func (d *Dispatcher) SetMetricsRecorder(metrics MetricsRecorder) {
	d.metrics = metrics
}

// Summary counts per-message outcomes of one dispatch pass.
type Summary struct {
	Successful int
	Failed     int
	Rejected   int
}

// Dispatch sends one remediation message per page. Every send is attempted
// independently; individual failures are recorded in the summary and never
// block sibling sends. The returned error is non-nil only for configuration
// problems detected before any send is attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, site models.Site, auditID, opportunityID string, pages []Page) (Summary, error) {
	if d.queueURL == "" {
		return Summary{}, fmt.Errorf("remediation queue URL is not configured")
	}

	if !d.flags.IsAuditEnabledForSite(ctx, FlagAutoSuggest, site) {
		d.log.Info("Auto-suggest disabled for site, skipping remediation dispatch", "site", site.ID)
		return Summary{}, nil
	}

	codeFix := d.flags.IsAuditEnabledForSite(ctx, FlagAutoFix, site)

	var codeInfo *CodeInfo
	if codeFix {
		codeInfo = d.lookupCodeInfo(ctx, site)
	}

	var summary Summary
	var tasks []settle.Task[string]
	for _, page := range pages {
		if len(page.Issues) == 0 {
			summary.Rejected++
			continue
		}

		msg := d.buildMessage(site, auditID, opportunityID, page, codeFix, codeInfo)
		tasks = append(tasks, func(ctx context.Context) (string, error) {
			if err := d.queue.SendMessage(ctx, d.queueURL, msg); err != nil {
				return msg.Data.URL, fmt.Errorf("sending remediation message for %s: %w", msg.Data.URL, err)
			}
			return msg.Data.URL, nil
		})
	}

	results := settle.All(ctx, tasks)
	for _, r := range results {
		if r.Ok() {
			summary.Successful++
			d.recordDispatched(ctx, opportunityID, r.Value)
		} else {
			summary.Failed++
			d.log.Error("[A11yProcessingError] Remediation message send failed",
				"site", site.ID, "url", r.Value, "error", r.Err)
		}
	}

	d.log.Info("Remediation dispatch complete",
		"site", site.ID,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"rejected", summary.Rejected,
	)

	return summary, nil
}

// recordDispatched stores a successful page send for later validation.
func (d *Dispatcher) recordDispatched(ctx context.Context, opportunityID, pageURL string) {
	if d.metrics == nil {
		return
	}
	if err := d.metrics.RecordDispatched(ctx, opportunityID, pageURL, 1); err != nil {
		d.log.Warn("Could not record dispatch count",
			"opportunity", opportunityID, "url", pageURL, "error", err)
	}
}

// buildMessage constructs one page's envelope. The code locator is attached
// only when both bucket and path are non-empty; any other shape is silently
// omitted.
func (d *Dispatcher) buildMessage(site models.Site, auditID, opportunityID string, page Page, codeFix bool, codeInfo *CodeInfo) Message {
	msg := Message{
		Type:         MessageType,
		SiteID:       site.ID,
		AuditID:      auditID,
		DeliveryType: site.DeliveryType,
		Time:         d.now().UTC().Format(time.RFC3339),
		Data: MessageData{
			URL:           page.URL,
			OpportunityID: opportunityID,
			IssuesList:    page.Issues,
		},
	}

	if codeFix && allCodeFixable(page.Issues) {
		msg.AggregationKey = opportunityID
		if codeInfo != nil && codeInfo.Bucket != "" && codeInfo.Path != "" {
			msg.Data.CodeBucket = codeInfo.Bucket
			msg.Data.CodePath = codeInfo.Path
		}
	}

	return msg
}

// lookupCodeInfo fetches the code snapshot locator. Lookup failures degrade
// to the legacy shape rather than failing the dispatch.
func (d *Dispatcher) lookupCodeInfo(ctx context.Context, site models.Site) *CodeInfo {
	info, err := d.code.GetCodeInfo(ctx, site.ID, CodeDomain)
	if err != nil {
		d.log.Warn("Code snapshot lookup failed, dispatching without code info",
			"site", site.ID, "error", err)
		return nil
	}
	return info
}

// allCodeFixable reports whether every issue's type is on the code-fix
// whitelist.
func allCodeFixable(issues []models.IssueDetail) bool {
	for _, issue := range issues {
		if _, ok := codeFixIssueTypes[issue.Type]; !ok {
			return false
		}
	}
	return true
}
