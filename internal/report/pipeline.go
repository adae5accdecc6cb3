package report

import (
	"context"
	"encoding/json"

	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/metrics"
	"github.com/netsweep/netsweep/internal/scanning"
)

// Pipeline turns completed scan results into signed, queued report
// envelopes. Every completed scan is published exactly once, including
// scans that discovered nothing.
type Pipeline struct {
	signer   *Signer
	queue    *Queue
	resolver *Resolver
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewPipeline builds a pipeline. The resolver may be nil to skip
// reverse DNS enrichment.
func NewPipeline(signer *Signer, queue *Queue, resolver *Resolver, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		signer:   signer,
		queue:    queue,
		resolver: resolver,
		logger:   logger.WithComponent("report"),
		metrics:  metrics.GetGlobalMetrics(),
	}
}

// Publish enriches, signs and enqueues one scan result.
func (p *Pipeline) Publish(ctx context.Context, result *scanning.Result) error {
	rep := NewReport(result)

	if p.resolver != nil && len(result.Hosts) > 0 {
		rep.Hostnames = p.resolver.Resolve(ctx, result.Hosts)
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		return errors.WrapReportErrorWithID(errors.CodeSigning,
			"failed to encode report payload", rep.ID.String(), err)
	}

	env := &Envelope{
		Report:    rep,
		Signature: p.signer.Sign(payload),
	}

	path, err := p.queue.Enqueue(env)
	if err != nil {
		p.logger.ErrorReport("Failed to queue report", err,
			"report_id", rep.ID.String())
		return err
	}

	p.metrics.IncrementReportsQueued(rep.Category)
	p.logger.InfoReport("Report queued",
		"report_id", rep.ID.String(),
		"category", rep.Category,
		"target", rep.Target,
		"hosts", len(rep.Hosts),
		"path", path)

	return nil
}
