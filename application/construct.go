package application

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/tastate/domain/adaptation"
	"github.com/felixgeelhaar/tastate/domain/artifact"
	"github.com/felixgeelhaar/tastate/domain/construction"
	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
	"github.com/felixgeelhaar/tastate/domain/synthesis"
	"github.com/felixgeelhaar/tastate/domain/target"
	"github.com/felixgeelhaar/tastate/domain/telemetry"
	"github.com/felixgeelhaar/tastate/infrastructure/logging"
	"github.com/felixgeelhaar/tastate/infrastructure/modelfile"
	"github.com/felixgeelhaar/tastate/infrastructure/statemachine"
)

// Stages a construction can fail in, as recorded in metrics.
const (
	stageCompose      = "compose"
	stageSynthesis    = "synthesis"
	stageAdaptation   = "adaptation"
	stageVerification = "verification"
	stageExport       = "export"
	stagePersist      = "persist"
)

// Request describes one construction.
type Request struct {
	// Name labels the request in batch output. Optional.
	Name string

	// Graph is the model to adapt. It is not modified.
	Graph *model.Graph

	// Locations holds one target location ID per process.
	Locations target.LocationVector

	// Variables holds target variable values.
	Variables model.Valuation

	// Zone is the target clock zone; nil means unconstrained.
	Zone *dbm.DBM
}

// Construction is the outcome of Construct. Fields after Report are set
// as far as the construction got.
type Construction struct {
	Report    *construction.Report
	State     *target.State
	Synthesis *synthesis.Result
	Graph     *model.Graph
	Path      *adaptation.Path
	Outcome   *statemachine.Outcome
	Artifact  *artifact.Ref
}

// Construct composes the target, synthesizes a sequence for its effective
// zone, adapts the model, verifies the inserted path and exports the
// adapted model. The report is persisted whether or not a stage fails.
func (e *Engine) Construct(ctx context.Context, req Request) (*Construction, error) {
	if req.Graph == nil {
		return nil, fmt.Errorf("%w: no model", ErrInvalidRequest)
	}

	report := construction.NewReport(req.Graph.Name, req.Locations)
	c := &Construction{Report: report}

	ctx, span := e.tracer.StartSpan(ctx, telemetry.SpanConstruct, telemetry.WithAttributes(
		telemetry.String(telemetry.KeyReportID, report.ID),
		telemetry.String(telemetry.KeyModel, req.Graph.Name),
		telemetry.Strings(telemetry.KeyLocations, req.Locations),
	))
	e.metrics.IncrementActiveConstructions(ctx)
	defer e.metrics.DecrementActiveConstructions(ctx)

	stage, err := e.construct(ctx, req, c)
	if err != nil {
		report.Fail(err)
		e.metrics.RecordError(ctx, stage)
		logging.Error().
			Add(logging.ReportID(report.ID)).
			Add(logging.Model(report.Model)).
			Add(logging.Operation(stage)).
			Add(logging.ErrorField(err)).
			Msg("construction failed")
	} else {
		report.Complete()
		logging.Info().
			Add(logging.ReportID(report.ID)).
			Add(logging.Model(report.Model)).
			Add(logging.Locations(report.Locations)).
			Add(logging.SequenceLength(len(report.Sequence))).
			Add(logging.Duration(report.Duration())).
			Msg("construction completed")
	}

	if perr := e.persist(ctx, report); perr != nil {
		e.metrics.RecordError(ctx, stagePersist)
		logging.Warn().
			Add(logging.ReportID(report.ID)).
			Add(logging.ErrorField(perr)).
			Msg("report not saved")
		if err == nil {
			err = perr
		}
	}
	e.metrics.RecordConstruction(ctx, report)
	telemetry.End(span, err)
	return c, err
}

// construct runs the stages in order and returns the failing one.
func (e *Engine) construct(ctx context.Context, req Request, c *Construction) (string, error) {
	report := c.Report

	state, err := e.ComposeAndValidate(ctx, req.Graph, req.Locations, req.Variables, req.Zone)
	if err != nil {
		return stageCompose, err
	}
	c.State = state
	report.Variables = state.Variables()
	report.Zone = expressions(state.Zone())

	res, err := e.Synthesize(ctx, state.EffectiveZone())
	if err != nil {
		return stageSynthesis, err
	}
	c.Synthesis = res
	report.Strategy = string(res.Strategy)
	report.Sequence = res.Sequence.Strings()
	report.Witness = res.Witness
	report.Exact = res.Exact
	report.Measures.GenerationTime = res.Measures.GenerationTime
	report.Measures.ApplicationTime = res.Measures.ApplicationTime
	report.Measures.SequenceLength = res.Measures.Length
	report.Measures.ReducedLength = res.Measures.ReducedLength

	start := time.Now()
	adapted, path, err := e.Adapt(ctx, req.Graph, state, res.Sequence)
	report.Measures.AdaptationTime = time.Since(start)
	if err != nil {
		return stageAdaptation, err
	}
	c.Graph, c.Path = adapted, path
	report.Path = path.Describe(adapted)
	report.Measures.InsertedLocations = len(path.Locations) + len(path.Entries)
	report.Measures.InsertedEdges = path.Len() + len(path.Entries)

	if !e.skipVerify {
		start = time.Now()
		out, err := e.Verify(ctx, adapted, path, state, res.Witness)
		report.Measures.VerificationTime = time.Since(start)
		if err != nil {
			return stageVerification, err
		}
		c.Outcome = out
		report.Verified = true
	}

	if e.artifacts != nil {
		ref, err := e.export(ctx, report.ID, adapted)
		if err != nil {
			return stageExport, err
		}
		c.Artifact = ref
		report.Artifact = ref.ID
	}
	return "", nil
}

// export writes the adapted model to the artifact store under id.
func (e *Engine) export(ctx context.Context, id string, g *model.Graph) (*artifact.Ref, error) {
	ctx, span := e.tracer.StartSpan(ctx, telemetry.SpanExport, telemetry.WithAttributes(
		telemetry.String(telemetry.KeyReportID, id),
	))

	var buf bytes.Buffer
	if err := modelfile.EncodeModel(&buf, g, e.exportFormat); err != nil {
		telemetry.End(span, err)
		return nil, err
	}
	opts := artifact.DefaultStoreOptions().
		WithID(id).
		WithName(g.Name + e.exportFormat.Extension()).
		WithContentType(e.exportFormat.ContentType()).
		WithMetadata("model", g.Name)

	var ref artifact.Ref
	err := e.executor.Do(ctx, func(ctx context.Context) error {
		var err error
		ref, err = e.artifacts.Store(ctx, bytes.NewReader(buf.Bytes()), opts)
		return err
	})
	telemetry.End(span, err)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", id, err)
	}
	return &ref, nil
}

// persist saves report once; stores reject a second save of the same ID.
func (e *Engine) persist(ctx context.Context, report *construction.Report) error {
	ctx, span := e.tracer.StartSpan(ctx, telemetry.SpanPersist, telemetry.WithAttributes(
		telemetry.String(telemetry.KeyReportID, report.ID),
	))
	err := e.executor.DoOnce(ctx, func(ctx context.Context) error {
		return e.reports.Save(ctx, report)
	})
	telemetry.End(span, err)
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.ID, err)
	}
	return nil
}

func expressions(z *dbm.DBM) []string {
	var out []string
	for _, c := range z.Constraints() {
		out = append(out, c.String())
	}
	return out
}
