// Package mcp exposes the construction engine as Model Context Protocol
// tools, so assistants can synthesize sequences and adapt models.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpgo "github.com/felixgeelhaar/mcp-go"
	mcpserver "github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/tastate/application"
	"github.com/felixgeelhaar/tastate/domain/construction"
	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/infrastructure/logging"
	"github.com/felixgeelhaar/tastate/infrastructure/modelfile"
)

// Tool names.
const (
	ToolSynthesize  = "synthesize"
	ToolConstruct   = "construct"
	ToolGetReport   = "get_report"
	ToolListReports = "list_reports"
)

// ErrInvalidInput indicates a tool call with malformed arguments.
var ErrInvalidInput = errors.New("invalid tool input")

// Config configures the server.
type Config struct {
	// Name is the server name.
	Name string

	// Version is the server version.
	Version string

	// Description is an optional server description.
	Description string

	// Instructions provides usage instructions for clients.
	Instructions string

	// Engine runs the tool calls.
	Engine *application.Engine
}

// Server wraps an MCP server around the engine.
type Server struct {
	srv    *mcpgo.Server
	engine *application.Engine
}

// NewServer creates a server and registers the engine tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("%w: engine is required", application.ErrInvalidEngineConfig)
	}
	if cfg.Name == "" {
		cfg.Name = "tastate"
	}

	info := mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: cfg.Description,
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}

	var opts []mcpgo.Option
	if cfg.Instructions != "" {
		opts = append(opts, mcpgo.WithInstructions(cfg.Instructions))
	}

	s := &Server{
		srv:    mcpgo.NewServer(info, opts...),
		engine: cfg.Engine,
	}
	s.register()
	return s, nil
}

func (s *Server) register() {
	s.srv.Tool(ToolSynthesize).
		Description("Synthesize an operation sequence that reaches a clock zone from all clocks at zero. Input: {\"zone\": [\"x <= 3\", \"x - y >= 1\"]}").
		Handler(s.HandleSynthesize)
	s.srv.Tool(ToolConstruct).
		Description("Adapt a timed automaton so its initial state reaches a target state. Input: {\"model\": {...}, \"locations\": [...], \"variables\": {...}, \"zone\": [...], \"format\": \"yaml\"}").
		Handler(s.HandleConstruct)
	s.srv.Tool(ToolGetReport).
		Description("Fetch a construction report. Input: {\"id\": \"...\"}").
		Handler(s.HandleGetReport)
	s.srv.Tool(ToolListReports).
		Description("List construction reports with a summary. Input: {\"status\": \"failed\", \"model\": \"...\", \"limit\": 10}").
		Handler(s.HandleListReports)
}

// Server returns the underlying mcp-go server.
func (s *Server) Server() *mcpgo.Server {
	return s.srv
}

// Use adds middleware to the server.
func (s *Server) Use(middlewares ...mcpserver.Middleware) {
	s.srv.Use(middlewares...)
}

// ServeStdio runs the server over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context, opts ...mcpgo.ServeOption) error {
	return mcpgo.ServeStdio(ctx, s.srv, opts...)
}

// ServeHTTP runs the server over HTTP with SSE.
func (s *Server) ServeHTTP(ctx context.Context, addr string, opts ...mcpgo.HTTPOption) error {
	return mcpgo.ServeHTTP(ctx, s.srv, addr, opts...)
}

type synthesizeInput struct {
	Zone []string `json:"zone"`
}

// SynthesisOutput is the result of the synthesize tool.
type SynthesisOutput struct {
	Strategy string        `json:"strategy"`
	Sequence []string      `json:"sequence"`
	Witness  dbm.Valuation `json:"witness,omitempty"`
	Exact    bool          `json:"exact"`
	Zone     []string      `json:"zone"`
}

// HandleSynthesize runs the synthesize tool.
func (s *Server) HandleSynthesize(ctx context.Context, input json.RawMessage) (string, error) {
	var in synthesizeInput
	if err := unmarshal(input, &in); err != nil {
		return "", err
	}
	if len(in.Zone) == 0 {
		return "", fmt.Errorf("%w: zone is required", ErrInvalidInput)
	}
	zone, err := modelfile.ParseZone(in.Zone)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	res, err := s.engine.Synthesize(ctx, zone)
	if err != nil {
		return "", err
	}
	logging.Debug().
		Add(logging.Component("mcp")).
		Add(logging.Operation(ToolSynthesize)).
		Add(logging.SequenceLength(len(res.Sequence))).
		Msg("tool call")

	return render(SynthesisOutput{
		Strategy: string(res.Strategy),
		Sequence: res.Sequence.Strings(),
		Witness:  res.Witness,
		Exact:    res.Exact,
		Zone:     constraintStrings(res.Zone),
	})
}

type constructInput struct {
	Model     *modelfile.Model `json:"model"`
	ModelPath string           `json:"model_path"`
	Locations []string         `json:"locations"`
	Variables map[string]any   `json:"variables"`
	Zone      []string         `json:"zone"`
	Format    string           `json:"format"`
}

// ConstructionOutput is the result of the construct tool.
type ConstructionOutput struct {
	Report *construction.Report `json:"report"`
	Model  string               `json:"model"`
}

// HandleConstruct runs the construct tool. The adapted model is returned
// encoded in the requested format, yaml by default.
func (s *Server) HandleConstruct(ctx context.Context, input json.RawMessage) (string, error) {
	var in constructInput
	if err := unmarshal(input, &in); err != nil {
		return "", err
	}

	format := modelfile.FormatYAML
	if in.Format != "" {
		f, err := modelfile.ParseFormat(in.Format)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		format = f
	}

	tgt := modelfile.Target{Model: in.ModelPath, Locations: in.Locations, Variables: in.Variables, Zone: in.Zone}
	var req application.Request
	switch {
	case in.Model != nil:
		g, err := in.Model.Graph()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		req.Graph = g
	case in.ModelPath != "":
		g, err := modelfile.LoadModel(in.ModelPath)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		req.Graph = g
	default:
		return "", fmt.Errorf("%w: model or model_path is required", ErrInvalidInput)
	}

	zone, err := tgt.ZoneOver(req.Graph.Clocks)
	if err != nil {
		return "", err
	}
	req.Locations = tgt.Locations
	req.Variables = tgt.Variables
	req.Zone = zone

	c, err := s.engine.Construct(ctx, req)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := modelfile.EncodeModel(&buf, c.Graph, format); err != nil {
		return "", err
	}
	return render(ConstructionOutput{Report: c.Report, Model: buf.String()})
}

type getReportInput struct {
	ID string `json:"id"`
}

// HandleGetReport runs the get_report tool.
func (s *Server) HandleGetReport(ctx context.Context, input json.RawMessage) (string, error) {
	var in getReportInput
	if err := unmarshal(input, &in); err != nil {
		return "", err
	}
	if in.ID == "" {
		return "", fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	report, err := s.engine.Report(ctx, in.ID)
	if err != nil {
		return "", err
	}
	return render(report)
}

type listReportsInput struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Limit  int    `json:"limit"`
}

// ReportsOutput is the result of the list_reports tool.
type ReportsOutput struct {
	Reports []*construction.Report `json:"reports"`
	Summary construction.Summary   `json:"summary"`
}

// HandleListReports runs the list_reports tool. The summary covers every
// report matching the status and model, ignoring the limit.
func (s *Server) HandleListReports(ctx context.Context, input json.RawMessage) (string, error) {
	var in listReportsInput
	if err := unmarshal(input, &in); err != nil {
		return "", err
	}

	filter := construction.ListFilter{
		Model:      in.Model,
		OrderBy:    construction.OrderByStartTime,
		Descending: true,
	}
	if in.Status != "" {
		status := construction.Status(strings.ToLower(in.Status))
		if !status.IsValid() {
			return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
		}
		filter.Status = []construction.Status{status}
	}

	summary, err := s.engine.Summary(ctx, filter)
	if err != nil {
		return "", err
	}
	filter.Limit = in.Limit
	reports, err := s.engine.Reports(ctx, filter)
	if err != nil {
		return "", err
	}
	if reports == nil {
		reports = []*construction.Report{}
	}
	return render(ReportsOutput{Reports: reports, Summary: summary})
}

func unmarshal(input json.RawMessage, out any) error {
	if len(bytes.TrimSpace(input)) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func render(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func constraintStrings(z *dbm.DBM) []string {
	if z == nil {
		return nil
	}
	cs := z.Constraints()
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
