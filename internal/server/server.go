// Package server exposes the Zotero library operations as MCP tools over
// stdio. Every tool reports through a uniform result envelope so clients
// can rely on one success and error shape across the whole surface.
package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/zotero-mcp/pkg/config"
	"github.com/Sternrassler/zotero-mcp/pkg/logging"
	"github.com/Sternrassler/zotero-mcp/pkg/zotero"
)

// Prometheus metrics for the tool surface.
var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zotero_tool_calls_total",
		Help: "Total tool invocations by tool name and outcome",
	}, []string{"tool", "outcome"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zotero_tool_duration_seconds",
		Help:    "Tool handler duration in seconds by tool name",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"tool"})
)

// Server wires the Zotero client into the MCP tool surface.
//
// Credentials are checked lazily: the server starts without them so
// clients can list tools and call zotero_get_sort_values, and every
// credentialed tool call reports a structured AUTH error until both
// ZOTERO_API_KEY and ZOTERO_USER_ID are present.
type Server struct {
	client         *zotero.Client
	authErr        error
	missing        []string
	uploadMaxBytes int64
	logger         zerolog.Logger
	version        string
	debug          bool
}

// New builds a Server from the loaded configuration.
func New(cfg *config.Config, version string) (*Server, error) {
	s := &Server{
		uploadMaxBytes: cfg.UploadMaxBytes,
		logger:         logging.NewLogger("mcp-server"),
		version:        version,
		debug:          cfg.Debug,
	}
	if err := cfg.Credentials.Validate(); err != nil {
		s.authErr = err
		s.missing = cfg.Credentials.Missing()
		return s, nil
	}
	client, err := zotero.New(cfg.ClientConfig())
	if err != nil {
		return nil, err
	}
	s.client = client
	return s, nil
}

// callLogger stamps the call's correlation id onto log events.
func (s *Server) callLogger(ctx context.Context) zerolog.Logger {
	if id, ok := logging.CorrelationID(ctx); ok {
		return s.logger.With().Str("correlation_id", id).Logger()
	}
	return s.logger
}

// zotero returns the API client, or the AUTH error when credentials are
// missing.
func (s *Server) zotero(ctx context.Context) (*zotero.Client, error) {
	if s.client == nil {
		logger := s.callLogger(ctx)
		logger.Warn().
			Str("event", "auth.missing").
			Strs("missing", s.missing).
			Msg("Zotero credentials missing")
		return nil, s.authErr
	}
	return s.client, nil
}

// argsMap converts a typed tool input into the generic map logged on
// tool.call lines. Optional fields the caller omitted stay absent.
func argsMap(in any) map[string]any {
	raw, err := json.Marshal(in)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// handle wraps a tool body with correlation ids, logging, metrics, and
// the result envelope. Domain failures become error envelopes; any other
// error propagates to the MCP framework as a tool failure.
func handle[In any](s *Server, tool string, body func(context.Context, In) (any, error)) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Envelope, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Envelope, error) {
		ctx = logging.WithCorrelationID(ctx, uuid.NewString())
		logger := s.callLogger(ctx)
		started := time.Now()

		logger.Info().
			Str("event", "tool.call").
			Str("tool", tool).
			Interface("args", logging.Redact(argsMap(in))).
			Msg("Tool invoked")

		data, err := body(ctx, in)
		duration := time.Since(started)
		toolDuration.WithLabelValues(tool).Observe(duration.Seconds())

		if err != nil {
			apiErr, ok := zotero.AsAPIError(err)
			if !ok {
				toolCallsTotal.WithLabelValues(tool, "internal_error").Inc()
				logger.Error().
					Str("event", "tool.error").
					Str("tool", tool).
					Err(err).
					Int64("duration_ms", duration.Milliseconds()).
					Msg("Tool call failed unexpectedly")
				return nil, Envelope{}, err
			}
			envelope := errEnvelope(apiErr)
			toolCallsTotal.WithLabelValues(tool, string(apiErr.Code)).Inc()
			logger.Warn().
				Str("event", "tool.error").
				Str("tool", tool).
				Str("code", string(apiErr.Code)).
				Str("message", apiErr.Message).
				Interface("details", logging.Redact(envelope.Error.Details)).
				Int64("duration_ms", duration.Milliseconds()).
				Msg("Tool call failed")
			return nil, envelope, nil
		}

		toolCallsTotal.WithLabelValues(tool, "success").Inc()
		logger.Info().
			Str("event", "tool.success").
			Str("tool", tool).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("Tool call completed")
		return nil, okEnvelope(data), nil
	}
}

func (s *Server) registerTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:         toolListCollections,
		Description:  "List collections in the personal Zotero library.",
		InputSchema:  listCollectionsInputSchema(),
		OutputSchema: listCollectionsOutputSchema(),
	}, handle(s, toolListCollections, s.listCollections))

	mcp.AddTool(srv, &mcp.Tool{
		Name:         toolSearchItems,
		Description:  "Search and list items in the personal Zotero library.",
		InputSchema:  searchItemsInputSchema(),
		OutputSchema: searchItemsOutputSchema(),
	}, handle(s, toolSearchItems, s.searchItems))

	mcp.AddTool(srv, &mcp.Tool{
		Name:         toolGetSortValues,
		Description:  "Return the server's known Zotero sort values and fallbacks.",
		InputSchema:  sortValuesInputSchema(),
		OutputSchema: sortValuesOutputSchema(),
	}, handle(s, toolGetSortValues, s.getSortValues))

	mcp.AddTool(srv, &mcp.Tool{
		Name:         toolGetItem,
		Description:  "Fetch metadata for a single item in the personal Zotero library.",
		InputSchema:  getItemInputSchema(),
		OutputSchema: getItemOutputSchema(),
	}, handle(s, toolGetItem, s.getItem))

	mcp.AddTool(srv, &mcp.Tool{
		Name:         toolCreateItem,
		Description:  "Create a new item in the personal Zotero library.",
		InputSchema:  createItemInputSchema(),
		OutputSchema: createItemOutputSchema(),
	}, handle(s, toolCreateItem, s.createItem))

	mcp.AddTool(srv, &mcp.Tool{
		Name:         toolUploadAttachment,
		Description:  "Upload a file attachment and link it to an existing item. Content type is inferred when omitted.",
		InputSchema:  uploadAttachmentInputSchema(),
		OutputSchema: uploadAttachmentOutputSchema(),
	}, handle(s, toolUploadAttachment, s.uploadAttachment))

	mcp.AddTool(srv, &mcp.Tool{
		Name:         toolAttachArxivPDF,
		Description:  "Fetch an arXiv PDF and attach it to an existing item.",
		InputSchema:  attachArxivInputSchema(),
		OutputSchema: attachArxivOutputSchema(),
	}, handle(s, toolAttachArxivPDF, s.attachArxivPDF))

	mcp.AddTool(srv, &mcp.Tool{
		Name:         toolAddItemToCollection,
		Description:  "Add an item to a collection by collection key or name.",
		InputSchema:  addToCollectionInputSchema(),
		OutputSchema: addToCollectionOutputSchema(),
	}, handle(s, toolAddItemToCollection, s.addItemToCollection))
}

// Run serves the MCP tool surface on stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().
		Str("event", "server.start").
		Str("version", s.version).
		Bool("debug", s.debug).
		Msg("Zotero MCP server starting")

	srv := mcp.NewServer(&mcp.Implementation{Name: "zotero-mcp", Version: s.version}, nil)
	s.registerTools(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}
