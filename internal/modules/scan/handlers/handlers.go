// Package handlers provides HTTP handlers for scan operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/modules/legs"
	"github.com/aristath/spreadscan/internal/modules/scan"
	"github.com/aristath/spreadscan/internal/modules/spreads"
)

// previewLimit caps the combinations returned by the leg preview endpoint.
const previewLimit = 1000

// ContractLister lists the contract symbols that have price data.
type ContractLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// Handler handles scan HTTP requests
type Handler struct {
	service   *scan.Service
	contracts ContractLister
	log       zerolog.Logger
}

// NewHandler creates a new scan handler. contracts may be nil.
func NewHandler(service *scan.Service, contracts ContractLister, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		contracts: contracts,
		log:       log.With().Str("handler", "scans").Logger(),
	}
}

// DefinitionView is a configured scan plus a summary of its last run.
type DefinitionView struct {
	scan.Definition
	LastRun *RunView `json:"last_run,omitempty"`
}

// RunView summarizes a scan result.
type RunView struct {
	RunID        string      `json:"run_id"`
	Name         string      `json:"name"`
	Contract     string      `json:"contract"`
	Type         domain.Mode `json:"type"`
	Combinations int         `json:"combinations"`
	MatchCount   int         `json:"match_count"`
	StartedAt    time.Time   `json:"started_at"`
	DurationMs   int64       `json:"duration_ms"`
	Error        string      `json:"error,omitempty"`
}

// StatView is a statistic summary without its bucketed series.
type StatView struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdev"`
	Median float64 `json:"median"`
}

// MatchView is one match with its latest row and statistic summaries.
type MatchView struct {
	AggregateID string                        `json:"aggregate_id"`
	Spec        legs.Match                    `json:"spec"`
	PlotIDs     []string                      `json:"plot_ids"`
	Latest      *spreads.Row                  `json:"latest,omitempty"`
	Stats       map[spreads.StatName]StatView `json:"stats"`
}

// DetailView is a match with its full row history and bucketed statistic series.
type DetailView struct {
	MatchView
	Rows   []spreads.Row                              `json:"rows"`
	Series map[spreads.StatName][]spreads.BucketPoint `json:"series"`
}

// PreviewRequest represents a request to enumerate leg combinations
type PreviewRequest struct {
	Type domain.Mode `json:"type"`
	Legs [][]string  `json:"legs"`
	Text string      `json:"text"`
}

func newRunView(res *scan.Result) RunView {
	v := RunView{
		RunID:        res.RunID,
		Name:         res.Name,
		Contract:     res.Contract,
		Type:         res.Type,
		Combinations: res.Combinations,
		MatchCount:   len(res.Matches),
		StartedAt:    res.StartedAt,
		DurationMs:   res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		v.Error = res.Err.Error()
	}
	return v
}

func newMatchView(m scan.Match) MatchView {
	v := MatchView{
		AggregateID: m.AggregateID,
		Spec:        m.Spec,
		Stats:       make(map[spreads.StatName]StatView),
	}
	if m.Set == nil {
		return v
	}

	v.PlotIDs = m.Set.PlotIDs()
	if latest, ok := m.Set.Latest(); ok {
		v.Latest = latest
	}
	for name, st := range m.Set.Stats() {
		v.Stats[name] = StatView{Count: st.Count, Mean: st.Mean, StdDev: st.StdDev, Median: st.Median}
	}
	return v
}

func newDetailView(m scan.Match) DetailView {
	v := DetailView{
		MatchView: newMatchView(m),
		Series:    make(map[spreads.StatName][]spreads.BucketPoint),
	}
	if m.Set == nil {
		return v
	}

	v.Rows = m.Set.Rows()
	for name, st := range m.Set.Stats() {
		v.Series[name] = st.Series
	}
	return v
}

// HandleList handles GET /api/scans
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	defs := h.service.Definitions()
	views := make([]DefinitionView, len(defs))
	for i, def := range defs {
		views[i] = DefinitionView{Definition: def}
		if res, ok := h.service.Latest(def.Name); ok {
			run := newRunView(res)
			views[i].LastRun = &run
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"scans": views,
		"count": len(views),
	})
}

// HandleRunAll handles POST /api/scans/run
func (h *Handler) HandleRunAll(w http.ResponseWriter, r *http.Request) {
	results := h.service.RunAll(r.Context())

	views := make([]RunView, len(results))
	for i, res := range results {
		views[i] = newRunView(res)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  views,
		"count": len(views),
	})
}

// HandleRun handles POST /api/scans/{name}/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	res, err := h.service.Run(r.Context(), name)
	if err != nil {
		h.writeScanError(w, name, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newRunView(res))
}

// HandleResults handles GET /api/scans/{name}/results
func (h *Handler) HandleResults(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	res, ok := h.latest(w, name)
	if !ok {
		return
	}

	matches := make([]MatchView, len(res.Matches))
	for i, m := range res.Matches {
		matches[i] = newMatchView(m)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":     newRunView(res),
		"matches": matches,
	})
}

// HandleResult handles GET /api/scans/{name}/results/{aggregate}
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	aggregateID, err := url.PathUnescape(chi.URLParam(r, "aggregate"))
	if err != nil {
		http.Error(w, "Invalid aggregate id", http.StatusBadRequest)
		return
	}

	res, ok := h.latest(w, name)
	if !ok {
		return
	}

	m, ok := res.Find(aggregateID)
	if !ok {
		http.Error(w, "Match not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, newDetailView(m))
}

// HandleStream handles GET /api/scans/{name}/stream. Each match is written as a
// websocket message while the scan runs, followed by a run summary.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := h.service.Definition(name); !ok {
		http.Error(w, "Scan not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Str("scan", name).Msg("Failed to accept websocket")
		return
	}
	defer conn.CloseNow()

	// Reads surface client disconnects by cancelling ctx.
	ctx := conn.CloseRead(r.Context())

	res, err := h.service.Stream(ctx, name, func(m scan.Match) error {
		return writeMessage(ctx, conn, "match", newMatchView(m))
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.log.Error().Err(err).Str("scan", name).Msg("Streamed scan failed")
		conn.Close(websocket.StatusInternalError, "scan failed")
		return
	}

	if err := writeMessage(ctx, conn, "done", newRunView(res)); err != nil {
		h.log.Warn().Err(err).Str("scan", name).Msg("Failed to write scan summary")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// HandlePreviewLegs handles POST /api/legs/preview
func (h *Handler) HandlePreviewLegs(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	spec := req.Legs
	if len(spec) == 0 {
		spec = legs.ParseLegText(req.Text)
	}

	it, err := legs.New(req.Type, spec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var matches []string
	for len(matches) < previewLimit {
		m, ok := it.Next()
		if !ok {
			break
		}
		matches = append(matches, m.String())
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"combinations": matches,
		"count":        len(matches),
		"truncated":    !it.Exhausted(),
	})
}

// HandleContracts handles GET /api/contracts
func (h *Handler) HandleContracts(w http.ResponseWriter, r *http.Request) {
	if h.contracts == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"contracts": []string{}, "count": 0})
		return
	}

	symbols, err := h.contracts.Symbols(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list contracts")
		http.Error(w, "Failed to list contracts", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"contracts": symbols,
		"count":     len(symbols),
	})
}

func (h *Handler) latest(w http.ResponseWriter, name string) (*scan.Result, bool) {
	if _, ok := h.service.Definition(name); !ok {
		http.Error(w, "Scan not found", http.StatusNotFound)
		return nil, false
	}
	res, ok := h.service.Latest(name)
	if !ok {
		http.Error(w, "Scan has not run yet", http.StatusNotFound)
		return nil, false
	}
	return res, true
}

func (h *Handler) writeScanError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, scan.ErrUnknownScan):
		http.Error(w, "Scan not found", http.StatusNotFound)
	case errors.Is(err, scan.ErrInvalidDefinition),
		errors.Is(err, scan.ErrUnknownType),
		errors.Is(err, scan.ErrUnknownMode),
		errors.Is(err, scan.ErrUnknownStat),
		errors.Is(err, legs.ErrInvalidSpecification):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error().Err(err).Str("scan", name).Msg("Scan failed")
		http.Error(w, "Scan failed", http.StatusInternalServerError)
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, kind string, data interface{}) error {
	return wsjson.Write(ctx, conn, map[string]interface{}{
		"type": kind,
		"data": data,
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
