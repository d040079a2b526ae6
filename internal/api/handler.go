package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kexy2025/leadgen/internal/cache"
	"github.com/kexy2025/leadgen/internal/domain"
	"github.com/kexy2025/leadgen/internal/export"
	"github.com/kexy2025/leadgen/internal/ingest"
	"github.com/kexy2025/leadgen/internal/pipeline"
	"github.com/kexy2025/leadgen/internal/schema"
	"github.com/kexy2025/leadgen/internal/store"
)

// maxUploadBytes caps multipart uploads at 25 MiB.
const maxUploadBytes = 25 << 20

// Handler holds the HTTP dependencies.
type Handler struct {
	mongo   *store.Client
	redis   *cache.Client
	staging *ingest.Staging
	sheets  *ingest.SheetsClient
}

// NewHandler creates a new Handler. redis and sheets may be nil.
func NewHandler(mongo *store.Client, redis *cache.Client, staging *ingest.Staging, sheets *ingest.SheetsClient) *Handler {
	return &Handler{mongo: mongo, redis: redis, staging: staging, sheets: sheets}
}

// errResponse writes a JSON error body.
func errResponse(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func jsonResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// loadSchema returns the current canonical schema, via the Redis cache when
// it is warm.
func (h *Handler) loadSchema(r *http.Request) (*schema.Schema, error) {
	ctx := r.Context()
	if h.redis != nil {
		if cols, err := h.redis.GetSchema(ctx); err == nil && cols != nil {
			return schema.New(cols), nil
		}
	}
	cols, err := h.mongo.SchemaColumns(ctx)
	if err != nil {
		return nil, err
	}
	if h.redis != nil {
		if err := h.redis.SetSchema(ctx, cols); err != nil {
			log.Printf("WARN: schema cache set: %v", err)
		}
	}
	return schema.New(cols), nil
}

// Health godoc
//
//	GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// Stats godoc
//
//	GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	if h.redis != nil {
		if s, err := h.redis.GetStats(ctx); err == nil && s != nil {
			jsonResponse(w, s)
			return
		}
	}

	s, err := h.mongo.Stats(ctx)
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "stats: "+err.Error())
		return
	}
	if h.redis != nil {
		if err := h.redis.SetStats(ctx, s); err != nil {
			log.Printf("WARN: stats cache set: %v", err)
		}
	}
	jsonResponse(w, s)
}

// Leads godoc
//
//	GET /api/leads?page=1&per_page=50&status=Active&search=acme
func (h *Handler) Leads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	pageData, err := h.mongo.ListLeads(r.Context(), store.ListOptions{
		Status:  q.Get("status"),
		Search:  q.Get("search"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "list leads: "+err.Error())
		return
	}
	jsonResponse(w, pageData)
}

// LeadByID godoc
//
//	GET    /api/leads/{id}
//	PATCH  /api/leads/{id}   body: { "lead_status": "...", "processing_notes": "..." }
//	DELETE /api/leads/{id}
func (h *Handler) LeadByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/leads/")
	if id == "" || strings.Contains(id, "/") {
		errResponse(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		l, err := h.mongo.GetLead(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			errResponse(w, http.StatusNotFound, "lead not found")
			return
		}
		if err != nil {
			errResponse(w, http.StatusInternalServerError, "get lead: "+err.Error())
			return
		}
		jsonResponse(w, l)

	case http.MethodPatch:
		var body struct {
			Status *string `json:"lead_status"`
			Notes  *string `json:"processing_notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			errResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if body.Status == nil && body.Notes == nil {
			errResponse(w, http.StatusBadRequest, "nothing to update")
			return
		}
		if body.Status != nil {
			switch *body.Status {
			case domain.StatusActive, domain.StatusDuplicate, domain.StatusArchived:
			default:
				errResponse(w, http.StatusBadRequest, "invalid lead_status "+strconv.Quote(*body.Status))
				return
			}
		}
		err := h.mongo.UpdateLead(r.Context(), id, body.Status, body.Notes)
		if errors.Is(err, store.ErrNotFound) {
			errResponse(w, http.StatusNotFound, "lead not found")
			return
		}
		if err != nil {
			errResponse(w, http.StatusInternalServerError, "update lead: "+err.Error())
			return
		}
		h.dropStatsCache(r)
		jsonResponse(w, map[string]string{"status": "updated", "id": id})

	case http.MethodDelete:
		err := h.mongo.DeleteLead(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			errResponse(w, http.StatusNotFound, "lead not found")
			return
		}
		if err != nil {
			errResponse(w, http.StatusInternalServerError, "delete lead: "+err.Error())
			return
		}
		h.dropStatsCache(r)
		jsonResponse(w, map[string]string{"status": "deleted", "id": id})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Upload godoc
//
//	POST /api/upload   multipart field "file"
//
// Responds with an import result, or a needs_mapping payload when some
// headers have no confident match.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		errResponse(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		errResponse(w, http.StatusBadRequest, "no file selected")
		return
	}
	if !ingest.Allowed(header.Filename) {
		errResponse(w, http.StatusBadRequest, "invalid file type, use CSV or Excel")
		return
	}

	tbl, err := ingest.Parse(header.Filename, file)
	if err != nil {
		errResponse(w, http.StatusBadRequest, "parse file: "+err.Error())
		return
	}

	h.mapAndProcess(w, r, tbl)
}

// ImportSheets godoc
//
//	POST /api/import/sheets   body: { "spreadsheet_id": "...", "range": "Sheet1!A1:Z" }
func (h *Handler) ImportSheets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.sheets == nil {
		errResponse(w, http.StatusServiceUnavailable, "sheets import not configured (set SHEETS_API_KEY)")
		return
	}

	var req struct {
		SpreadsheetID string `json:"spreadsheet_id"`
		Range         string `json:"range"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.SpreadsheetID == "" {
		errResponse(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	tbl, err := h.sheets.Fetch(r.Context(), req.SpreadsheetID, req.Range)
	if err != nil {
		errResponse(w, http.StatusBadGateway, "fetch sheet: "+err.Error())
		return
	}

	h.mapAndProcess(w, r, tbl)
}

// mapAndProcess is the shared tail of every import source: resolve headers,
// pause for manual mapping when needed, otherwise run the pipeline.
func (h *Handler) mapAndProcess(w http.ResponseWriter, r *http.Request, tbl *ingest.Table) {
	sch, err := h.loadSchema(r)
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "load schema: "+err.Error())
		return
	}

	headerMap, unknown := sch.MapHeaders(tbl.Headers)

	if len(unknown) > 0 {
		token, err := h.staging.Put(tbl)
		if err != nil {
			errResponse(w, http.StatusInternalServerError, "stage upload: "+err.Error())
			return
		}

		samples := make(map[string][]string, len(unknown))
		suggestions := make(map[string][]schema.Suggestion, len(unknown))
		for _, u := range unknown {
			samples[u] = tbl.SampleValues(u, 3)
			suggestions[u] = sch.Suggest(u)
		}

		jsonResponse(w, map[string]any{
			"status":          "needs_mapping",
			"temp_file":       token,
			"unknown_headers": unknown,
			"samples":         samples,
			"suggestions":     suggestions,
			"schema_columns":  sch.ColumnNames(),
		})
		return
	}

	if missing := sch.ValidateRequired(headerMap); len(missing) > 0 {
		errResponse(w, http.StatusBadRequest,
			fmt.Sprintf("missing required column(s): %s", strings.Join(missing, ", ")))
		return
	}

	result, err := pipeline.Process(r.Context(), tbl, headerMap, pipeline.Config{
		Store: h.mongo,
		Cache: h.redis,
	})
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "process import: "+err.Error())
		return
	}
	jsonResponse(w, result)
}

// ApplyMapping godoc
//
//	POST /api/apply_mapping
//	body: { "temp_file": "...", "mappings": [ {original_header, action, ...} ] }
//
// Applies the user's decisions for every unknown header, then replays the
// staged table through the pipeline.
func (h *Handler) ApplyMapping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		TempFile string                  `json:"temp_file"`
		Mappings []schema.MappingRequest `json:"mappings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.TempFile == "" {
		errResponse(w, http.StatusBadRequest, "temp_file is required")
		return
	}

	tbl, err := h.staging.Get(req.TempFile)
	if err != nil {
		errResponse(w, http.StatusBadRequest, "load staged upload: "+err.Error())
		return
	}

	sch, err := h.loadSchema(r)
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "load schema: "+err.Error())
		return
	}

	ctx := r.Context()
	skipped := make(map[string]bool)
	for _, m := range req.Mappings {
		if err := sch.ValidateMapping(m); err != nil {
			errResponse(w, http.StatusBadRequest, err.Error())
			return
		}

		target := m.TargetColumn
		switch m.Action {
		case schema.ActionMapExisting:
			if err := h.mongo.AddAlias(ctx, m.TargetColumn, m.OriginalHeader); err != nil {
				errResponse(w, http.StatusInternalServerError, "add alias: "+err.Error())
				return
			}
		case schema.ActionCreateNew:
			target = m.NewColumnName
			if err := h.mongo.CreateColumn(ctx, domain.SchemaColumn{
				Name:     m.NewColumnName,
				Aliases:  []string{m.OriginalHeader},
				Required: m.IsRequired,
			}); err != nil {
				errResponse(w, http.StatusInternalServerError, "create column: "+err.Error())
				return
			}
		case schema.ActionSkip:
			skipped[m.OriginalHeader] = true
		}

		if err := h.mongo.SaveMappingEvent(ctx, &domain.MappingEvent{
			OriginalHeader: m.OriginalHeader,
			Action:         m.Action,
			TargetColumn:   target,
			User:           "system",
		}); err != nil {
			log.Printf("WARN: save mapping event: %v", err)
		}
	}

	if h.redis != nil {
		if err := h.redis.InvalidateSchema(ctx); err != nil {
			log.Printf("WARN: invalidate schema cache: %v", err)
		}
	}

	// Re-map against the updated schema.
	sch, err = h.loadSchema(r)
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "reload schema: "+err.Error())
		return
	}
	headerMap, unknown := sch.MapHeaders(tbl.Headers)
	for _, u := range unknown {
		if !skipped[u] {
			errResponse(w, http.StatusBadRequest, "header still unmapped: "+u)
			return
		}
	}
	if missing := sch.ValidateRequired(headerMap); len(missing) > 0 {
		errResponse(w, http.StatusBadRequest,
			fmt.Sprintf("missing required column(s): %s", strings.Join(missing, ", ")))
		return
	}

	result, err := pipeline.Process(ctx, tbl, headerMap, pipeline.Config{
		Store: h.mongo,
		Cache: h.redis,
	})
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "process import: "+err.Error())
		return
	}

	h.staging.Remove(req.TempFile)
	jsonResponse(w, result)
}

// Export godoc
//
//	GET /api/export?status=Active
//
// Streams a CSV attachment of every lead with the given status, columns in
// canonical schema order.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		status = domain.StatusActive
	}

	sch, err := h.loadSchema(r)
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "load schema: "+err.Error())
		return
	}

	leads, err := h.mongo.LeadsByStatus(r.Context(), status)
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "export leads: "+err.Error())
		return
	}

	filename := fmt.Sprintf("leads_export_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := export.WriteCSV(w, sch.ColumnNames(), leads); err != nil {
		// Headers are gone; all we can do is log.
		log.Printf("WARN: export write: %v", err)
	}
}

// Config godoc
//
//	GET /api/config
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cols, err := h.mongo.SchemaColumns(r.Context())
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "load schema: "+err.Error())
		return
	}
	jsonResponse(w, cols)
}

func (h *Handler) dropStatsCache(r *http.Request) {
	if h.redis == nil {
		return
	}
	if err := h.redis.InvalidateStats(r.Context()); err != nil {
		log.Printf("WARN: invalidate stats cache: %v", err)
	}
}
