package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/dynsql/internal/engine"
	"github.com/leapstack-labs/dynsql/internal/macro"
	"github.com/leapstack-labs/dynsql/pkg/dynamic"
	"github.com/leapstack-labs/dynsql/pkg/template"
	"github.com/leapstack-labs/dynsql/pkg/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type handlers struct {
	engine *engine.Engine
	logger *slog.Logger
}

// RenderRequest is the body of POST /render. Exactly one of Template
// and Macro is set.
type RenderRequest struct {
	Name     string         `json:"name,omitempty"`
	Template string         `json:"template,omitempty"`
	Macro    string         `json:"macro,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

// BatchRequest is the body of POST /render/batch.
type BatchRequest struct {
	Requests []RenderRequest `json:"requests"`
}

// Arg describes one bound placeholder.
type Arg struct {
	Expr     string `json:"expr"`
	Value    any    `json:"value"`
	Mode     string `json:"mode"`
	JDBCType string `json:"jdbc_type,omitempty"`
}

// RenderResponse is one rendered statement.
type RenderResponse struct {
	Name string `json:"name,omitempty"`
	SQL  string `json:"sql"`
	Args []Arg  `json:"args"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Rule   string `json:"rule,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// NewRenderResponse converts a statement to its wire form.
func NewRenderResponse(stmt *engine.Statement) RenderResponse {
	args := make([]Arg, len(stmt.Args))
	for i, a := range stmt.Args {
		args[i] = Arg{Expr: a.Expr, Value: a.Value, Mode: a.Mode.String()}
		if a.JDBCType != types.Unknown {
			args[i].JDBCType = a.JDBCType.String()
		}
	}
	return RenderResponse{Name: stmt.Name, SQL: stmt.SQL, Args: args}
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) rules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Dynamic().Rules().Names())
}

func (h *handlers) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cache":  h.engine.Dynamic().Cache().Stats(),
		"macros": h.engine.Macros().Len(),
	})
}

func (h *handlers) listMacros(w http.ResponseWriter, _ *http.Request) {
	all := h.engine.Macros().All()
	infos := make([]*macro.Info, 0, len(all))
	for _, m := range all {
		info, err := macro.Inspect(m)
		if err != nil {
			h.logger.Warn("macro inspection failed", "macro", m.Name, "error", err)
			continue
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *handlers) getMacro(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, ok := h.engine.Macros().Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, &dynamic.MacroNotFoundError{Name: name})
		return
	}

	info, err := macro.Inspect(m)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"macro":      info,
		"body":       m.Body,
		"unresolved": h.engine.Macros().Unresolved(info),
	})
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decode(w, r, &req) {
		return
	}

	var stmt *engine.Statement
	var err error
	switch {
	case req.Template != "" && req.Macro != "":
		writeError(w, http.StatusBadRequest, errors.New("set either template or macro, not both"))
		return
	case req.Macro != "":
		stmt, err = h.engine.RenderMacro(req.Macro, req.Params)
	case req.Template != "":
		stmt, err = h.engine.Render(req.Template, req.Params)
		if stmt != nil {
			stmt.Name = req.Name
		}
	default:
		writeError(w, http.StatusBadRequest, errors.New("template or macro is required"))
		return
	}
	if err != nil {
		h.logger.Debug("render failed", "request_id", RequestID(r.Context()), "error", err)
		writeError(w, renderStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, NewRenderResponse(stmt))
}

func (h *handlers) renderBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decode(w, r, &req) {
		return
	}

	reqs := make([]engine.Request, len(req.Requests))
	for i, rr := range req.Requests {
		src := rr.Template
		if rr.Macro != "" {
			body, ok := h.engine.Macros().FindMacro(rr.Macro)
			if !ok {
				writeError(w, http.StatusNotFound, &dynamic.MacroNotFoundError{Name: rr.Macro})
				return
			}
			src = body
		}
		name := rr.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		reqs[i] = engine.Request{Name: name, Source: src, Params: rr.Params}
	}

	stmts, err := h.engine.RenderAll(r.Context(), reqs)
	if err != nil {
		writeError(w, renderStatus(err), err)
		return
	}

	out := make([]RenderResponse, len(stmts))
	for i, stmt := range stmts {
		out[i] = NewRenderResponse(stmt)
	}
	writeJSON(w, http.StatusOK, out)
}

// renderStatus maps render failures onto HTTP status codes.
func renderStatus(err error) int {
	if errors.Is(err, dynamic.ErrMacroNotFound) {
		var re *dynamic.RuleError
		if !errors.As(err, &re) {
			return http.StatusNotFound
		}
	}
	return http.StatusUnprocessableEntity
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var re *dynamic.RuleError
	var te template.Error
	switch {
	case errors.As(err, &re):
		resp.Rule = re.Rule
		resp.Line, resp.Column = re.Pos.Line, re.Pos.Column
	case errors.As(err, &te):
		resp.Line, resp.Column = te.Position().Line, te.Position().Column
	}

	writeJSON(w, status, resp)
}
