package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/NicolasHaas/godata/pkg/bannable"
	"github.com/NicolasHaas/godata/pkg/model"
	"github.com/NicolasHaas/godata/pkg/orm"
	"github.com/NicolasHaas/godata/pkg/transform"
)

const maxBodyBytes = 1 << 20

func (s *Server) routes(mux *http.ServeMux) {
	users := s.types.Users
	teams := s.types.Teams
	userTr := model.NewUserTransformer()
	teamTr := model.NewTeamTransformer()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /users", s.handleList(users, userTr))
	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users/export", s.handleExport(users))
	mux.HandleFunc("GET /users/{id}", s.handleShow(users, userTr))
	mux.HandleFunc("POST /users/{id}/ban", s.handleBan(users, userTr, true))
	mux.HandleFunc("POST /users/{id}/unban", s.handleBan(users, userTr, false))

	mux.HandleFunc("GET /teams", s.handleList(teams, teamTr))
	mux.HandleFunc("POST /teams", s.handleCreateTeam)
	mux.HandleFunc("GET /teams/export", s.handleExport(teams))
	mux.HandleFunc("GET /teams/{id}", s.handleShow(teams, teamTr))
	mux.HandleFunc("POST /teams/{id}/ban", s.handleBan(teams, teamTr, true))
	mux.HandleFunc("POST /teams/{id}/unban", s.handleBan(teams, teamTr, false))

	mux.HandleFunc("GET /schema", s.handleListTables)
	mux.HandleFunc("GET /schema/{table}", s.handleDescribeTable)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleList serves one page of records. Query parameters: page, per_page,
// include (comma separated) and scope.
func (s *Server) handleList(meta *orm.Meta, tr transform.BaseModelTransformer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		page, perPage, err := s.pageParams(params)
		if err != nil {
			writeError(w, r, err)
			return
		}
		q, err := applyScope(meta.Query(), params.Get("scope"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		includes, err := parseIncludes(params.Get("include"), tr)
		if err != nil {
			writeError(w, r, err)
			return
		}

		p, err := q.With(includes...).OrderBy(meta.PrimaryKey, "asc").Paginate(r.Context(), page, perPage)
		if err != nil {
			writeError(w, r, err)
			return
		}
		p.SetPath(r.URL.Path)

		payload, err := s.TransformEntity(p, tr, transform.DataSerializer{Query: params})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (s *Server) handleShow(meta *orm.Meta, tr transform.BaseModelTransformer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		q, err := applyScope(meta.Query(), params.Get("scope"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		includes, err := parseIncludes(params.Get("include"), tr)
		if err != nil {
			writeError(w, r, err)
			return
		}

		rec, err := q.With(includes...).Find(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rec == nil {
			writeError(w, r, fmt.Errorf("%s %d: %w", meta.Name, id, ErrNotFound))
			return
		}
		s.writeItem(w, r, http.StatusOK, rec, tr)
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.NewUser
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := model.CreateUser(r.Context(), s.types, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("user created", "id", u.ID(), "username", u.Username(), "request_id", RequestIDFrom(r.Context()))
	s.writeItem(w, r, http.StatusCreated, u.Model, model.NewUserTransformer())
}

type createTeamRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := model.CreateTeam(r.Context(), s.types, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("team created", "id", t.Key(), "name", t.Name(), "request_id", RequestIDFrom(r.Context()))
	s.writeItem(w, r, http.StatusCreated, t.Model, model.NewTeamTransformer())
}

// handleBan bans or unbans one record. Banned records are addressable here
// regardless of scope. A listener veto is reported as 409.
func (s *Server) handleBan(meta *orm.Meta, tr transform.Transformer, ban bool) http.HandlerFunc {
	action := "unban"
	if ban {
		action = "ban"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rec, err := bannable.WithBanned(meta.Query()).Find(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rec == nil {
			writeError(w, r, fmt.Errorf("%s %d: %w", meta.Name, id, ErrNotFound))
			return
		}

		b := bannable.New(rec)
		var ok bool
		if ban {
			ok, err = b.Ban(ctx)
		} else {
			ok, err = b.Unban(ctx)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ok {
			writeError(w, r, fmt.Errorf("%s %s %d: %w", action, meta.Name, id, model.ErrVetoed))
			return
		}

		slog.Info(meta.Name+" "+action, "id", id, "request_id", RequestIDFrom(ctx))
		s.writeItem(w, r, http.StatusOK, rec, tr)
	}
}

// handleExport streams every record of meta as CSV following its export
// map. Relations referenced by dotted paths are eager loaded.
func (s *Server) handleExport(meta *orm.Meta) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := applyScope(meta.Query(), r.URL.Query().Get("scope"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		coll, err := q.With(exportRelations(meta.ExportMap)...).OrderBy(meta.PrimaryKey, "asc").Get(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		payload, err := transform.NewFactory().
			CollectionWith(coll, transform.ExportTransformer{}, meta.Name).
			Serialize(transform.CSVSerializer{Columns: transform.ExportHeaders(meta.ExportMap)})
		if err != nil {
			writeError(w, r, err)
			return
		}

		var buf bytes.Buffer
		if err := transform.WriteCSV(&buf, payload); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+meta.Name+`.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func (s *Server) writeItem(w http.ResponseWriter, r *http.Request, status int, rec *orm.Model, tr transform.Transformer) {
	payload, err := s.TransformEntity(rec, tr, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, payload)
}

func (s *Server) pageParams(params url.Values) (page, perPage int, err error) {
	page, perPage = 1, orm.DefaultPerPage
	if v := params.Get(transform.ParamPage); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			return 0, 0, fmt.Errorf("%w: page must be a positive integer", ErrBadRequest)
		}
	}
	if v := params.Get(transform.ParamPerPage); v != "" {
		if perPage, err = strconv.Atoi(v); err != nil || perPage < 1 {
			return 0, 0, fmt.Errorf("%w: per_page must be a positive integer", ErrBadRequest)
		}
	}
	if s.cfg.MaxPerPage > 0 {
		perPage = min(perPage, s.cfg.MaxPerPage)
	}
	return page, perPage, nil
}

func applyScope(q *orm.Builder, scope string) (*orm.Builder, error) {
	switch scope {
	case "":
		return q, nil
	case "with_banned":
		return bannable.WithBanned(q), nil
	case "only_banned":
		return bannable.OnlyBanned(q), nil
	case "without_banned":
		return bannable.WithoutBanned(q), nil
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", ErrBadRequest, scope)
	}
}

// parseIncludes splits ?include and rejects names the transformer cannot
// render.
func parseIncludes(raw string, tr transform.RelationTransformer) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	possible := tr.PossibleIncludes()
	var out []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := possible[name]; !ok {
			return nil, fmt.Errorf("%w: unknown include %q", ErrBadRequest, name)
		}
		out = append(out, name)
	}
	return out, nil
}

func exportRelations(columns []orm.ExportColumn) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range columns {
		i := strings.LastIndex(c.Path, ".")
		if i < 0 {
			continue
		}
		rel := c.Path[:i]
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}
	return out
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrBadRequest, r.PathValue("id"))
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
