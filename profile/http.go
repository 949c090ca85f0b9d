// CLAUDE:SUMMARY chi HTTP API over a profile — read queries, learn and check from XML bodies, cascade delete.
package profile

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/xmlprofile/doctree"
	"github.com/hazyhaar/xmlprofile/idgen"
	"github.com/hazyhaar/xmlprofile/kit"
)

// maxBody bounds XML request bodies.
const maxBody = 16 << 20

// Handler returns a router serving the profile API.
func (p *Profile) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestContext(idgen.Prefixed("req_", idgen.Default)))
	p.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the profile routes on r.
func (p *Profile) RegisterHTTP(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/stats", p.handleStats)
	r.Get("/roots", p.handleRoots)
	r.Get("/ingestions", p.handleIngestions)
	r.Route("/elements", func(r chi.Router) {
		r.Get("/", p.handleElements)
		r.Get("/{name}", p.handleElement)
		r.Delete("/{name}", p.handleDelete)
		r.Get("/{name}/attributes/{attr}", p.handleValues)
	})
	r.Post("/learn", p.handleLearn)
	r.Post("/check", p.handleCheck)
}

func requestContext(newID idgen.Generator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = newID()
			}
			w.Header().Set("X-Request-ID", id)
			ctx := kit.WithRequestID(kit.WithTransport(r.Context(), kit.TransportHTTP), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (p *Profile) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := p.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (p *Profile) handleRoots(w http.ResponseWriter, r *http.Request) {
	roots, err := p.KnownRoots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, roots)
}

func (p *Profile) handleIngestions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("limit must be an integer"))
			return
		}
		limit = n
	}
	list, err := p.Ingestions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (p *Profile) handleElements(w http.ResponseWriter, r *http.Request) {
	names, err := p.KnownElements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (p *Profile) handleElement(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, err := p.element(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, p.query("element", err))
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, errors.New("unknown element"))
		return
	}
	parents, err := p.ParentsOf(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       e.Name,
		"children":   e.Children.Sorted(),
		"attributes": e.Attributes.Sorted(),
		"parents":    parents,
	})
}

func (p *Profile) handleValues(w http.ResponseWriter, r *http.Request) {
	vals, err := p.ValuesOf(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "attr"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, vals)
}

func (p *Profile) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := p.CascadeDelete(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (p *Profile) handleLearn(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}
	in, err := p.Learn(r.Context(), doc, LearnOptions{Source: r.URL.Query().Get("source")})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (p *Profile) handleCheck(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}
	rep, err := p.Diff(r.Context(), doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"compatible": rep.Compatible(),
		"report":     rep,
	})
}

func readDocument(w http.ResponseWriter, r *http.Request) (*doctree.Element, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return nil, false
	}
	doc, err := doctree.ParseString(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return doc, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
