package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/therealmichaelberna/nokia.isam/pkg/configstore"
	"github.com/therealmichaelberna/nokia.isam/pkg/facts"
	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
	"github.com/therealmichaelberna/nokia.isam/pkg/logging"
)

const defaultLogLimit = 100

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, Response{
		Success:   false,
		Error:     msg,
		Code:      code,
		RequestID: requestID(r),
	})
}

// writeLookupError maps store and registry errors to HTTP statuses.
func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, facts.ErrUnknownResource),
		errors.Is(err, facts.ErrNoCapture),
		errors.Is(err, configstore.ErrNoSuchScope):
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// readCapture returns the request body as capture text. A JSON body must
// be an object with a "text" field; any other content type is taken as
// plain text.
func readCapture(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return "", fmt.Errorf("decode body: %w", err)
		}
		return req.Text, nil
	}
	return string(body), nil
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

func (s *Server) flattenLinesHandler(w http.ResponseWriter, r *http.Request) {
	policy := s.gatherer.Policy()
	if p := r.URL.Query().Get("policy"); p != "" {
		var err error
		if policy, err = flatten.ParsePolicy(p); err != nil {
			writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
	}
	s.flatten(w, r, flatten.StrategyLine, policy)
}

func (s *Server) flattenTreeHandler(w http.ResponseWriter, r *http.Request) {
	s.flatten(w, r, flatten.StrategyTree, flatten.PolicyReset)
}

func (s *Server) flatten(w http.ResponseWriter, r *http.Request, strategy flatten.Strategy, policy flatten.Policy) {
	raw, err := readCapture(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	lines, st := flatten.Flatten(strategy, raw, policy)
	s.metrics.ObserveFlatten(strategy, st)

	resp := FlattenResponse{Strategy: strategy, Lines: lines, Stats: st}
	if strategy == flatten.StrategyLine {
		resp.Policy = policy.String()
	}
	writeOK(w, resp)
}

func (s *Server) resourcesHandler(w http.ResponseWriter, _ *http.Request) {
	type resourceInfo struct {
		Name     string           `json:"name"`
		Command  string           `json:"command"`
		Strategy flatten.Strategy `json:"strategy"`
	}
	var out []resourceInfo
	for _, res := range facts.Resources() {
		out = append(out, resourceInfo{Name: res.Name, Command: res.Command, Strategy: res.Strategy})
	}
	writeOK(w, out)
}

func (s *Server) factsGetHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.gatherer.GatherOne(r.Context(), r.PathValue("resource"))
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeOK(w, res)
}

func (s *Server) factsParseHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := readCapture(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	res, err := s.gatherer.Parse(r.PathValue("resource"), raw)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeOK(w, res)
}

func (s *Server) scopesHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "snapshot store not available")
		return
	}
	out := make([]ScopeInfo, 0)
	for _, name := range s.store.Scopes() {
		info := ScopeInfo{Name: name, Dirty: s.store.IsDirty(name)}
		if active, err := s.store.Active(name); err == nil {
			info.Lines = len(active.Lines)
		}
		if hist, err := s.store.History(name); err == nil {
			info.History = len(hist)
		}
		out = append(out, info)
	}
	writeOK(w, out)
}

func (s *Server) scopeLinesHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "snapshot store not available")
		return
	}
	active, err := s.store.Active(r.PathValue("scope"))
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeOK(w, active)
}

func (s *Server) scopeCompareHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "snapshot store not available")
		return
	}
	n, err := queryInt(r, "n", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	scope := r.PathValue("scope")
	diff, err := s.store.Compare(scope, n)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeOK(w, CompareResponse{Scope: scope, N: n, Diff: diff})
}

func (s *Server) logHandler(w http.ResponseWriter, r *http.Request) {
	if s.eventBuf == nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "event buffer not available")
		return
	}
	n, err := queryInt(r, "n", defaultLogLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	filter, err := parseEventFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	recs := s.eventBuf.LatestFiltered(n, filter)
	if recs == nil {
		recs = []logging.EventRecord{}
	}
	writeOK(w, recs)
}

// parseEventFilter reads ?level= and ?contains=. Unlike EventFilter itself,
// the API rejects unknown level names.
func parseEventFilter(r *http.Request) (logging.EventFilter, error) {
	f := logging.EventFilter{
		Level:    r.URL.Query().Get("level"),
		Contains: r.URL.Query().Get("contains"),
	}
	if f.Level != "" {
		if _, err := logging.ParseLevel(f.Level); err != nil {
			return f, err
		}
	}
	return f, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}
