package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"csvviz/internal/aggregate"
	"csvviz/internal/datasource"
	"csvviz/internal/datasource/httpds"
	"csvviz/internal/export"
	"csvviz/internal/filter"
	"csvviz/internal/ingest"
	"csvviz/internal/logging"
	"csvviz/internal/metrics"
	"csvviz/internal/pipeline"
	"csvviz/internal/records"
)

var (
	errNoInput     = errors.New("webui: a file or url is required")
	errURLDisabled = errors.New("webui: loading by url is disabled")
	errBadURL      = errors.New("webui: url must be absolute http or https")
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in RAM.
const multipartMemory = 32 << 20

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type meta struct {
	Operators  []option `json:"operators"`
	Kinds      []string `json:"kinds"`
	Delimiters []option `json:"delimiters"`
	AllowURL   bool     `json:"allow_url"`
	MaxUpload  string   `json:"max_upload"`
}

func (s *Server) meta() meta {
	m := meta{AllowURL: s.cfg.AllowURL, MaxUpload: humanize.IBytes(uint64(s.cfg.MaxUploadBytes))}
	for _, op := range filter.Operators {
		m.Operators = append(m.Operators, option{Value: string(op), Label: op.Label()})
	}
	for _, k := range aggregate.Kinds {
		m.Kinds = append(m.Kinds, string(k))
	}
	for _, d := range []ingest.Delimiter{ingest.Comma, ingest.Semicolon, ingest.Tab, ingest.Pipe, ingest.Auto} {
		m.Delimiters = append(m.Delimiters, option{Value: d.String(), Label: d.Label()})
	}
	return m
}

// handleIndex renders the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, s.meta()); err != nil {
		logging.Logger().Error("webui: template", "err", err)
	}
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(appJS)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.sessions.Len()})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.meta())
}

type sessionResponse struct {
	ID string `json:"id"`
	pipeline.Snapshot
	Profile []ingest.Column `json:"profile,omitempty"`
	Size    string          `json:"size,omitempty"`
	Blank   int             `json:"blank_rows"`
	Skipped int             `json:"skipped_rows"`
}

func describe(id string, sess *pipeline.Session) sessionResponse {
	out := sessionResponse{ID: id, Snapshot: sess.Snapshot()}
	if res, ok := sess.Result(); ok {
		out.Profile = ingest.Profile(res.Table)
		out.Size = humanize.Bytes(uint64(res.Bytes))
		out.Blank = res.Blank
		out.Skipped = res.Skipped
	}
	return out
}

// handleCreate loads the posted source into a new session.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := s.readInput(w, r)
	if err != nil {
		writeError(w, statusOf(err, http.StatusBadRequest), err)
		return
	}
	res, err := s.load(r.Context(), in)
	if err != nil {
		writeError(w, statusOf(err, http.StatusUnprocessableEntity), err)
		return
	}

	id, sess := s.newSession()
	sess.Ingest(res)
	logging.Logger().Info("webui: session created", "id", id, "source", res.Name,
		"rows", res.Table.Len(), "size", humanize.Bytes(uint64(res.Bytes)))
	writeJSON(w, http.StatusCreated, describe(id, sess))
}

// handleReload replaces the session's table. A failed load leaves the
// previous table, filters and chart untouched.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	in, err := s.readInput(w, r)
	if err != nil {
		writeError(w, statusOf(err, http.StatusBadRequest), err)
		return
	}
	if in.url == "" {
		_, err = sess.Load(r.Context(), in.src, in.opt)
	} else {
		var res ingest.Result
		if res, err = s.load(r.Context(), in); err == nil {
			sess.Ingest(res)
		}
	}
	if err != nil {
		writeError(w, statusOf(err, http.StatusUnprocessableEntity), err)
		return
	}
	writeJSON(w, http.StatusOK, describe(id, sess))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, describe(id, sess))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, errNoSession)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddFilter(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var p filter.Predicate
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := checkFields(sess, []filter.Predicate{p}); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	added, err := sess.AddFilter(p.Field, p.Operator, p.Operand)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleRemoveFilter(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !sess.RemoveFilter(r.PathValue("fid")) {
		writeError(w, http.StatusNotFound, fmt.Errorf("webui: unknown filter %q", r.PathValue("fid")))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var o aggregate.Options
	if err := decodeJSON(w, r, &o); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := checkAxes(sess, o); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.SetOptions(o))
}

// handleView answers with the chart series and one page of filtered rows.
// page and legend_page are zero-based.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	v, err := sess.View()
	if err != nil {
		writeError(w, statusOf(err, http.StatusInternalServerError), err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, buildView(v, sess.Options(), atoi(q.Get("page")), atoi(q.Get("legend_page"))))
}

// handleExportCSV serves the filtered table. The ETag is the content checksum.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	a, err := sess.Export()
	if err != nil {
		writeError(w, statusOf(err, http.StatusInternalServerError), err)
		return
	}
	etag := strconv.Quote(a.Checksum)
	w.Header().Set("ETag", etag)
	if etagMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	metrics.RecordExport(s.cfg.Job, "csv", len(a.Data))
	writeArtifact(w, a)
}

// handleExportPNG rasterizes the posted chart markup. When no image can be
// produced the answer is 204 and the client keeps the SVG it has.
func (s *Server) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	scene, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		writeError(w, statusOf(err, http.StatusBadRequest), err)
		return
	}
	a, ok := export.Raster(r.Context(), scene, r.URL.Query().Get("title"))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	metrics.RecordExport(s.cfg.Job, "png", len(a.Data))
	writeArtifact(w, a)
}

// input is a source described by a request.
type input struct {
	src datasource.Source
	url string
	opt ingest.Options
}

// readInput reads the multipart "file" or the "url" form value, plus the
// optional "delimiter" and "encoding" values.
func (s *Server) readInput(w http.ResponseWriter, r *http.Request) (input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return input{}, err
	}

	delim, err := ingest.ParseDelimiter(r.FormValue("delimiter"))
	if err != nil {
		return input{}, err
	}
	enc := strings.TrimSpace(r.FormValue("encoding"))
	if _, err := ingest.LookupEncoding(enc); err != nil {
		return input{}, err
	}
	in := input{opt: ingest.Options{Delimiter: delim, Encoding: enc, MaxBytes: s.cfg.MaxUploadBytes}}

	if f, hdr, err := r.FormFile("file"); err == nil {
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		if err != nil {
			return input{}, fmt.Errorf("webui: read upload: %w", err)
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			return input{}, fmt.Errorf("webui: %s: %w", hdr.Filename, ingest.ErrTooLarge)
		}
		in.src = datasource.NewBytes(datasource.BaseName(hdr.Filename), data)
		return in, nil
	}

	raw := strings.TrimSpace(r.FormValue("url"))
	if raw == "" {
		return input{}, errNoInput
	}
	if !s.cfg.AllowURL {
		return input{}, &httpError{status: http.StatusForbidden, err: errURLDisabled}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return input{}, errBadURL
	}
	in.url = raw
	in.src = httpds.NewURL(s.client, raw, nil)
	return in, nil
}

// load reads in. Concurrent loads of the same URL with the same options share
// one download; the shared load is not canceled when one caller goes away.
func (s *Server) load(ctx context.Context, in input) (ingest.Result, error) {
	if in.url == "" {
		return pipeline.Load(ctx, s.cfg.Job, in.src, in.opt)
	}
	key := in.url + "\x00" + in.opt.Delimiter.String() + "\x00" + in.opt.Encoding
	v, err, shared := s.loads.Do(key, func() (any, error) {
		return pipeline.Load(context.WithoutCancel(ctx), s.cfg.Job, in.src, in.opt)
	})
	if err != nil {
		return ingest.Result{}, err
	}
	if shared {
		logging.Logger().Debug("webui: shared url load", "url", in.url)
	}
	return v.(ingest.Result), nil
}

func checkFields(sess *pipeline.Session, preds []filter.Predicate) error {
	res, ok := sess.Result()
	if !ok {
		return nil
	}
	return errors.Join(filter.Validate(preds, res.Table.Fields)...)
}

func checkAxes(sess *pipeline.Session, o aggregate.Options) error {
	res, ok := sess.Result()
	if !ok {
		return nil
	}
	for _, f := range []string{o.XField, o.YField} {
		if f != "" && !res.Table.HasField(f) {
			return fmt.Errorf("webui: unknown field %q", f)
		}
	}
	return nil
}

type legendItem struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
	Color string `json:"color"`
}

type viewResponse struct {
	Kind         aggregate.Kind    `json:"kind"`
	Title        string            `json:"title,omitempty"`
	Series       []aggregate.Point `json:"series"`
	Colors       []string          `json:"colors"`
	Legend       []legendItem      `json:"legend"`
	LegendPage   int               `json:"legend_page"`
	LegendPages  int               `json:"legend_pages"`
	TickInterval int               `json:"tick_interval"`
	LabelAngle   int               `json:"label_angle"`
	Total        int               `json:"total"`
	Matched      int               `json:"matched"`
	Fields       []string          `json:"fields"`
	Rows         []records.Record  `json:"rows"`
	Page         int               `json:"page"`
	Pages        int               `json:"pages"`
}

func buildView(v pipeline.View, o aggregate.Options, page, legendPage int) viewResponse {
	out := viewResponse{
		Kind:         o.Kind,
		Title:        o.Title,
		Series:       v.Series,
		Colors:       v.Colors,
		LegendPage:   legendPage,
		LegendPages:  aggregate.Pages(len(v.Series), aggregate.LegendPageSize),
		TickInterval: aggregate.TickInterval(len(v.Series)),
		LabelAngle:   aggregate.LabelAngle(v.Series),
		Total:        v.Total,
		Matched:      v.Matched,
		Fields:       v.Filtered.Fields,
		Rows:         v.Filtered.Page(page, aggregate.TablePageSize),
		Page:         page,
		Pages:        v.Filtered.Pages(aggregate.TablePageSize),
	}
	if out.Series == nil {
		out.Series = []aggregate.Point{}
	}
	if out.Rows == nil {
		out.Rows = []records.Record{}
	}

	start := max(legendPage, 0) * aggregate.LegendPageSize
	for i, p := range aggregate.Page(v.Series, legendPage, aggregate.LegendPageSize) {
		out.Legend = append(out.Legend, legendItem{
			Name:  p.Name,
			Label: aggregate.TruncateLabel(p.Name),
			Value: aggregate.FormatLegendValue(p.Value),
			Color: v.Colors[start+i],
		})
	}
	if out.Legend == nil {
		out.Legend = []legendItem{}
	}
	return out
}

func writeArtifact(w http.ResponseWriter, a export.Artifact) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	_, _ = w.Write(a.Data)
}

// etagMatch reports whether an If-None-Match header names etag.
func etagMatch(header, etag string) bool {
	for _, t := range strings.Split(header, ",") {
		t = strings.TrimPrefix(strings.TrimSpace(t), "W/")
		if t == "*" || t == etag {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("webui: decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger().Warn("webui: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// httpError pins the status code for err.
type httpError struct {
	status int
	err    error
}

func (e *httpError) Error() string { return e.err.Error() }
func (e *httpError) Unwrap() error { return e.err }

// statusOf maps known errors onto HTTP statuses, else fallback.
func statusOf(err error, fallback int) int {
	var he *httpError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &he):
		return he.status
	case errors.As(err, &mbe), errors.Is(err, ingest.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingest.ErrMalformedInput), errors.Is(err, ingest.ErrEmptyTable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoData):
		return http.StatusConflict
	case errors.Is(err, httpds.ErrStatus):
		return http.StatusBadGateway
	}
	return fallback
}
