package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/go-odata-api/internal/interface/middleware"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

// UnitOfWork is an open changeset transaction.
type UnitOfWork interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BeginFunc opens a transaction carried by the returned context.
type BeginFunc func(ctx context.Context) (context.Context, UnitOfWork, error)

// BatchHandler serves $batch for one service root. Sub-requests are
// dispatched through Root, the same handler that serves the API.
type BatchHandler struct {
	*ODataHandler
	Begin BeginFunc
	Root  func() http.Handler
	// MaxOperationsPerChangeset bounds a changeset when > 0.
	MaxOperationsPerChangeset int
}

func NewBatchHandler(base *ODataHandler, begin BeginFunc, root func() http.Handler, maxOps int) *BatchHandler {
	return &BatchHandler{ODataHandler: base, Begin: begin, Root: root, MaxOperationsPerChangeset: maxOps}
}

type batchOp struct {
	ID     string
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// batchItem is a single request, or a changeset when Group is set.
type batchItem struct {
	Group string
	Ops   []batchOp
}

type batchResult struct {
	ID     string
	Status int
	Header http.Header
	Body   []byte
}

func (h *BatchHandler) Handle(c *gin.Context) {
	mediaType, params, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil {
		h.fail(c, fmt.Errorf("%w: batch content type: %v", odata.ErrInvalidQuery, err))
		return
	}
	raw, ok := h.body(c)
	if !ok {
		return
	}

	var items []batchItem
	switch mediaType {
	case "application/json":
		items, err = parseJSONBatch(raw)
	case "multipart/mixed":
		items, err = parseMultipartBatch(bytes.NewReader(raw), params["boundary"])
	default:
		err = fmt.Errorf("%w: unsupported batch content type %q", odata.ErrInvalidQuery, mediaType)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.MaxOperationsPerChangeset > 0 {
		for _, it := range items {
			if it.Group != "" && len(it.Ops) > h.MaxOperationsPerChangeset {
				h.fail(c, fmt.Errorf("%w: changeset %q has %d operations, the maximum is %d",
					odata.ErrInvalidQuery, it.Group, len(it.Ops), h.MaxOperationsPerChangeset))
				return
			}
		}
	}

	base, err := url.Parse(h.ServiceRoot(c) + "/")
	if err != nil {
		h.fail(c, err)
		return
	}
	results := make([][]batchResult, 0, len(items))
	for _, it := range items {
		res, err := h.run(c, base, it)
		if err != nil {
			h.fail(c, err)
			return
		}
		results = append(results, res)
	}

	if mediaType == "application/json" {
		c.JSON(http.StatusOK, jsonBatchResponse(results))
		return
	}
	boundary := "batchresponse_" + uuid.NewString()
	body, err := writeMultipartBatch(boundary, items, results)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "multipart/mixed; boundary="+boundary, body)
}

// run executes one item. A changeset commits only when every operation
// answered 2xx.
func (h *BatchHandler) run(c *gin.Context, base *url.URL, it batchItem) ([]batchResult, error) {
	ctx := middleware.WithBatchSubRequest(c.Request.Context())
	if it.Group == "" {
		return []batchResult{h.dispatch(ctx, c.Request, base, it.Ops[0])}, nil
	}

	txCtx, unit, err := h.Begin(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]batchResult, 0, len(it.Ops))
	ok := true
	for _, op := range it.Ops {
		r := h.dispatch(txCtx, c.Request, base, op)
		ok = ok && r.Status >= 200 && r.Status < 300
		out = append(out, r)
	}
	if !ok {
		if err := unit.Rollback(ctx); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *BatchHandler) dispatch(ctx context.Context, parent *http.Request, base *url.URL, op batchOp) batchResult {
	res := batchResult{ID: op.ID}
	ref, err := url.Parse(op.URL)
	if err != nil {
		return errorResult(op.ID, http.StatusBadRequest, "invalid url "+op.URL)
	}
	target := base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, op.Method, target.String(), bytes.NewReader(op.Body))
	if err != nil {
		return errorResult(op.ID, http.StatusBadRequest, err.Error())
	}
	for k, v := range op.Header {
		req.Header[k] = v
	}
	if req.Header.Get("Authorization") == "" && parent.Header.Get("Authorization") != "" {
		req.Header.Set("Authorization", parent.Header.Get("Authorization"))
	}
	if len(op.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Host = parent.Host
	req.RemoteAddr = parent.RemoteAddr
	req.RequestURI = target.RequestURI()
	for _, name := range []string{"X-Forwarded-Proto", "X-Forwarded-For", "X-Real-IP", "CF-Connecting-IP"} {
		if v := parent.Header.Get(name); v != "" && req.Header.Get(name) == "" {
			req.Header.Set(name, v)
		}
	}

	rec := &responseBuffer{header: http.Header{}}
	h.Root().ServeHTTP(rec, req)
	res.Status = rec.status
	if res.Status == 0 {
		res.Status = http.StatusOK
	}
	res.Header = rec.header
	res.Body = rec.body.Bytes()
	return res
}

func errorResult(id string, status int, msg string) batchResult {
	body, _ := json.Marshal(map[string]any{"status": status, "success": false, "message": msg})
	return batchResult{
		ID:     id,
		Status: status,
		Header: http.Header{"Content-Type": {"application/json; charset=utf-8"}},
		Body:   body,
	}
}

// responseBuffer collects a sub-response.
type responseBuffer struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (r *responseBuffer) Header() http.Header { return r.header }

func (r *responseBuffer) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *responseBuffer) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}

type jsonBatchRequest struct {
	ID             string            `json:"id"`
	AtomicityGroup string            `json:"atomicityGroup,omitempty"`
	Method         string            `json:"method"`
	URL            string            `json:"url"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           json.RawMessage   `json:"body,omitempty"`
}

type jsonBatchResult struct {
	ID      string            `json:"id"`
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// parseJSONBatch groups adjacent requests sharing an atomicityGroup.
func parseJSONBatch(raw []byte) ([]batchItem, error) {
	var payload struct {
		Requests []jsonBatchRequest `json:"requests"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: batch body: %v", odata.ErrInvalidQuery, err)
	}
	if len(payload.Requests) == 0 {
		return nil, fmt.Errorf("%w: batch without requests", odata.ErrInvalidQuery)
	}
	var items []batchItem
	seen := map[string]bool{}
	for i, r := range payload.Requests {
		if r.Method == "" || r.URL == "" {
			return nil, fmt.Errorf("%w: request %d needs method and url", odata.ErrInvalidQuery, i)
		}
		if r.ID == "" {
			r.ID = fmt.Sprint(i + 1)
		}
		op := batchOp{ID: r.ID, Method: strings.ToUpper(r.Method), URL: r.URL, Header: http.Header{}}
		for k, v := range r.Headers {
			op.Header.Set(k, v)
		}
		if len(r.Body) > 0 && string(r.Body) != "null" {
			op.Body = r.Body
		}

		last := len(items) - 1
		if r.AtomicityGroup != "" && last >= 0 && items[last].Group == r.AtomicityGroup {
			items[last].Ops = append(items[last].Ops, op)
			continue
		}
		if r.AtomicityGroup != "" {
			if seen[r.AtomicityGroup] {
				return nil, fmt.Errorf("%w: requests of atomicity group %q are not adjacent", odata.ErrInvalidQuery, r.AtomicityGroup)
			}
			seen[r.AtomicityGroup] = true
		}
		items = append(items, batchItem{Group: r.AtomicityGroup, Ops: []batchOp{op}})
	}
	return items, nil
}

func jsonBatchResponse(results [][]batchResult) gin.H {
	out := make([]jsonBatchResult, 0, len(results))
	for _, res := range results {
		for _, r := range res {
			jr := jsonBatchResult{ID: r.ID, Status: r.Status, Headers: map[string]string{}}
			for k := range r.Header {
				jr.Headers[strings.ToLower(k)] = r.Header.Get(k)
			}
			switch {
			case len(r.Body) == 0:
			case json.Valid(r.Body):
				jr.Body = r.Body
			default:
				jr.Body, _ = json.Marshal(string(r.Body))
			}
			out = append(out, jr)
		}
	}
	return gin.H{"responses": out}
}

func parseMultipartBatch(body io.Reader, boundary string) ([]batchItem, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: multipart batch without boundary", odata.ErrInvalidQuery)
	}
	mr := multipart.NewReader(body, boundary)
	var items []batchItem
	n := 0
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: batch part: %v", odata.ErrInvalidQuery, err)
		}
		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			return nil, fmt.Errorf("%w: batch part content type: %v", odata.ErrInvalidQuery, err)
		}
		switch mediaType {
		case "application/http":
			n++
			op, err := readHTTPPart(part, fmt.Sprint(n))
			if err != nil {
				return nil, err
			}
			items = append(items, batchItem{Ops: []batchOp{op}})
		case "multipart/mixed":
			set := batchItem{Group: params["boundary"]}
			if set.Group == "" {
				return nil, fmt.Errorf("%w: changeset without boundary", odata.ErrInvalidQuery)
			}
			cr := multipart.NewReader(part, set.Group)
			for {
				sub, err := cr.NextPart()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("%w: changeset part: %v", odata.ErrInvalidQuery, err)
				}
				n++
				op, err := readHTTPPart(sub, fmt.Sprint(n))
				if err != nil {
					return nil, err
				}
				set.Ops = append(set.Ops, op)
			}
			if len(set.Ops) > 0 {
				items = append(items, set)
			}
		default:
			return nil, fmt.Errorf("%w: unsupported batch part %q", odata.ErrInvalidQuery, mediaType)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: batch without requests", odata.ErrInvalidQuery)
	}
	return items, nil
}

// readHTTPPart parses an application/http part. The request target may be
// relative, which http.ReadRequest rejects.
func readHTTPPart(part *multipart.Part, fallbackID string) (batchOp, error) {
	id := part.Header.Get("Content-ID")
	if id == "" {
		id = fallbackID
	}
	br := bufio.NewReader(part)
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return batchOp{}, fmt.Errorf("%w: empty batch request", odata.ErrInvalidQuery)
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return batchOp{}, fmt.Errorf("%w: malformed request line %q", odata.ErrInvalidQuery, strings.TrimSpace(line))
	}
	hdr, err := textproto.NewReader(br).ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return batchOp{}, fmt.Errorf("%w: batch request headers: %v", odata.ErrInvalidQuery, err)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return batchOp{}, fmt.Errorf("%w: batch request body: %v", odata.ErrInvalidQuery, err)
	}
	return batchOp{
		ID:     id,
		Method: strings.ToUpper(fields[0]),
		URL:    fields[1],
		Header: http.Header(hdr),
		Body:   bytes.TrimRight(body, "\r\n"),
	}, nil
}

func writeMultipartBatch(boundary string, items []batchItem, results [][]batchResult) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, err
	}
	for i, it := range items {
		if it.Group == "" {
			if err := writeHTTPPart(mw, results[i][0]); err != nil {
				return nil, err
			}
			continue
		}
		cs := "changesetresponse_" + uuid.NewString()
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/mixed; boundary=" + cs}})
		if err != nil {
			return nil, err
		}
		inner := multipart.NewWriter(w)
		if err := inner.SetBoundary(cs); err != nil {
			return nil, err
		}
		for _, r := range results[i] {
			if err := writeHTTPPart(inner, r); err != nil {
				return nil, err
			}
		}
		if err := inner.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHTTPPart(mw *multipart.Writer, r batchResult) error {
	w, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/http"},
		"Content-Transfer-Encoding": {"binary"},
		"Content-ID":                {r.ID},
	})
	if err != nil {
		return err
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", r.Status, http.StatusText(r.Status))
	if err := r.Header.Write(&b); err != nil {
		return err
	}
	b.WriteString("\r\n")
	b.Write(r.Body)
	_, err = w.Write(b.Bytes())
	return err
}
