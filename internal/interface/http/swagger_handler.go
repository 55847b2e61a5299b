package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-odata-api/internal/odata"
	"github.com/oksasatya/go-odata-api/pkg/response"
)

// SwaggerHandler serves one OpenAPI document per API version.
type SwaggerHandler struct {
	Title string

	mu   sync.RWMutex
	docs map[string][]byte
}

func NewSwaggerHandler(title string) *SwaggerHandler {
	return &SwaggerHandler{Title: title, docs: map[string][]byte{}}
}

// Add renders and validates the document of v from the routes mounted under root.
func (h *SwaggerHandler) Add(v *odata.Version, root string, routes []Route) error {
	doc := BuildOpenAPI(h.Title, v, root, routes)
	if err := doc.Validate(context.Background()); err != nil {
		return fmt.Errorf("openapi %s: %w", v.Name, err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.docs[v.Name] = b
	h.mu.Unlock()
	return nil
}

func (h *SwaggerHandler) Serve(c *gin.Context) {
	h.mu.RLock()
	b, ok := h.docs[strings.ToLower(c.Param("version"))]
	h.mu.RUnlock()
	if !ok {
		response.Abort(c, http.StatusNotFound, "unknown api version", nil)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// BuildOpenAPI generates an OpenAPI 3 document for the routes of version v.
func BuildOpenAPI(title string, v *odata.Version, root string, routes []Route) *openapi3.T {
	errSchema := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewIntegerSchema()).
		WithProperty("timestamp", openapi3.NewDateTimeSchema()).
		WithProperty("request_id", openapi3.NewStringSchema()).
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("error", &openapi3.Schema{})
	schemas := openapi3.Schemas{"Error": openapi3.NewSchemaRef("", errSchema)}
	for _, et := range []*odata.EntityType{v.Users, v.Addresses, v.UserNotes, v.AddressNotes} {
		addSchemas(schemas, et)
	}

	paths := openapi3.NewPaths()
	for _, r := range routes {
		p := root + openAPIPath(r.Path)
		item := paths.Value(p)
		if item == nil {
			item = &openapi3.PathItem{}
			paths.Set(p, item)
		}
		item.SetOperation(r.Method, operation(schemas, v, r))
	}

	batchBody := openapi3.NewRequestBody().WithRequired(true).WithContent(openapi3.Content{
		"application/json": openapi3.NewMediaType().WithSchema(openapi3.NewObjectSchema()),
		"multipart/mixed":  openapi3.NewMediaType().WithSchema(openapi3.NewStringSchema()),
	})
	paths.Set(root+"/$batch", &openapi3.PathItem{Post: &openapi3.Operation{
		Tags:        []string{"batch"},
		Summary:     "Run a JSON or multipart batch of requests",
		OperationID: "batch",
		Deprecated:  v.Deprecated,
		RequestBody: &openapi3.RequestBodyRef{Value: batchBody},
		Responses: openapi3.NewResponses(openapi3.WithStatus(http.StatusOK,
			&openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Batch responses")})),
	}})

	return &openapi3.T{
		OpenAPI: "3.0.1",
		Info:    &openapi3.Info{Title: title, Version: v.Number},
		Paths:   paths,
		Components: &openapi3.Components{
			Schemas: schemas,
			SecuritySchemes: openapi3.SecuritySchemes{
				"basic":  &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{Type: "http", Scheme: "basic"}},
				"bearer": &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{Type: "http", Scheme: "bearer", BearerFormat: "JWT"}},
			},
		},
		Security: openapi3.SecurityRequirements{
			openapi3.NewSecurityRequirement().Authenticate("basic"),
			openapi3.NewSecurityRequirement().Authenticate("bearer"),
		},
	}
}

func openAPIPath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		if strings.HasPrefix(s, ":") {
			parts[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

// ref points at a component schema. The resolved value is kept so the
// document validates without a loader.
func ref(schemas openapi3.Schemas, name string) *openapi3.SchemaRef {
	var value *openapi3.Schema
	if s, ok := schemas[name]; ok {
		value = s.Value
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

func arrayOf(items *openapi3.SchemaRef) *openapi3.Schema {
	s := openapi3.NewArraySchema()
	s.Items = items
	return s
}

var queryOptions = []struct {
	name, desc string
	schema     func() *openapi3.Schema
}{
	{"$top", "Maximum number of results", openapi3.NewIntegerSchema},
	{"$skip", "Number of results to skip", openapi3.NewIntegerSchema},
	{"$filter", "Filter expression", openapi3.NewStringSchema},
	{"$select", "Comma separated properties to return", openapi3.NewStringSchema},
	{"$orderby", "Comma separated sort properties", openapi3.NewStringSchema},
	{"$expand", "Navigation properties to include", openapi3.NewStringSchema},
	{"$count", "Include @odata.count", openapi3.NewBoolSchema},
}

func operation(schemas openapi3.Schemas, v *odata.Version, r Route) *openapi3.Operation {
	var params openapi3.Parameters
	for _, seg := range strings.Split(r.Path, "/") {
		if strings.HasPrefix(seg, ":") {
			p := openapi3.NewPathParameter(seg[1:]).WithSchema(openapi3.NewInt32Schema())
			params = append(params, &openapi3.ParameterRef{Value: p})
		}
	}
	if r.Queryable {
		for _, o := range queryOptions {
			if !r.Many && o.name != "$select" && o.name != "$expand" {
				continue
			}
			p := openapi3.NewQueryParameter(o.name).WithDescription(o.desc).WithSchema(o.schema())
			params = append(params, &openapi3.ParameterRef{Value: p})
		}
	}
	if strings.HasSuffix(r.Path, "$ref") && r.Method == http.MethodDelete {
		p := openapi3.NewQueryParameter("$id").WithRequired(true).
			WithDescription("URI of the related entity").WithSchema(openapi3.NewStringSchema())
		params = append(params, &openapi3.ParameterRef{Value: p})
	}

	op := &openapi3.Operation{
		Tags:        []string{r.Tag},
		Summary:     r.Summary,
		OperationID: operationID(r),
		Parameters:  params,
		Responses:   responses(schemas, r),
		Deprecated:  v.Deprecated,
	}
	if body := requestBody(schemas, r); body != nil {
		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(body)}
	}
	if r.Access == Public {
		op.Security = &openapi3.SecurityRequirements{}
	}
	return op
}

func operationID(r Route) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(r.Method))
	for _, seg := range strings.Split(r.Path, "/") {
		switch {
		case seg == "":
		case strings.HasPrefix(seg, ":"):
			b.WriteString("By" + upperFirst(seg[1:]))
		default:
			b.WriteString(upperFirst(strings.TrimPrefix(seg, "$")))
		}
	}
	return b.String()
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func requestBody(schemas openapi3.Schemas, r Route) *openapi3.SchemaRef {
	switch r.Body {
	case "entity", "note":
		return ref(schemas, r.Entity)
	case "entities":
		if r.Many {
			return openapi3.NewSchemaRef("", arrayOf(ref(schemas, r.Entity)))
		}
		one := &openapi3.Schema{OneOf: openapi3.SchemaRefs{
			ref(schemas, r.Entity),
			openapi3.NewSchemaRef("", arrayOf(ref(schemas, r.Entity))),
		}}
		return openapi3.NewSchemaRef("", one)
	case "delta":
		s := openapi3.NewObjectSchema()
		s.Description = "Properties of " + r.Entity + " to change"
		return openapi3.NewSchemaRef("", s)
	case "deltas":
		item := openapi3.NewObjectSchema()
		item.Required = []string{"id"}
		return openapi3.NewSchemaRef("", arrayOf(openapi3.NewSchemaRef("", item)))
	case "ref":
		s := openapi3.NewObjectSchema().WithProperty("@odata.id", openapi3.NewStringSchema())
		s.Required = []string{"@odata.id"}
		return openapi3.NewSchemaRef("", s)
	}
	return nil
}

func responses(schemas openapi3.Schemas, r Route) *openapi3.Responses {
	ok := openapi3.NewResponse().WithDescription(http.StatusText(r.Status))
	if r.Entity != "" && r.Status != http.StatusNoContent {
		schema := ref(schemas, r.Entity)
		if r.Many {
			page := openapi3.NewObjectSchema().
				WithProperty("@odata.context", openapi3.NewStringSchema()).
				WithProperty("@odata.count", openapi3.NewIntegerSchema()).
				WithPropertyRef("value", openapi3.NewSchemaRef("", arrayOf(ref(schemas, r.Entity))))
			schema = openapi3.NewSchemaRef("", page)
		}
		ok.WithJSONSchemaRef(schema)
	}
	out := openapi3.NewResponses(openapi3.WithStatus(r.Status, &openapi3.ResponseRef{Value: ok}))
	errResp := func(status int) {
		resp := openapi3.NewResponse().WithDescription(http.StatusText(status)).WithJSONSchemaRef(ref(schemas, "Error"))
		out.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	}
	if r.Queryable || r.Body != "" {
		errResp(http.StatusBadRequest)
	}
	if r.Access != Public {
		errResp(http.StatusUnauthorized)
	}
	if r.Access == Admin {
		errResp(http.StatusForbidden)
	}
	if strings.Contains(r.Path, ":id") || r.Body == "deltas" || r.Method == http.MethodPut {
		errResp(http.StatusNotFound)
	}
	if r.Method != http.MethodGet {
		errResp(http.StatusConflict)
	}
	errResp(http.StatusInternalServerError)
	return out
}

// addSchemas adds the schema of et and of its enum properties. Navigation
// properties are left out.
func addSchemas(schemas openapi3.Schemas, et *odata.EntityType) {
	s := openapi3.NewObjectSchema()
	for _, p := range et.Properties {
		if p.Kind == odata.KindEnum {
			name := et.Name + upperFirst(p.Name)
			values := make([]any, len(p.Enum))
			for i, m := range p.Enum {
				values[i] = m
			}
			schemas[name] = openapi3.NewSchemaRef("", openapi3.NewStringSchema().WithEnum(values...))
			s.WithPropertyRef(p.Name, ref(schemas, name))
			continue
		}
		var ps *openapi3.Schema
		switch p.Kind {
		case odata.KindInt:
			ps = openapi3.NewInt32Schema()
		case odata.KindTime:
			ps = openapi3.NewDateTimeSchema()
		case odata.KindBool:
			ps = openapi3.NewBoolSchema()
		default:
			ps = openapi3.NewStringSchema()
		}
		ps.ReadOnly = p.ReadOnly
		ps.Nullable = p.Nullable
		s.WithProperty(p.Name, ps)
	}
	schemas[et.Name] = openapi3.NewSchemaRef("", s)
}
