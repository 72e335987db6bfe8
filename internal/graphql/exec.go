package graphql

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

//go:embed schema.graphqls
var schemaSDL string

// Schema is the parsed parcelhub API schema. Every request is validated
// against it before execution.
var Schema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSDL})

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a GraphQL-over-HTTP response body. Data is nil when the
// request failed before execution.
type Response struct {
	Data   Object        `json:"data,omitempty"`
	Errors gqlerror.List `json:"errors,omitempty"`
}

// Member is one key of an Object.
type Member struct {
	Key   string
	Value any
}

// Object is a JSON object that keeps its keys in selection order.
type Object []Member

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler.
func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// fieldFunc resolves one root field from its argument values.
type fieldFunc func(ctx context.Context, args map[string]any) (any, error)

func (r *Resolver) queryFields() map[string]fieldFunc {
	q := r.Query()
	return map[string]fieldFunc{
		"health":            noArgs(q.Health),
		"carriers":          noArgs(q.Carriers),
		"quotes":            inputArg(q.Quotes),
		"track":             fieldArgs(q.Track),
		"trackBatch":        fieldArgs(q.TrackBatch),
		"availableServices": inputArg(q.AvailableServices),
	}
}

func (r *Resolver) mutationFields() map[string]fieldFunc {
	m := r.Mutation()
	return map[string]fieldFunc{
		"createShipment": inputArg(m.CreateShipment),
		"cancelShipment": inputArg(m.CancelShipment),
		"createPickup":   inputArg(m.CreatePickup),
		"cancelPickup":   inputArg(m.CancelPickup),
	}
}

func noArgs[R any](fn func(context.Context) (R, error)) fieldFunc {
	return func(ctx context.Context, _ map[string]any) (any, error) {
		return fn(ctx)
	}
}

// inputArg resolves fields taking a single "input" argument.
func inputArg[T, R any](fn func(context.Context, T) (R, error)) fieldFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		var input T
		if err := decodeArgs(args["input"], &input); err != nil {
			return nil, err
		}
		return fn(ctx, input)
	}
}

// fieldArgs resolves fields whose arguments map onto T directly.
func fieldArgs[T, R any](fn func(context.Context, T) (R, error)) fieldFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		var input T
		if err := decodeArgs(args, &input); err != nil {
			return nil, err
		}
		return fn(ctx, input)
	}
}

func decodeArgs(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Execute parses, validates and runs a GraphQL request. Root fields run in
// document order; a failing field resolves to null and adds an error, the
// other fields still run.
func (r *Resolver) Execute(ctx context.Context, req Request) *Response {
	doc, parseErr := parser.ParseQuery(&ast.Source{Name: "request", Input: req.Query})
	if parseErr != nil {
		return requestError(parseErr)
	}
	if errs := validator.ValidateWithRules(Schema, doc, nil); len(errs) > 0 {
		return requestErrors(errs)
	}

	op, err := selectOperation(doc, req.OperationName)
	if err != nil {
		return requestError(err)
	}

	var fields map[string]fieldFunc
	var typeName string
	switch op.Operation {
	case ast.Query:
		fields, typeName = r.queryFields(), "Query"
	case ast.Mutation:
		fields, typeName = r.mutationFields(), "Mutation"
	default:
		return requestError(gqlerror.Errorf("%s operations are not supported", op.Operation))
	}

	vars, err := validator.VariableValues(Schema, op, req.Variables)
	if err != nil {
		return requestError(err)
	}

	e := &executor{doc: doc, vars: vars}
	resp := &Response{Data: Object{}}
	for _, f := range e.collectFields(op.SelectionSet) {
		if f.Name == "__typename" {
			resp.Data = append(resp.Data, Member{Key: f.Alias, Value: typeName})
			continue
		}

		resolve, ok := fields[f.Name]
		if !ok {
			// Introspection fields pass validation but are not served.
			resp.Data = append(resp.Data, Member{Key: f.Alias})
			resp.Errors = append(resp.Errors, fieldError(f, fmt.Errorf("%w: field %q is not supported", ErrInvalidInput, f.Name)))
			continue
		}

		value, err := e.resolve(ctx, resolve, f)
		if err != nil {
			resp.Data = append(resp.Data, Member{Key: f.Alias})
			resp.Errors = append(resp.Errors, fieldError(f, err))
			continue
		}
		resp.Data = append(resp.Data, Member{Key: f.Alias, Value: value})
	}
	return resp
}

func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, error) {
	if name == "" && len(doc.Operations) != 1 {
		return nil, gqlerror.Errorf("operationName is required when the document has %d operations", len(doc.Operations))
	}
	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, gqlerror.Errorf("unknown operation %q", name)
	}
	return op, nil
}

type executor struct {
	doc  *ast.QueryDocument
	vars map[string]any
}

func (e *executor) resolve(ctx context.Context, resolve fieldFunc, f *ast.Field) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("resolver panic: %v", p)
		}
	}()

	args := make(map[string]any, len(f.Arguments))
	for _, a := range f.Arguments {
		v, err := a.Value.Value(e.vars)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %s: %v", ErrInvalidInput, a.Name, err)
		}
		args[a.Name] = v
	}

	result, err := resolve(ctx, args)
	if err != nil {
		return nil, err
	}
	return e.complete(result, f.SelectionSet)
}

// complete turns a resolver result into plain JSON values and keeps only
// the selected fields.
func (e *executor) complete(result any, set ast.SelectionSet) (any, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return e.shape(value, set), nil
}

func (e *executor) shape(value any, set ast.SelectionSet) any {
	if len(set) == 0 {
		return value
	}
	switch v := value.(type) {
	case map[string]any:
		fields := e.collectFields(set)
		obj := make(Object, 0, len(fields))
		for _, f := range fields {
			obj = append(obj, Member{Key: f.Alias, Value: e.shape(v[f.Name], f.SelectionSet)})
		}
		return obj
	case []any:
		for i := range v {
			v[i] = e.shape(v[i], set)
		}
		return v
	default:
		return value
	}
}

// collectFields flattens fragments and applies @skip and @include. A
// fragment is expanded at most once per selection set.
func (e *executor) collectFields(set ast.SelectionSet) []*ast.Field {
	return e.collect(set, map[string]bool{})
}

func (e *executor) collect(set ast.SelectionSet, visited map[string]bool) []*ast.Field {
	var fields []*ast.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			if e.included(s.Directives) {
				fields = append(fields, s)
			}
		case *ast.InlineFragment:
			if e.included(s.Directives) {
				fields = append(fields, e.collect(s.SelectionSet, visited)...)
			}
		case *ast.FragmentSpread:
			if visited[s.Name] || !e.included(s.Directives) {
				continue
			}
			visited[s.Name] = true
			if def := e.doc.Fragments.ForName(s.Name); def != nil {
				fields = append(fields, e.collect(def.SelectionSet, visited)...)
			}
		}
	}
	return fields
}

func (e *executor) included(directives ast.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil && e.condition(d) {
		return false
	}
	if d := directives.ForName("include"); d != nil && !e.condition(d) {
		return false
	}
	return true
}

func (e *executor) condition(d *ast.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	v, err := arg.Value.Value(e.vars)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func requestError(err error) *Response {
	var gqlErr *gqlerror.Error
	if !errors.As(err, &gqlErr) {
		gqlErr = &gqlerror.Error{Message: err.Error()}
	}
	return requestErrors(gqlerror.List{gqlErr})
}

// requestErrors reports errors raised before execution; Data stays nil.
func requestErrors(errs gqlerror.List) *Response {
	for _, gqlErr := range errs {
		if gqlErr.Extensions == nil {
			gqlErr.Extensions = map[string]any{}
		}
		gqlErr.Extensions["code"] = "GRAPHQL_VALIDATION_FAILED"
	}
	return &Response{Errors: errs}
}

func fieldError(f *ast.Field, err error) *gqlerror.Error {
	gqlErr := &gqlerror.Error{
		Message:    err.Error(),
		Path:       ast.Path{ast.PathName(f.Alias)},
		Extensions: map[string]any{"code": ErrorCode(err)},
	}
	if f.Position != nil {
		gqlErr.Locations = []gqlerror.Location{{Line: f.Position.Line, Column: f.Position.Column}}
	}
	var shipperErr *shipper.ShipperError
	if errors.As(err, &shipperErr) {
		gqlErr.Extensions["carrier"] = shipperErr.Carrier
		gqlErr.Extensions["retryable"] = shipperErr.Retryable
	}
	return gqlErr
}

// ErrorCode classifies err for the "code" error extension.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, shipper.ErrDuplicateCarrier):
		return "BAD_USER_INPUT"
	case errors.Is(err, shipper.ErrCarrierNotFound):
		return "CARRIER_NOT_FOUND"
	case errors.Is(err, shipper.ErrTrackingNotFound):
		return "TRACKING_NOT_FOUND"
	case errors.Is(err, shipper.ErrAllCarriersFailed):
		return "ALL_CARRIERS_FAILED"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "TIMEOUT"
	case shipper.IsTransportError(err):
		return "CARRIER_UNAVAILABLE"
	case shipper.IsServiceError(err):
		return "CARRIER_ERROR"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
