package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/2beens/trainor/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Query builds one PostgREST request against a table. Filters are only
// meaningful for select, update and delete.
type Query struct {
	c      *Client
	table  string
	method string
	params url.Values
	body   any
	header http.Header
	single bool
}

func (c *Client) From(table string) *Query {
	return &Query{
		c:      c,
		table:  table,
		method: http.MethodGet,
		params: url.Values{},
		header: http.Header{},
	}
}

func (q *Query) Select(columns string) *Query {
	if columns == "" {
		columns = "*"
	}
	q.params.Set("select", columns)
	return q
}

// Insert posts one row or a slice of rows and asks for them back.
func (q *Query) Insert(rows any) *Query {
	q.method = http.MethodPost
	q.body = rows
	q.header.Set("Prefer", "return=representation")
	return q
}

func (q *Query) Update(values any) *Query {
	q.method = http.MethodPatch
	q.body = values
	q.header.Set("Prefer", "return=representation")
	return q
}

func (q *Query) Delete() *Query {
	q.method = http.MethodDelete
	return q
}

func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// Contains matches array columns holding all the given values.
func (q *Query) Contains(column string, values ...string) *Query {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, quoteFilterValue(v))
	}
	q.params.Add(column, "cs.{"+strings.Join(quoted, ",")+"}")
	return q
}

// Or adds a disjunction of raw PostgREST filters, e.g. "name.ilike.*x*,id.eq.1".
func (q *Query) Or(filters string) *Query {
	q.params.Add("or", "("+filters+")")
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	direction := "desc"
	if ascending {
		direction = "asc"
	}
	q.params.Add("order", column+"."+direction)
	return q
}

// Single expects exactly one row back and decodes it as an object.
func (q *Query) Single() *Query {
	q.single = true
	q.header.Set("Accept", "application/vnd.pgrst.object+json")
	return q
}

// Execute runs the query as the signed in user (or anon) and decodes the
// response into out, which may be nil.
func (q *Query) Execute(ctx context.Context, out any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.query."+strings.ToLower(q.method))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("supabase.table", q.table))

	if q.table == "" {
		return fmt.Errorf("%w: empty table name", ErrInvalidArgument)
	}
	if (q.method == http.MethodDelete || q.method == http.MethodPatch) && !q.hasFilters() {
		// PostgREST would touch every row
		return fmt.Errorf("%w: %s without filters", ErrInvalidArgument, q.method)
	}

	token, err := q.c.Auth.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}

	err = q.c.do(ctx, request{
		method: q.method,
		path:   restPath + "/" + q.table,
		query:  q.params,
		body:   q.body,
		header: q.header,
		bearer: token,
	}, out)
	if err != nil && q.single && IsStatus(err, http.StatusNotAcceptable) {
		return fmt.Errorf("%s: %w", q.table, ErrNoRowsReturned)
	}
	return err
}

// URL renders the query string, for logs and tests.
func (q *Query) URL() string {
	return restPath + "/" + q.table + "?" + q.params.Encode()
}

func (q *Query) hasFilters() bool {
	for k := range q.params {
		switch k {
		case "select", "order", "limit":
			continue
		default:
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// OrILike renders a case-insensitive substring match over several columns,
// to be passed to Or. % and _ in term match literally.
func OrILike(term string, columns ...string) string {
	pattern := quoteFilterValue("*" + likeEscaper.Replace(term) + "*")
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col+".ilike."+pattern)
	}
	return strings.Join(parts, ",")
}

// quoteFilterValue double quotes values holding PostgREST reserved chars.
func quoteFilterValue(v string) string {
	if !strings.ContainsAny(v, ",.:()\"\\ {}") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
