package postgres

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oksasatya/go-odata-api/internal/odata"
)

type column struct {
	prop     string
	name     string
	nullable bool
}

type table struct {
	name    string
	columns []column
}

func (t table) column(prop string) (string, bool) {
	for _, c := range t.columns {
		if c.prop == prop {
			return c.name, true
		}
	}
	return "", false
}

// selectList renders the columns in scan order, reading NULL text as "".
func (t table) selectList() string {
	return t.selectAs("")
}

// selectAs is selectList with every column qualified by alias.
func (t table) selectAs(alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	parts := make([]string, len(t.columns))
	for i, c := range t.columns {
		if c.nullable {
			parts[i] = "COALESCE(" + prefix + c.name + ", '')"
		} else {
			parts[i] = prefix + c.name
		}
	}
	return strings.Join(parts, ", ")
}

var sqlComparison = map[string]string{"eq": "=", "ne": "<>", "gt": ">", "ge": ">=", "lt": "<", "le": "<="}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", odata.ErrInvalidQuery, fmt.Sprintf(format, args...))
}

type sqlBuilder struct {
	t    table
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// where renders the scope condition and $filter of q. Scope placeholders
// are numbered from $1.
func (b *sqlBuilder) where(q *odata.Query, scope string) (string, error) {
	var conds []string
	if scope != "" {
		conds = append(conds, scope)
	}
	if q != nil && q.Filter != nil {
		w, err := b.expr(q.Filter)
		if err != nil {
			return "", err
		}
		conds = append(conds, w)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

func (b *sqlBuilder) expr(n odata.Node) (string, error) {
	switch v := n.(type) {
	case odata.BinaryNode:
		if v.Op == "and" || v.Op == "or" {
			l, err := b.expr(v.Left)
			if err != nil {
				return "", err
			}
			r, err := b.expr(v.Right)
			if err != nil {
				return "", err
			}
			return "(" + l + " " + strings.ToUpper(v.Op) + " " + r + ")", nil
		}
		return b.comparison(v)
	case odata.NotNode:
		x, err := b.expr(v.Operand)
		if err != nil {
			return "", err
		}
		return "NOT (" + x + ")", nil
	case odata.CallNode:
		return b.call(v)
	}
	return b.operand(n, nil)
}

func (b *sqlBuilder) comparison(n odata.BinaryNode) (string, error) {
	op := sqlComparison[n.Op]
	left, right := n.Left, n.Right
	if isNull(left) {
		left, right = right, left
	}
	if isNull(right) {
		l, err := b.operand(left, nil)
		if err != nil {
			return "", err
		}
		switch n.Op {
		case "eq":
			return l + " IS NULL", nil
		case "ne":
			return l + " IS NOT NULL", nil
		}
		return "", invalid("null cannot be compared with %q", n.Op)
	}
	hint := propertyOf(n.Left)
	if hint == nil {
		hint = propertyOf(n.Right)
	}
	l, err := b.operand(n.Left, hint)
	if err != nil {
		return "", err
	}
	r, err := b.operand(n.Right, hint)
	if err != nil {
		return "", err
	}
	return l + " " + op + " " + r, nil
}

func (b *sqlBuilder) call(n odata.CallNode) (string, error) {
	target, err := b.operand(n.Args[0], nil)
	if err != nil {
		return "", err
	}
	switch n.Func {
	case "tolower":
		return "lower(" + target + ")", nil
	case "toupper":
		return "upper(" + target + ")", nil
	}
	text, _ := n.Args[1].(odata.LiteralNode).Value.(string)
	pattern := escapeLike(text)
	switch n.Func {
	case "contains":
		pattern = "%" + pattern + "%"
	case "startswith":
		pattern += "%"
	case "endswith":
		pattern = "%" + pattern
	default:
		return "", invalid("unsupported function %q", n.Func)
	}
	return target + " LIKE " + b.arg(pattern), nil
}

func (b *sqlBuilder) operand(n odata.Node, hint *odata.Property) (string, error) {
	switch v := n.(type) {
	case odata.PropertyNode:
		col, ok := b.t.column(v.Property.Name)
		if !ok {
			return "", invalid("property %q cannot be filtered", v.Property.Name)
		}
		return col, nil
	case odata.CallNode:
		return b.call(v)
	case odata.LiteralNode:
		val, err := coerce(v.Value, hint)
		if err != nil {
			return "", err
		}
		return b.arg(val), nil
	}
	return b.expr(n)
}

func (b *sqlBuilder) orderBy(q *odata.Query) string {
	var parts []string
	keyed := false
	if q != nil {
		for _, o := range q.OrderBy {
			col, ok := b.t.column(o.Property)
			if !ok {
				continue
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, col+" "+dir)
			keyed = keyed || col == "id"
		}
	}
	if !keyed {
		parts = append(parts, "id ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (b *sqlBuilder) page(q *odata.Query) string {
	var s string
	if q == nil {
		return s
	}
	if q.Top != nil {
		s += " LIMIT " + b.arg(*q.Top)
	}
	if q.Skip > 0 {
		s += " OFFSET " + b.arg(q.Skip)
	}
	return s
}

// buildList renders a filtered, ordered and paged SELECT over t.
func buildList(t table, q *odata.Query, scope string, scopeArgs ...any) (string, []any, error) {
	b := &sqlBuilder{t: t, args: append([]any(nil), scopeArgs...)}
	where, err := b.where(q, scope)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT " + t.selectList() + " FROM " + t.name + where + b.orderBy(q) + b.page(q)
	return sql, b.args, nil
}

// buildCount renders the row count of the filtered set, ignoring paging.
func buildCount(t table, q *odata.Query, scope string, scopeArgs ...any) (string, []any, error) {
	b := &sqlBuilder{t: t, args: append([]any(nil), scopeArgs...)}
	where, err := b.where(q, scope)
	if err != nil {
		return "", nil, err
	}
	return "SELECT count(*) FROM " + t.name + where, b.args, nil
}

func isNull(n odata.Node) bool {
	l, ok := n.(odata.LiteralNode)
	return ok && l.Value == nil
}

func propertyOf(n odata.Node) *odata.Property {
	switch v := n.(type) {
	case odata.PropertyNode:
		p := v.Property
		return &p
	case odata.CallNode:
		if len(v.Args) > 0 {
			return propertyOf(v.Args[0])
		}
	}
	return nil
}

// coerce converts a literal to the Go type the compared column expects.
func coerce(v any, p *odata.Property) (any, error) {
	if p == nil {
		return v, nil
	}
	switch p.Kind {
	case odata.KindEnum:
		switch x := v.(type) {
		case string:
			i, ok := p.EnumOrdinal(x)
			if !ok {
				return nil, invalid("%q is not a member of %s", x, p.Name)
			}
			return i, nil
		case int64:
			return int(x), nil
		}
	case odata.KindInt:
		switch x := v.(type) {
		case int64:
			return int(x), nil
		case float64:
			return x, nil
		case string:
			i, err := strconv.Atoi(x)
			if err != nil {
				return nil, invalid("%q is not an integer", x)
			}
			return i, nil
		}
	case odata.KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case odata.KindTime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, invalid("%q is not a date-time", x)
			}
			return t, nil
		}
	case odata.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, invalid("literal %v does not match %s", v, p.Name)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
