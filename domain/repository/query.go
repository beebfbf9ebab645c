package repository

// Option applies a modification to a Query.
type Option func(Query) Query

// Condition is one WHERE fragment with its bind arguments.
type Condition struct {
	clause string
	args   []any
}

// Clause returns the SQL fragment, e.g. "owner = ?".
func (c Condition) Clause() string { return c.clause }

// Args returns the bind arguments for the clause.
func (c Condition) Args() []any { return c.args }

// Query holds conditions, ordering, and pagination for store lookups.
// Ordering entries are rendered, e.g. "created_at DESC".
type Query struct {
	conditions []Condition
	orderBy    []string
	limit      int
	offset     int
}

// Build folds a set of options into a Query.
func Build(options ...Option) Query {
	var q Query
	for _, opt := range options {
		q = opt(q)
	}
	return q
}

// Conditions returns the WHERE fragments.
func (q Query) Conditions() []Condition {
	return append([]Condition(nil), q.conditions...)
}

// OrderBy returns the rendered ordering entries.
func (q Query) OrderBy() []string {
	return append([]string(nil), q.orderBy...)
}

// Limit returns the result cap (0 means unlimited).
func (q Query) Limit() int { return q.limit }

// Offset returns the result offset.
func (q Query) Offset() int { return q.offset }

func (q Query) where(clause string, args ...any) Query {
	q.conditions = append(q.conditions, Condition{clause: clause, args: args})
	return q
}

// WithCondition adds a field = value condition.
func WithCondition(field string, value any) Option {
	return func(q Query) Query {
		return q.where(field+" = ?", value)
	}
}

// WithConditionIn adds a field IN (values) condition.
func WithConditionIn(field string, values any) Option {
	return func(q Query) Query {
		return q.where(field+" IN ?", values)
	}
}

// WithID filters by the "id" column.
func WithID(id int64) Option {
	return WithCondition("id", id)
}

// WithRepositoryID filters by the "repository_id" column.
func WithRepositoryID(id int64) Option {
	return WithCondition("repository_id", id)
}

// WithOwnerAndName filters by the "owner" and "name" columns.
func WithOwnerAndName(owner, name string) Option {
	return func(q Query) Query {
		return q.where("owner = ?", owner).where("name = ?", name)
	}
}

// WithStatus filters by the "status" column.
func WithStatus(status AnalysisStatus) Option {
	return WithCondition("status", string(status))
}

// WithPath filters by the "path" column.
func WithPath(path string) Option {
	return WithCondition("path", path)
}

// WithLimit caps the number of results.
func WithLimit(n int) Option {
	return func(q Query) Query {
		q.limit = n
		return q
	}
}

// WithOffset skips the first n results.
func WithOffset(n int) Option {
	return func(q Query) Query {
		q.offset = n
		return q
	}
}

// WithOrderAsc orders ascending on a column.
func WithOrderAsc(field string) Option {
	return func(q Query) Query {
		q.orderBy = append(q.orderBy, field+" ASC")
		return q
	}
}

// WithOrderDesc orders descending on a column.
func WithOrderDesc(field string) Option {
	return func(q Query) Query {
		q.orderBy = append(q.orderBy, field+" DESC")
		return q
	}
}
