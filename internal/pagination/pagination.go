package pagination

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Params selects one page of a listing. Page is 1-based.
type Params struct {
	Page     int
	PageSize int
}

// Normalize clamps the params to sane values.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}

	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}

	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	return p
}

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

// Result is one page of data plus the totals needed to render a pager.
type Result[T any] struct {
	Data     []T
	Total    int
	Page     int
	PageSize int
	Pages    int
}

func NewResult[T any](data []T, total int, p Params) *Result[T] {
	p = p.Normalize()

	pages := 0
	if total > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}

	return &Result[T]{
		Data:     data,
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
		Pages:    pages,
	}
}
