package core

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page selects a window of a listing. Numbers start at 1.
type Page struct {
	Number int `query:"page"`
	Size   int `query:"pageSize"`
}

// Clean clamps the page to sane values.
func (p Page) Clean() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

func (p Page) Limit() int { return p.Size }

// Window returns the [start, end) bounds of the page within a listing of n items.
func (p Page) Window(n int) (start, end int) {
	start = p.Offset()
	if start > n {
		start = n
	}
	end = start + p.Size
	if end > n {
		end = n
	}
	return start, end
}

type PageResult struct {
	PageNum  int         `json:"pageNum"`
	PageSize int         `json:"pageSize"`
	Total    int         `json:"total"`
	List     interface{} `json:"list"`
}
