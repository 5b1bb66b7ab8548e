package utils

// 流水查询分页默认值
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Pagination 分页请求参数，page 从 1 开始
type Pagination struct {
	Page  int `json:"page" form:"page" binding:"omitempty,min=1"`
	Limit int `json:"limit" form:"limit" binding:"omitempty,min=1"`
}

// Normalize 补默认值并限制单页上限
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Bounds 返回 offset, limit
func (p Pagination) Bounds() (int, int) {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit, n.Limit
}

// PageResult 分页响应结果
type PageResult struct {
	List    interface{} `json:"list"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	HasMore bool        `json:"hasMore"`
}

func NewPageResult(list interface{}, total int64, p Pagination) *PageResult {
	n := p.Normalize()
	return &PageResult{
		List:    list,
		Total:   total,
		Page:    n.Page,
		Limit:   n.Limit,
		HasMore: int64(n.Page*n.Limit) < total,
	}
}
