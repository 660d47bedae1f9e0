package common

type Pagination struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit,omitempty"`
	Offset int   `json:"offset,omitempty"`
}

// SearchResponse is one page of a list endpoint. Total counts every match,
// not just the page.
type SearchResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

func NewSearchResponse(data interface{}, total int64) *SearchResponse {
	return &SearchResponse{
		Data:       data,
		Pagination: Pagination{Total: total},
	}
}

// Page records the limit and offset the page was read with.
func (r *SearchResponse) Page(limit, offset int) *SearchResponse {
	r.Pagination.Limit = limit
	r.Pagination.Offset = offset
	return r
}
