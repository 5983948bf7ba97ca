package presenters

// List is the paginated envelope returned by collection endpoints.
type List struct {
	Kind  string      `json:"kind"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Total int64       `json:"total"`
	Items interface{} `json:"items"`
}
