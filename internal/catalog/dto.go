package catalog

// 蔵書登録リクエスト
type CreateBookRequest struct {
	ID       int64  `json:"id" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Author   string `json:"author" binding:"required"`
	Category string `json:"category"`
	// 省略時は 1
	Quantity *int `json:"quantity,omitempty"`
	// 旧クライアント互換。値は保存せず quantity から算出する
	Available *bool `json:"available,omitempty"`
}

type BulkCreateBooksRequest struct {
	Books []CreateBookRequest `json:"books"`
}

type BookResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	Available bool   `json:"available"`
}

func toBookResponse(b Book) BookResponse {
	return BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Category:  b.Category,
		Quantity:  b.Quantity,
		Available: b.Available(),
	}
}
