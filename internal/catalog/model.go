package catalog

// books テーブルの 1 行。貸出可否は quantity から導く
type Book struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	Author   string `db:"author"`
	Category string `db:"category"`
	Quantity int    `db:"quantity"`
}

func (b Book) Available() bool { return b.Quantity > 0 }

type BookFilter struct {
	Category  *string
	Author    *string
	Available *bool
}
