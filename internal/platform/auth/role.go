package auth

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Principal は検証済みトークンから取り出した呼び出し元
type Principal struct {
	UserID int64
	Email  string
	Role   Role
}

// 権限判定はロールの値だけで決まる

func CanManageInventory(r Role) bool { return r == RoleAdmin }

func CanBorrow(r Role) bool { return r == RoleStudent || r == RoleAdmin }

func CanViewAllLoans(r Role) bool { return r == RoleAdmin }

func CanManageAccounts(r Role) bool { return r == RoleAdmin }

// CanActFor: 本人か admin なら他人の代わりに貸出・返却できる
func CanActFor(p Principal, userID int64) bool {
	if !CanBorrow(p.Role) {
		return false
	}
	return p.UserID == userID || p.Role == RoleAdmin
}
