package auth

import "time"

// JSON でもフォーム/クエリでも受ける
type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required"`
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
	Role     string `json:"role,omitempty" form:"role"` // 未指定なら student
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type ChangeEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ProtectedResponse struct {
	Message string `json:"message"`
	Role    Role   `json:"role"`
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
