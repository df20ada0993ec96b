package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/db"
)

// -------------- Clock --------------

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt の上限
)

type Service struct {
	store  UserStore
	tokens *TokenService
	clock  Clock
	cost   int
}

func NewService(store UserStore, tokens *TokenService) *Service {
	return &Service{store: store, tokens: tokens, clock: realClock{}, cost: bcrypt.DefaultCost}
}

// Register: 自己登録。admin はここでは作れない（CLI の useradd を使う）
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	role := Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role == "" {
		role = RoleStudent
	}
	if !role.Valid() {
		return nil, apierr.Invalid(fmt.Sprintf("unknown role %q", req.Role))
	}
	if role == RoleAdmin {
		return nil, apierr.Forbidden("admin accounts cannot be self-registered")
	}

	u, err := s.CreateUser(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		return nil, err
	}
	return &RegisterResponse{
		Message: fmt.Sprintf("User %s registered successfully with role %s", u.Name, u.Role),
		User:    toUserResponse(u),
	}, nil
}

// CreateUser は役割の制限なしにユーザーを作る
func (s *Service) CreateUser(ctx context.Context, name, email, password string, role Role) (*User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, apierr.Invalid("name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apierr.Invalid("a valid email is required")
	}
	if !role.Valid() {
		return nil, apierr.Invalid(fmt.Sprintf("unknown role %q", role))
	}
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return nil, apierr.Invalid(fmt.Sprintf("password must be %d to %d bytes", minPasswordLen, maxPasswordLen))
	}

	exists, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		return nil, apierr.Conflict("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		// 同時登録で UNIQUE に当たった場合
		if db.IsDuplicateKey(err) {
			return nil, apierr.Conflict("Email already registered")
		}
		return nil, err
	}
	return u, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// 存在しないメールでも比較を一回走らせて応答時間をそろえる
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		compareDummy(req.Password)
		return nil, apierr.InvalidCredentials("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierr.InvalidCredentials("Invalid credentials")
	}

	token, err := s.tokens.Issue(Principal{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, err
	}
	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Protected: トークンを検証し、現在のユーザー情報を返す
func (s *Service) Protected(ctx context.Context, token string) (*ProtectedResponse, error) {
	if token == "" {
		return nil, apierr.InvalidToken("Invalid token")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, apierr.InvalidToken("Invalid token")
		}
		return nil, err
	}

	u, err := s.store.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.NotFound("User not found")
	}
	return &ProtectedResponse{
		Message: fmt.Sprintf("Hello %s, role: %s", u.Email, u.Role),
		Role:    u.Role,
		UserID:  u.ID,
		Email:   u.Email,
	}, nil
}

// DeleteUser: 貸出履歴が残っているユーザーは消せない
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return apierr.Invalid("invalid user id")
	}
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apierr.Conflict("User has borrow records")
		}
		return err
	}
	if n == 0 {
		return apierr.NotFound("User not found")
	}
	return nil
}

// ChangeEmail はログイン用メールを付け替える。発行済みトークンの sub は古いままなので
// /protected は再ログインまで User not found になる
func (s *Service) ChangeEmail(ctx context.Context, id int64, email string) (*UserResponse, error) {
	if id <= 0 {
		return nil, apierr.Invalid("invalid user id")
	}
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apierr.Invalid("a valid email is required")
	}

	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.NotFound("User not found")
	}
	if u.Email == email {
		res := toUserResponse(u)
		return &res, nil
	}

	other, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if other != nil {
		return nil, apierr.Conflict("Email already registered")
	}
	if err := s.store.UpdateEmail(ctx, id, email); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apierr.Conflict("Email already registered")
		}
		return nil, err
	}

	u.Email = email
	res := toUserResponse(u)
	return &res, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
