package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apierr"
)

const ctxPrincipalKey = "auth.principal"

func bearerToken(h string) (string, bool) {
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// RequireAuth: Authorization: Bearer <token> を検証して context に Principal を詰める
func RequireAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			apierr.Abort(c, apierr.InvalidToken("missing Authorization header"))
			return
		}
		tok, ok := bearerToken(h)
		if !ok {
			apierr.Abort(c, apierr.InvalidToken("invalid Authorization header"))
			return
		}

		claims, err := v.Verify(tok)
		if err != nil {
			apierr.Abort(c, apierr.InvalidToken("Invalid token"))
			return
		}

		c.Set(ctxPrincipalKey, claims.Principal())
		c.Next()
	}
}

// PrincipalFrom は RequireAuth を通っていなければ ok=false
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(ctxPrincipalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// RequireCapability: 例) CanManageInventory を渡して admin のみ許可
func RequireCapability(allowed func(Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			apierr.Abort(c, apierr.InvalidToken("authentication required"))
			return
		}
		if !allowed(p.Role) {
			apierr.Abort(c, apierr.Forbidden("forbidden"))
			return
		}
		c.Next()
	}
}

// Guards はルートごとに差し込むミドルウェアの組。認証不要の設定なら全部空
type Guards struct {
	Authenticated   []gin.HandlerFunc
	ManageInventory []gin.HandlerFunc
	ViewAllLoans    []gin.HandlerFunc
}

func NewGuards(v Verifier, required bool) Guards {
	if !required {
		return Guards{}
	}
	authn := RequireAuth(v)
	return Guards{
		Authenticated:   []gin.HandlerFunc{authn},
		ManageInventory: []gin.HandlerFunc{authn, RequireCapability(CanManageInventory)},
		ViewAllLoans:    []gin.HandlerFunc{authn, RequireCapability(CanViewAllLoans)},
	}
}

// Then appends the final handler to a guard chain.
func Then(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw)+1)
	out = append(out, mw...)
	return append(out, h)
}
