// Package auth holds the confirmation-code generator for the passwordless
// signup flow. Codes are stateless: an HMAC over the user's identity and
// current code epoch plus an expiry timestamp, so no code ever needs to be
// stored server-side.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"reviewhub/internal/api/models"
)

// Generator issues and verifies user-scoped confirmation codes. It is an
// explicit injected component; the signing secret lives here and nowhere
// else.
type Generator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewGenerator(secret string, ttl time.Duration) *Generator {
	return &Generator{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a time-bound code for the user. The HMAC binds the code to
// the user's id, email and current code epoch, so changing the email or
// bumping the epoch structurally invalidates it.
func (g *Generator) Issue(user *models.User) string {
	expiry := g.now().Add(g.ttl).Unix()
	return fmt.Sprintf("%x-%s", expiry, g.sign(user, expiry))
}

// Verify reports whether code was issued by this generator for this user in
// the user's current epoch and has not expired.
func (g *Generator) Verify(user *models.User, code string) bool {
	expiryPart, sig, ok := strings.Cut(code, "-")
	if !ok {
		return false
	}
	expiry, err := strconv.ParseInt(expiryPart, 16, 64)
	if err != nil {
		return false
	}
	if g.now().Unix() > expiry {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(g.sign(user, expiry)))
}

func (g *Generator) sign(user *models.User, expiry int64) string {
	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "%s|%s|%d|%d", user.ID, user.Email, user.CodeEpoch, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}
