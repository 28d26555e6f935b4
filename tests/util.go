package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/user"
)

// NewValidator returns a validator with the core and user validators registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Logger records logged messages.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := level + ": " + msg
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			entry += " | " + err.Error()
		}
	}
	l.Messages = append(l.Messages, entry)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// Entries returns a copy of the logged messages.
func (l *Logger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Messages...)
}

// User returns an identity with the given role, created at `createdAt` (or now).
func User(role user.Role, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	id := string(role)
	return user.User{
		ID:        "u-" + id,
		Email:     fmt.Sprintf("%s@masomo.cd", id),
		FullName:  "Test " + id,
		Role:      role,
		IsActive:  true,
		CreatedAt: core.NewTime(tstamp),
		UpdatedAt: core.NewTime(tstamp),
	}
}

// Token returns an HS256 JWT for `sub` expiring at `exp`.
func Token(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Subject: sub, ExpiresAt: exp.Unix()})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	return signed
}
