package ratelimit

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// identifierの接頭辞で上限を切り替える
const (
	anonPrefix = "anon:"
	userPrefix = "user:"
)

// 匿名はIP単位、認証済みはユーザー単位
type Limits struct {
	Anon   int
	User   int
	Window time.Duration
}

func AnonKey(ip string) string {
	return anonPrefix + ip
}

func UserKey(userID int64) string {
	return userPrefix + strconv.FormatInt(userID, 10)
}

func (l Limits) limitFor(identifier string) int {
	if strings.HasPrefix(identifier, userPrefix) {
		return l.User
	}
	return l.Anon
}

// echoのmiddleware.RateLimiterStoreと同じ形
type Store interface {
	Allow(identifier string) (bool, error)
}

// 共有ストアが使えないときは通してログに残す
type FailOpen struct {
	Store Store
	Log   *slog.Logger
}

func (f FailOpen) Allow(identifier string) (bool, error) {
	ok, err := f.Store.Allow(identifier)
	if err != nil {
		f.Log.Warn("rate limit store unavailable, allowing", "identifier", identifier, "err", err)
		return true, nil
	}
	return ok, nil
}
