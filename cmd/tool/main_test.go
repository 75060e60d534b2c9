package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/silverback/internal/infrastructure/security"
)

func TestRunToken_VerifiesWithSameSecret(t *testing.T) {
	var out bytes.Buffer
	err := runToken([]string{"-secret", "s3cret", "-user", "0b3f7c1e-0000-4000-8000-000000000001"}, &out)
	require.NoError(t, err)

	claims, err := security.NewJWTSigner("s3cret", "silverback", "silverback-api").
		VerifyAccessToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "0b3f7c1e-0000-4000-8000-000000000001", claims.UserID)
}

func TestRunToken_RequiresUser(t *testing.T) {
	assert.Error(t, runToken([]string{"-secret", "s3cret"}, &bytes.Buffer{}))
}

func TestRunHash(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runHash([]string{"-password", "Passw0rdX", "-cost", "4"}, &out))

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Passw0rdX")))
}

func TestScanBrute_ListsAndDeletes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mr.HSet("brute:login:identity:10.0.0.1:ada@example.com", "count", "6", "last", "1700000000000")
	mr.Set("unrelated", "x")

	var out bytes.Buffer
	err := scanBrute(context.Background(), rdb, &out, "brute:*", 100, time.Second, true)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "brute:login:identity:10.0.0.1:ada@example.com")
	assert.Contains(t, out.String(), "count=6")
	assert.Contains(t, out.String(), "deleted")
	assert.False(t, mr.Exists("brute:login:identity:10.0.0.1:ada@example.com"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestScanBrute_NoMatches(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var out bytes.Buffer
	require.NoError(t, scanBrute(context.Background(), rdb, &out, "brute:*", 100, time.Second, false))
	assert.Contains(t, out.String(), "No keys matched.")
}
