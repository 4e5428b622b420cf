package cookiesign

import (
	"strings"
	"testing"
	"time"

	"github.com/joeydtaylor/neonguard/pkg/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testData() session.Data {
	return session.Data{
		Session: &session.Session{
			ID:        "s1",
			UserID:    "u1",
			Token:     "tok-a",
			ExpiresAt: time.Now().Add(time.Hour),
		},
		User: &session.User{ID: "u1", Email: "u1@example.com", Name: "U One"},
	}
}

func TestSignValidateRoundTrip(t *testing.T) {
	data := testData()
	tok, err := Sign(data, time.Now().Add(time.Minute), testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	res := Validate(tok, testSecret)
	if !res.Valid {
		t.Fatalf("validate failed: %v", res.Err)
	}
	if res.Payload.Token() != "tok-a" {
		t.Fatalf("payload token %q", res.Payload.Token())
	}
	if res.Payload.User == nil || res.Payload.User.Email != "u1@example.com" {
		t.Fatalf("payload user %+v", res.Payload.User)
	}
}

func TestSignRejectsWeakSecret(t *testing.T) {
	if _, err := Sign(testData(), time.Now().Add(time.Minute), "short"); err != ErrWeakSecret {
		t.Fatalf("got %v, want ErrWeakSecret", err)
	}
	if res := Validate("whatever", "short"); res.Valid || res.Err != ErrWeakSecret {
		t.Fatalf("validate with weak secret: %+v", res)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	tok, err := Sign(testData(), time.Now().Add(time.Minute), testSecret)
	if err != nil {
		t.Fatal(err)
	}
	res := Validate(tok, strings.Repeat("x", MinSecretLen))
	if res.Valid {
		t.Fatal("foreign-keyed cookie validated")
	}
	if !IsTamper(res.Err) {
		t.Fatalf("expected tamper classification, got %v", res.Err)
	}
}

func TestValidateTamperedToken(t *testing.T) {
	tok, err := Sign(testData(), time.Now().Add(time.Minute), testSecret)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a character in the signature segment.
	i := strings.LastIndex(tok, ".") + 1
	b := []byte(tok)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	res := Validate(string(b), testSecret)
	if res.Valid {
		t.Fatal("tampered cookie validated")
	}
	if !IsTamper(res.Err) {
		t.Fatalf("expected tamper classification, got %v", res.Err)
	}
}

func TestValidateExpired(t *testing.T) {
	tok, err := Sign(testData(), time.Now().Add(-time.Minute), testSecret)
	if err != nil {
		t.Fatal(err)
	}
	res := Validate(tok, testSecret)
	if res.Valid {
		t.Fatal("expired cookie validated")
	}
	if !IsExpiry(res.Err) {
		t.Fatalf("expected expiry classification, got %v", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "expired") {
		t.Fatalf("expiry error should say so: %v", res.Err)
	}
	if IsTamper(res.Err) {
		t.Fatal("expiry must not classify as tamper")
	}
}

func TestValidateGarbage(t *testing.T) {
	for _, tok := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		if res := Validate(tok, testSecret); res.Valid {
			t.Fatalf("garbage %q validated", tok)
		}
	}
}

func TestCacheExpiryCapsAtFiveMinutes(t *testing.T) {
	now := time.Now()
	sess := &session.Session{ExpiresAt: now.Add(24 * time.Hour)}
	exp := CacheExpiry(sess, now)
	if want := now.Add(CacheTTLCap); !exp.Equal(want) {
		t.Fatalf("expiry %v, want cap %v", exp, want)
	}
}

func TestCacheExpiryUsesSessionExpiryWhenSooner(t *testing.T) {
	now := time.Now()
	sess := &session.Session{ExpiresAt: now.Add(90 * time.Second)}
	if exp := CacheExpiry(sess, now); !exp.Equal(sess.ExpiresAt) {
		t.Fatalf("expiry %v, want session expiry %v", exp, sess.ExpiresAt)
	}
}

func TestCacheExpiryWithTTLNeverExceedsCap(t *testing.T) {
	now := time.Now()
	sess := &session.Session{ExpiresAt: now.Add(24 * time.Hour)}

	// Configured TTL above the cap clamps down.
	exp := CacheExpiryWithTTL(sess, now, time.Hour)
	if want := now.Add(CacheTTLCap); !exp.Equal(want) {
		t.Fatalf("expiry %v, want cap %v", exp, want)
	}

	// Shorter configured TTL is honored.
	exp = CacheExpiryWithTTL(sess, now, time.Minute)
	if want := now.Add(time.Minute); !exp.Equal(want) {
		t.Fatalf("expiry %v, want %v", exp, want)
	}

	// Zero or negative falls back to the cap.
	exp = CacheExpiryWithTTL(sess, now, 0)
	if want := now.Add(CacheTTLCap); !exp.Equal(want) {
		t.Fatalf("expiry %v, want cap %v", exp, want)
	}
}

func TestSignAnonymousPayload(t *testing.T) {
	tok, err := Sign(session.Data{}, time.Now().Add(time.Minute), testSecret)
	if err != nil {
		t.Fatalf("sign empty payload: %v", err)
	}
	res := Validate(tok, testSecret)
	if !res.Valid {
		t.Fatalf("validate: %v", res.Err)
	}
	if !res.Payload.Empty() {
		t.Fatalf("expected empty payload, got %+v", res.Payload)
	}
}
