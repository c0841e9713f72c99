package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJWT_RoundTrip(t *testing.T) {
	j := NewJWT("test-secret")
	token, err := j.Issue(42, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := httptest.NewRequest("GET", "/api/history", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	id, err := j.UserID(r)
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if id == nil || *id != 42 {
		t.Errorf("UserID = %v, want 42", id)
	}
}

func TestJWT_Anonymous(t *testing.T) {
	j := NewJWT("test-secret")
	id, err := j.UserID(httptest.NewRequest("GET", "/", nil))
	if err != nil || id != nil {
		t.Errorf("UserID = %v, %v; want nil, nil", id, err)
	}
}

func TestJWT_Rejects(t *testing.T) {
	j := NewJWT("test-secret")
	other, _ := NewJWT("other-secret").Issue(1, time.Hour)
	expired, _ := j.Issue(1, -time.Minute)

	tests := []struct {
		name   string
		header string
	}{
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not-a-token"},
		{"wrong secret", "Bearer " + other},
		{"expired", "Bearer " + expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.Header.Set("Authorization", tt.header)
			if _, err := j.UserID(r); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-ID", "7")
	id, err := Header{}.UserID(r)
	if err != nil || id == nil || *id != 7 {
		t.Errorf("UserID = %v, %v; want 7", id, err)
	}

	r.Header.Set("X-User-ID", "abc")
	if _, err := (Header{}).UserID(r); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
