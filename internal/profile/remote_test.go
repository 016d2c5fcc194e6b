package profile

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestRemoteStoreFetchRecord(t *testing.T) {
	ctx := context.Background()
	secret := []byte("test-secret")
	adminKey := "key-id:" + hex.EncodeToString(secret)

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/profiles/u-7" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}

			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				t.Fatalf("expected bearer token, got %q", auth)
			}
			token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(tok *jwt.Token) (interface{}, error) {
				if tok.Header["kid"] != "key-id" {
					return nil, fmt.Errorf("unexpected kid %v", tok.Header["kid"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				t.Errorf("invalid admin token: %v", err)
			}

			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `{"calories_per_day": 2200, "meal_count": 4}`)
		}))
		defer server.Close()

		store := NewRemoteStore(server.URL, adminKey)
		record, err := store.FetchRecord(ctx, "u-7")
		if err != nil {
			t.Fatalf("FetchRecord failed: %v", err)
		}
		prefs, err := Normalize(record)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if prefs.CaloriesPerDay != 2200 {
			t.Errorf("unexpected preferences: %+v", prefs)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		store := NewRemoteStore(server.URL, adminKey)
		_, err := store.FetchRecord(ctx, "ghost-user")
		if !errors.Is(err, ErrNoRecord) {
			t.Errorf("expected ErrNoRecord for 404, got %v", err)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		store := NewRemoteStore(server.URL, adminKey)
		if _, err := store.FetchRecord(ctx, "u-7"); err == nil {
			t.Fatal("expected an error for non-200 status code, got nil")
		}
	})

	t.Run("EmptyUserCode", func(t *testing.T) {
		store := NewRemoteStore("http://unused.test", adminKey)
		_, err := store.FetchRecord(ctx, "")
		if !errors.Is(err, ErrNoRecord) {
			t.Errorf("expected ErrNoRecord for empty code, got %v", err)
		}
	})

	t.Run("BadAdminKey", func(t *testing.T) {
		store := NewRemoteStore("http://unused.test", "missing-separator")
		if _, err := store.FetchRecord(ctx, "u-7"); err == nil {
			t.Fatal("expected error for malformed admin key")
		}
	})
}
