package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"graintrade.org/internal/obs"
)

func main() {
	log := obs.Logger()
	base := os.Getenv("SMOKE_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 5 * time.Second}

	username := "smoke-" + strings.ToLower(ulid.Make().String())
	password := "smoke-secret"

	body, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	})
	resp, err := client.Post(base+"/users", "application/json", bytes.NewReader(body))
	if err != nil {
		log.WithError(err).Fatal("create user")
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("create user: status %d", resp.StatusCode)
	}

	resp, err = client.PostForm(base+"/token", url.Values{
		"username": {username},
		"password": {password},
		"scope":    {"me"},
	})
	if err != nil {
		log.WithError(err).Fatal("login")
	}
	var token struct {
		AccessToken string `json:"access_token"`
	}
	err = json.NewDecoder(resp.Body).Decode(&token)
	resp.Body.Close()
	if err != nil || resp.StatusCode != http.StatusOK || token.AccessToken == "" {
		log.Fatalf("login: status %d err %v", resp.StatusCode, err)
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	resp, err = client.Do(req)
	if err != nil {
		log.WithError(err).Fatal("users/me")
	}
	var me struct {
		Username string `json:"username"`
	}
	err = json.NewDecoder(resp.Body).Decode(&me)
	resp.Body.Close()
	if err != nil || me.Username != username {
		log.Fatalf("users/me: status %d user %q err %v", resp.StatusCode, me.Username, err)
	}

	req, _ = http.NewRequest(http.MethodGet, base+"/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken+"x")
	resp, err = client.Do(req)
	if err != nil {
		log.WithError(err).Fatal("tampered token")
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		log.Fatalf("tampered token: expected 401, got %d", resp.StatusCode)
	}

	fmt.Printf("✅ auth smoke test passed: user=%s\n", username)
}
