package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
)

type client struct {
	api   chi.Router
	token string
}

type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed with status %d: %v", e.Status, e.Detail)
}

// statusOf returns the http status of an api error, or 0 for other errors.
func statusOf(err error) int {
	var aerr *apiError
	if errors.As(err, &aerr) {
		return aerr.Status
	}
	return 0
}

func do[T any](c *client, method, endpoint string, body interface{}, expect int) (T, error) {
	var data T

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return data, fmt.Errorf("json encode error: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, endpoint, reqBody)
	if c.token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %v", c.token))
	}
	w := httptest.NewRecorder()
	c.api.ServeHTTP(w, req)

	res := w.Result()
	if res.StatusCode != expect {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(res.Body).Decode(&detail)
		return data, &apiError{Status: res.StatusCode, Detail: detail.Detail}
	}

	if expect != http.StatusNoContent {
		if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
			return data, fmt.Errorf("json decode error: %w", err)
		}
	}

	return data, nil
}

type noBody struct{}

func get[T any](c *client, endpoint string) (T, error) {
	return do[T](c, "GET", endpoint, nil, http.StatusOK)
}

func create[T any](c *client, endpoint string, body interface{}) (T, error) {
	return do[T](c, "POST", endpoint, body, http.StatusCreated)
}

func update[T any](c *client, endpoint string, body interface{}) (T, error) {
	return do[T](c, "PUT", endpoint, body, http.StatusOK)
}

func deleteReq(c *client, endpoint string) error {
	_, err := do[noBody](c, "DELETE", endpoint, nil, http.StatusNoContent)
	return err
}

func (c *client) login(username, password string) error {
	body := map[string]string{"username": username, "password": password}

	res, err := do[map[string]string](c, "POST", "/auth/login", body, http.StatusOK)
	if err != nil {
		return err
	}

	if res["token_type"] != "bearer" {
		return fmt.Errorf("unexpected token_type '%v'", res["token_type"])
	}

	c.token = res["access_token"]
	return nil
}

type userInfo struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c *client) me() (userInfo, error) {
	return get[userInfo](c, "/me")
}
