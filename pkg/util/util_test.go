package util

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestEnsureViperSubEmpty(t *testing.T) {
	v := viper.New()
	sub := EnsureViperSub(v, "foo")
	assert.NotNil(t, v.Get("foo"))
	assert.NotNil(t, sub)
}

func TestEnsureViperSub(t *testing.T) {
	v := viper.New()
	values := make(map[string]interface{})
	values["test"] = "bar"
	v.Set("foo", values)
	sub := EnsureViperSub(v, "foo")
	assert.NotNil(t, sub)
	assert.Equal(t, "bar", sub.Get("test"))
}

func TestUniqueFold(t *testing.T) {
	unique := UniqueFold([]string{"Owner@example.com", "", "owner@example.com", "team@example.com"})
	assert.Equal(t, []string{"Owner@example.com", "team@example.com"}, unique)
}

func TestAuthedTransport(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer foo", r.Header.Get("Authorization"))
	}))
	defer mock.Close()

	client := &http.Client{Transport: &AuthedTransport{Key: "Bearer foo", Wrapped: http.DefaultTransport}}
	resp, err := client.Get(mock.URL)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
