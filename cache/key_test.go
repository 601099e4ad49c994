package cache

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKey(t *testing.T) {
	assert := assert.New(t)

	u, _ := url.Parse("http://localhost:8080/static/app.js#top")
	k, ok := NewKey(http.MethodGet, u)
	assert.True(ok)
	assert.Equal(Key("GET http://localhost:8080/static/app.js"), k)

	_, ok = NewKey(http.MethodPost, u)
	assert.False(ok)

	rel, _ := url.Parse("/static/app.js")
	_, ok = NewKey(http.MethodGet, rel)
	assert.False(ok)
}

func TestResponseOKAndVerify(t *testing.T) {
	assert := assert.New(t)

	r := NewResponse(204, nil, nil)
	assert.True(r.OK())
	assert.True(r.Verify())
	assert.False(NewResponse(304, nil, nil).OK())
	assert.False(NewResponse(503, nil, nil).OK())

	r.Body = []byte("changed")
	assert.False(r.Verify())
}
