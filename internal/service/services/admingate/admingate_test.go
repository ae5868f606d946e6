package admingate

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func basic(userpass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(userpass))
}

func TestAuthorize(t *testing.T) {
	g := New("admin", "s3cr:et")

	assert.True(t, g.Authorize(basic("admin:s3cr:et")), "password may contain a colon")
	assert.False(t, g.Authorize(basic("admin:wrong")))
	assert.False(t, g.Authorize(basic("root:s3cr:et")))
	assert.False(t, g.Authorize(basic("admin")))
	assert.False(t, g.Authorize("Bearer abc"))
	assert.False(t, g.Authorize("Basic !!!not-base64"))
	assert.False(t, g.Authorize(""))
}

func TestAuthorize_FailsClosedWithoutConfiguration(t *testing.T) {
	for _, g := range []*Gate{New("", ""), New("admin", ""), New("", "pass")} {
		assert.False(t, g.Configured())
		assert.False(t, g.Authorize(basic(":")))
		assert.False(t, g.Authorize(basic("admin:")))
		assert.False(t, g.Authorize(basic(":pass")))
	}
}

func TestChallenge(t *testing.T) {
	assert.Equal(t, `Basic realm="Admin Area", charset="UTF-8"`, New("", "").Challenge())
}
