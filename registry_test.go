package authrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	reg.Register("github", ServiceConfig{
		Auth: Payload{"scope": "user:email"},
	})

	svc, ok := reg.Get("github")
	require.True(t, ok)
	assert.Equal(t, "github", svc.Name)
	assert.Equal(t, "user:email", svc.Conf.Auth["scope"])

	_, ok = reg.Get("gitlab")
	assert.False(t, ok, "unregistered service must miss")
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	reg := NewRegistry()

	reg.Register("github", ServiceConfig{Auth: Payload{"scope": "user"}})
	reg.Register("github", ServiceConfig{Auth: Payload{"scope": "repo"}})

	svc, ok := reg.Get("github")
	require.True(t, ok)
	assert.Equal(t, "repo", svc.Conf.Auth["scope"])
}

func TestRegistry_ResolveName(t *testing.T) {
	reg := NewRegistry()

	t.Run("from route param", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.ParamsM["service"] = "twitter"
		assert.Equal(t, "twitter", reg.ResolveName(ctx))
	})

	t.Run("from locals set by dispatcher", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.LocalsM[localsServiceKey] = "github"
		assert.Equal(t, "github", reg.ResolveName(ctx))
	})

	t.Run("param wins over locals", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.ParamsM["service"] = "twitter"
		ctx.LocalsM[localsServiceKey] = "github"
		assert.Equal(t, "twitter", reg.ResolveName(ctx))
	})

	t.Run("defaults to local", func(t *testing.T) {
		ctx := NewMockContext()
		assert.Equal(t, "local", reg.ResolveName(ctx))
	})
}
