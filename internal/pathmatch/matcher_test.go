package pathmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_TypedCapture(t *testing.T) {
	m := New[string]()
	require.NoError(t, m.Add("/users/<int:id>", "get-user"))

	handler, params, ok := m.Match("/users/123")
	require.True(t, ok)
	assert.Equal(t, "get-user", handler)
	assert.Equal(t, Params{"id": "123"}, params)

	_, _, ok = m.Match("/users/abc")
	assert.False(t, ok)
}

func TestMatcher_PathFallsThroughForNonNumeric(t *testing.T) {
	m := New[string]()
	require.NoError(t, m.Add("/mixed/<int:user_id>/<str:category>/<float:price>", "priced"))
	require.NoError(t, m.Add("/mixed/<int:user_id>/<path:file_path>", "file"))

	handler, params, ok := m.Match("/mixed/456/docs/manual.pdf")
	require.True(t, ok)
	assert.Equal(t, "file", handler)
	assert.Equal(t, "456", params["user_id"])
	assert.Equal(t, "docs/manual.pdf", params["file_path"])
}

func TestMatcher_IntBeatsFloatOnIntegerLiteral(t *testing.T) {
	m := New[string]()
	require.NoError(t, m.Add("/negative/<int:v>", "int-route"))
	require.NoError(t, m.Add("/negative/<float:v>", "float-route"))

	handler, params, ok := m.Match("/negative/-123")
	require.True(t, ok)
	assert.Equal(t, "int-route", handler)
	assert.Equal(t, "-123", params["v"])
}

func TestMatcher_DottedFallsThroughToFloat(t *testing.T) {
	m := New[string]()
	require.NoError(t, m.Add("/negative/<int:v>", "int-route"))
	require.NoError(t, m.Add("/negative/<float:v>", "float-route"))

	handler, params, ok := m.Match("/negative/-456.78")
	require.True(t, ok)
	assert.Equal(t, "float-route", handler)
	assert.Equal(t, "-456.78", params["v"])
}

func TestMatcher_LiteralBeatsParameter(t *testing.T) {
	m := New[string]()
	require.NoError(t, m.Add("/users/<str:name>", "by-name"))
	require.NoError(t, m.Add("/users/admin", "admin-only"))

	handler, _, ok := m.Match("/users/admin")
	require.True(t, ok)
	assert.Equal(t, "admin-only", handler)
}

func TestMatcher_EarlierRegistrationWinsOnExactTie(t *testing.T) {
	m := New[string]()
	require.NoError(t, m.Add("/dup/<str:a>", "first"))
	require.NoError(t, m.Add("/dup/<str:b>", "second"))

	handler, params, ok := m.Match("/dup/x")
	require.True(t, ok)
	assert.Equal(t, "first", handler)
	assert.Equal(t, "x", params["a"])
}

func TestMatcher_Idempotent(t *testing.T) {
	m := New[string]()
	require.NoError(t, m.Add("/files/<path:p>", "files"))

	_, p1, ok := m.Match("/files/a/b/c.txt")
	require.True(t, ok)
	_, p2, ok := m.Match("/files/a/b/c.txt")
	require.True(t, ok)
	assert.Equal(t, p1, p2)
}

func TestCompile_RejectsPathNotFinal(t *testing.T) {
	_, err := Compile("/a/<path:p>/b")
	assert.Error(t, err)
}

func TestCompile_RejectsUnknownType(t *testing.T) {
	_, err := Compile("/a/<weird:x>")
	assert.Error(t, err)
}

func TestCompile_LegacyShortFormIsStr(t *testing.T) {
	p, err := Compile("/a/<name>")
	require.NoError(t, err)
	require.Len(t, p.segments, 2)
	assert.Equal(t, TypeStr, p.segments[1].param.typ)
}

func TestMatcher_NoMatchReturnsFalse(t *testing.T) {
	m := New[string]()
	require.NoError(t, m.Add("/a/b", "ab"))

	_, _, ok := m.Match("/a/c")
	assert.False(t, ok)
}
