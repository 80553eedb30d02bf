package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	valid := []string{"profile.png", "projects/cache/cover.JPG", "a/b/c.webp"}
	for _, k := range valid {
		require.NoError(t, ValidateKey(k), k)
	}
	invalid := []string{"", "/etc/passwd.png", "../secret.png", "a/../b.png", "a//b.png", "a/./b.png", "notes.txt", "noext", `a\b.png`}
	for _, k := range invalid {
		require.ErrorIs(t, ValidateKey(k), ErrInvalidKey, k)
	}
}

func TestNewKey(t *testing.T) {
	k, err := NewKey("projects", "Cover Photo.PNG")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(k, "projects/"))
	require.True(t, strings.HasSuffix(k, ".png"))
	require.NoError(t, ValidateKey(k))

	k, err = NewKey("", "me.jpeg")
	require.NoError(t, err)
	require.NotContains(t, k, "/")

	_, err = NewKey("x", "script.js")
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = NewKey("../up", "a.png")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestContentType(t *testing.T) {
	require.Equal(t, "image/jpeg", ContentType("x/y.JPG"))
	require.Equal(t, "image/svg+xml", ContentType("logo.svg"))
	require.Equal(t, "", ContentType("doc.pdf"))
}
