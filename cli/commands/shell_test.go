package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/litecore/cli/internal/ui"
	"github.com/satishbabariya/litecore/runtime/client"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := ui.Out
	ui.Out = &buf
	t.Cleanup(func() { ui.Out = prev })
	return &buf
}

func newShell(t *testing.T) *shell {
	t.Helper()
	ctx := context.Background()
	conn, err := client.Connect(ctx, client.WithInMemory(), client.WithLogStatements(false))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &shell{conn: conn}
}

func TestShell_Statements(t *testing.T) {
	ctx := context.Background()
	out := captureOutput(t)
	sh := newShell(t)

	quit, err := sh.handle(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY,")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.True(t, sh.pending())

	_, err = sh.handle(ctx, "  body TEXT);")
	require.NoError(t, err)
	assert.False(t, sh.pending())

	_, err = sh.handle(ctx, "INSERT INTO notes (body) VALUES ('first'), ('second');")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "2 rows affected")

	out.Reset()
	_, err = sh.handle(ctx, "SELECT body FROM notes ORDER BY id;")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "first")
	assert.Contains(t, out.String(), "second")
	assert.Contains(t, out.String(), "(2 rows)")

	_, err = sh.handle(ctx, "SELECT * FROM missing;")
	assert.Error(t, err)
	assert.False(t, sh.pending(), "a failed statement is discarded")
}

func TestShell_Meta(t *testing.T) {
	ctx := context.Background()
	out := captureOutput(t)
	sh := newShell(t)

	require.NoError(t, sh.conn.ExecScript(ctx, "CREATE TABLE zebra (id INTEGER); CREATE TABLE apple (id INTEGER);"))

	_, err := sh.handle(ctx, ".tables")
	require.NoError(t, err)
	assert.Less(t, bytes.Index(out.Bytes(), []byte("apple")), bytes.Index(out.Bytes(), []byte("zebra")))

	out.Reset()
	_, err = sh.handle(ctx, ".schema apple")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE apple (id INTEGER);\n", out.String())

	_, err = sh.handle(ctx, ".bogus")
	assert.Error(t, err)

	quit, err := sh.handle(ctx, ".quit")
	require.NoError(t, err)
	assert.True(t, quit)
}
