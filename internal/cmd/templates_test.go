package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/store"
)

func TestTemplatesCommandListsStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HEARING_CONFIG", "")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("HTTP_PORT", "")

	fs, err := store.NewFileStore(dir)
	require.NoError(t, err)
	_, err = fs.PutTemplate(context.Background(), "intro", &domain.Template{Title: "Intro", Description: "first talk"})
	require.NoError(t, err)
	_, err = fs.PutTemplate(context.Background(), "bare", &domain.Template{})
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"templates"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "ID")
	assert.Regexp(t, `^bare\s+-\s+-$`, string(lines[1]))
	assert.Regexp(t, `^intro\s+Intro\s+first talk$`, string(lines[2]))
}
