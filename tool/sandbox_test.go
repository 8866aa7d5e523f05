package tool

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSandbox_Resolve(t *testing.T) {
	sb := NewSandbox("/srv/work")

	got, err := sb.Resolve("data.csv")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/work", "data.csv"), got)

	got, err = sb.Resolve("sub/dir/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/work", "sub", "dir", "file.txt"), got)

	// Inner ".." that stays inside the root is fine after cleaning.
	got, err = sb.Resolve("sub/../file.txt")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/work", "file.txt"), got)
}

func TestSandbox_ResolveRejectsEscapes(t *testing.T) {
	sb := NewSandbox("/srv/work")

	for _, rel := range []string{
		"",
		"/etc/passwd",
		"..",
		"../outside.txt",
		"sub/../../outside.txt",
	} {
		_, err := sb.Resolve(rel)
		assert.ErrorIs(t, err, ErrPathEscapesSandbox, "input %q", rel)
	}
}

func TestFileTools_WriteReadList(t *testing.T) {
	sb := NewSandbox(t.TempDir())
	r := NewRegistry()
	r.MustRegister(FileTools(sb)...)

	write, _ := r.Get("write_file")
	out, err := write.Handler(context.Background(), map[string]any{
		"filename": "notes/today.txt",
		"content":  "hello sandbox",
	})
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"written": 13}, out)

	read, _ := r.Get("read_file")
	content, err := read.Handler(context.Background(), map[string]any{"filename": "notes/today.txt"})
	assert.NoError(t, err)
	assert.Equal(t, "hello sandbox", content)

	list, _ := r.Get("list_files")
	entries, err := list.Handler(context.Background(), map[string]any{})
	assert.NoError(t, err)
	assert.Equal(t, []string{"notes/"}, entries)

	entries, err = list.Handler(context.Background(), map[string]any{"path": "notes"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"today.txt"}, entries)
}

func TestFileTools_TraversalBlocked(t *testing.T) {
	sb := NewSandbox(t.TempDir())
	r := NewRegistry()
	r.MustRegister(FileTools(sb)...)

	read, _ := r.Get("read_file")
	_, err := read.Handler(context.Background(), map[string]any{"filename": "../secret.txt"})
	assert.ErrorIs(t, err, ErrPathEscapesSandbox)

	write, _ := r.Get("write_file")
	_, err = write.Handler(context.Background(), map[string]any{"filename": "/tmp/abs.txt", "content": "x"})
	assert.ErrorIs(t, err, ErrPathEscapesSandbox)
}

func TestFileTools_ReadMissingFile(t *testing.T) {
	sb := NewSandbox(t.TempDir())
	read := FileTools(sb)[0]
	_, err := read.Handler(context.Background(), map[string]any{"filename": "nope.txt"})
	assert.Error(t, err)
}

func TestTimeTool(t *testing.T) {
	def := TimeTool()
	out, err := def.Handler(context.Background(), map[string]any{})
	assert.NoError(t, err)
	ts, parseErr := time.Parse(time.RFC3339, out.(string))
	assert.NoError(t, parseErr)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}
