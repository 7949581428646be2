package kartifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/birdayz/tilestreams/kcodegen"
	"github.com/birdayz/tilestreams/kserde"
)

func TestCollect(t *testing.T) {
	g, p := compiledPipeline(2)

	artifacts, err := Collect(g, p)
	assert.NoError(t, err)
	assert.Equal(t, 2+len(p.Routines), len(artifacts))

	assert.Equal(t, "graph.dot", artifacts[0].Name)
	assert.Equal(t, ContentTypeDOT, artifacts[0].ContentType)
	assert.True(t, strings.HasPrefix(string(artifacts[0].Data), "digraph tilestreams {"))

	assert.Equal(t, "program.json", artifacts[1].Name)
	decoded, err := kserde.JSONDeserializer[kcodegen.Program]()(artifacts[1].Data)
	assert.NoError(t, err)
	assert.Equal(t, p.Fingerprint, decoded.Fingerprint)
	assert.Equal(t, len(p.Routines), len(decoded.Routines))

	for i, r := range p.Routines {
		a := artifacts[2+i]
		assert.Equal(t, "routines/"+r.Name+".go", a.Name)
		assert.Equal(t, r.Source, string(a.Data))
	}
}

func TestPublish(t *testing.T) {
	artifacts := []Artifact{
		{Name: "graph.dot", Data: []byte("a")},
		{Name: "program.json", Data: []byte("b")},
		{Name: "routines/core0/x.go", Data: []byte("c")},
	}

	t.Run("prefix", func(t *testing.T) {
		store := newMemoryStore()
		err := Publish(context.Background(), store, "run-1/", artifacts)
		assert.NoError(t, err)
		assert.Equal(t, 3, len(store.items))
		assert.Equal(t, []byte("c"), store.items["run-1/routines/core0/x.go"].Data)
	})

	t.Run("no prefix", func(t *testing.T) {
		store := newMemoryStore()
		assert.NoError(t, Publish(context.Background(), store, "", artifacts))
		_, ok := store.items["graph.dot"]
		assert.True(t, ok)
	})

	t.Run("failures are collected", func(t *testing.T) {
		store := newMemoryStore("graph.dot", "routines/core0/x.go")
		err := Publish(context.Background(), store, "", artifacts)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, errRejected))

		var merr *multierror.Error
		assert.True(t, errors.As(err, &merr))
		assert.Equal(t, 2, len(merr.Errors))

		// The artifact in between is still published.
		_, ok := store.items["program.json"]
		assert.True(t, ok)
	})
}

func TestDirStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	store, err := NewDirStore(dir)
	assert.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	t.Run("writes nested names", func(t *testing.T) {
		err := store.Put(context.Background(), Artifact{Name: "routines/core0/double/compute.go", Data: []byte("package main")})
		assert.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "routines", "core0", "double", "compute.go"))
		assert.NoError(t, err)
		assert.Equal(t, "package main", string(data))
	})

	t.Run("rejects names leaving the directory", func(t *testing.T) {
		for _, name := range []string{"", "../escape", "/etc/passwd"} {
			err := store.Put(context.Background(), Artifact{Name: name})
			assert.Error(t, err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := store.Put(ctx, Artifact{Name: "late.txt"})
		assert.IsError(t, err, context.Canceled)
	})

	t.Run("publish all artifacts", func(t *testing.T) {
		g, p := compiledPipeline(1)
		artifacts, err := Collect(g, p)
		assert.NoError(t, err)
		assert.NoError(t, Publish(context.Background(), store, "pipeline", artifacts))

		_, err = os.Stat(filepath.Join(dir, "pipeline", "graph.dot"))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(dir, "pipeline", "routines", filepath.FromSlash(p.Routines[0].Name)+".go"))
		assert.NoError(t, err)
	})
}
