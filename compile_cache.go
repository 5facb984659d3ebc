package shaderlab

import (
	"fmt"
	"hash/fnv"

	"github.com/gogpu/shaderlab/internal/cache"
	"github.com/gogpu/shaderlab/shader"
)

// DefaultCompileCacheSize is the soft limit of NewCompileCache(0).
const DefaultCompileCacheSize = 64

// CompileCache keeps compiled blobs across playgrounds that share it, so a
// rerun on an unchanged shader skips compilation. Failed compiles are not
// cached.
type CompileCache struct {
	blobs *cache.Cache[string, *shader.Blob]
}

// NewCompileCache returns a cache holding about limit blobs.
func NewCompileCache(limit int) *CompileCache {
	if limit <= 0 {
		limit = DefaultCompileCacheSize
	}
	return &CompileCache{blobs: cache.New[string, *shader.Blob](limit)}
}

// Stats returns the number of lookups served from the cache and compiled.
func (c *CompileCache) Stats() (hits, misses uint64) {
	s := c.blobs.Stats()
	return s.Hits, s.Misses
}

// compileKey identifies a compile by everything that affects its output.
func (p *Playground) compileKey(src shader.Source, entry string, stage shader.Stage, defs shader.Defines) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(src.Text)) // fnv.Write never returns an error
	o := p.opts
	return fmt.Sprintf("%016x|%s|%s|%s|%s|%s|%s", h.Sum64(), entry, stage, o.target, o.model, o.args, defs)
}

func (p *Playground) compile(src shader.Source, entry string, stage shader.Stage, defs shader.Defines, copts []shader.Option) (*shader.Blob, error) {
	c := p.opts.cache
	if c == nil {
		return shader.Compile(src, entry, stage, copts...)
	}
	key := p.compileKey(src, entry, stage, defs)
	if b, ok := c.blobs.Get(key); ok {
		Logger().Debug("shaderlab: compile cache hit", "entry", entry, "stage", stage.String())
		return b, nil
	}
	b, err := shader.Compile(src, entry, stage, copts...)
	if err != nil {
		return nil, err
	}
	c.blobs.Set(key, b)
	return b, nil
}
