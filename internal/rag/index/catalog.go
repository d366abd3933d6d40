package index

import (
	"fmt"
	"sort"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
)

type ThreadInfo struct {
	ThreadId   string `json:"thread_id"`
	Subject    string `json:"subject,omitempty"`
	ChunkCount int    `json:"chunk_count"`
}

// Catalog maps thread ids to their indexes. It is immutable once NewCatalog returns.
type Catalog struct {
	indexes map[string]ThreadIndex
	info    map[string]ThreadInfo
}

type Entry struct {
	Index   ThreadIndex
	Subject string
}

func NewCatalog(entries ...Entry) (*Catalog, error) {
	c := &Catalog{
		indexes: make(map[string]ThreadIndex, len(entries)),
		info:    make(map[string]ThreadInfo, len(entries)),
	}
	for _, e := range entries {
		id := e.Index.ThreadID()
		if _, dup := c.indexes[id]; dup {
			return nil, fmt.Errorf("thread %s registered twice", id)
		}
		c.indexes[id] = e.Index
		c.info[id] = ThreadInfo{ThreadId: id, Subject: e.Subject, ChunkCount: len(e.Index.Chunks())}
	}
	return c, nil
}

func (c *Catalog) Get(threadId string) (ThreadIndex, error) {
	idx, ok := c.indexes[threadId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", commonModels.ErrUnknownThread, threadId)
	}
	return idx, nil
}

func (c *Catalog) Threads() []ThreadInfo {
	out := make([]ThreadInfo, 0, len(c.info))
	for _, info := range c.info {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThreadId < out[j].ThreadId })
	return out
}

func (c *Catalog) Len() int {
	return len(c.indexes)
}
