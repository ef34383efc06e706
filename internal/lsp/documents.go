package lsp

import (
	"sync"

	"go.lsp.dev/protocol"
)

// DocumentManager caches the live content of open documents. The host is
// the source of truth: with full-document sync every change replaces the
// whole text, so a Document is always a complete snapshot.
type DocumentManager struct {
	mu        sync.RWMutex
	documents map[protocol.DocumentURI]*Document
}

// Document is the latest snapshot of one open document.
type Document struct {
	URI     protocol.DocumentURI
	Version int32
	Content string
}

// NewDocumentManager creates an empty document cache.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		documents: make(map[protocol.DocumentURI]*Document),
	}
}

// OpenDocument stores a newly opened document.
func (dm *DocumentManager) OpenDocument(uri protocol.DocumentURI, version int32, content string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.documents[uri] = &Document{URI: uri, Version: version, Content: content}
}

// UpdateDocument replaces a document's content. Unknown URIs are created,
// since a host may send didChange for a document we never saw open.
func (dm *DocumentManager) UpdateDocument(uri protocol.DocumentURI, version int32, content string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.documents[uri] = &Document{URI: uri, Version: version, Content: content}
}

// CloseDocument removes a document from the cache.
func (dm *DocumentManager) CloseDocument(uri protocol.DocumentURI) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	delete(dm.documents, uri)
}

// GetDocument retrieves a document by URI.
func (dm *DocumentManager) GetDocument(uri protocol.DocumentURI) (*Document, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	doc, exists := dm.documents[uri]
	return doc, exists
}

// AllDocuments returns a snapshot of every open document, for operations
// that sweep the whole set, like re-linting after a configuration change.
func (dm *DocumentManager) AllDocuments() []*Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	docs := make([]*Document, 0, len(dm.documents))
	for _, doc := range dm.documents {
		docs = append(docs, doc)
	}
	return docs
}
