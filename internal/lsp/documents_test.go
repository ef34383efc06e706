package lsp

import (
	"fmt"
	"sync"
	"testing"

	"go.lsp.dev/protocol"
)

func TestDocumentManager_OpenDocument(t *testing.T) {
	dm := NewDocumentManager()

	dm.OpenDocument("file:///shaders/final.fsh", 1, "void main() {}\n")

	doc, exists := dm.GetDocument("file:///shaders/final.fsh")
	if !exists {
		t.Fatal("document missing after open")
	}
	if doc.Version != 1 {
		t.Errorf("version = %d, want 1", doc.Version)
	}
	if doc.Content != "void main() {}\n" {
		t.Errorf("content = %q, want the opened text", doc.Content)
	}
}

func TestDocumentManager_UpdateDocument(t *testing.T) {
	dm := NewDocumentManager()

	dm.OpenDocument("file:///shaders/final.fsh", 1, "void main() {}\n")
	dm.UpdateDocument("file:///shaders/final.fsh", 2, "void main() { discard; }\n")

	doc, exists := dm.GetDocument("file:///shaders/final.fsh")
	if !exists {
		t.Fatal("document missing after update")
	}
	if doc.Version != 2 {
		t.Errorf("version = %d, want 2", doc.Version)
	}
	if doc.Content != "void main() { discard; }\n" {
		t.Errorf("content = %q, want the updated text", doc.Content)
	}
}

func TestDocumentManager_UpdateUnknownDocument(t *testing.T) {
	dm := NewDocumentManager()

	// Hosts may send didChange for documents the server never saw open.
	dm.UpdateDocument("file:///shaders/final.fsh", 5, "void main() {}\n")

	doc, exists := dm.GetDocument("file:///shaders/final.fsh")
	if !exists {
		t.Fatal("update of an unknown document should create it")
	}
	if doc.Version != 5 {
		t.Errorf("version = %d, want 5", doc.Version)
	}
}

func TestDocumentManager_CloseDocument(t *testing.T) {
	dm := NewDocumentManager()

	dm.OpenDocument("file:///shaders/final.fsh", 1, "void main() {}\n")
	dm.CloseDocument("file:///shaders/final.fsh")

	if _, exists := dm.GetDocument("file:///shaders/final.fsh"); exists {
		t.Error("document still present after close")
	}
}

func TestDocumentManager_AllDocuments(t *testing.T) {
	dm := NewDocumentManager()

	dm.OpenDocument("file:///shaders/final.fsh", 1, "a")
	dm.OpenDocument("file:///shaders/composite.fsh", 1, "b")
	dm.OpenDocument("file:///shaders/gbuffers_basic.vsh", 1, "c")

	docs := dm.AllDocuments()
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}

	seen := make(map[protocol.DocumentURI]bool)
	for _, doc := range docs {
		seen[doc.URI] = true
	}
	if !seen["file:///shaders/composite.fsh"] {
		t.Error("composite.fsh missing from the snapshot")
	}
}

func TestDocumentManager_ConcurrentAccess(t *testing.T) {
	dm := NewDocumentManager()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			uri := protocol.DocumentURI(fmt.Sprintf("file:///shaders/world0/composite%d.fsh", n))
			dm.OpenDocument(uri, 1, "void main() {}\n")
			dm.UpdateDocument(uri, 2, "void main() { discard; }\n")
			dm.GetDocument(uri)
			dm.AllDocuments()
		}(i)
	}
	wg.Wait()

	if got := len(dm.AllDocuments()); got != 10 {
		t.Errorf("got %d documents, want 10", got)
	}
}
