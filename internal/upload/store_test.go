package upload

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndServePath(t *testing.T) {
	st, err := NewStore(t.TempDir(), "/uploads/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	content := []byte("hello bytes")
	ref, err := st.Save(bytes.NewReader(content), "photo.JPG")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if ref.Name != "photo.JPG" {
		t.Fatalf("expected original name preserved, got %q", ref.Name)
	}
	if !strings.HasSuffix(ref.ID, ".jpg") {
		t.Fatalf("expected lowercased extension in stored name, got %q", ref.ID)
	}
	if ref.URL != "/uploads/"+ref.ID {
		t.Fatalf("unexpected url %q", ref.URL)
	}

	stored, err := os.ReadFile(filepath.Join(st.Dir(), ref.ID))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Fatalf("stored bytes differ")
	}
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	st, err := NewStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	a, err := st.Save(strings.NewReader("a"), "doc.pdf")
	if err != nil {
		t.Fatalf("save a: %v", err)
	}
	b, err := st.Save(strings.NewReader("b"), "doc.pdf")
	if err != nil {
		t.Fatalf("save b: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("expected distinct stored names for same filename")
	}
}

func TestSaveRejectsDisallowed(t *testing.T) {
	st, err := NewStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	cases := []string{"run.exe", "noext", "trailingdot."}
	for _, name := range cases {
		if _, err := st.Save(strings.NewReader("x"), name); !errors.Is(err, ErrDisallowedType) {
			t.Fatalf("%s: expected ErrDisallowedType, got %v", name, err)
		}
	}
}
