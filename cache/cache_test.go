package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestPutGetRoundtrip(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := Key("policy.pdf", "12", 1, "some prompt")
	want := record{Name: "verdict", Count: 3}
	if err := c.Put(key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got record
	if !c.Get(key, &got) {
		t.Fatal("Get returned miss for stored key")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGetMissingKey(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var got record
	if c.Get(Key("doc", "1", 1, "p"), &got) {
		t.Error("Get returned hit for key never stored")
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := Key("doc", "1", 2, "p")
	if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var got record
	if c.Get(key, &got) {
		t.Error("Get returned hit for corrupt entry")
	}
}

func TestKeyIdentity(t *testing.T) {
	base := Key("doc.pdf", "3", 1, "prompt text")

	tests := []struct {
		name string
		key  string
		same bool
	}{
		{"identical inputs", Key("doc.pdf", "3", 1, "prompt text"), true},
		{"different document", Key("other.pdf", "3", 1, "prompt text"), false},
		{"different regulation", Key("doc.pdf", "4", 1, "prompt text"), false},
		{"different phase", Key("doc.pdf", "3", 2, "prompt text"), false},
		{"reworded prompt", Key("doc.pdf", "3", 1, "prompt text v2"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.key == base) != tt.same {
				t.Errorf("key equality = %v, want %v", tt.key == base, tt.same)
			}
		})
	}
}

func TestKeyOmitsEmptyPrompt(t *testing.T) {
	if Key("doc", "1", 1, "") == Key("doc", "1", 1, "x") {
		t.Error("empty and non-empty prompts produced the same key")
	}
}

func TestClear(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := Key("doc", "1", 1, "p")
	if err := c.Put(key, record{Name: "x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	var got record
	if c.Get(key, &got) {
		t.Error("Get returned hit after Clear")
	}
}

func TestConcurrentWriters(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key("doc", fmt.Sprintf("%d", i), 1, "p")
			if err := c.Put(key, record{Count: i}); err != nil {
				t.Errorf("Put: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		var got record
		key := Key("doc", fmt.Sprintf("%d", i), 1, "p")
		if !c.Get(key, &got) {
			t.Fatalf("missing entry %d", i)
		}
		if got.Count != i {
			t.Errorf("entry %d: got count %d", i, got.Count)
		}
	}
}
