package mapping

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roamstat/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "network_to_country.csv"), "Network ID")
}

func TestStoreLoad_CreatesFileWithHeader(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.TrimSpace(string(data)) != "Network ID,Country" {
		t.Fatalf("unexpected file content: %q", string(data))
	}
}

func TestStoreLoad_NormalizesPlaceholderCountry(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	content := "Network ID,Country\nGBR001,United Kingdom\nIND002,none\nJPN003,NaN\n"
	if err := os.WriteFile(s.path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	pairs := s.Pairs()
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}
	if pairs[1].Country != "" || pairs[2].Country != "" {
		t.Fatalf("expected placeholder countries normalized: %+v", pairs)
	}
}

func TestStoreLoad_MissingRequiredColumns(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := os.WriteFile(s.path, []byte("Name,Value\na,b\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	err := s.Load()
	if !errors.Is(err, ErrMalformedFile) {
		t.Fatalf("expected ErrMalformedFile, got %v", err)
	}
}

func TestStoreMerge_DedupeKeepsLast(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	added, err := s.Merge([]model.MappingPair{
		{Key: "GBR001", Country: "United Kingdom"},
		{Key: "IND002", Country: "India"},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}

	// 同键再次并入，新值覆盖
	if _, err := s.Merge([]model.MappingPair{{Key: "GBR001", Country: "France"}}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	pairs := s.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	// 整表按键排序
	if pairs[0].Key != "GBR001" || pairs[0].Country != "France" {
		t.Fatalf("unexpected pair: %+v", pairs[0])
	}
	if pairs[1].Key != "IND002" {
		t.Fatalf("unexpected pair: %+v", pairs[1])
	}
}

func TestStoreMerge_DropsUnqualifiedCandidates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	before, err := os.Stat(s.path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	added, err := s.Merge([]model.MappingPair{
		{Key: "", Country: "France"},
		{Key: "GBR001", Country: ""},
		{Key: "IND002", Country: "none"},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if added != 0 {
		t.Fatalf("expected 0 added, got %d", added)
	}

	// 无合格候选时不触碰文件
	after, err := os.Stat(s.path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Fatalf("expected file untouched")
	}
}

func TestStoreMerge_PersistsAcrossReload(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := s.Merge([]model.MappingPair{{Key: " GBR001 ", Country: " United Kingdom "}}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	reloaded := NewStore(s.path, "Network ID")
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	pairs := reloaded.Pairs()
	if len(pairs) != 1 || pairs[0].Key != "GBR001" || pairs[0].Country != "United Kingdom" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

func TestNormalizeCountry(t *testing.T) {
	t.Parallel()

	if got := NormalizeCountry(" None "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := NormalizeCountry("nan"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := NormalizeCountry(" France "); got != "France" {
		t.Fatalf("expected France, got %q", got)
	}
}
