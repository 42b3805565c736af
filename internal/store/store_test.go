package store

import (
	"path/filepath"
	"testing"

	"roamstat/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "roamstat.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func intp(v int) *int { return &v }

func seedRecords(t *testing.T, s *Store) {
	t.Helper()

	records := []model.UsageRecord{
		{PartnerName: "Acme Telecom", NetworkID: "GBR001", TotalVolumeKB: 100, TotalDurationMin: 10,
			Year: intp(2020), Period: "Oct", Country: "United Kingdom"},
		{PartnerName: "Acme Telecom", NetworkID: "GBR001", TotalVolumeKB: 50, TotalDurationMin: 5,
			Year: intp(2020), Period: "Nov", Country: "United Kingdom"},
		{PartnerName: "Bharti Airtel", NetworkID: "IND002", TotalVolumeKB: 300, TotalGPRSUSD: 7,
			Year: intp(2020), Period: "Oct", Country: "India"},
		{PartnerName: "Nihon Mobile", NetworkID: "JPN003", TotalVolumeKB: 30,
			Year: intp(2019), Period: "Jan", Country: "Japan"},
		{PartnerName: "Mystery Operator", NetworkID: "??9", TotalVolumeKB: 1,
			Year: intp(2020), Period: "Oct", Country: ""},
		{PartnerName: "No Year Co", NetworkID: "ZZZ1", TotalVolumeKB: 1,
			Year: nil, Period: "Oct", Country: "France"},
	}
	if err := s.BatchInsertUsage("run-1", records); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestListYears(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedRecords(t, s)

	years, err := s.ListYears()
	if err != nil {
		t.Fatalf("list years: %v", err)
	}
	// 未归属与无年份的记录不贡献年份
	if len(years) != 2 || years[0] != 2019 || years[1] != 2020 {
		t.Fatalf("unexpected years: %v", years)
	}
}

func TestAggregateByCountry(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedRecords(t, s)

	usage, err := s.AggregateByCountry(2020)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(usage))
	}

	byCountry := map[string]model.CountryUsage{}
	for _, u := range usage {
		byCountry[u.Country] = u
	}

	uk := byCountry["United Kingdom"]
	if uk.TotalVolumeKB != 150 || uk.TotalDurationMin != 15 {
		t.Fatalf("unexpected UK aggregate: %+v", uk)
	}
	in := byCountry["India"]
	if in.TotalVolumeKB != 300 || in.TotalGPRSUSD != 7 {
		t.Fatalf("unexpected India aggregate: %+v", in)
	}
}

func TestListUnresolved(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedRecords(t, s)

	pairs, err := s.ListUnresolved()
	if err != nil {
		t.Fatalf("list unresolved: %v", err)
	}
	if len(pairs) != 1 || pairs[0].NetworkID != "??9" {
		t.Fatalf("unexpected unresolved: %+v", pairs)
	}
}

func TestApplyCountry(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedRecords(t, s)

	n, err := s.ApplyCountry("??9", "France")
	if err != nil {
		t.Fatalf("apply country: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row updated, got %d", n)
	}

	pairs, err := s.ListUnresolved()
	if err != nil {
		t.Fatalf("list unresolved: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("expected no unresolved, got %+v", pairs)
	}

	// 已归属记录不被回填覆盖
	n, err = s.ApplyCountry("GBR001", "France")
	if err != nil {
		t.Fatalf("apply country: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows updated, got %d", n)
	}
}

func TestUsageCounts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedRecords(t, s)

	total, resolved, err := s.UsageCounts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if total != 6 || resolved != 5 {
		t.Fatalf("unexpected counts: %d %d", total, resolved)
	}
}

func TestIngestRunLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if err := s.CreateIngestRun("run-1", 2); err != nil {
		t.Fatalf("create run: %v", err)
	}

	// 进行中的运行不算最近一次摄取
	last, err := s.LastIngestTime()
	if err != nil {
		t.Fatalf("last ingest: %v", err)
	}
	if last != "" {
		t.Fatalf("expected empty, got %q", last)
	}

	if err := s.CompleteIngestRun("run-1", 10, 2, 3, 4, "done", ""); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	last, err = s.LastIngestTime()
	if err != nil {
		t.Fatalf("last ingest: %v", err)
	}
	if last == "" {
		t.Fatalf("expected completion time")
	}
}
