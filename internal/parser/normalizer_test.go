package parser

import "testing"

func TestPlanColumns_StandardHeaders(t *testing.T) {
	t.Parallel()

	n := NewColumnNormalizer()
	plan := n.PlanColumns([]string{
		"Partner Name", "Network ID",
		"Total Volume (KB)", "Total Duration (min)",
		"Total GPRS Amount (USD)", "Total Voice Amount (USD)",
	})

	if plan.PartnerIdx != 0 || plan.NetworkIdx != 1 {
		t.Fatalf("identifier idx: %d %d", plan.PartnerIdx, plan.NetworkIdx)
	}
	if plan.VolumeIdx != 2 || plan.DurationIdx != 3 || plan.GPRSIdx != 4 || plan.VoiceIdx != 5 {
		t.Fatalf("metric idx: %d %d %d %d", plan.VolumeIdx, plan.DurationIdx, plan.GPRSIdx, plan.VoiceIdx)
	}
	if !plan.HasIdentifiers() {
		t.Fatalf("expected identifiers")
	}
}

func TestPlanColumns_CaseAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	n := NewColumnNormalizer()
	plan := n.PlanColumns([]string{
		"PARTNER\nNAME", " network id ", "TotalVolume(KB)", "TOTAL DURATION (MIN)",
	})

	if plan.PartnerIdx != 0 || plan.NetworkIdx != 1 || plan.VolumeIdx != 2 || plan.DurationIdx != 3 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestPlanColumns_DailyVolumeColumns(t *testing.T) {
	t.Parallel()

	n := NewColumnNormalizer()
	plan := n.PlanColumns([]string{
		"Partner Name", "Network ID",
		"Volume (KB)", "Volume (KB).1", "Volume (KB).2",
	})

	if plan.VolumeIdx != -1 {
		t.Fatalf("expected no total volume column, got %d", plan.VolumeIdx)
	}
	if len(plan.DailyVolume) != 3 {
		t.Fatalf("expected 3 daily columns, got %d", len(plan.DailyVolume))
	}
}

func TestNormalizeRow_DailyVolumeSumFallback(t *testing.T) {
	t.Parallel()

	n := NewColumnNormalizer()
	plan := n.PlanColumns([]string{
		"Partner Name", "Network ID", "Volume (KB)", "Volume (KB).1", "Volume (KB).2",
	})

	rec := n.NormalizeRow(plan, []string{"Acme Telecom", "GBR001", "100", "bad", "50.5"})
	if rec.TotalVolumeKB != 150.5 {
		t.Fatalf("expected 150.5, got %v", rec.TotalVolumeKB)
	}
}

func TestNormalizeRow_TotalColumnWinsOverDaily(t *testing.T) {
	t.Parallel()

	n := NewColumnNormalizer()
	plan := n.PlanColumns([]string{
		"Partner Name", "Network ID", "Total Volume (KB)", "Volume (KB)", "Volume (KB).1",
	})

	rec := n.NormalizeRow(plan, []string{"Acme Telecom", "GBR001", "999", "1", "2"})
	if rec.TotalVolumeKB != 999 {
		t.Fatalf("expected 999, got %v", rec.TotalVolumeKB)
	}
}

func TestNormalizeRow_ShortRow(t *testing.T) {
	t.Parallel()

	// excelize 会省略行尾空单元格，规整时必须越界安全
	n := NewColumnNormalizer()
	plan := n.PlanColumns([]string{
		"Partner Name", "Network ID", "Total Volume (KB)", "Total Duration (min)",
	})

	rec := n.NormalizeRow(plan, []string{"Acme Telecom", "GBR001"})
	if rec.PartnerName != "Acme Telecom" || rec.NetworkID != "GBR001" {
		t.Fatalf("unexpected identifiers: %q %q", rec.PartnerName, rec.NetworkID)
	}
	if rec.TotalVolumeKB != 0 || rec.TotalDurationMin != 0 {
		t.Fatalf("expected zero metrics")
	}
}
