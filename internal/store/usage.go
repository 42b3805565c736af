package store

import (
	"database/sql"
	"fmt"

	"roamstat/internal/model"
)

// BatchInsertUsage 批量插入一次运行产出的用量记录
func (s *Store) BatchInsertUsage(runID string, records []model.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO usage_records (
			run_id, partner_name, network_id,
			total_volume_kb, total_duration_min, total_gprs_usd, total_voice_usd,
			year, period, source_file, country
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		_, err := stmt.Exec(
			runID, r.PartnerName, r.NetworkID,
			r.TotalVolumeKB, r.TotalDurationMin, r.TotalGPRSUSD, r.TotalVoiceUSD,
			r.Year, r.Period, r.SourceFile, r.Country,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ApplyCountry 把人工补录的国家回填到尚未归属的存量记录
// 返回受影响的行数
func (s *Store) ApplyCountry(networkID, country string) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE usage_records SET country = ? WHERE network_id = ? AND country = ''
	`, country, networkID)
	if err != nil {
		return 0, fmt.Errorf("failed to apply country: %w", err)
	}
	return res.RowsAffected()
}

// ListYears 列出已归属记录覆盖到的年份（升序）
func (s *Store) ListYears() ([]int, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT year FROM usage_records
		WHERE year IS NOT NULL AND country != ''
		ORDER BY year
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// AggregateByCountry 按国家汇总指定年份的四项用量指标
func (s *Store) AggregateByCountry(year int) ([]model.CountryUsage, error) {
	rows, err := s.db.Query(`
		SELECT country,
		       SUM(total_volume_kb), SUM(total_duration_min),
		       SUM(total_gprs_usd), SUM(total_voice_usd)
		FROM usage_records
		WHERE year = ? AND country != ''
		GROUP BY country
		ORDER BY country
	`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	defer rows.Close()

	var out []model.CountryUsage
	for rows.Next() {
		u := model.CountryUsage{Year: year}
		if err := rows.Scan(&u.Country, &u.TotalVolumeKB, &u.TotalDurationMin, &u.TotalGPRSUSD, &u.TotalVoiceUSD); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListUnresolved 列出存量数据里仍未归属的标识对
func (s *Store) ListUnresolved() ([]model.UnresolvedPair, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT network_id, partner_name FROM usage_records
		WHERE country = ''
		ORDER BY network_id, partner_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved: %w", err)
	}
	defer rows.Close()

	var out []model.UnresolvedPair
	for rows.Next() {
		var p model.UnresolvedPair
		if err := rows.Scan(&p.NetworkID, &p.PartnerName); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UsageCounts 记录总数与已归属数
func (s *Store) UsageCounts() (total, resolved int, err error) {
	err = s.db.QueryRow(`
		SELECT COUNT(*), COUNT(CASE WHEN country != '' THEN 1 END) FROM usage_records
	`).Scan(&total, &resolved)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count usage records: %w", err)
	}
	return total, resolved, nil
}

// LastIngestTime 最近一次成功摄取的完成时间（无记录返回空串）
func (s *Store) LastIngestTime() (string, error) {
	var completed sql.NullString
	err := s.db.QueryRow(`
		SELECT completed_at FROM ingest_runs
		WHERE status = 'done'
		ORDER BY started_at DESC LIMIT 1
	`).Scan(&completed)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last ingest time: %w", err)
	}
	return completed.String, nil
}
