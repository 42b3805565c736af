package store

import "fmt"

// CreateIngestRun 创建摄取运行日志
func (s *Store) CreateIngestRun(runID string, totalFiles int) error {
	_, err := s.db.Exec(`
		INSERT INTO ingest_runs (id, total_files, status)
		VALUES (?, ?, 'processing')
	`, runID, totalFiles)
	if err != nil {
		return fmt.Errorf("failed to create ingest run: %w", err)
	}
	return nil
}

// CompleteIngestRun 完成摄取运行日志更新
func (s *Store) CompleteIngestRun(runID string, totalRows, unresolvedRows, newNetwork, newPartner int, status, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			total_rows = ?,
			unresolved_rows = ?,
			new_network_mappings = ?,
			new_partner_mappings = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, totalRows, unresolvedRows, newNetwork, newPartner, status, errorMessage, runID)
	if err != nil {
		return fmt.Errorf("failed to complete ingest run: %w", err)
	}
	return nil
}
