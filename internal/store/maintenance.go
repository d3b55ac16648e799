package store

// Analyze refreshes the query planner statistics inside a savepoint.
func (s *Store) Analyze() error {
	return s.withSavepoint(func() error {
		_, err := s.db.Exec("ANALYZE")
		return err
	})
}

// Vacuum compacts the database file. VACUUM cannot run inside a
// transaction, so this is the one maintenance call outside a savepoint.
func (s *Store) Vacuum() error {
	_, err := s.db.Exec("VACUUM")
	return err
}
