package repository

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisKey sets the hash that holds the tallies.
func WithRedisKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithoutMigrate skips creating the votes table on open.
func WithoutMigrate() PostgresOption {
	return func(s *PostgresStore) {
		s.migrate = false
	}
}
