package migrations

import (
	"gorm.io/gorm"
)

// Migration001Initial creates the access-control core tables.
type Migration001Initial struct{}

func (m *Migration001Initial) Version() string {
	return "001_initial"
}

func (m *Migration001Initial) Description() string {
	return "Create user, session, login attempt and audit tables"
}

func (m *Migration001Initial) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS user_accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255),
			role VARCHAR(32) NOT NULL DEFAULT 'member',
			status VARCHAR(32) NOT NULL DEFAULT 'active',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id VARCHAR(64) PRIMARY KEY,
			user_id INTEGER NOT NULL,
			ip VARCHAR(45),
			user_agent VARCHAR(512),
			created_at DATETIME NOT NULL,
			last_active DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS login_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email VARCHAR(255) NOT NULL,
			success BOOLEAN NOT NULL,
			failure_reason VARCHAR(64),
			ip VARCHAR(45),
			user_agent VARCHAR(512),
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_attempts_email_time ON login_attempts(email, created_at)`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id INTEGER,
			action VARCHAR(64) NOT NULL,
			target_type VARCHAR(64),
			target_id VARCHAR(64),
			severity VARCHAR(16) NOT NULL,
			outcome VARCHAR(16) NOT NULL,
			session_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent VARCHAR(512),
			detail JSON,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_events_action ON audit_events(action)`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at)`).Error
}

func (m *Migration001Initial) Down(db *gorm.DB) error {
	for _, table := range []string{"audit_events", "login_attempts", "sessions", "user_accounts"} {
		if err := db.Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
