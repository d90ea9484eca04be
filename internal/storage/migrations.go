package storage

// Migration represents a database migration
type Migration struct {
	Version     string `db:"version"`
	Description string `db:"description"`
	SQL         string `db:"sql"`
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					wallet_address TEXT NOT NULL,
					username TEXT NOT NULL DEFAULT '',
					email TEXT,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					status TEXT NOT NULL DEFAULT 'active',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_wallet ON users(wallet_address);
				CREATE INDEX IF NOT EXISTS idx_users_status ON users(status);
			`,
		},
		{
			Version:     "002",
			Description: "Create communities table",
			SQL: `
				CREATE TABLE IF NOT EXISTS communities (
					id TEXT PRIMARY KEY,
					on_chain_id TEXT NOT NULL,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					config TEXT NOT NULL DEFAULT '{}', -- JSON
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					status TEXT NOT NULL DEFAULT 'active',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_communities_on_chain_id ON communities(on_chain_id);
				CREATE INDEX IF NOT EXISTS idx_communities_status ON communities(status);
			`,
		},
		{
			Version:     "003",
			Description: "Create members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS members (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					community_id TEXT NOT NULL,
					role TEXT NOT NULL DEFAULT 'member',
					status TEXT NOT NULL DEFAULT 'pending',
					joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					approved_at DATETIME,
					approved_by TEXT,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (user_id) REFERENCES users (id),
					FOREIGN KEY (community_id) REFERENCES communities (id)
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_members_user_community ON members(user_id, community_id);
				CREATE INDEX IF NOT EXISTS idx_members_community ON members(community_id);
			`,
		},
		{
			Version:     "004",
			Description: "Create voting_questions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS voting_questions (
					id TEXT PRIMARY KEY,
					on_chain_id TEXT NOT NULL,
					community_id TEXT NOT NULL,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					options TEXT NOT NULL DEFAULT '[]', -- JSON
					deadline DATETIME NOT NULL,
					status TEXT NOT NULL DEFAULT 'active',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (community_id) REFERENCES communities (id)
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_questions_on_chain_id ON voting_questions(on_chain_id);
				CREATE INDEX IF NOT EXISTS idx_questions_community ON voting_questions(community_id);
			`,
		},
		{
			Version:     "005",
			Description: "Create votes table",
			SQL: `
				CREATE TABLE IF NOT EXISTS votes (
					id TEXT PRIMARY KEY,
					question_id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					vote_data TEXT NOT NULL DEFAULT '[]', -- JSON
					signature TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'valid',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (question_id) REFERENCES voting_questions (id),
					FOREIGN KEY (user_id) REFERENCES users (id)
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_question_user ON votes(question_id, user_id);
			`,
		},
		{
			Version:     "006",
			Description: "Create audit_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_events (
					id TEXT PRIMARY KEY,
					event TEXT NOT NULL,
					level TEXT NOT NULL,
					category TEXT NOT NULL,
					details TEXT NOT NULL DEFAULT '{}', -- JSON
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_audit_events_event ON audit_events(event);
				CREATE INDEX IF NOT EXISTS idx_audit_events_category ON audit_events(category);
				CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id VARCHAR(64) PRIMARY KEY,
					wallet_address VARCHAR(64) NOT NULL,
					username VARCHAR(255) NOT NULL DEFAULT '',
					email VARCHAR(255),
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_wallet ON users(wallet_address);
				CREATE INDEX IF NOT EXISTS idx_users_status ON users(status);
			`,
		},
		{
			Version:     "002",
			Description: "Create communities table",
			SQL: `
				CREATE TABLE IF NOT EXISTS communities (
					id VARCHAR(64) PRIMARY KEY,
					on_chain_id VARCHAR(128) NOT NULL,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					config JSONB NOT NULL DEFAULT '{}',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_communities_on_chain_id ON communities(on_chain_id);
				CREATE INDEX IF NOT EXISTS idx_communities_status ON communities(status);
			`,
		},
		{
			Version:     "003",
			Description: "Create members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS members (
					id VARCHAR(64) PRIMARY KEY,
					user_id VARCHAR(64) NOT NULL REFERENCES users (id),
					community_id VARCHAR(64) NOT NULL REFERENCES communities (id),
					role VARCHAR(20) NOT NULL DEFAULT 'member',
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					approved_at TIMESTAMPTZ,
					approved_by VARCHAR(64),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_members_user_community ON members(user_id, community_id);
				CREATE INDEX IF NOT EXISTS idx_members_community ON members(community_id);
			`,
		},
		{
			Version:     "004",
			Description: "Create voting_questions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS voting_questions (
					id VARCHAR(64) PRIMARY KEY,
					on_chain_id VARCHAR(128) NOT NULL,
					community_id VARCHAR(64) NOT NULL REFERENCES communities (id),
					title VARCHAR(500) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					options JSONB NOT NULL DEFAULT '[]',
					deadline TIMESTAMPTZ NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_questions_on_chain_id ON voting_questions(on_chain_id);
				CREATE INDEX IF NOT EXISTS idx_questions_community ON voting_questions(community_id);
			`,
		},
		{
			Version:     "005",
			Description: "Create votes table",
			SQL: `
				CREATE TABLE IF NOT EXISTS votes (
					id VARCHAR(64) PRIMARY KEY,
					question_id VARCHAR(64) NOT NULL REFERENCES voting_questions (id),
					user_id VARCHAR(64) NOT NULL REFERENCES users (id),
					vote_data JSONB NOT NULL DEFAULT '[]',
					signature VARCHAR(128) NOT NULL DEFAULT '',
					status VARCHAR(20) NOT NULL DEFAULT 'valid',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_question_user ON votes(question_id, user_id);
			`,
		},
		{
			Version:     "006",
			Description: "Create audit_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_events (
					id VARCHAR(64) PRIMARY KEY,
					event VARCHAR(100) NOT NULL,
					level VARCHAR(10) NOT NULL,
					category VARCHAR(50) NOT NULL,
					details JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_audit_events_event ON audit_events(event);
				CREATE INDEX IF NOT EXISTS idx_audit_events_category ON audit_events(category);
				CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at DESC);
			`,
		},
	}
}
