package database

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS teams (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		wallet BIGINT NOT NULL DEFAULT 0 CHECK (wallet >= 0),
		deleted_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// allocated can drop below used after reactivation resets it, so the
	// "remaining >= amount" rule lives in the update predicates rather than
	// in a table constraint.
	`CREATE TABLE IF NOT EXISTS team_membership (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(50) NOT NULL DEFAULT 'member',
		allocated BIGINT NOT NULL DEFAULT 0 CHECK (allocated >= 0),
		used BIGINT NOT NULL DEFAULT 0 CHECK (used >= 0),
		joined_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(team_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS team_invites (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		email VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL DEFAULT 'member',
		invited_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		accepted_by UUID REFERENCES users(id),
		accepted_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(team_id, email)
	)`,

	`CREATE TABLE IF NOT EXISTS user_credit_balances (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS user_credit_purchases (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL,
		price_usd NUMERIC(10,2) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		payment_ref VARCHAR(255) UNIQUE NOT NULL,
		completed_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS team_purchases (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL,
		price_usd NUMERIC(10,2) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		payment_ref VARCHAR(255) UNIQUE NOT NULL,
		completed_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS usage_events (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		team_id UUID REFERENCES teams(id) ON DELETE CASCADE,
		payer_kind VARCHAR(30) NOT NULL,
		amount BIGINT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_teams_owner_id ON teams(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_membership_team_id ON team_membership(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_membership_user_id ON team_membership(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_invites_team_id ON team_invites(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_invites_token ON team_invites(token)`,
	`CREATE INDEX IF NOT EXISTS idx_team_invites_status_expires ON team_invites(status, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_user_credit_purchases_user_id ON user_credit_purchases(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_purchases_team_id ON team_purchases(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_events_user_id ON usage_events(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_events_team_id ON usage_events(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,
}
