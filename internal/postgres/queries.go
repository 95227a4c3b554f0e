package postgres

const (
	// User queries
	queryGetUserByWallet = `
		SELECT id, wallet_address, created_at, updated_at
		FROM users
		WHERE wallet_address = $1`

	queryInsertUser = `
		INSERT INTO users (id, wallet_address) VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO NOTHING`

	// Agent wallet queries
	queryGetAgentWallet = `
		SELECT user_id, agent_address, enc_private_key, approved, created_at, updated_at
		FROM agent_wallets
		WHERE user_id = $1`

	queryInsertAgentWallet = `
		INSERT INTO agent_wallets (user_id, agent_address, enc_private_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`

	querySetAgentApproved = `
		UPDATE agent_wallets
		SET approved = $1, updated_at = now()
		WHERE user_id = $2`

	queryListPendingAgents = `
		SELECT a.user_id, u.wallet_address, a.agent_address
		FROM agent_wallets a
		JOIN users u ON u.id = a.user_id
		WHERE a.approved = FALSE
		ORDER BY a.created_at`

	// Plan queries
	queryInsertPlan = `
		INSERT INTO sips (id, user_id, asset_name, asset_index, monthly_amount_usdc, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, asset_name, asset_index, monthly_amount_usdc, status, created_at, updated_at`

	queryGetPlan = `
		SELECT id, user_id, asset_name, asset_index, monthly_amount_usdc, status, created_at, updated_at
		FROM sips
		WHERE id = $1`

	queryGetPlanOwnerWallet = `
		SELECT u.wallet_address
		FROM sips s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`

	queryListPlansByUser = `
		SELECT s.id, s.user_id, s.asset_name, s.asset_index, s.monthly_amount_usdc, s.status, s.created_at, s.updated_at
		FROM sips s
		JOIN users u ON u.id = s.user_id
		WHERE u.wallet_address = $1
		ORDER BY s.created_at DESC, s.id DESC`

	// Cancelled is terminal: the predicate keeps concurrent transitions from
	// resurrecting a cancelled plan.
	queryUpdatePlanStatus = `
		UPDATE sips
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status <> 'cancelled'
		RETURNING id, user_id, asset_name, asset_index, monthly_amount_usdc, status, created_at, updated_at`
)
