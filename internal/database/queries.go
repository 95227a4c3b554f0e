/**
 * Copyright 2025-present EzDawg Labs
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	// User queries
	queryGetUserByWallet = `
		SELECT id, wallet_address, created_at, updated_at
		FROM users
		WHERE wallet_address = ?`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, wallet_address) VALUES (?, ?)`

	// Agent wallet queries
	queryGetAgentWallet = `
		SELECT user_id, agent_address, enc_private_key, approved, created_at, updated_at
		FROM agent_wallets
		WHERE user_id = ?`

	queryInsertAgentWallet = `
		INSERT OR IGNORE INTO agent_wallets (user_id, agent_address, enc_private_key)
		VALUES (?, ?, ?)`

	querySetAgentApproved = `
		UPDATE agent_wallets
		SET approved = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`

	queryListPendingAgents = `
		SELECT a.user_id, u.wallet_address, a.agent_address
		FROM agent_wallets a
		JOIN users u ON u.id = a.user_id
		WHERE a.approved = 0
		ORDER BY a.created_at`

	// Plan queries
	queryInsertPlan = `
		INSERT INTO sips (id, user_id, asset_name, asset_index, monthly_amount_usdc, status)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, user_id, asset_name, asset_index, monthly_amount_usdc, status, created_at, updated_at`

	queryGetPlan = `
		SELECT id, user_id, asset_name, asset_index, monthly_amount_usdc, status, created_at, updated_at
		FROM sips
		WHERE id = ?`

	queryGetPlanOwnerWallet = `
		SELECT u.wallet_address
		FROM sips s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ?`

	queryListPlansByUser = `
		SELECT s.id, s.user_id, s.asset_name, s.asset_index, s.monthly_amount_usdc, s.status, s.created_at, s.updated_at
		FROM sips s
		JOIN users u ON u.id = s.user_id
		WHERE u.wallet_address = ?
		ORDER BY s.created_at DESC, s.rowid DESC`

	// Cancelled is terminal: the predicate keeps concurrent transitions from
	// resurrecting a cancelled plan.
	queryUpdatePlanStatus = `
		UPDATE sips
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status <> 'cancelled'
		RETURNING id, user_id, asset_name, asset_index, monthly_amount_usdc, status, created_at, updated_at`
)
