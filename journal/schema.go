// journal/schema.go
package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	time INTEGER NOT NULL,
	side TEXT NOT NULL,
	price TEXT NOT NULL,
	size TEXT NOT NULL,
	notional TEXT NOT NULL,
	fee TEXT NOT NULL,
	cash_before TEXT NOT NULL,
	cash_after TEXT NOT NULL,
	pos_before TEXT NOT NULL,
	pos_after TEXT NOT NULL,
	avg_price_before TEXT NOT NULL,
	avg_price_after TEXT NOT NULL,
	equity_before TEXT NOT NULL,
	equity_after TEXT NOT NULL,
	prev_id TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_trades_trade_id ON trades(trade_id);
`
