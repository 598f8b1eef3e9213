// journal/sqlite.go
package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// mirrorSQLite copies the finalized payload into a SQLite database in
// a single transaction. Decimal columns are stored as their exact
// string form; SQLite REAL would reintroduce the float drift the
// ledger exists to avoid.
func mirrorSQLite(path string, p Payload) (err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open journal db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close journal db: %w", cerr)
		}
	}()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("journal schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO trades
		(run_id, seq, time, side, price, size, notional, fee,
		 cash_before, cash_after, pos_before, pos_after,
		 avg_price_before, avg_price_after, equity_before, equity_after,
		 prev_id, trade_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare journal insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range p.Trades {
		_, err = stmt.Exec(
			r.RunID, r.Seq, r.Time, r.Side,
			r.Price.String(), r.Size.String(), r.Notional.String(), r.Fee.String(),
			r.CashBefore.String(), r.CashAfter.String(),
			r.PosBefore.String(), r.PosAfter.String(),
			r.AvgPriceBefore.String(), r.AvgPriceAfter.String(),
			r.EquityBefore.String(), r.EquityAfter.String(),
			r.PrevID, r.TradeID,
		)
		if err != nil {
			return fmt.Errorf("insert journal row %d: %w", r.Seq, err)
		}
	}

	return tx.Commit()
}
