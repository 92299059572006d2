package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open はPostgreSQLへの接続プールを開く。
// sql.Openは接続を検証しないため、起動時はdb.PingContextで疎通を確認すること
// （serveサブコマンドはこの確認が通るまで受け付けを開始しない）。
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
