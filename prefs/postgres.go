// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package prefs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq" // load database driver for postgres

	"github.com/griddeck/griddeck/core/logger"
)

// DB encapsulates a standard sql.DB with a schema.
type DB struct {
	*sql.DB
	Schema string
}

// OpenWithSchema opens a postgres database with a schema. The schema gets
// created if it does not exist yet.
func OpenWithSchema(dataSourceName, schema string) (*DB, error) {
	logger.Default().Infoln("connecting to postgres database")
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if len(schema) == 0 {
		schema = "public"
	} else {
		logger.Default().Infoln("selected database schema:", schema)
		_, err = db.Exec(`CREATE schema IF NOT EXISTS ` + schema + `;`)
		if err != nil {
			return nil, err
		}
	}
	return &DB{DB: db, Schema: schema}, nil
}

// ClearSchema clears all the data contained in the database's schema.
// Technically this is done by dropping the schema and then recreating it.
func (db *DB) ClearSchema() {
	if db.Schema == "public" {
		panic("refuse to drop public schema")
	}
	_, err := db.Exec(`DROP SCHEMA ` + db.Schema + ` CASCADE;
	CREATE schema IF NOT EXISTS ` + db.Schema + `;`)
	if err != nil {
		logger.Default().Errorln("clear schema error:", db.Schema, err.Error())
	}
}

// PostgresStore keeps preferences in a single key/value table.
type PostgresStore struct {
	db     *DB
	prefix string
}

var _ Store = PostgresStore{}

// NewPostgresStore creates the preferences table if necessary and returns a
// store on it. An optional prefix is prepended to every key as "{prefix}:".
func NewPostgresStore(db *DB, prefix string) (PostgresStore, error) {
	_, err := db.Exec(`CREATE table IF NOT EXISTS ` + db.Schema + `."_prefs_"
(key varchar NOT NULL,
value json NOT NULL,
timestamp timestamp NOT NULL,
PRIMARY KEY(key)
);`)
	if err != nil {
		return PostgresStore{}, err
	}
	return PostgresStore{db: db, prefix: prefix}, nil
}

func (s PostgresStore) key(key string) string {
	if len(s.prefix) > 0 {
		return s.prefix + ":" + key
	}
	return key
}

// Read reads a value from the store. It returns the time when the value was
// written, or a zero timestamp if there is no value.
func (s PostgresStore) Read(ctx context.Context, key string, value interface{}) (time.Time, error) {
	var (
		rawValue  json.RawMessage
		timestamp time.Time
	)
	key = s.key(key)

	err := s.db.QueryRowContext(ctx,
		`SELECT value, timestamp FROM `+s.db.Schema+`."_prefs_" WHERE key=$1;`,
		key).Scan(&rawValue, &timestamp)
	if err == sql.ErrNoRows {
		return timestamp, nil
	}
	if err != nil {
		return timestamp, fmt.Errorf("cannot read key '%s': %s", key, err.Error())
	}
	err = json.Unmarshal(rawValue, &value)

	return timestamp, err
}

// Write writes a value into the store.
func (s PostgresStore) Write(ctx context.Context, key string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	key = s.key(key)
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.db.Schema+`."_prefs_"(key,value,timestamp)
VALUES($1,$2,$3)
ON CONFLICT (key) DO UPDATE SET value=$2,timestamp=$3;`,
		key, string(body), now)

	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("could not write key %s", key)
	}
	return nil
}

// Delete deletes a value from the store.
func (s PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM `+s.db.Schema+`."_prefs_" WHERE key=$1;`,
		s.key(key))
	return err
}
