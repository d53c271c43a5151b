package tenant

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// row mirrors the tenants table. The rate_limit and branding columns are
// JSONB; the schema is provisioned outside this service.
type row struct {
	ID        string        `db:"id"`
	Provider  string        `db:"provider"`
	RateLimit rateLimitJSON `db:"rate_limit"`
	Branding  brandingJSON  `db:"branding"`
}

type rateLimitJSON RateLimitPolicy

func (v rateLimitJSON) Value() (driver.Value, error) {
	return json.Marshal(v)
}

func (v *rateLimitJSON) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("rate_limit: unexpected column type %T", src)
	}
	return json.Unmarshal(b, v)
}

type brandingJSON Branding

func (v brandingJSON) Value() (driver.Value, error) {
	return json.Marshal(v)
}

func (v *brandingJSON) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("branding: unexpected column type %T", src)
	}
	return json.Unmarshal(b, v)
}

func NewConnection(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// LoadFromPostgres reads the full tenant table. Called once at startup when
// DATABASE_URL is configured; the registry is the source of truth afterwards.
func LoadFromPostgres(db *sqlx.DB) ([]Config, error) {
	var rows []row
	if err := db.Select(&rows, `SELECT id, provider, rate_limit, branding FROM tenants`); err != nil {
		return nil, fmt.Errorf("load tenants: %w", err)
	}

	configs := make([]Config, 0, len(rows))
	for _, r := range rows {
		configs = append(configs, Config{
			ID:        r.ID,
			Provider:  ProviderKind(r.Provider),
			RateLimit: RateLimitPolicy(r.RateLimit),
			Branding:  Branding(r.Branding),
		})
	}
	return configs, nil
}
