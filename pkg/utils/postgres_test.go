package utils

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostgresPool_Defaults(t *testing.T) {
	p := PostgresPool{}.orDefault()
	assert.Equal(t, 20, p.MaxConns)
	assert.Equal(t, 30*time.Minute, p.MaxLifetime)
	assert.Equal(t, 5*time.Second, p.PingTimeout)

	p = PostgresPool{MaxConns: 4}.orDefault()
	assert.Equal(t, 4, p.MaxConns)
}

func TestPgxDriverRegistered(t *testing.T) {
	assert.Contains(t, sql.Drivers(), pgxDriver)
}

func TestDBTX_SatisfiedByDBAndTx(t *testing.T) {
	var _ DBTX = (*sql.DB)(nil)
	var _ DBTX = (*sql.Tx)(nil)
}
