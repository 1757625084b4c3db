package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/aristath/spreadscan/internal/testing"
)

func TestVacuumDatabasesJob_Name(t *testing.T) {
	assert.Equal(t, "vacuum_databases", NewVacuumDatabasesJob().Name())
}

func TestVacuumDatabasesJob_Run(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "prices")
	defer cleanup()

	_, err := db.Conn().Exec(`INSERT INTO contracts (contract_id, name, month, year, from_date) VALUES ('CLF21', 'CL', 'F', 2021, '2021-01-04')`)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`DELETE FROM contracts`)
	require.NoError(t, err)

	assert.NoError(t, NewVacuumDatabasesJob(db, nil).Run())
}

func TestVacuumDatabasesJob_Run_ClosedDatabase(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "prices")
	cleanup()

	err := NewVacuumDatabasesJob(db).Run()
	assert.EqualError(t, err, "1 databases failed to vacuum")
}
