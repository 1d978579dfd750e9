package importer

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/logger"
)

const tablesQuery = "SELECT TABLE_NAME\\s+FROM information_schema.TABLES"

func planOf(t *testing.T, units ...string) *Plan {
	t.Helper()
	p, err := BuildPlan(Registrations(), PlanOptions{Only: units})
	require.NoError(t, err)
	return p
}

func newMockSource(t *testing.T) (*database.Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return database.NewSource(db), mock
}

func TestNewPreflightChecker_NilSource(t *testing.T) {
	_, err := NewPreflightChecker(nil, logger.NewNop())
	assert.Error(t, err)
}

func TestPreflight_OptionalTablesMissing(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery(tablesQuery).
		WithArgs("mwnf3", "institutionnames", "institutions", "museumnames", "museums").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("institutions").AddRow("museums"))

	checker, err := NewPreflightChecker(src, logger.NewNop())
	require.NoError(t, err)

	report, err := checker.RunAllChecks(context.Background(), planOf(t, UnitPartner))
	require.NoError(t, err)
	assert.Equal(t, 4, report.Checked)
	assert.Empty(t, report.Missing)
	assert.Equal(t, []string{"mwnf3.institutionnames", "mwnf3.museumnames"}, report.MissingOptional)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreflight_RequiredTableMissing(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery(tablesQuery).
		WithArgs("mwnf3", "institutionnames", "institutions", "museumnames", "museums").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("museums"))

	checker, err := NewPreflightChecker(src, logger.NewNop())
	require.NoError(t, err)

	report, err := checker.RunAllChecks(context.Background(), planOf(t, UnitPartner))
	require.Error(t, err)

	var pe *PreflightError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "table_existence", pe.Check)
	assert.Equal(t, []string{"mwnf3.institutions"}, pe.Tables)
	assert.Contains(t, err.Error(), "mwnf3.institutions")
	assert.Equal(t, pe.Tables, report.Missing)
}

func TestPreflight_OneQueryPerSchema(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery(tablesQuery).
		WithArgs("mwnf3", "objects").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("objects"))
	mock.ExpectQuery(tablesQuery).
		WithArgs("mwnf3_thematic_gallery", "thg_gallery").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("thg_gallery"))

	checker, err := NewPreflightChecker(src, logger.NewNop())
	require.NoError(t, err)

	report, err := checker.RunAllChecks(context.Background(), planOf(t, UnitTHGGallery, UnitObject))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreflight_QueryFailure(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery(tablesQuery).WillReturnError(mysql.ErrInvalidConn)

	checker, err := NewPreflightChecker(src, logger.NewNop())
	require.NoError(t, err)

	_, err = checker.RunAllChecks(context.Background(), planOf(t, UnitObject))
	require.Error(t, err)
	assert.True(t, IsConnectionFailure(err))
}

func TestPlannedTables_RequiredWins(t *testing.T) {
	p := &Plan{Units: []Registration{
		{Key: "a", Tables: []TableRef{optional("mwnf3", "museumnames"), tbl("mwnf3", "museums")}},
		{Key: "b", Tables: []TableRef{tbl("mwnf3", "museumnames")}},
	}}
	refs := plannedTables(p)
	require.Len(t, refs, 2)
	assert.Equal(t, "museumnames", refs[0].Table)
	assert.False(t, refs[0].Optional)
}

func TestEstimator(t *testing.T) {
	src, mock := newMockSource(t)
	count := func(table string, n int64) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS n FROM `mwnf3`.`" + table + "`")).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(n))
	}
	count("museums", 3)
	mock.ExpectQuery(regexp.QuoteMeta("FROM `mwnf3`.`museumnames`")).
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'mwnf3.museumnames' doesn't exist"})
	count("institutions", 2)
	count("institutionnames", 0)

	est, err := NewEstimator(src, logger.NewNop()).Estimate(context.Background(), planOf(t, UnitPartnerLogo, UnitPartner))
	require.NoError(t, err)
	require.Len(t, est.Units, 2)

	partner, logos := est.Units[0], est.Units[1]
	assert.Equal(t, UnitPartner, partner.Unit)
	assert.Equal(t, int64(5), partner.Rows)
	assert.Equal(t, int64(-1), partner.Tables["mwnf3.museumnames"])
	assert.Equal(t, UnitPartnerLogo, logos.Unit)
	assert.Equal(t, 2, logos.Phase)
	assert.Equal(t, int64(5), logos.Rows, "shared tables come from the cache")
	assert.Equal(t, int64(10), est.TotalRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEstimator_ConnectionFailure(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(mysql.ErrInvalidConn)

	_, err := NewEstimator(src, logger.NewNop()).Estimate(context.Background(), planOf(t, UnitObject))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to estimate object")
	assert.True(t, errors.Is(err, database.ErrConnectionFailed))
}
