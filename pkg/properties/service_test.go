package properties

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legatepro/legate/pkg/access"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	guard := access.NewGuard(access.NewSQLResolver(db, nil), nil)
	return NewService(db, guard, nil), mock
}

func expectOwnerResolve(mock sqlmock.Sqlmock, ownerID string) {
	mock.ExpectQuery(`SELECT owner_id FROM estates`).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(ownerID))
}

func propertyRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "estate_id", "owner_id", "address", "city", "state", "postal_code",
		"property_type", "status", "notes", "created_at", "updated_at",
	}).AddRow("p1", "e1", "owner1", "12 Elm St", "Springfield", "IL", "62704",
		"residential", "active", "", now, now)
}

func TestServiceCreate(t *testing.T) {
	service, mock := newMockService(t)

	expectOwnerResolve(mock, "owner1")
	mock.ExpectExec(`INSERT INTO properties`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	property, err := service.Create(context.Background(), "owner1", &CreateRequest{
		EstateID: "e1",
		Address:  "12 Elm St",
	})
	require.NoError(t, err)
	assert.Equal(t, "e1", property.EstateID)
	assert.Equal(t, "owner1", property.OwnerID)
	assert.Equal(t, "active", property.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceCreateMissingAddress(t *testing.T) {
	service, mock := newMockService(t)

	_, err := service.Create(context.Background(), "owner1", &CreateRequest{EstateID: "e1"})
	require.Error(t, err)
	assert.Equal(t, "Address is required", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceCreateViewerForbidden(t *testing.T) {
	service, mock := newMockService(t)

	expectOwnerResolve(mock, "owner1")
	mock.ExpectQuery(`SELECT role FROM estate_collaborators`).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("VIEWER"))

	_, err := service.Create(context.Background(), "viewer1", &CreateRequest{
		EstateID: "e1",
		Address:  "12 Elm St",
	})
	assert.ErrorIs(t, err, access.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRentSummary(t *testing.T) {
	service, mock := newMockService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, estate_id, owner_id, address`).
		WillReturnRows(propertyRows(now))
	expectOwnerResolve(mock, "owner1")
	mock.ExpectQuery(`FROM rent_payments`).
		WillReturnRows(sqlmock.NewRows([]string{"collected", "outstanding", "count"}).
			AddRow(3600.0, 1200.0, 4))

	summary, err := service.RentSummary(context.Background(), "p1", "owner1")
	require.NoError(t, err)
	assert.Equal(t, 3600.0, summary.Collected)
	assert.Equal(t, 1200.0, summary.Outstanding)
	assert.Equal(t, 4, summary.PaymentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceDeleteMissing(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery(`SELECT id, estate_id, owner_id, address`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := service.Delete(context.Background(), "nope", "owner1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
