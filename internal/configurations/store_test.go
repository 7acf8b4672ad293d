package configurations

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-program-wizard/internal/common/database"
)

// ==========================
// Test Helper Functions
// ==========================

var configurationColumns = []string{
	"id", "client_id", "program_name", "program_type", "status", "funding_model",
	"form_factors", "card_scheme", "currency", "estimated_cards", "daily_limit",
	"monthly_limit", "card_design", "card_color", "card_background_image",
	"mcc_restrictions", "country_restrictions", "additional_config", "pricing",
	"created_by", "created_at", "updated_at",
	"id", "name", "email", "company_name",
}

func createTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(database.NewPostgresFromDB(db)), mock
}

func addConfigurationRow(rows *sqlmock.Rows, id, name string, withClient bool) *sqlmock.Rows {
	created := time.Date(2024, 11, 27, 10, 0, 0, 0, time.UTC)
	var clientID, clID, clName, clEmail interface{}
	if withClient {
		clientID, clID, clName, clEmail = "client-1", "client-1", "Acme Ltd", "ops@acme.example"
	}
	return rows.AddRow(
		id, clientID, name, "corporate", "draft", "prepaid",
		"{physical,virtual}", "Visa", "EUR", int64(250), 500.0,
		5000.0, "corporate", "#2C3E50", nil,
		"{5812}", "{}", []byte(`{"kyc_level":"basic"}`), []byte(`{"currency":"EUR","total_first_month":1325}`),
		"wizard", created, created,
		clID, clName, clEmail, nil,
	)
}

// ==========================
// Read Tests
// ==========================

func TestPostgresStore_ListAppliesFilters(t *testing.T) {
	store, mock := createTestStore(t)

	rows := addConfigurationRow(sqlmock.NewRows(configurationColumns), "cfg-1", "Acme Travel", true)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE c.status = $1 AND c.search_vector @@ plainto_tsquery('english', $2)`) +
		`\s+ORDER BY c.program_name ASC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("draft", "travel", 20, 40).
		WillReturnRows(rows)

	params := ListParams{Status: "draft", Search: "travel", Sort: "program_name", Order: "asc", Limit: 20, Offset: 40}
	got, err := store.List(context.Background(), params.normalized())
	require.NoError(t, err)
	require.Len(t, got, 1)

	cfg := got[0]
	assert.Equal(t, []string{"physical", "virtual"}, cfg.FormFactors)
	assert.Equal(t, []string{"5812"}, cfg.MCCRestrictions)
	assert.Equal(t, []string{}, cfg.CountryRestrictions)
	assert.Equal(t, "basic", cfg.AdditionalConfig["kyc_level"])
	require.NotNil(t, cfg.Pricing)
	assert.Equal(t, 1325.0, cfg.Pricing.TotalFirstMonth)
	require.NotNil(t, cfg.Client)
	assert.Equal(t, "Acme Ltd", cfg.Client.Name)
	assert.Nil(t, cfg.Client.CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByIDs(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE c.id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg(), 50, 0).
		WillReturnRows(sqlmock.NewRows(configurationColumns))

	got, err := store.List(context.Background(), ListParams{IDs: []string{"a", "b"}, Search: "ignored"}.normalized())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE c.id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(configurationColumns))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_GetWithoutClient(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE c.id = $1`)).
		WithArgs("cfg-2").
		WillReturnRows(addConfigurationRow(sqlmock.NewRows(configurationColumns), "cfg-2", "Fleet", false))

	cfg, err := store.Get(context.Background(), "cfg-2")
	require.NoError(t, err)
	assert.Nil(t, cfg.ClientID)
	assert.Nil(t, cfg.Client)
}

// ==========================
// Write Tests
// ==========================

func TestPostgresStore_InsertAssignsID(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`INSERT INTO card_configurations`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cfg := &Configuration{ProgramName: "Acme", FormFactors: []string{"virtual"}}
	require.NoError(t, store.Insert(context.Background(), cfg))
	assert.NotEmpty(t, cfg.ID)
	assert.False(t, cfg.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateMissingRow(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`UPDATE card_configurations SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &Configuration{ID: "gone"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_ArchiveAndDelete(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE card_configurations SET status = $2`)).
		WithArgs("cfg-1", StatusArchived).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM card_configurations WHERE id = $1`)).
		WithArgs("cfg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Archive(context.Background(), "cfg-1"))
	assert.NoError(t, store.Delete(context.Background(), "cfg-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOrCreateClient(t *testing.T) {
	t.Run("existing client", func(t *testing.T) {
		store, mock := createTestStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM clients`).
			WithArgs("ops@acme.example").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("client-1"))
		mock.ExpectCommit()

		id, err := store.FindOrCreateClient(context.Background(), "ops@acme.example", "", "")
		require.NoError(t, err)
		assert.Equal(t, "client-1", id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("new client", func(t *testing.T) {
		store, mock := createTestStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM clients`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO clients`).
			WithArgs(sqlmock.AnyArg(), "Unknown", "new@acme.example", nil).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		id, err := store.FindOrCreateClient(context.Background(), "new@acme.example", "", "")
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lookup failure rolls back", func(t *testing.T) {
		store, mock := createTestStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM clients`).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := store.FindOrCreateClient(context.Background(), "x@acme.example", "X", "")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_InsertAudit(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`INSERT INTO configuration_audit_log`).
		WithArgs("cfg-1", "created", "wizard", []byte(`{"archived":true}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.InsertAudit(context.Background(), AuditEntry{
		ConfigurationID: "cfg-1", Action: "created", ChangedBy: "wizard",
		Changes: map[string]interface{}{"archived": true},
	})
	assert.NoError(t, err)
}

func TestPostgresStore_LookupOptions(t *testing.T) {
	store, mock := createTestStore(t)

	for _, table := range lookupTables {
		rows := sqlmock.NewRows([]string{"code", "display_name", "symbol"})
		switch table {
		case "card_schemes":
			rows.AddRow("Visa", "Visa", "").AddRow("Mastercard", "Mastercard", "")
		case "currencies":
			rows.AddRow("EUR", "Euro", "€")
		}
		mock.ExpectQuery(regexp.QuoteMeta("FROM " + table + " WHERE is_active = true")).WillReturnRows(rows)
	}

	opts, err := store.LookupOptions(context.Background())
	require.NoError(t, err)
	assert.Len(t, opts.CardSchemes, 2)
	assert.Equal(t, "€", opts.Currencies[0].Symbol)
	assert.Empty(t, opts.Statuses)
	assert.NoError(t, mock.ExpectationsWereMet())
}
