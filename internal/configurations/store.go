package configurations

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"card-program-wizard/internal/common/database"
)

var ErrNotFound = stderrors.New("CONFIGURATION_NOT_FOUND")

// Repository persists configurations, their clients and the audit trail.
type Repository interface {
	List(ctx context.Context, params ListParams) ([]Configuration, error)
	Get(ctx context.Context, id string) (*Configuration, error)
	Insert(ctx context.Context, cfg *Configuration) error
	Update(ctx context.Context, cfg *Configuration) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	FindOrCreateClient(ctx context.Context, email, name, company string) (string, error)
	InsertAudit(ctx context.Context, entry AuditEntry) error
	LookupOptions(ctx context.Context) (*LookupOptions, error)
}

const selectConfiguration = `
	SELECT c.id, c.client_id, c.program_name, c.program_type, c.status, c.funding_model,
		c.form_factors, c.card_scheme, c.currency, c.estimated_cards, c.daily_limit,
		c.monthly_limit, c.card_design, c.card_color, c.card_background_image,
		c.mcc_restrictions, c.country_restrictions, c.additional_config, c.pricing,
		c.created_by, c.created_at, c.updated_at,
		cl.id, cl.name, cl.email, cl.company_name
	FROM card_configurations c
	LEFT JOIN clients cl ON cl.id = c.client_id`

type PostgresStore struct {
	pg *database.PostgresClient
}

func NewPostgresStore(pg *database.PostgresClient) *PostgresStore {
	return &PostgresStore{pg: pg}
}

func (s *PostgresStore) List(ctx context.Context, params ListParams) ([]Configuration, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if params.ClientID != "" {
		add("c.client_id = $%d", params.ClientID)
	}
	if params.Status != "" {
		add("c.status = $%d", params.Status)
	}
	if params.ProgramType != "" {
		add("c.program_type = $%d", params.ProgramType)
	}
	if len(params.IDs) > 0 {
		add("c.id = ANY($%d)", pq.Array(params.IDs))
	} else if params.Search != "" {
		add("c.search_vector @@ plainto_tsquery('english', $%d)", params.Search)
	}

	query := selectConfiguration
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	// Sort and order come from a whitelist in ListParams.normalized.
	query += fmt.Sprintf("\n\tORDER BY c.%s %s", params.Sort, strings.ToUpper(params.Order))
	args = append(args, params.Limit, params.Offset)
	query += fmt.Sprintf("\n\tLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pg.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Configuration{}
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cfg)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Configuration, error) {
	row := s.pg.DB.QueryRowContext(ctx, selectConfiguration+"\n\tWHERE c.id = $1", id)
	cfg, err := scanConfiguration(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cfg, err
}

func (s *PostgresStore) Insert(ctx context.Context, cfg *Configuration) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	cfg.CreatedAt, cfg.UpdatedAt = now, now

	additional, pricing, err := marshalJSONColumns(cfg)
	if err != nil {
		return err
	}

	_, err = s.pg.DB.ExecContext(ctx, `
		INSERT INTO card_configurations (
			id, client_id, program_name, program_type, status, funding_model,
			form_factors, card_scheme, currency, estimated_cards, daily_limit,
			monthly_limit, card_design, card_color, card_background_image,
			mcc_restrictions, country_restrictions, additional_config, pricing,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $21)`,
		cfg.ID, cfg.ClientID, cfg.ProgramName, cfg.ProgramType, cfg.Status, cfg.FundingModel,
		pq.Array(cfg.FormFactors), cfg.CardScheme, cfg.Currency, cfg.EstimatedCards, cfg.DailyLimit,
		cfg.MonthlyLimit, cfg.CardDesign, cfg.CardColor, cfg.CardBackgroundImage,
		pq.Array(cfg.MCCRestrictions), pq.Array(cfg.CountryRestrictions), additional, pricing,
		cfg.CreatedBy, now,
	)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, cfg *Configuration) error {
	additional, pricing, err := marshalJSONColumns(cfg)
	if err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now().UTC()

	res, err := s.pg.DB.ExecContext(ctx, `
		UPDATE card_configurations SET
			client_id = $2, program_name = $3, program_type = $4, status = $5,
			funding_model = $6, form_factors = $7, card_scheme = $8, currency = $9,
			estimated_cards = $10, daily_limit = $11, monthly_limit = $12,
			card_design = $13, card_color = $14, card_background_image = $15,
			mcc_restrictions = $16, country_restrictions = $17,
			additional_config = $18, pricing = $19, updated_at = $20
		WHERE id = $1`,
		cfg.ID, cfg.ClientID, cfg.ProgramName, cfg.ProgramType, cfg.Status,
		cfg.FundingModel, pq.Array(cfg.FormFactors), cfg.CardScheme, cfg.Currency,
		cfg.EstimatedCards, cfg.DailyLimit, cfg.MonthlyLimit,
		cfg.CardDesign, cfg.CardColor, cfg.CardBackgroundImage,
		pq.Array(cfg.MCCRestrictions), pq.Array(cfg.CountryRestrictions),
		additional, pricing, cfg.UpdatedAt,
	)
	return affectedOne(res, err)
}

func (s *PostgresStore) Archive(ctx context.Context, id string) error {
	res, err := s.pg.DB.ExecContext(ctx,
		`UPDATE card_configurations SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, StatusArchived)
	return affectedOne(res, err)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.pg.DB.ExecContext(ctx, `DELETE FROM card_configurations WHERE id = $1`, id)
	return affectedOne(res, err)
}

// FindOrCreateClient returns the id of the client with email, creating the
// client inside the same transaction when none exists.
func (s *PostgresStore) FindOrCreateClient(ctx context.Context, email, name, company string) (string, error) {
	var id string
	err := s.pg.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT id FROM clients WHERE email = $1`, email).Scan(&id)
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, sql.ErrNoRows) {
			return err
		}

		if name == "" {
			name = "Unknown"
		}
		var companyName *string
		if company != "" {
			companyName = &company
		}
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO clients (id, name, email, company_name) VALUES ($1, $2, $3, $4)`,
			id, name, email, companyName)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) InsertAudit(ctx context.Context, entry AuditEntry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}
	_, err = s.pg.DB.ExecContext(ctx, `
		INSERT INTO configuration_audit_log (configuration_id, action, changed_by, changes, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ConfigurationID, entry.Action, entry.ChangedBy, changes, time.Now().UTC())
	return err
}

var lookupTables = []string{
	"card_schemes", "program_types", "funding_models", "form_factors", "currencies", "configuration_statuses",
}

func (s *PostgresStore) LookupOptions(ctx context.Context) (*LookupOptions, error) {
	results := make([][]LookupOption, len(lookupTables))
	for i, table := range lookupTables {
		columns := "code, display_name, ''"
		if table == "currencies" {
			columns = "code, display_name, COALESCE(symbol, '')"
		}
		rows, err := s.pg.DB.QueryContext(ctx, fmt.Sprintf(
			`SELECT %s FROM %s WHERE is_active = true ORDER BY sort_order`, columns, table))
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", table, err)
		}
		for rows.Next() {
			var opt LookupOption
			if err := rows.Scan(&opt.Code, &opt.DisplayName, &opt.Symbol); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s: %w", table, err)
			}
			results[i] = append(results[i], opt)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}
	}

	return &LookupOptions{
		CardSchemes:   results[0],
		ProgramTypes:  results[1],
		FundingModels: results[2],
		FormFactors:   results[3],
		Currencies:    results[4],
		Statuses:      results[5],
	}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConfiguration(row scanner) (*Configuration, error) {
	var (
		cfg                                     Configuration
		clientID, backgroundImage               sql.NullString
		additional, pricing                     []byte
		clID, clName, clEmail, clCompany        sql.NullString
		formFactors, mccRestrictions, countries pq.StringArray
	)

	err := row.Scan(
		&cfg.ID, &clientID, &cfg.ProgramName, &cfg.ProgramType, &cfg.Status, &cfg.FundingModel,
		&formFactors, &cfg.CardScheme, &cfg.Currency, &cfg.EstimatedCards, &cfg.DailyLimit,
		&cfg.MonthlyLimit, &cfg.CardDesign, &cfg.CardColor, &backgroundImage,
		&mccRestrictions, &countries, &additional, &pricing,
		&cfg.CreatedBy, &cfg.CreatedAt, &cfg.UpdatedAt,
		&clID, &clName, &clEmail, &clCompany,
	)
	if err != nil {
		return nil, err
	}

	cfg.FormFactors = []string(formFactors)
	cfg.MCCRestrictions = nonNil(mccRestrictions)
	cfg.CountryRestrictions = nonNil(countries)
	if clientID.Valid {
		cfg.ClientID = &clientID.String
	}
	if backgroundImage.Valid {
		cfg.CardBackgroundImage = &backgroundImage.String
	}

	cfg.AdditionalConfig = map[string]interface{}{}
	if len(additional) > 0 {
		if err := json.Unmarshal(additional, &cfg.AdditionalConfig); err != nil {
			return nil, fmt.Errorf("decode additional_config: %w", err)
		}
	}
	if len(pricing) > 0 && string(pricing) != "null" {
		cfg.Pricing = &Pricing{}
		if err := json.Unmarshal(pricing, cfg.Pricing); err != nil {
			return nil, fmt.Errorf("decode pricing: %w", err)
		}
	}

	if clID.Valid {
		cfg.Client = &Client{ID: clID.String, Name: clName.String, Email: clEmail.String}
		if clCompany.Valid {
			cfg.Client.CompanyName = &clCompany.String
		}
	}
	return &cfg, nil
}

func marshalJSONColumns(cfg *Configuration) ([]byte, []byte, error) {
	additional := cfg.AdditionalConfig
	if additional == nil {
		additional = map[string]interface{}{}
	}
	a, err := json.Marshal(additional)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal additional_config: %w", err)
	}
	p, err := json.Marshal(cfg.Pricing)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal pricing: %w", err)
	}
	return a, p, nil
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
