package configurations

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/common/metrics"
	"card-program-wizard/internal/common/validation"
	"card-program-wizard/internal/notify"
)

type Service struct {
	repo     Repository
	index    Indexer
	notifier notify.Notifier
	logger   logger.Logger
}

type ServiceOption func(*Service)

// WithIndexer mirrors writes into a search index and routes text search to it.
func WithIndexer(i Indexer) ServiceOption {
	return func(s *Service) { s.index = i }
}

func WithNotifier(n notify.Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// NewService builds the configuration service. A nil repo leaves only
// Schema usable; every other call reports that the database is not
// configured.
func NewService(repo Repository, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		notifier: notify.Nop{},
		logger:   logger.ForComponent(log, "configurations"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Enabled() bool {
	return s.repo != nil
}

func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if s.repo == nil {
		return nil, errors.NewDatabaseNotConfiguredError()
	}
	params = params.normalized()

	if params.Search != "" && s.index != nil {
		ids, err := s.index.SearchIDs(ctx, params.Search)
		switch {
		case err != nil:
			s.logger.Warn("search index query failed, using database full-text search", map[string]interface{}{
				"error": err.Error(),
			})
		case len(ids) == 0:
			return &ListResult{
				Data:       []Configuration{},
				Pagination: Pagination{Limit: params.Limit, Offset: params.Offset},
			}, nil
		default:
			params.IDs = ids
		}
	}

	data, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError("list configurations", err)
	}
	metrics.ConfigurationsTotal.WithLabelValues("list").Inc()

	return &ListResult{
		Data:  data,
		Count: len(data),
		Pagination: Pagination{
			Limit:   params.Limit,
			Offset:  params.Offset,
			HasMore: len(data) == params.Limit,
		},
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Configuration, error) {
	if s.repo == nil {
		return nil, errors.NewDatabaseNotConfiguredError()
	}
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewInvalidRequestError("Missing configuration ID")
	}

	cfg, err := s.repo.Get(ctx, id)
	if stderrors.Is(err, ErrNotFound) {
		return nil, errors.NewConfigurationNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError("get configuration", err)
	}
	return cfg, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Configuration, error) {
	if s.repo == nil {
		return nil, errors.NewDatabaseNotConfiguredError()
	}

	if missing := req.missingFields(); len(missing) > 0 {
		return nil, errors.NewValidationFailedError("Missing required fields", strings.Join(missing, ", ")).
			WithMetadata("missingFields", missing)
	}
	if !contains(ProgramTypes, req.ProgramType) {
		return nil, errors.NewInvalidConfigurationError("program_type", ProgramTypes)
	}
	if !contains(FundingModels, req.FundingModel) {
		return nil, errors.NewInvalidConfigurationError("funding_model", FundingModels)
	}
	if !contains(CardSchemes, req.CardScheme) {
		return nil, errors.NewInvalidConfigurationError("card_scheme", CardSchemes)
	}
	if req.ClientEmail != "" && !validation.ValidateEmail(req.ClientEmail) {
		return nil, errors.NewValidationFailedError("Configuration validation failed", "client_email: invalid email address")
	}

	cfg := newConfiguration(req)

	if cfg.ClientID == nil && req.ClientEmail != "" {
		clientID, err := s.repo.FindOrCreateClient(ctx, req.ClientEmail, req.ClientName, req.ClientCompany)
		if err != nil {
			return nil, errors.NewDatabaseInsertFailedError(fmt.Errorf("create client: %w", err))
		}
		cfg.ClientID = &clientID
	}

	cfg.Pricing = CalculatePricing(cfg)
	if err := validatePayload(cfg); err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, cfg); err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	s.audit(ctx, AuditEntry{
		ConfigurationID: cfg.ID,
		Action:          "created",
		ChangedBy:       cfg.CreatedBy,
		Changes:         map[string]interface{}{"initial_config": cfg},
	})

	saved := s.reload(ctx, cfg)
	s.reindex(ctx, saved)

	event := notify.ConfigurationEvent{
		ConfigurationID: saved.ID,
		ProgramName:     saved.ProgramName,
		ProgramType:     saved.ProgramType,
		ClientEmail:     req.ClientEmail,
		EstimatedCards:  saved.EstimatedCards,
		CreatedAt:       saved.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if saved.Pricing != nil {
		event.TotalFirstMonth = saved.Pricing.TotalFirstMonth
	}
	if err := s.notifier.ConfigurationCreated(ctx, event); err != nil {
		s.logger.Warn("configuration announcement failed", map[string]interface{}{
			"configurationId": saved.ID,
			"error":           err.Error(),
		})
	}

	metrics.ConfigurationsTotal.WithLabelValues("create").Inc()
	s.logger.Info("configuration created", map[string]interface{}{
		"configurationId": saved.ID,
		"programType":     saved.ProgramType,
		"estimatedCards":  saved.EstimatedCards,
	})
	return saved, nil
}

func newConfiguration(req CreateRequest) *Configuration {
	cfg := &Configuration{
		ProgramName:         strings.TrimSpace(req.ProgramName),
		ProgramType:         req.ProgramType,
		Status:              req.Status,
		FundingModel:        req.FundingModel,
		FormFactors:         req.FormFactors,
		CardScheme:          req.CardScheme,
		Currency:            req.Currency,
		EstimatedCards:      req.EstimatedCards,
		DailyLimit:          req.DailyLimit,
		MonthlyLimit:        req.MonthlyLimit,
		CardDesign:          req.CardDesign,
		CardColor:           req.CardColor,
		MCCRestrictions:     nonNil(req.MCCRestrictions),
		CountryRestrictions: nonNil(req.CountryRestrictions),
		AdditionalConfig:    req.AdditionalConfig,
		CreatedBy:           req.CreatedBy,
	}
	if req.ClientID != "" {
		id := req.ClientID
		cfg.ClientID = &id
	}
	if req.CardBackgroundImage != "" {
		img := req.CardBackgroundImage
		cfg.CardBackgroundImage = &img
	}
	if cfg.Status == "" {
		cfg.Status = StatusDraft
	}
	if cfg.EstimatedCards == 0 {
		cfg.EstimatedCards = defaultEstimatedCards
	}
	if cfg.DailyLimit == 0 {
		cfg.DailyLimit = defaultDailyLimit
	}
	if cfg.MonthlyLimit == 0 {
		cfg.MonthlyLimit = defaultMonthlyLimit
	}
	if cfg.CardDesign == "" {
		cfg.CardDesign = defaultCardDesign
	}
	if cfg.CardColor == "" {
		cfg.CardColor = defaultCardColor
	}
	if cfg.AdditionalConfig == nil {
		cfg.AdditionalConfig = map[string]interface{}{}
	}
	if cfg.CreatedBy == "" {
		cfg.CreatedBy = defaultCreatedBy
	}
	return cfg
}

// Fields a caller may not change through Update.
var immutableFields = []string{"id", "created_at", "created_by", "client", "updated_at", "updated_by"}

var updatableFields = []string{
	"client_id", "program_name", "program_type", "status", "funding_model", "form_factors",
	"card_scheme", "currency", "estimated_cards", "daily_limit", "monthly_limit", "card_design",
	"card_color", "card_background_image", "mcc_restrictions", "country_restrictions",
	"additional_config", "pricing",
}

// Update applies a partial update. Enum values are matched case-insensitively
// and pricing is recomputed when the card count, form factors or funding
// model change.
func (s *Service) Update(ctx context.Context, id string, updates map[string]interface{}) (*Configuration, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changedBy := defaultChangedBy
	if v, ok := updates["updated_by"].(string); ok && v != "" {
		changedBy = v
	}

	changes, err := normalizeUpdate(updates)
	if err != nil {
		return nil, err
	}
	for _, field := range immutableFields {
		delete(changes, field)
	}
	var unknown []string
	for _, field := range sortedKeys(changes) {
		if !contains(updatableFields, field) {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) > 0 {
		return nil, errors.NewValidationFailedError("Unknown fields", strings.Join(unknown, ", ")).
			WithMetadata("unknownFields", unknown)
	}
	if len(changes) == 0 {
		return nil, errors.NewInvalidRequestError("No updatable fields provided")
	}

	merged, err := mergeUpdate(existing, changes)
	if err != nil {
		return nil, err
	}
	if hasAny(changes, "estimated_cards", "form_factors", "funding_model") {
		merged.Pricing = CalculatePricing(merged)
		changes["pricing"] = merged.Pricing
	}
	if err := validatePayload(merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return nil, errors.NewConfigurationNotFoundError(id)
		}
		return nil, errors.NewDatabaseQueryFailedError("update configuration", err)
	}

	after := s.reload(ctx, merged)
	s.audit(ctx, AuditEntry{
		ConfigurationID: id,
		Action:          "updated",
		ChangedBy:       changedBy,
		Changes: map[string]interface{}{
			"before":         existing,
			"after":          after,
			"fields_changed": sortedKeys(changes),
		},
	})
	s.reindex(ctx, after)

	metrics.ConfigurationsTotal.WithLabelValues("update").Inc()
	return after, nil
}

func normalizeUpdate(updates map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		out[k] = v
	}

	enums := []struct {
		field string
		fn    func(string) string
		valid []string
	}{
		{"program_type", strings.ToLower, ProgramTypes},
		{"funding_model", strings.ToLower, FundingModels},
		{"card_scheme", NormalizeScheme, CardSchemes},
		{"status", strings.ToLower, Statuses},
	}
	for _, e := range enums {
		raw, ok := out[e.field]
		if !ok || raw == nil || raw == "" {
			continue
		}
		v, isString := raw.(string)
		normalized := e.fn(strings.TrimSpace(v))
		if !isString || !contains(e.valid, normalized) {
			return nil, errors.NewInvalidConfigurationError(e.field, e.valid).WithMetadata("received", raw)
		}
		out[e.field] = normalized
	}

	if list, ok := out["form_factors"].([]interface{}); ok {
		lowered := make([]interface{}, len(list))
		for i, item := range list {
			if s, ok := item.(string); ok {
				lowered[i] = strings.ToLower(s)
			} else {
				lowered[i] = item
			}
		}
		out["form_factors"] = lowered
	}
	if currency, ok := out["currency"].(string); ok {
		out["currency"] = strings.ToUpper(strings.TrimSpace(currency))
	}
	return out, nil
}

// mergeUpdate overlays changes onto a copy of cfg through its JSON form, so
// each field decodes with the same rules as a create body.
func mergeUpdate(cfg *Configuration, changes map[string]interface{}) (*Configuration, error) {
	base, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal configuration: %w", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	for k, v := range changes {
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.NewValidationFailedError("Invalid update", err.Error())
	}
	out := &Configuration{}
	if err := json.Unmarshal(merged, out); err != nil {
		return nil, errors.NewValidationFailedError("Invalid update", err.Error())
	}
	out.MCCRestrictions = nonNil(out.MCCRestrictions)
	out.CountryRestrictions = nonNil(out.CountryRestrictions)
	return out, nil
}

// Delete archives the configuration when soft is set and removes it
// otherwise.
func (s *Service) Delete(ctx context.Context, id string, soft bool, deletedBy string) (*DeleteResult, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if deletedBy == "" {
		deletedBy = defaultChangedBy
	}

	if soft {
		if err := s.repo.Archive(ctx, id); err != nil {
			return nil, errors.NewDatabaseQueryFailedError("archive configuration", err)
		}
		s.audit(ctx, AuditEntry{
			ConfigurationID: id,
			Action:          "suspended",
			ChangedBy:       deletedBy,
			Changes:         map[string]interface{}{"archived": true},
		})

		archived := *existing
		archived.Status = StatusArchived
		data := s.reload(ctx, &archived)
		s.reindex(ctx, data)

		metrics.ConfigurationsTotal.WithLabelValues("archive").Inc()
		return &DeleteResult{Data: data, Archived: true}, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return nil, errors.NewConfigurationNotFoundError(id)
		}
		return nil, errors.NewDatabaseQueryFailedError("delete configuration", err)
	}
	s.audit(ctx, AuditEntry{
		ConfigurationID: id,
		Action:          "deleted",
		ChangedBy:       deletedBy,
		Changes:         map[string]interface{}{"deleted_config": existing},
	})
	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			s.logger.Warn("search index removal failed", map[string]interface{}{
				"configurationId": id,
				"error":           err.Error(),
			})
		}
	}

	metrics.ConfigurationsTotal.WithLabelValues("delete").Inc()
	return &DeleteResult{DeletedID: id}, nil
}

func (s *Service) audit(ctx context.Context, entry AuditEntry) {
	if err := s.repo.InsertAudit(ctx, entry); err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"configurationId": entry.ConfigurationID,
			"action":          entry.Action,
			"error":           err.Error(),
		})
	}
}

// reload reads back a written row so the response carries the joined
// client. The in-memory copy is returned when the read fails.
func (s *Service) reload(ctx context.Context, cfg *Configuration) *Configuration {
	saved, err := s.repo.Get(ctx, cfg.ID)
	if err != nil {
		s.logger.Warn("failed to reload configuration", map[string]interface{}{
			"configurationId": cfg.ID,
			"error":           err.Error(),
		})
		return cfg
	}
	return saved
}

func (s *Service) reindex(ctx context.Context, cfg *Configuration) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, cfg); err != nil {
		s.logger.Warn("search index update failed", map[string]interface{}{
			"configurationId": cfg.ID,
			"error":           err.Error(),
		})
	}
}

func hasAny(m map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
