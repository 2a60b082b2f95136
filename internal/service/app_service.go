package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agendauth/agendauth/internal/config"
	"github.com/agendauth/agendauth/internal/model"
	"github.com/agendauth/agendauth/internal/store"
	"github.com/agendauth/agendauth/internal/utils"

	"github.com/google/uuid"
)

// AppService reads and writes registered app records.
type AppService struct {
	store store.Store
}

func NewAppService(store store.Store) *AppService {
	return &AppService{
		store: store,
	}
}

func (apps *AppService) GetApp(ctx context.Context, id string) (*model.App, error) {
	record, err := apps.store.Get(ctx, model.AppCollection, id)

	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAppNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read app: %w", err)
	}

	var app model.App

	if err := json.Unmarshal(record, &app); err != nil {
		return nil, fmt.Errorf("failed to decode app record: %w", err)
	}

	return &app, nil
}

func (apps *AppService) SaveApp(ctx context.Context, app *model.App) error {
	record, err := json.Marshal(app)

	if err != nil {
		return fmt.Errorf("failed to encode app record: %w", err)
	}

	return apps.store.Put(ctx, model.AppCollection, app.ID, record)
}

// CreateApp registers a new app with a fresh id and client secret.
func (apps *AppService) CreateApp(ctx context.Context, name string, owner string, redirectURL string, maxCalls int64) (*model.App, error) {
	secret, err := utils.GenerateCredential(config.AppSecretBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to generate client secret: %w", err)
	}

	app := &model.App{
		ID:          uuid.New().String(),
		Name:        name,
		Owner:       owner,
		RedirectURL: redirectURL,
		Secret:      secret,
		MaxCalls:    maxCalls,
	}

	if err := apps.SaveApp(ctx, app); err != nil {
		return nil, err
	}

	return app, nil
}

// ListAppsByOwner returns every app registered by the given user.
func (apps *AppService) ListAppsByOwner(ctx context.Context, owner string) ([]*model.App, error) {
	records, err := apps.store.Scan(ctx, model.AppCollection, "owner", owner)

	if err != nil {
		return nil, fmt.Errorf("failed to scan apps: %w", err)
	}

	results := make([]*model.App, 0, len(records))

	for _, record := range records {
		var app model.App
		if err := json.Unmarshal(record, &app); err != nil {
			return nil, fmt.Errorf("failed to decode app record: %w", err)
		}
		results = append(results, &app)
	}

	return results, nil
}
