// Package events fans dataset notifications out to live subscribers.
package events

import (
	"context"
	"errors"

	"github.com/chemequip/backend/internal/models"
)

// Publisher delivers a dataset event to one sink.
type Publisher interface {
	Publish(ctx context.Context, ev models.DatasetEvent) error
}

// Multi publishes to every sink and joins their errors. A failing sink does
// not stop delivery to the others.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, ev models.DatasetEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, models.DatasetEvent) error { return nil }

// Created builds the event announcing a newly stored dataset.
func Created(ds *models.Dataset, pruned int) models.DatasetEvent {
	return models.DatasetEvent{
		Type:       models.EventDatasetCreated,
		DatasetID:  ds.ID,
		FileName:   ds.FileName,
		UploadedAt: ds.UploadedAt,
		Summary:    ds.Summary,
		Pruned:     pruned,
	}
}
