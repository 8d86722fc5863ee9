package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-booking-service/internal/database"
	"github.com/iliyamo/seat-booking-service/internal/model"
	"github.com/iliyamo/seat-booking-service/internal/repository"
)

const (
	gridRows    = 10 // A..J
	gridColumns = 10
)

// ResourceWriter is implemented by *repository.ResourceRepo.
type ResourceWriter interface {
	CreateTx(ctx context.Context, tx *sql.Tx, res *model.Resource) error
	GetByName(ctx context.Context, name string) (*model.Resource, error)
	ListWithoutSeats(ctx context.Context) ([]uint64, error)
}

// SeatGridWriter is implemented by *repository.SeatRepo.
type SeatGridWriter interface {
	CreateGridTx(ctx context.Context, tx *sql.Tx, resourceID uint64, labels []string) error
}

// Provisioner creates resources together with their seat grid.
type Provisioner struct {
	db        database.TxBeginner
	resources ResourceWriter
	seats     SeatGridWriter
	logger    *zap.Logger
}

func NewProvisioner(db database.TxBeginner, resources ResourceWriter, seats SeatGridWriter, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{db: db, resources: resources, seats: seats, logger: logger.Named("provisioner")}
}

// SeatGridLabels returns the labels of the standard 10x10 grid, A1..J10,
// row by row.
func SeatGridLabels() []string {
	labels := make([]string, 0, gridRows*gridColumns)
	for r := 0; r < gridRows; r++ {
		row := string(rune('A' + r))
		for c := 1; c <= gridColumns; c++ {
			labels = append(labels, row+strconv.Itoa(c))
		}
	}
	return labels
}

// ProvisionResource inserts res and its seat grid in one transaction.  If a
// resource with the same name exists it is returned unchanged and created
// is false.
func (p *Provisioner) ProvisionResource(ctx context.Context, res *model.Resource) (created bool, err error) {
	existing, err := p.resources.GetByName(ctx, res.Name)
	if err == nil {
		*res = *existing
		return false, nil
	}
	if !errors.Is(err, repository.ErrResourceNotFound) {
		return false, err
	}
	err = database.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		if err := p.resources.CreateTx(ctx, tx, res); err != nil {
			return err
		}
		return p.seats.CreateGridTx(ctx, tx, res.ID, SeatGridLabels())
	})
	if err != nil {
		return false, fmt.Errorf("provision %q: %w", res.Name, err)
	}
	p.logger.Info("resource provisioned", zap.Uint64("resource_id", res.ID), zap.String("name", res.Name))
	return true, nil
}

// EnsureSeats generates the seat grid for every resource that has none and
// returns how many resources were filled in.
func (p *Provisioner) EnsureSeats(ctx context.Context) (int, error) {
	ids, err := p.resources.ListWithoutSeats(ctx)
	if err != nil {
		return 0, fmt.Errorf("list resources without seats: %w", err)
	}
	filled := 0
	for _, id := range ids {
		err := database.WithTx(ctx, p.db, func(tx *sql.Tx) error {
			return p.seats.CreateGridTx(ctx, tx, id, SeatGridLabels())
		})
		if errors.Is(err, repository.ErrDuplicate) {
			// another instance filled it in first
			continue
		}
		if err != nil {
			return filled, fmt.Errorf("seat grid for resource %d: %w", id, err)
		}
		filled++
		p.logger.Info("seat grid generated", zap.Uint64("resource_id", id), zap.Int("seats", gridRows*gridColumns))
	}
	return filled, nil
}
