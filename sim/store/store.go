// Package store persists finished simulation runs through gorm.
//
// Supported drivers are "sqlite" (github.com/glebarez/sqlite, pure Go) and
// "postgres". An empty sqlite DSN opens a private in-memory database.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inference-sim/trafficsim/sim"
	"github.com/inference-sim/trafficsim/sim/trace"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	memoryDSN = ":memory:"
	batchSize = 1000
)

// Run is one stored simulation run.
type Run struct {
	gorm.Model
	Ticks              int64
	TickSeconds        float64
	Vehicles           int
	RedLightViolations int
	Config             datatypes.JSON `json:"config"`
	Metrics            datatypes.JSON `json:"metrics"`
}

// VehicleSample is one traced vehicle state, keyed by run and tick.
type VehicleSample struct {
	ID           uint  `gorm:"primarykey"`
	RunID        uint  `gorm:"index:idx_run_vehicle_tick,priority:1"`
	VehicleID    int   `gorm:"index:idx_run_vehicle_tick,priority:2"`
	Tick         int64 `gorm:"index:idx_run_vehicle_tick,priority:3"`
	Position     float64
	Velocity     float64
	Acceleration float64
	Braking      bool
}

// SignalChange is one LightChanged notification of a stored run.
type SignalChange struct {
	ID    uint `gorm:"primarykey"`
	RunID uint `gorm:"index"`
	Tick  int64
	Color string `gorm:"size:16"`
}

// Models lists every table managed by the store.
var Models = []any{
	&Run{},
	&VehicleSample{},
	&SignalChange{},
}

// Store wraps a migrated gorm connection.
type Store struct {
	db *gorm.DB
}

// Open connects with the named driver and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	memory := false
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = memoryDSN
		}
		memory = dsn == memoryDSN
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("unknown db driver %q; valid: %s, %s", driver, DriverSQLite, DriverPostgres)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        batchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if memory {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("accessing sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New migrates the schema on an existing connection.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun stores the configuration, the final metrics and the trace of one
// run in a single transaction and returns the new run ID. st may be nil.
func (s *Store) SaveRun(ctx context.Context, cfg sim.Config, st *trace.SimulationTrace, m *sim.Metrics) (uint, error) {
	if m == nil {
		panic("SaveRun: metrics must not be nil")
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("encoding config: %w", err)
	}
	metricsJSON, err := json.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("encoding metrics: %w", err)
	}
	run := Run{
		Ticks:              m.Ticks,
		TickSeconds:        cfg.TickSeconds,
		Vehicles:           cfg.Fleet.Vehicles,
		RedLightViolations: m.RedLightViolations,
		Config:             datatypes.JSON(cfgJSON),
		Metrics:            datatypes.JSON(metricsJSON),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
		if st == nil {
			return nil
		}
		if samples := vehicleSamples(run.ID, st); len(samples) > 0 {
			if err := tx.CreateInBatches(samples, batchSize).Error; err != nil {
				return fmt.Errorf("inserting %d vehicle samples: %w", len(samples), err)
			}
		}
		if changes := signalChanges(run.ID, st); len(changes) > 0 {
			if err := tx.CreateInBatches(changes, batchSize).Error; err != nil {
				return fmt.Errorf("inserting %d signal changes: %w", len(changes), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logrus.Infof("Saved run %d (%d ticks, %d vehicles)", run.ID, run.Ticks, run.Vehicles)
	return run.ID, nil
}

func vehicleSamples(runID uint, st *trace.SimulationTrace) []VehicleSample {
	var out []VehicleSample
	for _, rec := range st.Ticks {
		for _, v := range rec.Vehicles {
			out = append(out, VehicleSample{
				RunID:        runID,
				VehicleID:    v.VehicleID,
				Tick:         rec.Tick,
				Position:     v.Position,
				Velocity:     v.Velocity,
				Acceleration: v.Acceleration,
				Braking:      v.Braking,
			})
		}
	}
	return out
}

func signalChanges(runID uint, st *trace.SimulationTrace) []SignalChange {
	out := make([]SignalChange, 0, len(st.SignalChanges))
	for _, c := range st.SignalChanges {
		out = append(out, SignalChange{RunID: runID, Tick: c.Tick, Color: c.Color})
	}
	return out
}

// Run loads a stored run by ID.
func (s *Store) Run(ctx context.Context, id uint) (*Run, error) {
	var run Run
	if err := s.db.WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, fmt.Errorf("loading run %d: %w", id, err)
	}
	return &run, nil
}

// VehicleSamples returns the stored samples of one vehicle in tick order.
func (s *Store) VehicleSamples(ctx context.Context, runID uint, vehicle int) ([]VehicleSample, error) {
	var out []VehicleSample
	err := s.db.WithContext(ctx).
		Where("run_id = ? AND vehicle_id = ?", runID, vehicle).
		Order("tick").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("loading samples of vehicle %d in run %d: %w", vehicle, runID, err)
	}
	return out, nil
}

// SignalChanges returns the stored notifications of a run in tick order.
func (s *Store) SignalChanges(ctx context.Context, runID uint) ([]SignalChange, error) {
	var out []SignalChange
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("tick, id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("loading signal changes of run %d: %w", runID, err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
