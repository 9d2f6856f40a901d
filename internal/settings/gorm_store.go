package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// settingsRowID is the primary key of the single settings row
const settingsRowID = 1

type settingsRecord struct {
	ID                 uint `gorm:"primaryKey"`
	PrintMethod        string
	NetworkPrinterIP   string
	NetworkPrinterPort int
	PrintServerURL     string
	PosPrinterType     string
	PosPrinterHost     string
	PosPrinterPort     int
	UpdatedAt          time.Time
}

func (settingsRecord) TableName() string {
	return "app_settings"
}

// GormStore keeps settings in a single row of the relational backing store
type GormStore struct {
	db *gorm.DB
}

// OpenPostgres connects to Postgres and migrates the settings table
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewGormStore(db)
}

// NewGormStore wraps an open database handle
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&settingsRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate settings table: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Load reads the settings row, returning defaults if none is stored
func (g *GormStore) Load(ctx context.Context) (AppSettings, error) {
	var rec settingsRecord
	err := g.db.WithContext(ctx).First(&rec, settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return AppSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	return fromRecord(rec), nil
}

// Save upserts the settings row
func (g *GormStore) Save(ctx context.Context, s AppSettings) error {
	rec := toRecord(s)
	if err := g.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func toRecord(s AppSettings) settingsRecord {
	rec := settingsRecord{
		ID:             settingsRowID,
		PrintMethod:    string(s.PrintMethod),
		PrintServerURL: s.PrintServerURL,
		PosPrinterType: s.PosPrinterType,
		PosPrinterHost: s.PosPrinterHost,
		PosPrinterPort: s.PosPrinterPort,
	}
	if s.NetworkPrinter != nil {
		rec.NetworkPrinterIP = s.NetworkPrinter.IP
		rec.NetworkPrinterPort = s.NetworkPrinter.Port
	}
	return rec
}

func fromRecord(rec settingsRecord) AppSettings {
	s := AppSettings{
		PrintMethod:    PrintMethod(rec.PrintMethod),
		PrintServerURL: rec.PrintServerURL,
		PosPrinterType: rec.PosPrinterType,
		PosPrinterHost: rec.PosPrinterHost,
		PosPrinterPort: rec.PosPrinterPort,
	}
	if rec.NetworkPrinterIP != "" || rec.NetworkPrinterPort != 0 {
		s.NetworkPrinter = &NetworkPrinter{IP: rec.NetworkPrinterIP, Port: rec.NetworkPrinterPort}
	}
	return s
}
