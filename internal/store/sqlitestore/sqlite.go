// Package sqlitestore keeps the gallery in a local SQLite file through gorm.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresmejia3/rollcall/internal/enroll"
	"github.com/andresmejia3/rollcall/internal/gallery"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/store"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const errDBClientNil = "db client is nil"

// Student is one enrollment row. Faces holds the gzip-compressed batch.
type Student struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	RollNo     string `gorm:"uniqueIndex:idx_roll_no"`
	Name       string
	Samples    int
	Dimension  int
	Faces      []byte
	EnrolledAt time.Time `gorm:"index:idx_enrolled_at"`
}

type Store struct {
	DB *gorm.DB
}

// New opens (creating if needed) the database file at dbPath.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.AutoMigrate(&Student{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) SaveEnrollment(ctx context.Context, b enroll.Batch) (store.Student, error) {
	if s == nil || s.DB == nil {
		return store.Student{}, errors.New(errDBClientNil)
	}
	blob, err := enroll.Compress(b.Encode())
	if err != nil {
		return store.Student{}, err
	}

	var row Student
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("roll_no = ?", b.Identifier).First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("querying existing student: %w", err)
		}
		isNew := errors.Is(err, gorm.ErrRecordNotFound)
		if isNew {
			row = Student{ID: uuid.NewString(), RollNo: b.Identifier}
		}
		row.Name = b.Label
		row.Samples = len(b.Samples)
		row.Dimension = b.Dimension
		row.Faces = blob
		row.EnrolledAt = time.Now()
		if isNew {
			return tx.Create(&row).Error
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return store.Student{}, fmt.Errorf("saving enrollment: %w", err)
	}
	return toStudent(row), nil
}

func toStudent(r Student) store.Student {
	return store.Student{
		ID:         r.ID,
		Name:       r.Name,
		RollNo:     r.RollNo,
		Samples:    r.Samples,
		Dimension:  r.Dimension,
		EnrolledAt: r.EnrolledAt,
	}
}

func (s *Store) Gallery(ctx context.Context) (gallery.Raw, error) {
	var raw gallery.Raw
	if s == nil || s.DB == nil {
		return raw, store.FetchError(errors.New(errDBClientNil))
	}

	var rows []Student
	if err := s.DB.WithContext(ctx).Order("enrolled_at, id").Find(&rows).Error; err != nil {
		return raw, store.FetchError(err)
	}

	for _, r := range rows {
		samples, err := decode(r)
		if err != nil {
			logger.Warning("skipping corrupt face data",
				logger.LoggerOptions{Key: "rollNo", Data: r.RollNo},
				logger.LoggerOptions{Key: "error", Data: err.Error()},
			)
			continue
		}
		for _, sample := range samples {
			raw.Append(sample, r.Name, r.RollNo)
		}
	}
	return raw, nil
}

func decode(r Student) ([][]uint8, error) {
	data, err := enroll.Decompress(r.Faces)
	if err != nil {
		return nil, err
	}
	return enroll.DecodeSamples(data, r.Dimension)
}

func (s *Store) FaceData(ctx context.Context, rollNo string) ([]byte, store.Student, error) {
	var row Student
	err := s.DB.WithContext(ctx).Where("roll_no = ?", rollNo).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.Student{}, store.ErrNotFound
	}
	if err != nil {
		return nil, store.Student{}, err
	}
	data, err := enroll.Decompress(row.Faces)
	if err != nil {
		return nil, store.Student{}, err
	}
	return data, toStudent(row), nil
}

func (s *Store) ListStudents(ctx context.Context) ([]store.Student, error) {
	var rows []Student
	// Faces is skipped; only the metadata is listed.
	err := s.DB.WithContext(ctx).
		Select("id", "roll_no", "name", "samples", "dimension", "enrolled_at").
		Order("enrolled_at, id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]store.Student, 0, len(rows))
	for _, r := range rows {
		out = append(out, toStudent(r))
	}
	return out, nil
}

func (s *Store) Rename(ctx context.Context, rollNo, name string) error {
	res := s.DB.WithContext(ctx).Model(&Student{}).Where("roll_no = ?", rollNo).Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	return s.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Student{}).Error
}
