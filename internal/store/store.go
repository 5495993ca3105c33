package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/enroll"
	"github.com/andresmejia3/rollcall/internal/gallery"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/vector"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// ErrNotFound is returned when no student has the requested roll number.
var ErrNotFound = errors.New("student not found")

// Student is one enrolled subject.
type Student struct {
	ID         string
	Name       string
	RollNo     string
	Samples    int
	Dimension  int
	EnrolledAt time.Time
}

// Repository is the gallery store. Every backend keeps one enrollment batch
// per roll number; saving again replaces the previous batch.
type Repository interface {
	SaveEnrollment(ctx context.Context, b enroll.Batch) (Student, error)
	// Gallery returns every stored sample, ordered by enrollment time then sample index.
	Gallery(ctx context.Context) (gallery.Raw, error)
	// FaceData returns the encoded batch for one student.
	FaceData(ctx context.Context, rollNo string) ([]byte, Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	Rename(ctx context.Context, rollNo, name string) error
	Reset(ctx context.Context) error
	Close(ctx context.Context) error
}

// FetchError wraps a backend failure while loading the gallery.
func FetchError(err error) error {
	return apperrors.New(apperrors.GalleryFetch, "failed to load gallery", err)
}

// Store manages the PostgreSQL connection and pgvector operations.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the necessary tables and vector extension if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS students (
			id SERIAL PRIMARY KEY,
			roll_no TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			enrolled_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS face_samples (
			student_id INT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
			sample_index INT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			PRIMARY KEY (student_id, sample_index)
		);
	`, vector.Dimension)
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// SaveEnrollment replaces the student's samples with the batch in one transaction.
func (s *Store) SaveEnrollment(ctx context.Context, b enroll.Batch) (Student, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return Student{}, err
	}
	defer tx.Rollback(ctx)

	// 1. Upsert the student by roll number
	var id int
	var enrolledAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO students (roll_no, name, enrolled_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (roll_no) DO UPDATE SET name = EXCLUDED.name, enrolled_at = NOW()
		RETURNING id, enrolled_at
	`, b.Identifier, b.Label).Scan(&id, &enrolledAt)
	if err != nil {
		return Student{}, err
	}

	// 2. Drop the previous batch
	if _, err := tx.Exec(ctx, "DELETE FROM face_samples WHERE student_id = $1", id); err != nil {
		return Student{}, err
	}

	// 3. One vector row per sample
	for i, sample := range b.Samples {
		_, err := tx.Exec(ctx,
			"INSERT INTO face_samples (student_id, sample_index, embedding) VALUES ($1, $2, $3::vector)",
			id, i, pgvector.NewVector(vector.ToFloat32(sample)))
		if err != nil {
			return Student{}, fmt.Errorf("insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Student{}, err
	}
	return Student{
		ID:         strconv.Itoa(id),
		Name:       b.Label,
		RollNo:     b.Identifier,
		Samples:    len(b.Samples),
		Dimension:  b.Dimension,
		EnrolledAt: enrolledAt,
	}, nil
}

// parseEmbedding reads a pgvector text literal such as "[1,2,3]".
func parseEmbedding(text string) ([]float32, error) {
	var v pgvector.Vector
	if err := v.Scan(text); err != nil {
		return nil, err
	}
	return v.Slice(), nil
}

// Gallery loads every stored sample. Unparseable rows are skipped with a warning.
func (s *Store) Gallery(ctx context.Context) (gallery.Raw, error) {
	var raw gallery.Raw
	rows, err := s.conn.Query(ctx, `
		SELECT st.name, st.roll_no, fs.embedding::text
		FROM face_samples fs
		JOIN students st ON st.id = fs.student_id
		ORDER BY st.enrolled_at, st.id, fs.sample_index
	`)
	if err != nil {
		return raw, FetchError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, rollNo, text string
		if err := rows.Scan(&name, &rollNo, &text); err != nil {
			return raw, FetchError(err)
		}
		vec, err := parseEmbedding(text)
		if err != nil {
			logger.Warning("skipping corrupt face sample",
				logger.LoggerOptions{Key: "rollNo", Data: rollNo},
				logger.LoggerOptions{Key: "error", Data: err.Error()},
			)
			continue
		}
		f := make([]float64, len(vec))
		for i, x := range vec {
			f[i] = float64(x)
		}
		raw.Vectors = append(raw.Vectors, f)
		raw.Labels = append(raw.Labels, name)
		raw.Identifiers = append(raw.Identifiers, rollNo)
	}
	if err := rows.Err(); err != nil {
		return raw, FetchError(err)
	}
	return raw, nil
}

// FaceData returns the concatenated samples of one student.
func (s *Store) FaceData(ctx context.Context, rollNo string) ([]byte, Student, error) {
	id, st, err := s.student(ctx, rollNo)
	if err != nil {
		return nil, Student{}, err
	}

	rows, err := s.conn.Query(ctx,
		"SELECT embedding::text FROM face_samples WHERE student_id = $1 ORDER BY sample_index", id)
	if err != nil {
		return nil, Student{}, err
	}
	defer rows.Close()

	var out []byte
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, Student{}, err
		}
		vec, err := parseEmbedding(text)
		if err != nil {
			return nil, Student{}, fmt.Errorf("corrupt sample for %s: %w", rollNo, err)
		}
		out = append(out, vector.FromNumbers(vec)...)
	}
	return out, st, rows.Err()
}

func (s *Store) student(ctx context.Context, rollNo string) (int, Student, error) {
	var st Student
	var id int
	err := s.conn.QueryRow(ctx, `
		SELECT st.id, st.name, st.roll_no, st.enrolled_at, COUNT(fs.sample_index)
		FROM students st LEFT JOIN face_samples fs ON fs.student_id = st.id
		WHERE st.roll_no = $1
		GROUP BY st.id
	`, rollNo).Scan(&id, &st.Name, &st.RollNo, &st.EnrolledAt, &st.Samples)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, Student{}, ErrNotFound
	}
	if err != nil {
		return 0, Student{}, err
	}
	st.ID = strconv.Itoa(id)
	st.Dimension = vector.Dimension
	return id, st, nil
}

// ListStudents returns every student with their sample counts, oldest enrollment first.
func (s *Store) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT st.id, st.name, st.roll_no, st.enrolled_at, COUNT(fs.sample_index)
		FROM students st LEFT JOIN face_samples fs ON fs.student_id = st.id
		GROUP BY st.id
		ORDER BY st.enrolled_at, st.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var st Student
		var id int
		if err := rows.Scan(&id, &st.Name, &st.RollNo, &st.EnrolledAt, &st.Samples); err != nil {
			return nil, err
		}
		st.ID = strconv.Itoa(id)
		st.Dimension = vector.Dimension
		out = append(out, st)
	}
	return out, rows.Err()
}

// Rename updates the name of an enrolled student.
func (s *Store) Rename(ctx context.Context, rollNo, name string) error {
	tag, err := s.conn.Exec(ctx, "UPDATE students SET name = $1 WHERE roll_no = $2", name, rollNo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Reset drops all application tables and recreates the schema.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS face_samples CASCADE;
		DROP TABLE IF EXISTS students CASCADE;
	`)
	if err != nil {
		return err
	}
	return initSchema(ctx, s.conn)
}
