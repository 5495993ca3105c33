// Package mongostore keeps student records in MongoDB and their face batches in GridFS.
package mongostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/rollcall/internal/enroll"
	"github.com/andresmejia3/rollcall/internal/gallery"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 15 * time.Second

type studentDoc struct {
	ID         string             `bson:"_id"`
	RollNo     string             `bson:"rollNo"`
	Name       string             `bson:"name"`
	Samples    int                `bson:"samples"`
	Dimension  int                `bson:"dimension"`
	FileID     primitive.ObjectID `bson:"fileId"`
	EnrolledAt time.Time          `bson:"enrolledAt"`
}

type Store struct {
	client   *mongo.Client
	students *mongo.Collection
	faces    *gridfs.Bucket
}

// New connects to url and prepares the database dbName.
func New(ctx context.Context, url, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(url)
	clientOpts.SetMinPoolSize(1)
	clientOpts.SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	db := client.Database(dbName)
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("faces"))
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("opening gridfs bucket: %w", err)
	}

	s := &Store{client: client, students: db.Collection("students"), faces: bucket}
	if err := s.setUpIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info("connected to mongodb successfully", logger.LoggerOptions{Key: "db", Data: dbName})
	return s, nil
}

func (s *Store) setUpIndexes(ctx context.Context) error {
	_, err := s.students.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "rollNo", Value: 1}},
		Options: options.Index().SetUnique(true),
	}, {
		Keys:    bson.D{{Key: "enrolledAt", Value: 1}},
		Options: options.Index(),
	}})
	if err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) SaveEnrollment(ctx context.Context, b enroll.Batch) (store.Student, error) {
	blob, err := enroll.Compress(b.Encode())
	if err != nil {
		return store.Student{}, err
	}

	// 1. Upload the new batch first so a failure leaves the old one intact
	fileID, err := s.faces.UploadFromStream(b.Identifier+".bin.gz", bytes.NewReader(blob))
	if err != nil {
		return store.Student{}, fmt.Errorf("uploading face data: %w", err)
	}

	// 2. Point the student at it
	var prev studentDoc
	err = s.students.FindOne(ctx, bson.M{"rollNo": b.Identifier}).Decode(&prev)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		prev = studentDoc{ID: uuid.NewString()}
	case err != nil:
		s.faces.Delete(fileID)
		return store.Student{}, err
	}

	doc := studentDoc{
		ID:         prev.ID,
		RollNo:     b.Identifier,
		Name:       b.Label,
		Samples:    len(b.Samples),
		Dimension:  b.Dimension,
		FileID:     fileID,
		EnrolledAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	_, err = s.students.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		s.faces.Delete(fileID)
		return store.Student{}, fmt.Errorf("saving student: %w", err)
	}

	// 3. Drop the replaced batch
	if !prev.FileID.IsZero() {
		if err := s.faces.Delete(prev.FileID); err != nil {
			logger.Warning("failed to delete replaced face data", logger.LoggerOptions{Key: "error", Data: err.Error()})
		}
	}
	return toStudent(doc), nil
}

func toStudent(d studentDoc) store.Student {
	return store.Student{
		ID:         d.ID,
		Name:       d.Name,
		RollNo:     d.RollNo,
		Samples:    d.Samples,
		Dimension:  d.Dimension,
		EnrolledAt: d.EnrolledAt,
	}
}

func (s *Store) find(ctx context.Context) ([]studentDoc, error) {
	opts := options.Find().SetSort(bson.D{{Key: "enrolledAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.students.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []studentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) download(id primitive.ObjectID) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.faces.DownloadToStream(id, &buf); err != nil {
		return nil, err
	}
	return enroll.Decompress(buf.Bytes())
}

func (s *Store) Gallery(ctx context.Context) (gallery.Raw, error) {
	var raw gallery.Raw
	docs, err := s.find(ctx)
	if err != nil {
		return raw, store.FetchError(err)
	}

	for _, d := range docs {
		data, err := s.download(d.FileID)
		if err == nil {
			var samples [][]uint8
			samples, err = enroll.DecodeSamples(data, d.Dimension)
			for _, sample := range samples {
				raw.Append(sample, d.Name, d.RollNo)
			}
		}
		if err != nil {
			logger.Warning("skipping corrupt face data",
				logger.LoggerOptions{Key: "rollNo", Data: d.RollNo},
				logger.LoggerOptions{Key: "error", Data: err.Error()},
			)
		}
	}
	return raw, nil
}

func (s *Store) FaceData(ctx context.Context, rollNo string) ([]byte, store.Student, error) {
	var d studentDoc
	err := s.students.FindOne(ctx, bson.M{"rollNo": rollNo}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.Student{}, store.ErrNotFound
	}
	if err != nil {
		return nil, store.Student{}, err
	}
	data, err := s.download(d.FileID)
	if err != nil {
		return nil, store.Student{}, fmt.Errorf("reading face data for %s: %w", rollNo, err)
	}
	return data, toStudent(d), nil
}

func (s *Store) ListStudents(ctx context.Context) ([]store.Student, error) {
	docs, err := s.find(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]store.Student, 0, len(docs))
	for _, d := range docs {
		out = append(out, toStudent(d))
	}
	return out, nil
}

func (s *Store) Rename(ctx context.Context, rollNo, name string) error {
	res, err := s.students.UpdateOne(ctx, bson.M{"rollNo": rollNo}, bson.M{"$set": bson.M{"name": name}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	if err := s.students.Drop(ctx); err != nil {
		return err
	}
	if err := s.faces.Drop(); err != nil {
		return err
	}
	return s.setUpIndexes(ctx)
}
