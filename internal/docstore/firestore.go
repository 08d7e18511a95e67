package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreMaxWrites is the per-commit write limit of Firestore.
const firestoreMaxWrites = 500

// FirestoreStore is a Store over Cloud Firestore. A document's version is its
// update time in nanoseconds; version preconditions become LastUpdateTime
// preconditions. Batches commit inside a transaction.
type FirestoreStore struct {
	client *firestore.Client
	logger *logrus.Logger
}

// NewFirestoreStore creates a Firestore client for projectID. An empty
// credentialsFile uses application default credentials.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string, logger *logrus.Logger) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	logger.WithField("project_id", projectID).Info("Connected to Firestore")
	return &FirestoreStore{client: client, logger: logger}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return snapshotDocument(collection, snap), nil
}

func (s *FirestoreStore) Query(ctx context.Context, collection, field string, op Op, value interface{}) ([]*Document, error) {
	var fsOp string
	switch op {
	case OpEqual:
		fsOp = "=="
	case OpArrayContains:
		fsOp = "array-contains"
	default:
		return nil, fmt.Errorf("unsupported query operator %q", op)
	}
	snaps, err := s.client.Collection(collection).Where(field, fsOp, value).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	out := make([]*Document, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snapshotDocument(collection, snap))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, fields Fields) error {
	b := s.Batch()
	b.Set(collection, id, fields)
	return b.Commit(ctx)
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	b := s.Batch()
	b.Update(collection, id, fields)
	return b.Commit(ctx)
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	b := s.Batch()
	b.Delete(collection, id)
	return b.Commit(ctx)
}

func (s *FirestoreStore) Batch() Batch {
	return &firestoreBatch{store: s, writeBuffer: newWriteBuffer()}
}

type firestoreBatch struct {
	store *FirestoreStore
	writeBuffer
}

func (b *firestoreBatch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	writes := b.list()
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > firestoreMaxWrites {
		return ErrBatchTooLarge
	}
	client := b.store.client
	err := client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, w := range writes {
			ref := client.Collection(w.collection).Doc(w.id)
			var preconds []firestore.Precondition
			if w.pre.hasVersion {
				preconds = append(preconds, firestore.LastUpdateTime(time.Unix(0, w.pre.version)))
			}
			var err error
			switch w.kind {
			case writeSet:
				err = tx.Set(ref, map[string]interface{}(w.fields))
			case writeUpdate:
				err = tx.Update(ref, fieldUpdates(w.fields), preconds...)
			case writeDelete:
				err = tx.Delete(ref, preconds...)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}, firestore.MaxAttempts(1))
	if err != nil {
		return commitError(ctx, err, writes, b.store.exists)
	}
	return nil
}

func (s *FirestoreStore) exists(ctx context.Context, collection, id string) (bool, error) {
	_, err := s.Get(ctx, collection, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// commitError maps a failed commit onto store errors. Firestore reports a
// missing document without naming the write, so a NotFound is blamed on an
// unguarded update whose target is gone, and is otherwise a version mismatch
// of a guarded write.
func commitError(ctx context.Context, err error, writes []*write, exists func(ctx context.Context, collection, id string) (bool, error)) error {
	if status.Code(err) != codes.NotFound {
		return mapFirestoreError(err)
	}
	guarded := false
	for _, w := range writes {
		if w.pre.hasVersion {
			guarded = true
			continue
		}
		if w.kind != writeUpdate {
			continue
		}
		ok, checkErr := exists(ctx, w.collection, w.id)
		if checkErr != nil {
			return fmt.Errorf("firestore: %w", checkErr)
		}
		if !ok {
			return ErrNotFound
		}
	}
	if guarded {
		return ErrVersionMismatch
	}
	return ErrNotFound
}

func fieldUpdates(fields Fields) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: fields[k]})
	}
	return updates
}

func snapshotDocument(collection string, snap *firestore.DocumentSnapshot) *Document {
	return &Document{
		Collection: collection,
		ID:         snap.Ref.ID,
		Fields:     Fields(snap.Data()),
		Version:    snap.UpdateTime.UnixNano(),
	}
}

// mapFirestoreError translates gRPC status codes into store errors.
func mapFirestoreError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.FailedPrecondition:
		return ErrVersionMismatch
	}
	return fmt.Errorf("firestore: %w", err)
}
