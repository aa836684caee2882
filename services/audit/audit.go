package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Actions recorded in the trail
const (
	ActionEarningRecorded    = "earning.recorded"
	ActionWithdrawalCreated  = "withdrawal.created"
	ActionWithdrawalApproved = "withdrawal.approved"
	ActionWithdrawalRejected = "withdrawal.rejected"
	ActionReceiptAttached    = "withdrawal.receipt_attached"
)

// Entry is one document in the audit_logs collection.
type Entry struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"-"`
	Action     string        `bson:"action" json:"action"`
	ProviderID uint          `bson:"provider_id" json:"providerId"`
	ActorID    uint          `bson:"actor_id" json:"actorId"`
	RequestID  uint          `bson:"request_id,omitempty" json:"requestId,omitempty"`
	EarningID  uint          `bson:"earning_id,omitempty" json:"earningId,omitempty"`
	Amount     int64         `bson:"amount" json:"amount"`
	Notes      string        `bson:"notes,omitempty" json:"notes,omitempty"`
	RecordedAt time.Time     `bson:"recorded_at" json:"recordedAt"`
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type MongoRecorder struct {
	collection *mongo.Collection
}

func NewMongoRecorder(client *mongo.Client, dbName string) *MongoRecorder {
	return &MongoRecorder{collection: client.Database(dbName).Collection("audit_logs")}
}

func (r *MongoRecorder) Record(ctx context.Context, entry Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ForRequest returns the trail of one withdrawal request, oldest first.
func (r *MongoRecorder) ForRequest(ctx context.Context, requestID uint) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.D{{Key: "request_id", Value: requestID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// MemoryRecorder keeps entries in memory.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemoryRecorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}
